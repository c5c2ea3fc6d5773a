// Package keyhash reduces an arbitrary string key to a stable numeric
// bucket, for logging high-cardinality identifiers without printing them
// raw.
package keyhash

import "github.com/twmb/murmur3"

// Buckets is the number of distinct bucket values Bucket can return.
const Buckets = 1 << 12

// Bucket hashes key with a fixed seed and folds the result into
// [0, Buckets).
func Bucket(key string) uint32 {
	h := murmur3.SeedNew32(0)
	h.Write([]byte(key))

	return h.Sum32() % Buckets
}
