package keyhash_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gree/flare/internal/keyhash"
)

func TestBucket_Deterministic(t *testing.T) {
	require.Equal(t, keyhash.Bucket("node1:11211"), keyhash.Bucket("node1:11211"))
}

func TestBucket_WithinRange(t *testing.T) {
	for _, key := range []string{"", "a", "node1:11211", "storage-access-slow"} {
		require.Less(t, keyhash.Bucket(key), uint32(keyhash.Buckets))
	}
}

func TestBucket_DifferentKeysUsuallyDiffer(t *testing.T) {
	require.NotEqual(t, keyhash.Bucket("peer-a"), keyhash.Bucket("peer-b"))
}
