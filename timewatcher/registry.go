// Package timewatcher implements the independent staleness sweeper: other
// subsystems register a timestamp under a key and refresh it as they make
// progress; a periodic sweep fires a callback for any key that has gone
// stale for longer than a configured threshold.
package timewatcher

import (
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/gree/flare/clock"
	"github.com/gree/flare/internal/keyhash"
)

// entry is one registered timestamp and the action to run if it goes
// stale.
type entry struct {
	at     clock.Timespec
	action func()
}

// Registry is the shared table of watched keys. Safe for concurrent use:
// any subsystem can Register/Touch/Unregister from its own goroutine while
// a Processor concurrently sweeps it.
type Registry struct {
	mu      sync.Mutex
	entries map[string]entry
	logger  log.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry), logger: log.NewNopLogger()}
}

// WithLogger attaches logger, used to report key churn at bucket
// granularity rather than by the raw, potentially high-cardinality key.
func (r *Registry) WithLogger(logger log.Logger) *Registry {
	r.logger = logger
	return r
}

// Register records key with the current timestamp and the action to run
// if it later goes stale. A key already registered is overwritten.
func (r *Registry) Register(key string, now clock.Timespec, action func()) {
	r.mu.Lock()
	r.entries[key] = entry{at: now, action: action}
	r.mu.Unlock()

	level.Debug(r.logger).Log("msg", "key registered", "key_bucket", keyhash.Bucket(key))
}

// Touch refreshes key's timestamp to now, if key is still registered. It
// is a no-op on an unknown key, since the caller that unregistered it may
// race harmlessly with a caller still touching it.
func (r *Registry) Touch(key string, now clock.Timespec) {
	r.mu.Lock()
	e, ok := r.entries[key]
	if ok {
		e.at = now
		r.entries[key] = e
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	level.Debug(r.logger).Log("msg", "key touched", "key_bucket", keyhash.Bucket(key))
}

// Unregister removes key, if present.
func (r *Registry) Unregister(key string) {
	r.mu.Lock()
	_, ok := r.entries[key]
	delete(r.entries, key)
	r.mu.Unlock()

	if ok {
		level.Debug(r.logger).Log("msg", "key unregistered", "key_bucket", keyhash.Bucket(key))
	}
}

// Len reports the number of currently registered keys.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// CheckTimestamps runs action for, and removes, every entry whose
// timestamp is older than staleAfter relative to now. Removal happens
// before the action runs, so an action that re-registers its own key does
// not get immediately swept again by the same pass.
func (r *Registry) CheckTimestamps(now clock.Timespec, staleAfter time.Duration) {
	type staleEntry struct {
		key string
		e   entry
	}

	var stale []staleEntry

	r.mu.Lock()
	for key, e := range r.entries {
		age := clock.Sub(now, e.at).Duration()
		if age >= staleAfter {
			stale = append(stale, staleEntry{key: key, e: e})
			delete(r.entries, key)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		level.Info(r.logger).Log("msg", "key went stale", "key_bucket", keyhash.Bucket(s.key))

		if s.e.action != nil {
			s.e.action()
		}
	}
}
