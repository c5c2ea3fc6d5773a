package timewatcher_test

import (
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"

	"github.com/gree/flare/clock"
	"github.com/gree/flare/timewatcher"
)

func TestRegistry_RegisterAndLen(t *testing.T) {
	r := timewatcher.NewRegistry()
	r.Register("k1", clock.Now(), nil)
	r.Register("k2", clock.Now(), nil)

	require.Equal(t, 2, r.Len())
}

func TestRegistry_CheckTimestamps_FiresOnlyStaleEntries(t *testing.T) {
	r := timewatcher.NewRegistry()

	base := clock.Now()
	old := clock.Timespec{Sec: base.Sec - 10, Nsec: base.Nsec}

	var fired []string

	r.Register("stale", old, func() { fired = append(fired, "stale") })
	r.Register("fresh", base, func() { fired = append(fired, "fresh") })

	r.CheckTimestamps(base, 5*time.Second)

	require.Equal(t, []string{"stale"}, fired)
	require.Equal(t, 1, r.Len())
}

func TestRegistry_CheckTimestamps_RemovesFiredEntries(t *testing.T) {
	r := timewatcher.NewRegistry()

	base := clock.Now()
	old := clock.Timespec{Sec: base.Sec - 10, Nsec: base.Nsec}

	calls := 0
	r.Register("stale", old, func() { calls++ })

	r.CheckTimestamps(base, time.Second)
	r.CheckTimestamps(base, time.Second)

	require.Equal(t, 1, calls)
	require.Equal(t, 0, r.Len())
}

func TestRegistry_Touch_RefreshesTimestamp(t *testing.T) {
	r := timewatcher.NewRegistry()

	base := clock.Now()
	old := clock.Timespec{Sec: base.Sec - 10, Nsec: base.Nsec}

	fired := false
	r.Register("k", old, func() { fired = true })
	r.Touch("k", base)

	r.CheckTimestamps(base, 5*time.Second)

	require.False(t, fired)
	require.Equal(t, 1, r.Len())
}

func TestRegistry_Touch_UnknownKeyIsNoop(t *testing.T) {
	r := timewatcher.NewRegistry()
	require.NotPanics(t, func() {
		r.Touch("ghost", clock.Now())
	})
}

func TestRegistry_Unregister(t *testing.T) {
	r := timewatcher.NewRegistry()
	r.Register("k", clock.Now(), nil)
	r.Unregister("k")

	require.Equal(t, 0, r.Len())
}

func TestRegistry_WithLogger_LogsByBucketNotRawKey(t *testing.T) {
	var lines [][]interface{}

	logger := log.LoggerFunc(func(kv ...interface{}) error {
		lines = append(lines, kv)
		return nil
	})

	r := timewatcher.NewRegistry().WithLogger(logger)

	base := clock.Now()
	old := clock.Timespec{Sec: base.Sec - 10, Nsec: base.Nsec}

	r.Register("high-cardinality-session-id-12345", old, nil)
	r.CheckTimestamps(base, 5*time.Second)

	require.NotEmpty(t, lines)

	for _, kv := range lines {
		for _, field := range kv {
			if s, ok := field.(string); ok {
				require.NotContains(t, s, "high-cardinality-session-id-12345")
			}
		}
	}
}
