package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gree/flare/clock"
)

func TestFromMillis(t *testing.T) {
	ts := clock.FromMillis(1500)
	require.Equal(t, clock.Timespec{Sec: 1, Nsec: 500_000_000}, ts)
}

func TestFromDuration(t *testing.T) {
	ts := clock.FromDuration(2500 * time.Millisecond)
	require.Equal(t, clock.Timespec{Sec: 2, Nsec: 500_000_000}, ts)
}

func TestSub_Borrow(t *testing.T) {
	a := clock.Timespec{Sec: 5, Nsec: 100}
	b := clock.Timespec{Sec: 4, Nsec: 200}

	got := clock.Sub(a, b)
	require.Equal(t, clock.Timespec{Sec: 0, Nsec: 999_999_900}, got)
}

func TestSub_NoBorrow(t *testing.T) {
	a := clock.Timespec{Sec: 5, Nsec: 300}
	b := clock.Timespec{Sec: 4, Nsec: 200}

	got := clock.Sub(a, b)
	require.Equal(t, clock.Timespec{Sec: 1, Nsec: 100}, got)
}

func TestGreater(t *testing.T) {
	require.True(t, clock.Greater(clock.Timespec{Sec: 2}, clock.Timespec{Sec: 1, Nsec: 999}))
	require.True(t, clock.Greater(clock.Timespec{Sec: 1, Nsec: 999}, clock.Timespec{Sec: 1, Nsec: 1}))
	require.False(t, clock.Greater(clock.Timespec{Sec: 1}, clock.Timespec{Sec: 1}))
}

func TestDurationRoundTrip(t *testing.T) {
	d := 3*time.Second + 250*time.Millisecond
	require.Equal(t, d, clock.FromDuration(d).Duration())
}
