package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLimiter(capacity, refill float64) (*Limiter, *time.Time) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(capacity, refill)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_BurstThenDeny(t *testing.T) {
	l, _ := newTestLimiter(3, 1)

	require.True(t, l.Allow("a"))
	require.True(t, l.Allow("a"))
	require.True(t, l.Allow("a"))
	ok, wait := l.Reserve("a")
	require.False(t, ok)
	require.Equal(t, time.Second, wait)

	// keys are independent
	require.True(t, l.Allow("b"))
}

func TestLimiter_Refill(t *testing.T) {
	l, now := newTestLimiter(2, 2)

	require.True(t, l.Allow("a"))
	require.True(t, l.Allow("a"))
	require.False(t, l.Allow("a"))

	*now = now.Add(500 * time.Millisecond)
	require.True(t, l.Allow("a"))
	require.False(t, l.Allow("a"))

	// refill is capped at capacity
	*now = now.Add(time.Hour)
	require.True(t, l.Allow("a"))
	require.True(t, l.Allow("a"))
	require.False(t, l.Allow("a"))
}

func TestLimiter_Sweep(t *testing.T) {
	l, now := newTestLimiter(1, 1)

	l.Allow("old")
	*now = now.Add(10 * time.Minute)
	l.Allow("fresh")

	require.Equal(t, 1, l.Sweep(5*time.Minute))
	require.Equal(t, 1, l.Len())
}
