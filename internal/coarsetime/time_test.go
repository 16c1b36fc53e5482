package coarsetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNow(t *testing.T) {
	before := time.Now().Add(-4 * Resolution)
	now := Now()
	require.True(t, now.After(before))
	require.False(t, now.After(time.Now()))
}

func TestNow_Advances(t *testing.T) {
	first := Now()
	require.Eventually(t, func() bool { return Now().After(first) }, 10*Resolution, Resolution/5)
}

func TestSince(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	require.InDelta(t, time.Hour.Seconds(), Since(past).Seconds(), (2 * Resolution).Seconds())
}

// BenchmarkTimeNow/time-8         	35926340	         32.82 ns/op	       0 B/op	       0 allocs/op
// BenchmarkTimeNow/coarsetime-8   	609668066	         1.950 ns/op	       0 B/op	       0 allocs/op
func BenchmarkTimeNow(b *testing.B) {
	var t time.Time

	b.Run("time", func(b *testing.B) {
		for b.Loop() {
			t = time.Now()
		}
	})

	b.Run("coarsetime", func(b *testing.B) {
		for b.Loop() {
			t = Now()
		}
	})

	_ = t
}
