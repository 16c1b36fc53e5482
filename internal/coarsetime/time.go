// Package coarsetime is a clock for hot paths that can live with the
// precision of a background ticker.
//
// The ticker starts on the first call to Now.
package coarsetime

import (
	"sync"
	"sync/atomic"
	"time"
)

// Resolution is the interval at which the clock advances.
const Resolution = 50 * time.Millisecond

var (
	nanos atomic.Int64
	start sync.Once
)

func run() {
	nanos.Store(time.Now().UnixNano())

	ticker := time.NewTicker(Resolution)
	go func() {
		for t := range ticker.C {
			nanos.Store(t.UnixNano())
		}
	}()
}

// Now returns the time of the last tick.
func Now() time.Time {
	start.Do(run)
	return time.Unix(0, nanos.Load())
}

// Since returns the time elapsed since t, at tick precision.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}
