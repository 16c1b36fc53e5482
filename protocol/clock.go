package protocol

import "time"

// Timer is a pending one-shot callback.
type Timer interface {
	// Stop cancels the callback. It returns false if the callback already
	// ran or is running.
	Stop() bool
}

// Clock schedules the readiness timer. Drivers with their own scheduler
// supply one; the default runs callbacks on a runtime timer goroutine.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock is the Clock backed by time.AfterFunc.
var SystemClock Clock = systemClock{}
