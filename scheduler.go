package yure

import "time"

// Timer is a pending call scheduled by a Scheduler.
type Timer interface {
	// Stop prevents the call from running. It returns false if the call
	// already ran or was stopped.
	Stop() bool
}

// Scheduler runs a function after a delay. The Client schedules its
// reconnection attempts through it, so tests can fire them by hand.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type timeScheduler struct{}

// RealScheduler is backed by time.AfterFunc.
func RealScheduler() Scheduler {
	return timeScheduler{}
}

func (timeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
