package autosave

import "time"

// CancelFunc stops a scheduled callback. Calling it after the callback ran
// is a no-op.
type CancelFunc func()

// Scheduler defers a callback by a delay. Sessions use it to debounce writes;
// tests substitute a manual implementation to fire callbacks deterministically.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) CancelFunc
}

type timerScheduler struct{}

// NewTimerScheduler returns the wall-clock scheduler backed by time.AfterFunc.
func NewTimerScheduler() Scheduler {
	return timerScheduler{}
}

func (timerScheduler) Schedule(delay time.Duration, fn func()) CancelFunc {
	timer := time.AfterFunc(delay, fn)
	return func() { timer.Stop() }
}
