package interfaces

import "time"

// ICancelable is a handle on deferred work.
type ICancelable interface {
	// Cancel stops the work if it has not started. Reports whether it did.
	Cancel() bool
}

// IScheduler runs fn once after delay.
type IScheduler interface {
	Schedule(delay time.Duration, fn func()) ICancelable
}
