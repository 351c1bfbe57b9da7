package utils

import (
	"sync"
	"time"

	"flashbook-monitor/src/interfaces"
)

// -----------------------------------------------------------------------------
// ScheduledTask is a cancellable deferred call.
// -----------------------------------------------------------------------------

type ScheduledTask struct {
	timer *time.Timer
	mu    sync.Mutex
	done  bool
}

// Cancel stops the task if it has not fired yet.
func (t *ScheduledTask) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return t.timer.Stop()
}

// claim marks the task as fired; false if it was cancelled first.
func (t *ScheduledTask) claim() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// -----------------------------------------------------------------------------
// TimerScheduler schedules on the runtime timer.
// -----------------------------------------------------------------------------

type TimerScheduler struct{}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{}
}

func (s *TimerScheduler) Schedule(delay time.Duration, fn func()) interfaces.ICancelable {
	task := &ScheduledTask{}
	task.mu.Lock()
	task.timer = time.AfterFunc(delay, func() {
		if task.claim() {
			fn()
		}
	})
	task.mu.Unlock()
	return task
}
