package session

import (
	"time"

	"github.com/coder/quartz"
)

// Scheduler arms cancellable one-shot expiry timers over an injectable
// clock. Each timer runs independently; firing one never delays another.
type Scheduler struct {
	clock quartz.Clock
}

// NewScheduler creates a scheduler backed by the given clock.
// Production wiring passes quartz.NewReal(); tests pass quartz.NewMock.
func NewScheduler(clock quartz.Clock) *Scheduler {
	return &Scheduler{clock: clock}
}

// Handle is the cancellation handle for an armed timer.
type Handle struct {
	timer *quartz.Timer
}

// Cancel prevents a not-yet-fired timer from invoking its callback.
// Cancelling an already-fired, already-cancelled, or nil handle is a safe
// no-op; the resolution gate in Session makes a late fire harmless anyway.
func (h *Handle) Cancel() {
	if h == nil || h.timer == nil {
		return
	}
	h.timer.Stop()
}

// Now returns the scheduler's notion of the current time.
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// Arm schedules onExpire(scope) to run once at deadline. A deadline in the
// past fires immediately.
func (s *Scheduler) Arm(scope string, deadline time.Time, onExpire func(scope string)) *Handle {
	d := deadline.Sub(s.clock.Now())
	if d < 0 {
		d = 0
	}
	t := s.clock.AfterFunc(d, func() {
		onExpire(scope)
	})
	return &Handle{timer: t}
}

// After schedules fn to run once after d. Used for periodic session ticks,
// which re-arm themselves while the session stays active.
func (s *Scheduler) After(d time.Duration, fn func()) *Handle {
	t := s.clock.AfterFunc(d, fn)
	return &Handle{timer: t}
}
