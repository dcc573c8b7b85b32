package session

import (
	"sync"
	"time"
)

// DefaultMaxTimerSegment bounds a single timer; longer delays are re-armed in segments.
const DefaultMaxTimerSegment = 24 * time.Hour

// Scheduler arms a single one-shot timer that fires at a deadline.
// Re-arming supersedes the previous timer; callbacks of superseded timers never fire.
type Scheduler struct {
	mu         sync.Mutex
	timer      *time.Timer
	epoch      uint64
	deadline   time.Time
	maxSegment time.Duration
	now        func() time.Time
	fire       func()
}

// NewScheduler returns a scheduler that calls fire when the armed deadline passes.
func NewScheduler(fire func(), maxSegment time.Duration, now func() time.Time) *Scheduler {
	if maxSegment <= 0 {
		maxSegment = DefaultMaxTimerSegment
	}
	if now == nil {
		now = time.Now
	}
	return &Scheduler{fire: fire, maxSegment: maxSegment, now: now}
}

// Arm schedules fire for expiresAt, cancelling any outstanding timer.
// A deadline that already passed fires synchronously before Arm returns.
func (s *Scheduler) Arm(expiresAt time.Time) {
	s.mu.Lock()
	s.stopLocked()
	s.epoch++

	delay := expiresAt.Sub(s.now())
	if delay <= 0 {
		s.mu.Unlock()
		s.fire()
		return
	}

	s.deadline = expiresAt
	s.scheduleLocked(s.epoch, delay)
	s.mu.Unlock()
}

// Cancel clears the outstanding timer, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.epoch++
}

// Armed reports whether a timer is outstanding.
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Deadline returns the armed deadline.
func (s *Scheduler) Deadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadline, s.timer != nil
}

func (s *Scheduler) scheduleLocked(epoch uint64, delay time.Duration) {
	if delay > s.maxSegment {
		delay = s.maxSegment
	}
	s.timer = time.AfterFunc(delay, func() { s.onTimer(epoch) })
}

func (s *Scheduler) onTimer(epoch uint64) {
	s.mu.Lock()
	if epoch != s.epoch || s.timer == nil {
		s.mu.Unlock()
		return
	}

	if remaining := s.deadline.Sub(s.now()); remaining > 0 {
		s.scheduleLocked(epoch, remaining)
		s.mu.Unlock()
		return
	}

	s.timer = nil
	s.deadline = time.Time{}
	s.mu.Unlock()
	s.fire()
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.deadline = time.Time{}
}
