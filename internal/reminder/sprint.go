package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sarahkitay/cute-schedule/internal/notify"
)

// SprintDuration is the fixed length of a focus sprint.
const SprintDuration = 10 * time.Minute

// Sprint is the single 10-minute focus countdown. Starting a new sprint
// replaces any running one; it ends by expiry or explicit cancel.
type Sprint struct {
	mu       sync.Mutex
	endsAt   time.Time
	handle   string
	timer    *Timer
	notifier notify.Notifier
	clock    func() time.Time
}

// SprintOption configures a Sprint.
type SprintOption func(*Sprint)

// WithSprintClock overrides the time source, used in tests.
func WithSprintClock(clock func() time.Time) SprintOption {
	return func(s *Sprint) { s.clock = clock }
}

// NewSprint builds the sprint countdown over a delivery channel.
func NewSprint(notifier notify.Notifier, opts ...SprintOption) *Sprint {
	s := &Sprint{
		timer:    NewTimer(),
		notifier: notifier,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins a fresh sprint and returns its end timestamp.
func (s *Sprint) Start() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != "" {
		s.timer.Cancel(s.handle)
	}
	s.endsAt = s.clock().Add(SprintDuration)
	s.handle = s.timer.ScheduleAfter(SprintDuration, "sprint countdown", s.finish)
	slog.Info("Sprint started", "ends_at", s.endsAt)
	return s.endsAt
}

// Cancel clears the running sprint. A no-op when none is running.
func (s *Sprint) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == "" {
		return
	}
	s.timer.Cancel(s.handle)
	s.handle = ""
	s.endsAt = time.Time{}
	slog.Info("Sprint cancelled")
}

// Remaining returns the time left and whether a sprint is running. Expired
// sprints report not running even before the completion timer has fired.
func (s *Sprint) Remaining() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endsAt.IsZero() {
		return 0, false
	}
	left := s.endsAt.Sub(s.clock())
	if left <= 0 {
		return 0, false
	}
	return left, true
}

func (s *Sprint) finish() {
	s.mu.Lock()
	s.handle = ""
	s.endsAt = time.Time{}
	s.mu.Unlock()

	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := s.notifier.Send(ctx, notify.Notification{
		Kind:  notify.KindSprintDone,
		Title: "Sprint complete",
		Body:  "Ten focused minutes, done. Shake it out.",
	})
	if err != nil {
		slog.Warn("Sprint: completion notification failed", "error", err)
	}
}
