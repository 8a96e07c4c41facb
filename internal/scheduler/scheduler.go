// Package scheduler provides cron-based recurring jobs for cute-schedule:
// the daily reminder re-derivation at midnight and the hourly
// completion-log trim.
package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps a cron runner pinned to the user's location.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler in the given location.
// A nil location means local time.
func NewScheduler(loc *time.Location) *Scheduler {
	// Standard 5-field parser (min, hour, dom, month, dow) with panic recovery
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	opts := []cron.Option{cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))}
	if loc != nil {
		opts = append(opts, cron.WithLocation(loc))
	}
	c := cron.New(opts...)
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a job from a cron expression.
func (s *Scheduler) AddJob(expr string, job func()) error {
	if _, err := s.cron.AddFunc(expr, job); err != nil {
		return fmt.Errorf("failed to add cron job %q: %w", expr, err)
	}
	slog.Debug("Scheduler job added", "expr", expr)
	return nil
}

// AddDailyAt schedules a job every day at hour:minute in the scheduler's
// location.
func (s *Scheduler) AddDailyAt(hour, minute int, job func()) error {
	return s.AddJob(fmt.Sprintf("%d %d * * *", minute, hour), job)
}

// AddHourly schedules a job at the top of every hour.
func (s *Scheduler) AddHourly(job func()) error {
	return s.AddJob("0 * * * *", job)
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	slog.Debug("Scheduler stopped")
}
