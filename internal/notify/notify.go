// Package notify delivers reminder and coaching notifications for
// cute-schedule. Delivery channels sit behind the Notifier interface so the
// reminder scheduler never cares whether a message goes to a log line, a web
// push endpoint, or an SMS.
package notify

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNotConfigured indicates a channel is missing its credentials. Callers
// treat this as "channel absent", not a delivery failure.
var ErrNotConfigured = errors.New("notification channel not configured")

// Kind classifies a notification so channels can render or filter it.
type Kind string

const (
	KindTaskReminder Kind = "task_reminder"
	KindWrapUp       Kind = "wrap_up"
	KindStartingNow  Kind = "starting_now"
	KindCoach        Kind = "coach"
	KindSprintDone   Kind = "sprint_done"
)

// Notification is one message to deliver.
type Notification struct {
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body"`
	// TaskID is set for task-scoped notifications so stale fires can be
	// traced in logs.
	TaskID string `json:"task_id,omitempty"`
}

// Notifier is a single delivery channel.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	Name() string
}

// LogNotifier writes notifications to the structured log. Always configured;
// the default channel in development and tests.
type LogNotifier struct{}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (l *LogNotifier) Name() string { return "log" }

func (l *LogNotifier) Send(ctx context.Context, n Notification) error {
	slog.Info("notification", "kind", n.Kind, "title", n.Title, "body", n.Body, "task_id", n.TaskID)
	return nil
}

// Multi fans a notification out to every channel. A failing channel is
// logged and skipped; unconfigured channels are silent.
type Multi struct {
	channels []Notifier
}

// NewMulti combines channels. Nil entries are dropped.
func NewMulti(channels ...Notifier) *Multi {
	m := &Multi{}
	for _, c := range channels {
		if c != nil {
			m.channels = append(m.channels, c)
		}
	}
	return m
}

func (m *Multi) Name() string { return "multi" }

// Send delivers to all channels. Returns nil as long as at least one channel
// exists; individual failures are logged, never propagated.
func (m *Multi) Send(ctx context.Context, n Notification) error {
	for _, c := range m.channels {
		if err := c.Send(ctx, n); err != nil {
			if errors.Is(err, ErrNotConfigured) {
				slog.Debug("Multi.Send: channel not configured", "channel", c.Name())
				continue
			}
			slog.Warn("Multi.Send: channel delivery failed", "channel", c.Name(), "kind", n.Kind, "error", err)
		}
	}
	return nil
}
