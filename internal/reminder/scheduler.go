package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sarahkitay/cute-schedule/internal/models"
	"github.com/sarahkitay/cute-schedule/internal/notify"
	"github.com/sarahkitay/cute-schedule/internal/schedule"
)

const (
	// MaxLead caps how far out a timer may be scheduled. Anything further is
	// skipped and picked up by the next re-derivation instead.
	MaxLead = 24 * time.Hour
	// WrapUpLead is how long before the next occupied hour the wrap-up alert
	// fires.
	WrapUpLead = 10 * time.Minute
)

// Scheduler derives and owns the one-shot reminder timers for the day
// store. Timers do not survive a restart; RederiveDay rebuilds them from the
// persisted schedule at startup and on the daily cron tick.
type Scheduler struct {
	mu       sync.Mutex
	timer    *Timer
	store    *schedule.Store
	notifier notify.Notifier
	clock    func() time.Time
	// byTask maps a task ID to its pending timer handles so a deleted task
	// also drops its alerts.
	byTask map[string][]string
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock overrides the time source, used in tests.
func WithClock(clock func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.clock = clock }
}

// NewScheduler builds a reminder scheduler over the day store and a
// delivery channel.
func NewScheduler(st *schedule.Store, notifier notify.Notifier, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		timer:    NewTimer(),
		store:    st,
		notifier: notifier,
		clock:    time.Now,
		byTask:   make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleTaskReminder schedules the task's at-hour alert. Past slots and
// slots more than MaxLead out are skipped; the returned handle is empty in
// that case.
func (s *Scheduler) ScheduleTaskReminder(dayKey, hourKey string, category models.Category, task models.Task) (string, error) {
	if task.Done {
		return "", nil
	}
	fireAt, err := schedule.SlotTime(dayKey, hourKey, s.store.Location())
	if err != nil {
		return "", fmt.Errorf("failed to resolve reminder slot: %w", err)
	}

	now := s.clock()
	delay := fireAt.Sub(now)
	if delay <= 0 {
		slog.Debug("Scheduler: slot already passed, skipping", "day", dayKey, "hour", hourKey, "task", task.ID)
		return "", nil
	}
	if delay > MaxLead {
		slog.Debug("Scheduler: slot beyond max lead, deferring to re-derivation", "day", dayKey, "hour", hourKey, "delay", delay)
		return "", nil
	}

	taskID := task.ID
	text := task.Text
	handle := s.timer.ScheduleAfter(delay, fmt.Sprintf("task reminder %s %s", dayKey, hourKey), func() {
		s.fireTaskReminder(dayKey, hourKey, category, taskID, text)
	})

	s.mu.Lock()
	s.byTask[taskID] = append(s.byTask[taskID], handle)
	s.mu.Unlock()
	return handle, nil
}

// fireTaskReminder re-checks the task at fire time: deleted or completed
// tasks make the firing a no-op.
func (s *Scheduler) fireTaskReminder(dayKey, hourKey string, category models.Category, taskID, text string) {
	s.forgetHandleless(taskID)

	current, ok := s.store.FindTask(dayKey, hourKey, category, taskID)
	if !ok {
		slog.Debug("Scheduler: stale reminder for deleted task", "task", taskID)
		return
	}
	if current.Done {
		slog.Debug("Scheduler: stale reminder for completed task", "task", taskID)
		return
	}

	s.send(notify.Notification{
		Kind:   notify.KindTaskReminder,
		Title:  fmt.Sprintf("%s o'clock: %s", hourKey, text),
		Body:   fmt.Sprintf("Scheduled for %s under %s.", hourKey, category),
		TaskID: taskID,
	})
}

// ScheduleTransition schedules the wrap-up alert 10 minutes before the next
// task's hour and the starting-now alert at the hour itself. Returns the
// handles actually scheduled.
func (s *Scheduler) ScheduleTransition(dayKey string, current, next models.Task, nextHour string) ([]string, error) {
	startAt, err := schedule.SlotTime(dayKey, nextHour, s.store.Location())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve transition slot: %w", err)
	}

	now := s.clock()
	var handles []string

	if delay := startAt.Add(-WrapUpLead).Sub(now); delay > 0 && delay <= MaxLead {
		title := fmt.Sprintf("Wrap up %q", current.Text)
		body := fmt.Sprintf("%q starts at %s.", next.Text, nextHour)
		h := s.timer.ScheduleAfter(delay, fmt.Sprintf("wrap-up %s %s", dayKey, nextHour), func() {
			s.send(notify.Notification{Kind: notify.KindWrapUp, Title: title, Body: body, TaskID: current.ID})
		})
		handles = append(handles, h)
		s.remember(current.ID, h)
	}

	if delay := startAt.Sub(now); delay > 0 && delay <= MaxLead {
		title := fmt.Sprintf("Starting now: %s", next.Text)
		h := s.timer.ScheduleAfter(delay, fmt.Sprintf("starting-now %s %s", dayKey, nextHour), func() {
			s.send(notify.Notification{Kind: notify.KindStartingNow, Title: title, TaskID: next.ID})
		})
		handles = append(handles, h)
		s.remember(next.ID, h)
	}
	return handles, nil
}

// CancelTask drops every pending timer tied to the task.
func (s *Scheduler) CancelTask(taskID string) {
	s.mu.Lock()
	handles := s.byTask[taskID]
	delete(s.byTask, taskID)
	s.mu.Unlock()
	for _, h := range handles {
		s.timer.Cancel(h)
	}
	if len(handles) > 0 {
		slog.Debug("Scheduler: cancelled task timers", "task", taskID, "count", len(handles))
	}
}

// RederiveDay drops all pending timers and rebuilds them from the persisted
// day record: an at-hour reminder per open task plus transition alerts
// between adjacent occupied hours. Called at startup and from the daily cron
// tick, replacing timers lost to a restart.
func (s *Scheduler) RederiveDay(dayKey string) int {
	s.timer.Stop()
	s.mu.Lock()
	s.byTask = make(map[string][]string)
	s.mu.Unlock()

	day := s.store.Day(dayKey)
	hours := make([]string, 0, len(day.Hours))
	for h := range day.Hours {
		hours = append(hours, h)
	}
	sort.Strings(hours)

	scheduled := 0
	type slot struct {
		hour string
		task models.Task
	}
	var occupied []slot

	for _, hour := range hours {
		tasks := day.Hours[hour]
		first := true
		for _, cat := range models.CategoryOrder {
			for _, task := range tasks[cat] {
				if first {
					occupied = append(occupied, slot{hour: hour, task: task})
					first = false
				}
				if h, err := s.ScheduleTaskReminder(dayKey, hour, cat, task); err == nil && h != "" {
					scheduled++
				}
			}
		}
	}

	for i := 1; i < len(occupied); i++ {
		handles, err := s.ScheduleTransition(dayKey, occupied[i-1].task, occupied[i].task, occupied[i].hour)
		if err != nil {
			continue
		}
		scheduled += len(handles)
	}

	slog.Info("Scheduler.RederiveDay", "day", dayKey, "timers", scheduled)
	return scheduled
}

// Stop cancels everything pending.
func (s *Scheduler) Stop() {
	s.timer.Stop()
	s.mu.Lock()
	s.byTask = make(map[string][]string)
	s.mu.Unlock()
}

func (s *Scheduler) send(n notify.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.notifier.Send(ctx, n); err != nil {
		slog.Warn("Scheduler: notification delivery failed", "kind", n.Kind, "error", err)
	}
}

func (s *Scheduler) remember(taskID, handle string) {
	s.mu.Lock()
	s.byTask[taskID] = append(s.byTask[taskID], handle)
	s.mu.Unlock()
}

// forgetHandleless drops bookkeeping for a task whose timer just fired; the
// handle itself is already gone from the registry.
func (s *Scheduler) forgetHandleless(taskID string) {
	s.mu.Lock()
	delete(s.byTask, taskID)
	s.mu.Unlock()
}
