// Package reminder schedules one-shot local alerts for cute-schedule: a
// nudge at a task's hour, wrap-up and starting-now alerts around hour
// transitions, and the 10-minute sprint countdown.
package reminder

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// timerEntry tracks information about a scheduled timer.
type timerEntry struct {
	timer       *time.Timer
	scheduledAt time.Time
	expiresAt   time.Time
	description string
}

// Timer is a handle-keyed one-shot timer registry built on time.AfterFunc.
type Timer struct {
	timers map[string]*timerEntry
	mu     sync.RWMutex
	nextID int64
}

// NewTimer creates an empty timer registry.
func NewTimer() *Timer {
	slog.Debug("Creating reminder timer registry")
	return &Timer{timers: make(map[string]*timerEntry)}
}

// ScheduleAfter runs fn after delay and returns the timer handle.
func (t *Timer) ScheduleAfter(delay time.Duration, description string, fn func()) string {
	t.mu.Lock()
	t.nextID++
	id := fmt.Sprintf("timer_%d", t.nextID)
	t.mu.Unlock()

	now := time.Now()
	timer := time.AfterFunc(delay, func() {
		slog.Debug("Timer fired", "id", id, "description", description)
		fn()
		t.mu.Lock()
		delete(t.timers, id)
		t.mu.Unlock()
	})

	t.mu.Lock()
	t.timers[id] = &timerEntry{
		timer:       timer,
		scheduledAt: now,
		expiresAt:   now.Add(delay),
		description: description,
	}
	t.mu.Unlock()

	slog.Debug("Timer scheduled", "id", id, "delay", delay, "description", description)
	return id
}

// Cancel stops a scheduled timer by handle. Unknown handles are a no-op.
func (t *Timer) Cancel(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, exists := t.timers[id]; exists {
		entry.timer.Stop()
		delete(t.timers, id)
		slog.Debug("Timer cancelled", "id", id)
	}
}

// Active returns the number of pending timers.
func (t *Timer) Active() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.timers)
}

// Stop cancels every pending timer.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	slog.Debug("Timer registry stopping", "count", len(t.timers))
	for _, entry := range t.timers {
		entry.timer.Stop()
	}
	t.timers = make(map[string]*timerEntry)
}
