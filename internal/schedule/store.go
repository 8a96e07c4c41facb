package schedule

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sarahkitay/cute-schedule/internal/models"
	"github.com/sarahkitay/cute-schedule/internal/store"
	"github.com/sarahkitay/cute-schedule/internal/util"
)

// Hooks are the side channels fired by task-state changes. All hooks are
// optional and are invoked synchronously after the mutation has been applied
// and persisted, outside the store lock.
type Hooks struct {
	// OnCompletion fires when a task transitions to done.
	OnCompletion func(models.CompletionEvent)
	// OnProgress fires on every toggle, in either direction.
	OnProgress func(time.Time)
	// OnTaskAdded fires when a task enters a bucket (add or move).
	OnTaskAdded func(dayKey, hourKey string, category models.Category, task models.Task)
	// OnTaskRemoved fires when a task leaves a bucket (delete or move).
	OnTaskRemoved func(task models.Task)
}

// Store owns the schedule state. Mutations go through the pure transforms in
// state.go under a single lock, then the whole snapshot is rewritten to the
// KV store. Because the transforms copy on write, a snapshot handed out by a
// read method stays safe to read while later mutations land.
type Store struct {
	mu      sync.Mutex
	state   models.ScheduleState
	archive []models.RepeatableTask
	kv      store.KV
	clock   func() time.Time
	newID   func() string
	loc     *time.Location
	hooks   Hooks
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the time source, used in tests.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) { s.clock = clock }
}

// WithIDGenerator overrides the task ID generator, used in tests.
func WithIDGenerator(newID func() string) StoreOption {
	return func(s *Store) { s.newID = newID }
}

// WithLocation sets the timezone used to resolve day keys and slot times.
func WithLocation(loc *time.Location) StoreOption {
	return func(s *Store) { s.loc = loc }
}

// NewStore loads the persisted schedule snapshot (or starts empty) and
// returns a ready store.
func NewStore(kv store.KV, opts ...StoreOption) (*Store, error) {
	s := &Store{
		state: models.NewScheduleState(),
		kv:    kv,
		clock: time.Now,
		newID: util.GenerateTaskID,
		loc:   time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := store.LoadJSON(kv, store.KeyScheduleState, &s.state); err != nil {
		return nil, fmt.Errorf("failed to load schedule state: %w", err)
	}
	if s.state.Days == nil {
		s.state.Days = make(map[string]*models.DayRecord)
	}
	if _, err := store.LoadJSON(kv, store.KeyRepeatArchive, &s.archive); err != nil {
		return nil, fmt.Errorf("failed to load repeat archive: %w", err)
	}
	slog.Debug("schedule.NewStore: state loaded", "days", len(s.state.Days), "archived_repeats", len(s.archive))
	return s, nil
}

// SetHooks installs the side channels. Call before the store is shared.
func (s *Store) SetHooks(h Hooks) { s.hooks = h }

// Location returns the store's timezone.
func (s *Store) Location() *time.Location { return s.loc }

// TodayKey returns the current DayKey in the store's timezone.
func (s *Store) TodayKey() string { return TodayKey(s.clock(), s.loc) }

// Snapshot returns the current schedule state. Treat as read-only.
func (s *Store) Snapshot() models.ScheduleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Day returns the record for dayKey, or an empty record when the day has
// never been touched. Reads never create structure.
func (s *Store) Day(dayKey string) models.DayRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if day, ok := s.state.Days[dayKey]; ok {
		return *day
	}
	return *models.NewDayRecord()
}

// FindTask looks up a live task by its bucket coordinates. Used by the
// reminder scheduler to re-check existence at fire time.
func (s *Store) FindTask(dayKey, hourKey string, category models.Category, taskID string) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := findTask(s.state, dayKey, hourKey, category, taskID)
	if !ok {
		return models.Task{}, false
	}
	return s.state.Days[dayKey].Hours[hourKey][category][idx], true
}

// EnsureHour lazily creates the hour bucket. Idempotent.
func (s *Store) EnsureHour(dayKey, hourKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = EnsureHour(s.state, dayKey, hourKey)
	return s.persistLocked()
}

// AddTask creates a task in the given bucket. Returns (nil, nil) when the
// text trims to empty or the category is unknown; the store is unchanged.
// Tasks with a repeat mode are additionally archived for later reuse.
func (s *Store) AddTask(dayKey, hourKey string, category models.Category, text string, repeat models.Repeat, sourceTaskID string) (*models.Task, error) {
	s.mu.Lock()
	now := s.clock()
	next, task := AddTask(s.state, dayKey, hourKey, category, text, repeat, sourceTaskID, s.newID(), now)
	if task == nil {
		s.mu.Unlock()
		slog.Debug("Store.AddTask: rejected", "day", dayKey, "hour", hourKey, "category", category)
		return nil, nil
	}
	s.state = next
	if task.Repeat != models.RepeatNone {
		s.archive = append(s.archive, models.RepeatableTask{
			TaskID:    task.ID,
			Text:      task.Text,
			Category:  category,
			Hour:      hourKey,
			Repeat:    task.Repeat,
			CreatedAt: now,
		})
		if err := store.SaveJSON(s.kv, store.KeyRepeatArchive, s.archive); err != nil {
			slog.Warn("Store.AddTask: repeat archive save failed", "error", err)
		}
	}
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if s.hooks.OnTaskAdded != nil {
		s.hooks.OnTaskAdded(dayKey, hourKey, category, *task)
	}
	slog.Debug("Store.AddTask: task created", "day", dayKey, "hour", hourKey, "category", category, "task_id", task.ID)
	return task, nil
}

// ToggleTask flips the done flag. A false->true transition emits a
// CompletionEvent; every toggle refreshes the progress timestamp. Returns
// (nil, nil) when the task does not exist.
func (s *Store) ToggleTask(dayKey, hourKey string, category models.Category, taskID string) (*models.Task, error) {
	s.mu.Lock()
	now := s.clock()
	next, task := ToggleTask(s.state, dayKey, hourKey, category, taskID, now)
	if task == nil {
		s.mu.Unlock()
		return nil, nil
	}
	s.state = next
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if s.hooks.OnProgress != nil {
		s.hooks.OnProgress(now)
	}
	if task.Done && s.hooks.OnCompletion != nil {
		s.hooks.OnCompletion(s.completionEvent(dayKey, hourKey, category, *task, now))
	}
	slog.Debug("Store.ToggleTask: toggled", "day", dayKey, "task_id", taskID, "done", task.Done)
	return task, nil
}

// ToggleEnergyLevel cycles the task's energy level.
func (s *Store) ToggleEnergyLevel(dayKey, hourKey string, category models.Category, taskID string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, task := ToggleEnergyLevel(s.state, dayKey, hourKey, category, taskID)
	if task == nil {
		return nil, nil
	}
	s.state = next
	return task, s.persistLocked()
}

// SetTaskFeeling records the post-completion reaction on a task.
func (s *Store) SetTaskFeeling(dayKey, hourKey string, category models.Category, taskID string, feeling models.Feeling) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, task := SetTaskFeeling(s.state, dayKey, hourKey, category, taskID, feeling)
	if task == nil {
		return nil, nil
	}
	s.state = next
	return task, s.persistLocked()
}

// DeleteTask removes a task. Returns (nil, nil) when it does not exist.
func (s *Store) DeleteTask(dayKey, hourKey string, category models.Category, taskID string) (*models.Task, error) {
	s.mu.Lock()
	next, removed := DeleteTask(s.state, dayKey, hourKey, category, taskID)
	if removed == nil {
		s.mu.Unlock()
		return nil, nil
	}
	s.state = next
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if s.hooks.OnTaskRemoved != nil {
		s.hooks.OnTaskRemoved(*removed)
	}
	return removed, nil
}

// DeleteHour removes an entire hour bucket and reports the tasks that went
// with it.
func (s *Store) DeleteHour(dayKey, hourKey string) ([]models.Task, error) {
	s.mu.Lock()
	var removed []models.Task
	if day, ok := s.state.Days[dayKey]; ok {
		if bucket, ok := day.Hours[hourKey]; ok {
			for _, cat := range models.CategoryOrder {
				removed = append(removed, bucket[cat]...)
			}
		}
	}
	s.state = DeleteHour(s.state, dayKey, hourKey)
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if s.hooks.OnTaskRemoved != nil {
		for _, t := range removed {
			s.hooks.OnTaskRemoved(t)
		}
	}
	return removed, nil
}

// MoveTaskToTomorrow relocates a task to the next day's default hour,
// preserving its identity and fields.
func (s *Store) MoveTaskToTomorrow(dayKey, hourKey string, category models.Category, taskID string) (*models.Task, string, error) {
	s.mu.Lock()
	next, moved, newDayKey := MoveTaskToTomorrow(s.state, dayKey, hourKey, category, taskID)
	if moved == nil {
		s.mu.Unlock()
		return nil, "", nil
	}
	s.state = next
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, "", err
	}
	if s.hooks.OnTaskRemoved != nil {
		s.hooks.OnTaskRemoved(*moved)
	}
	if s.hooks.OnTaskAdded != nil {
		s.hooks.OnTaskAdded(newDayKey, DefaultMoveHour, category, *moved)
	}
	return moved, newDayKey, nil
}

// SetDailyMood sets the day-level mood, creating the record if absent.
func (s *Store) SetDailyMood(dayKey string, mood models.Mood) error {
	if !models.IsValidMood(mood) {
		return models.ErrUnknownMood
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SetDailyMood(s.state, dayKey, mood)
	return s.persistLocked()
}

// SetDailyCapacity sets the day-level capacity, creating the record if
// absent.
func (s *Store) SetDailyCapacity(dayKey string, capacity models.Capacity) error {
	if !models.IsValidCapacity(capacity) {
		return models.ErrUnknownCapacity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SetDailyCapacity(s.state, dayKey, capacity)
	return s.persistLocked()
}

// Monthly returns the monthly objectives.
func (s *Store) Monthly() []models.MonthlyObjective {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MonthlyObjective{}, s.state.Monthly...)
}

// AddMonthly appends a monthly objective. Empty text is rejected as a no-op.
func (s *Store) AddMonthly(text string) (*models.MonthlyObjective, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	obj := models.MonthlyObjective{ID: s.newID(), Text: text, CreatedAt: s.clock()}
	s.state.Monthly = append(append([]models.MonthlyObjective{}, s.state.Monthly...), obj)
	return &obj, s.persistLocked()
}

// ToggleMonthly flips an objective's done flag. Unknown IDs no-op.
func (s *Store) ToggleMonthly(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	monthly := append([]models.MonthlyObjective{}, s.state.Monthly...)
	for i := range monthly {
		if monthly[i].ID == id {
			monthly[i].Done = !monthly[i].Done
			s.state.Monthly = monthly
			return s.persistLocked()
		}
	}
	return nil
}

// DeleteMonthly removes an objective. Unknown IDs no-op.
func (s *Store) DeleteMonthly(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, obj := range s.state.Monthly {
		if obj.ID == id {
			monthly := append([]models.MonthlyObjective{}, s.state.Monthly...)
			s.state.Monthly = append(monthly[:i], monthly[i+1:]...)
			return s.persistLocked()
		}
	}
	return nil
}

// BedtimeRoutine returns the nightly checklist.
func (s *Store) BedtimeRoutine() []models.RoutineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.RoutineItem{}, s.state.BedtimeRoutine...)
}

// AddRoutineItem appends a bedtime checklist item. Empty text no-ops.
func (s *Store) AddRoutineItem(text string) (*models.RoutineItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item := models.RoutineItem{ID: s.newID(), Text: text}
	s.state.BedtimeRoutine = append(append([]models.RoutineItem{}, s.state.BedtimeRoutine...), item)
	return &item, s.persistLocked()
}

// ToggleRoutineItem flips a checklist item. Unknown IDs no-op.
func (s *Store) ToggleRoutineItem(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	routine := append([]models.RoutineItem{}, s.state.BedtimeRoutine...)
	for i := range routine {
		if routine[i].ID == id {
			routine[i].Done = !routine[i].Done
			s.state.BedtimeRoutine = routine
			return s.persistLocked()
		}
	}
	return nil
}

// BedtimeComplete reports whether the checklist is non-empty and fully done.
func (s *Store) BedtimeComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.state.BedtimeRoutine) == 0 {
		return false
	}
	for _, item := range s.state.BedtimeRoutine {
		if !item.Done {
			return false
		}
	}
	return true
}

// ResetBedtimeRoutine clears the done flags for a new night.
func (s *Store) ResetBedtimeRoutine() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	routine := append([]models.RoutineItem{}, s.state.BedtimeRoutine...)
	for i := range routine {
		routine[i].Done = false
	}
	s.state.BedtimeRoutine = routine
	return s.persistLocked()
}

// RepeatArchive returns the archived repeatable tasks, newest last.
func (s *Store) RepeatArchive() []models.RepeatableTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.RepeatableTask{}, s.archive...)
}

func (s *Store) completionEvent(dayKey, hourKey string, category models.Category, task models.Task, now time.Time) models.CompletionEvent {
	hourOfDay := 0
	if h, _, err := ParseHourKey(hourKey); err == nil {
		hourOfDay = h
	}
	dayOfWeek := int(now.In(s.loc).Weekday())
	if day, err := ParseDayKey(dayKey, s.loc); err == nil {
		dayOfWeek = int(day.Weekday())
	}
	return models.CompletionEvent{
		DayKey:      dayKey,
		TaskID:      task.ID,
		Category:    category,
		Hour:        hourKey,
		CompletedAt: now,
		Feeling:     task.Feeling,
		DayOfWeek:   dayOfWeek,
		HourOfDay:   hourOfDay,
	}
}

func (s *Store) persistLocked() error {
	return store.SaveJSON(s.kv, store.KeyScheduleState, s.state)
}
