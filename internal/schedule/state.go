package schedule

import (
	"strings"
	"time"

	"github.com/sarahkitay/cute-schedule/internal/models"
)

// The operations in this file are pure whole-state transforms: they take the
// current ScheduleState and return a new one, sharing unchanged days
// structurally. Callers that need a timestamp or a fresh task ID pass them
// in, which keeps every operation referentially transparent and testable.
//
// Edge-case policy: operating on a day, hour, or category that does not
// exist is always safe and either no-ops or lazily creates the minimal
// structure needed. Nothing in here panics for a missing key.

// cloneState shallow-copies the state so day records can be swapped without
// mutating the input.
func cloneState(st models.ScheduleState) models.ScheduleState {
	out := st
	out.Days = make(map[string]*models.DayRecord, len(st.Days))
	for k, v := range st.Days {
		out.Days[k] = v
	}
	return out
}

// mutableDay returns a writable copy of the day record for dayKey, creating
// it if absent, and installs it in st.Days.
func mutableDay(st *models.ScheduleState, dayKey string) *models.DayRecord {
	prev, ok := st.Days[dayKey]
	if !ok {
		day := models.NewDayRecord()
		st.Days[dayKey] = day
		return day
	}
	day := &models.DayRecord{
		Hours:         make(map[string]models.HourTasks, len(prev.Hours)),
		DailyMood:     prev.DailyMood,
		DailyCapacity: prev.DailyCapacity,
	}
	for hk, bucket := range prev.Hours {
		day.Hours[hk] = bucket
	}
	st.Days[dayKey] = day
	return day
}

// mutableHour returns a writable copy of the hour bucket, creating the full
// three-category structure if absent.
func mutableHour(day *models.DayRecord, hourKey string) models.HourTasks {
	prev, ok := day.Hours[hourKey]
	if !ok {
		bucket := models.NewHourTasks()
		day.Hours[hourKey] = bucket
		return bucket
	}
	bucket := make(models.HourTasks, len(prev))
	for c, tasks := range prev {
		bucket[c] = tasks
	}
	day.Hours[hourKey] = bucket
	return bucket
}

// EnsureHour inserts an empty three-category bucket for (dayKey, hourKey) if
// absent. An existing bucket is never overwritten, so repeated calls are
// idempotent and lose no data.
func EnsureHour(st models.ScheduleState, dayKey, hourKey string) models.ScheduleState {
	if day, ok := st.Days[dayKey]; ok {
		if _, ok := day.Hours[hourKey]; ok {
			return st
		}
	}
	out := cloneState(st)
	day := mutableDay(&out, dayKey)
	mutableHour(day, hourKey)
	return out
}

// AddTask creates a task in the given bucket. The text is rejected (no-op,
// nil task) when it trims to empty or the category is unknown. The caller
// supplies the fresh task ID and creation time.
func AddTask(st models.ScheduleState, dayKey, hourKey string, category models.Category, text string, repeat models.Repeat, sourceTaskID, id string, now time.Time) (models.ScheduleState, *models.Task) {
	text = strings.TrimSpace(text)
	if text == "" {
		return st, nil
	}
	if !models.IsValidCategory(category) {
		return st, nil
	}
	if repeat == "" {
		repeat = models.RepeatNone
	}

	task := models.Task{
		ID:             id,
		Text:           text,
		Done:           false,
		EnergyLevel:    models.EnergyMedium,
		Repeat:         repeat,
		OriginalTaskID: sourceTaskID,
		CreatedAt:      now,
	}

	out := cloneState(st)
	day := mutableDay(&out, dayKey)
	bucket := mutableHour(day, hourKey)
	bucket[category] = append(append([]models.Task{}, bucket[category]...), task)
	return out, &task
}

// ToggleTask flips the done flag of the identified task. On the false->true
// transition CompletedAt is stamped with now; on true->false it is cleared.
// The returned task is the post-toggle copy, or nil when the task does not
// exist.
func ToggleTask(st models.ScheduleState, dayKey, hourKey string, category models.Category, taskID string, now time.Time) (models.ScheduleState, *models.Task) {
	idx, ok := findTask(st, dayKey, hourKey, category, taskID)
	if !ok {
		return st, nil
	}

	out := cloneState(st)
	day := mutableDay(&out, dayKey)
	bucket := mutableHour(day, hourKey)
	tasks := append([]models.Task{}, bucket[category]...)

	t := tasks[idx]
	t.Done = !t.Done
	if t.Done {
		completedAt := now
		t.CompletedAt = &completedAt
	} else {
		t.CompletedAt = nil
	}
	tasks[idx] = t
	bucket[category] = tasks
	return out, &t
}

// SetTaskFeeling records the post-completion reaction on a task. Unknown
// tasks no-op.
func SetTaskFeeling(st models.ScheduleState, dayKey, hourKey string, category models.Category, taskID string, feeling models.Feeling) (models.ScheduleState, *models.Task) {
	idx, ok := findTask(st, dayKey, hourKey, category, taskID)
	if !ok {
		return st, nil
	}
	out := cloneState(st)
	day := mutableDay(&out, dayKey)
	bucket := mutableHour(day, hourKey)
	tasks := append([]models.Task{}, bucket[category]...)
	tasks[idx].Feeling = feeling
	bucket[category] = tasks
	t := tasks[idx]
	return out, &t
}

// ToggleEnergyLevel cycles the task's energy level LIGHT -> MEDIUM -> HEAVY
// -> LIGHT.
func ToggleEnergyLevel(st models.ScheduleState, dayKey, hourKey string, category models.Category, taskID string) (models.ScheduleState, *models.Task) {
	idx, ok := findTask(st, dayKey, hourKey, category, taskID)
	if !ok {
		return st, nil
	}
	out := cloneState(st)
	day := mutableDay(&out, dayKey)
	bucket := mutableHour(day, hourKey)
	tasks := append([]models.Task{}, bucket[category]...)
	tasks[idx].EnergyLevel = models.NextEnergyLevel(tasks[idx].EnergyLevel)
	bucket[category] = tasks
	t := tasks[idx]
	return out, &t
}

// DeleteTask removes the identified task from its bucket. Returns the removed
// task, or nil when it does not exist.
func DeleteTask(st models.ScheduleState, dayKey, hourKey string, category models.Category, taskID string) (models.ScheduleState, *models.Task) {
	idx, ok := findTask(st, dayKey, hourKey, category, taskID)
	if !ok {
		return st, nil
	}
	out := cloneState(st)
	day := mutableDay(&out, dayKey)
	bucket := mutableHour(day, hourKey)
	tasks := append([]models.Task{}, bucket[category]...)
	removed := tasks[idx]
	bucket[category] = append(tasks[:idx], tasks[idx+1:]...)
	return out, &removed
}

// DeleteHour removes the entire hour bucket. Missing day or hour no-ops.
func DeleteHour(st models.ScheduleState, dayKey, hourKey string) models.ScheduleState {
	day, ok := st.Days[dayKey]
	if !ok {
		return st
	}
	if _, ok := day.Hours[hourKey]; !ok {
		return st
	}
	out := cloneState(st)
	mutable := mutableDay(&out, dayKey)
	delete(mutable.Hours, hourKey)
	return out
}

// MoveTaskToTomorrow removes the task from its current bucket and reinserts
// it into the next day at DefaultMoveHour. Identity and every field except
// the owning hour are preserved. Returns the moved task and its new DayKey,
// or nil when the task does not exist.
func MoveTaskToTomorrow(st models.ScheduleState, dayKey, hourKey string, category models.Category, taskID string) (models.ScheduleState, *models.Task, string) {
	nextKey, err := NextDayKey(dayKey)
	if err != nil {
		return st, nil, ""
	}
	out, removed := DeleteTask(st, dayKey, hourKey, category, taskID)
	if removed == nil {
		return st, nil, ""
	}
	day := mutableDay(&out, nextKey)
	bucket := mutableHour(day, DefaultMoveHour)
	bucket[category] = append(append([]models.Task{}, bucket[category]...), *removed)
	return out, removed, nextKey
}

// SetDailyMood sets the day-level mood, creating the day record if absent.
func SetDailyMood(st models.ScheduleState, dayKey string, mood models.Mood) models.ScheduleState {
	out := cloneState(st)
	day := mutableDay(&out, dayKey)
	day.DailyMood = mood
	return out
}

// SetDailyCapacity sets the day-level capacity, creating the day record if
// absent.
func SetDailyCapacity(st models.ScheduleState, dayKey string, capacity models.Capacity) models.ScheduleState {
	out := cloneState(st)
	day := mutableDay(&out, dayKey)
	day.DailyCapacity = capacity
	return out
}

// findTask locates a task's index inside its bucket. Reads never create
// structure.
func findTask(st models.ScheduleState, dayKey, hourKey string, category models.Category, taskID string) (int, bool) {
	day, ok := st.Days[dayKey]
	if !ok {
		return 0, false
	}
	bucket, ok := day.Hours[hourKey]
	if !ok {
		return 0, false
	}
	for i, t := range bucket[category] {
		if t.ID == taskID {
			return i, true
		}
	}
	return 0, false
}
