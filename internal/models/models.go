// Package models defines the core data structures for cute-schedule.
//
// It includes the day-keyed schedule types, completion events, and coach
// bookkeeping, which are shared across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// Category is one of the three fixed task categories. The set is closed and
// not user-extensible.
type Category string

const (
	CategoryRhea     Category = "RHEA"
	CategoryEPC      Category = "EPC"
	CategoryPersonal Category = "Personal"
)

// CategoryOrder is the fixed declaration order used for flattening and
// display. Every hour bucket carries an entry for each of these.
var CategoryOrder = []Category{CategoryRhea, CategoryEPC, CategoryPersonal}

// IsValidCategory checks if the given category is one of the fixed set.
func IsValidCategory(c Category) bool {
	switch c {
	case CategoryRhea, CategoryEPC, CategoryPersonal:
		return true
	default:
		return false
	}
}

// EnergyLevel is a coarse effort classification attached to a task.
type EnergyLevel string

const (
	EnergyLight  EnergyLevel = "LIGHT"
	EnergyMedium EnergyLevel = "MEDIUM"
	EnergyHeavy  EnergyLevel = "HEAVY"
)

// NextEnergyLevel cycles LIGHT -> MEDIUM -> HEAVY -> LIGHT. Unknown values
// reset to MEDIUM.
func NextEnergyLevel(e EnergyLevel) EnergyLevel {
	switch e {
	case EnergyLight:
		return EnergyMedium
	case EnergyMedium:
		return EnergyHeavy
	case EnergyHeavy:
		return EnergyLight
	default:
		return EnergyMedium
	}
}

// Repeat describes how a task recurs.
type Repeat string

const (
	RepeatNone     Repeat = "NONE"
	RepeatDaily    Repeat = "DAILY"
	RepeatWeekly   Repeat = "WEEKLY"
	RepeatOptional Repeat = "OPTIONAL"
)

// IsValidRepeat checks if the given repeat mode is supported.
func IsValidRepeat(r Repeat) bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatOptional:
		return true
	default:
		return false
	}
}

// Feeling is an optional post-completion reaction. Empty means not recorded.
type Feeling string

const (
	FeelingAccomplished Feeling = "accomplished"
	FeelingContent      Feeling = "content"
	FeelingExhausted    Feeling = "exhausted"
)

// Mood is the day-level mood. Empty means not yet set.
type Mood string

const (
	MoodCalm    Mood = "calm"
	MoodNeutral Mood = "neutral"
	MoodDrained Mood = "drained"
)

// IsValidMood checks if the given mood is supported.
func IsValidMood(m Mood) bool {
	switch m {
	case MoodCalm, MoodNeutral, MoodDrained:
		return true
	default:
		return false
	}
}

// Capacity is the day-level capacity estimate. Empty means not yet set.
type Capacity string

const (
	CapacityLow    Capacity = "LOW"
	CapacityMedium Capacity = "MEDIUM"
	CapacityHigh   Capacity = "HIGH"
)

// IsValidCapacity checks if the given capacity is supported.
func IsValidCapacity(c Capacity) bool {
	switch c {
	case CapacityLow, CapacityMedium, CapacityHigh:
		return true
	default:
		return false
	}
}

// Error variables for better error handling and testability
var (
	ErrEmptyTaskText   = errors.New("task text cannot be empty")
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownRepeat   = errors.New("unknown repeat mode")
	ErrUnknownMood     = errors.New("unknown mood")
	ErrUnknownCapacity = errors.New("unknown capacity")
	ErrInvalidDayKey   = errors.New("invalid day key")
	ErrInvalidHourKey  = errors.New("invalid hour key")
	ErrTaskNotFound    = errors.New("task not found")
)

// Task represents a single scheduled item. A task is owned by exactly one
// (DayKey, HourKey, Category) bucket at a time.
type Task struct {
	ID             string      `json:"id"`
	Text           string      `json:"text"`
	Done           bool        `json:"done"`
	EnergyLevel    EnergyLevel `json:"energy_level"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	Feeling        Feeling     `json:"feeling,omitempty"`
	Repeat         Repeat      `json:"repeat"`
	OriginalTaskID string      `json:"original_task_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Validate performs basic validation on task fields used at the API boundary.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Text) == "" {
		return ErrEmptyTaskText
	}
	if t.Repeat != "" && !IsValidRepeat(t.Repeat) {
		return ErrUnknownRepeat
	}
	return nil
}

// HourTasks maps each category to its ordered task list for one hour slot.
// Invariant: all three categories have an entry, possibly an empty list.
type HourTasks map[Category][]Task

// NewHourTasks returns an hour bucket with an empty list per category.
func NewHourTasks() HourTasks {
	h := make(HourTasks, len(CategoryOrder))
	for _, c := range CategoryOrder {
		h[c] = []Task{}
	}
	return h
}

// DayRecord holds everything scheduled for a single day. DailyMood and
// DailyCapacity are empty until explicitly set.
type DayRecord struct {
	Hours         map[string]HourTasks `json:"hours"`
	DailyMood     Mood                 `json:"daily_mood,omitempty"`
	DailyCapacity Capacity             `json:"daily_capacity,omitempty"`
}

// NewDayRecord returns an empty day record.
func NewDayRecord() *DayRecord {
	return &DayRecord{Hours: make(map[string]HourTasks)}
}

// MonthlyObjective is a month-level goal tracked alongside the day store.
type MonthlyObjective struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
}

// RoutineItem is one entry of the fixed nightly bedtime checklist.
type RoutineItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// ScheduleState is the whole day store: day records keyed by DayKey plus the
// monthly objectives and the bedtime routine checklist.
type ScheduleState struct {
	Days           map[string]*DayRecord `json:"days"`
	Monthly        []MonthlyObjective    `json:"monthly"`
	BedtimeRoutine []RoutineItem         `json:"bedtime_routine"`
}

// NewScheduleState returns an empty schedule state.
func NewScheduleState() ScheduleState {
	return ScheduleState{Days: make(map[string]*DayRecord)}
}

// RepeatableTask is a denormalized archive entry written when a task is
// created with a repeat mode. Best-effort convenience index; no uniqueness
// guarantee.
type RepeatableTask struct {
	TaskID    string    `json:"task_id"`
	Text      string    `json:"text"`
	Category  Category  `json:"category"`
	Hour      string    `json:"hour"`
	Repeat    Repeat    `json:"repeat"`
	CreatedAt time.Time `json:"created_at"`
}

// CompletionEvent is an append-only log entry written when a task transitions
// to done. The log is capped; oldest entries are evicted first.
type CompletionEvent struct {
	DayKey      string    `json:"day_key"`
	TaskID      string    `json:"task_id"`
	Category    Category  `json:"category"`
	Hour        string    `json:"hour"`
	CompletedAt time.Time `json:"completed_at"`
	Feeling     Feeling   `json:"feeling,omitempty"`
	DayOfWeek   int       `json:"day_of_week"`
	HourOfDay   int       `json:"hour_of_day"`
}

// CoachMeta tracks cooldown and auto-trigger bookkeeping for the coaching
// policy. Persisted across sessions.
type CoachMeta struct {
	LastCoachAt    time.Time `json:"last_coach_at"`
	LastProgressAt time.Time `json:"last_progress_at"`
	LastAutoDayKey string    `json:"last_auto_day_key"`
}

// Progress holds completion counters derived from a day record.
type Progress struct {
	Total int `json:"total"`
	Done  int `json:"done"`
	Pct   int `json:"pct"`
}

// TimeOfDay buckets the clock into coarse segments for analytics and the
// coach request.
type TimeOfDay string

const (
	TimeMorning   TimeOfDay = "morning"
	TimeAfternoon TimeOfDay = "afternoon"
	TimeEvening   TimeOfDay = "evening"
	TimeNight     TimeOfDay = "night"
)

// TimeOfDayForHour maps an hour of day to its segment. Hours outside the
// analytics windows ([6,22)) fall into night.
func TimeOfDayForHour(hour int) TimeOfDay {
	switch {
	case hour >= 6 && hour < 12:
		return TimeMorning
	case hour >= 12 && hour < 17:
		return TimeAfternoon
	case hour >= 17 && hour < 22:
		return TimeEvening
	default:
		return TimeNight
	}
}

// EmotionalState is the coarse state inferred from mood, capacity, and
// progress. Fixed whitelist; used to pick fallback coaching copy.
type EmotionalState string

const (
	StateFresh       EmotionalState = "fresh"
	StateSteady      EmotionalState = "steady"
	StateStretched   EmotionalState = "stretched"
	StateDrained     EmotionalState = "drained"
	StateCelebrating EmotionalState = "celebrating"
)

// PatternSummary carries the analytics answers consumed by the coach request
// and the analytics endpoint.
type PatternSummary struct {
	BestTimeOfDay        TimeOfDay `json:"best_time_of_day,omitempty"`
	LeastServedCategory  Category  `json:"least_served_category,omitempty"`
	NurturePct           int       `json:"nurture_pct"`
	AvgNextDayWithBed    float64   `json:"avg_next_day_with_bedtime"`
	AvgNextDayWithoutBed float64   `json:"avg_next_day_without_bedtime"`
	EventCount           int       `json:"event_count"`
}
