// Package models defines the coach gateway wire contract for cute-schedule.
package models

// CoachTurn is one prior exchange in the coaching conversation.
type CoachTurn struct {
	Role    string `json:"role"` // "user" or "coach"
	Content string `json:"content"`
}

// CoachRequest is the payload sent to the external coach gateway.
type CoachRequest struct {
	DayKey         string               `json:"day_key"`
	Progress       Progress             `json:"progress"`
	Hours          map[string]HourTasks `json:"hours"`
	Monthly        []MonthlyObjective   `json:"monthly,omitempty"`
	Notes          string               `json:"notes,omitempty"`
	TimeOfDay      TimeOfDay            `json:"time_of_day"`
	EmotionalState EmotionalState       `json:"emotional_state"`
	Patterns       PatternSummary       `json:"patterns"`
	UserQuestion   string               `json:"user_question,omitempty"`
	History        []CoachTurn          `json:"history,omitempty"`
}

// CoachSuggestion is a proposed task returned by the coach.
type CoachSuggestion struct {
	Category Category `json:"category"`
	Text     string   `json:"text"`
	Hour     string   `json:"hour"`
}

// IgnoredMonthly marks a monthly objective the coach noticed is being
// neglected.
type IgnoredMonthly struct {
	Text string `json:"text"`
}

// CoachResponse is the parsed gateway reply. Missing fields default to empty
// values, never an error.
type CoachResponse struct {
	Message          string            `json:"message"`
	Highlights       []string          `json:"highlights"`
	Suggestions      []CoachSuggestion `json:"suggestions"`
	IgnoredMonthlies []IgnoredMonthly  `json:"ignored_monthlies"`
	PercentSummary   string            `json:"percent_summary"`
	Fallback         bool              `json:"fallback,omitempty"`
}

// Normalize replaces nil slices with empty ones so consumers never see null.
func (r *CoachResponse) Normalize() {
	if r.Highlights == nil {
		r.Highlights = []string{}
	}
	if r.Suggestions == nil {
		r.Suggestions = []CoachSuggestion{}
	}
	if r.IgnoredMonthlies == nil {
		r.IgnoredMonthlies = []IgnoredMonthly{}
	}
}
