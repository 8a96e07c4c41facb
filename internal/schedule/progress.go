package schedule

import (
	"math"
	"sort"

	"github.com/sarahkitay/cute-schedule/internal/models"
)

// AnnotatedTask is a task paired with the hour and category that own it,
// produced when a day is flattened.
type AnnotatedTask struct {
	Hour     string          `json:"hour"`
	Category models.Category `json:"category"`
	Task     models.Task     `json:"task"`
}

// AllTasksInDay flattens every (hour, category) bucket into a single
// sequence: hour keys ascending, then categories in declaration order, then
// insertion order within each bucket.
func AllTasksInDay(hours map[string]models.HourTasks) []AnnotatedTask {
	hourKeys := make([]string, 0, len(hours))
	for hk := range hours {
		hourKeys = append(hourKeys, hk)
	}
	sort.Strings(hourKeys)

	var out []AnnotatedTask
	for _, hk := range hourKeys {
		bucket := hours[hk]
		for _, cat := range models.CategoryOrder {
			for _, t := range bucket[cat] {
				out = append(out, AnnotatedTask{Hour: hk, Category: cat, Task: t})
			}
		}
	}
	return out
}

// DayProgress derives completion counters for a day. Pct is 0 when the day
// has no tasks.
func DayProgress(hours map[string]models.HourTasks) models.Progress {
	var p models.Progress
	for _, bucket := range hours {
		for _, cat := range models.CategoryOrder {
			for _, t := range bucket[cat] {
				p.Total++
				if t.Done {
					p.Done++
				}
			}
		}
	}
	if p.Total > 0 {
		p.Pct = int(math.Round(100 * float64(p.Done) / float64(p.Total)))
	}
	return p
}

// DayIsStarred reports whether the day has at least one task and every task
// is done.
func DayIsStarred(hours map[string]models.HourTasks) bool {
	p := DayProgress(hours)
	return p.Total > 0 && p.Done == p.Total
}

// ProgressCopy maps a completion percentage to a short phrase. The coaching
// layer consumes these bands as a decision signal as well.
func ProgressCopy(pct int) string {
	switch {
	case pct <= 0:
		return "A fresh page. Pick one small thing to start."
	case pct <= 40:
		return "Warming up. Keep the momentum gentle."
	case pct <= 80:
		return "Solid progress. The day is taking shape."
	case pct <= 99:
		return "Almost there. One last push."
	default:
		return "Everything done. Gold star day."
	}
}

// HourIsComplete reports whether every task in every category bucket of the
// hour is done. An hour with zero tasks is not complete.
func HourIsComplete(bucket models.HourTasks) bool {
	total := 0
	for _, cat := range models.CategoryOrder {
		for _, t := range bucket[cat] {
			total++
			if !t.Done {
				return false
			}
		}
	}
	return total > 0
}
