// Package patterns implements the analytics over the capped completion log:
// best time of day, least-served category, and the bedtime-routine sleep
// correlation.
//
// All answers are recomputed by a full scan of the log on each call. The log
// is small by construction (at most 100 completion events and 60 bedtime
// dates), so no incremental index is kept.
package patterns

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/sarahkitay/cute-schedule/internal/models"
	"github.com/sarahkitay/cute-schedule/internal/schedule"
	"github.com/sarahkitay/cute-schedule/internal/store"
)

const (
	// MaxEvents caps the completion log; oldest entries evict first.
	MaxEvents = 100
	// MaxBedtimeDates caps the bedtime-complete date set.
	MaxBedtimeDates = 60
)

// CategoryStats counts scheduled vs completed tasks per category. Tracking
// the scheduled side makes the nurture rate a real completion ratio instead
// of the degenerate completions-over-completions it would otherwise be.
type CategoryStats struct {
	Scheduled int `json:"scheduled"`
	Completed int `json:"completed"`
}

// persistedLog is the snapshot shape written to the KV store.
type persistedLog struct {
	Events       []models.CompletionEvent           `json:"events"`
	BedtimeDates []string                           `json:"bedtime_dates"`
	Stats        map[models.Category]*CategoryStats `json:"stats"`
}

// Engine owns the completion log and answers the three pattern questions.
type Engine struct {
	mu   sync.Mutex
	log  persistedLog
	kv   store.KV
}

// NewEngine loads the persisted pattern log (or starts empty).
func NewEngine(kv store.KV) (*Engine, error) {
	e := &Engine{kv: kv}
	if _, err := store.LoadJSON(kv, store.KeyPatternLog, &e.log); err != nil {
		return nil, fmt.Errorf("failed to load pattern log: %w", err)
	}
	if e.log.Stats == nil {
		e.log.Stats = make(map[models.Category]*CategoryStats)
	}
	slog.Debug("patterns.NewEngine: log loaded", "events", len(e.log.Events), "bedtime_dates", len(e.log.BedtimeDates))
	return e, nil
}

// RecordCompletion appends a completion event, evicting the oldest entry
// once the cap is reached. Events are never retracted, even if the task is
// later toggled back to incomplete.
func (e *Engine) RecordCompletion(ev models.CompletionEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log.Events = append(e.log.Events, ev)
	if overflow := len(e.log.Events) - MaxEvents; overflow > 0 {
		e.log.Events = append([]models.CompletionEvent{}, e.log.Events[overflow:]...)
	}
	e.statsFor(ev.Category).Completed++
	e.persistLocked()
}

// RecordScheduled bumps the scheduled counter for a category when a task is
// created there.
func (e *Engine) RecordScheduled(category models.Category) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statsFor(category).Scheduled++
	e.persistLocked()
}

// RecordBedtimeComplete marks dayKey as a night the bedtime routine was
// fully completed. Duplicate marks are absorbed; the set is capped FIFO.
func (e *Engine) RecordBedtimeComplete(dayKey string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, d := range e.log.BedtimeDates {
		if d == dayKey {
			return
		}
	}
	e.log.BedtimeDates = append(e.log.BedtimeDates, dayKey)
	if overflow := len(e.log.BedtimeDates) - MaxBedtimeDates; overflow > 0 {
		e.log.BedtimeDates = append([]string{}, e.log.BedtimeDates[overflow:]...)
	}
	e.persistLocked()
}

// Events returns a copy of the completion log, oldest first.
func (e *Engine) Events() []models.CompletionEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.CompletionEvent{}, e.log.Events...)
}

// BedtimeDates returns a copy of the bedtime-complete date set.
func (e *Engine) BedtimeDates() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string{}, e.log.BedtimeDates...)
}

// BestTimeOfDay buckets completions into morning [6,12), afternoon [12,17),
// and evening [17,22) and returns the busiest bucket. Ties break by the
// fixed priority morning > afternoon > evening. ok is false when no event
// falls inside a bucket.
func (e *Engine) BestTimeOfDay() (models.TimeOfDay, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	counts := map[models.TimeOfDay]int{}
	for _, ev := range e.log.Events {
		tod := models.TimeOfDayForHour(ev.HourOfDay)
		if tod == models.TimeNight {
			continue
		}
		counts[tod]++
	}

	best := models.TimeOfDay("")
	bestCount := 0
	for _, tod := range []models.TimeOfDay{models.TimeMorning, models.TimeAfternoon, models.TimeEvening} {
		if counts[tod] > bestCount {
			best = tod
			bestCount = counts[tod]
		}
	}
	return best, bestCount > 0
}

// LeastServedCategory returns the category with the lowest completion rate
// (completed/scheduled) and the complement (1-rate)*100 as the "% to
// nurture" figure. Categories nothing was ever scheduled in are skipped.
// ok is false when no category has activity.
func (e *Engine) LeastServedCategory() (category models.Category, nurturePct int, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lowest := math.Inf(1)
	for _, cat := range models.CategoryOrder {
		st, present := e.log.Stats[cat]
		if !present || st.Scheduled == 0 {
			continue
		}
		rate := float64(st.Completed) / float64(st.Scheduled)
		if rate < lowest {
			lowest = rate
			category = cat
			ok = true
		}
	}
	if !ok {
		return "", 0, false
	}
	if lowest > 1 {
		// Completions can outnumber schedules when the log predates the
		// scheduled counters; clamp instead of reporting a negative figure.
		lowest = 1
	}
	nurturePct = int(math.Round((1 - lowest) * 100))
	return category, nurturePct, true
}

// SleepCorrelation averages next-day completion counts after nights the
// bedtime routine was fully completed versus nights it was not. A following
// date with no completions logged still counts as 0, not excluded. Both
// averages are rounded to one decimal.
func (e *Engine) SleepCorrelation() (withBedtime, withoutBedtime float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	perDay := map[string]int{}
	for _, ev := range e.log.Events {
		perDay[ev.DayKey]++
	}
	bedtime := map[string]bool{}
	for _, d := range e.log.BedtimeDates {
		bedtime[d] = true
	}

	var withSum, withN int
	for _, d := range e.log.BedtimeDates {
		next, err := schedule.NextDayKey(d)
		if err != nil {
			continue
		}
		withSum += perDay[next]
		withN++
	}

	// The without-group samples days that have activity but do not follow a
	// bedtime-complete night.
	var withoutSum, withoutN int
	for day, count := range perDay {
		prev, err := schedule.PrevDayKey(day)
		if err != nil {
			continue
		}
		if bedtime[prev] {
			continue
		}
		withoutSum += count
		withoutN++
	}

	return round1(avg(withSum, withN)), round1(avg(withoutSum, withoutN))
}

// Summary bundles the three answers for the coach request and the analytics
// endpoint.
func (e *Engine) Summary() models.PatternSummary {
	best, _ := e.BestTimeOfDay()
	cat, nurture, _ := e.LeastServedCategory()
	withBed, withoutBed := e.SleepCorrelation()
	e.mu.Lock()
	count := len(e.log.Events)
	e.mu.Unlock()
	return models.PatternSummary{
		BestTimeOfDay:        best,
		LeastServedCategory:  cat,
		NurturePct:           nurture,
		AvgNextDayWithBed:    withBed,
		AvgNextDayWithoutBed: withoutBed,
		EventCount:           count,
	}
}

// Trim re-applies the caps and persists. Run periodically as a safety net;
// the record methods already trim on write.
func (e *Engine) Trim() {
	e.mu.Lock()
	defer e.mu.Unlock()
	changed := false
	if overflow := len(e.log.Events) - MaxEvents; overflow > 0 {
		e.log.Events = append([]models.CompletionEvent{}, e.log.Events[overflow:]...)
		changed = true
	}
	if overflow := len(e.log.BedtimeDates) - MaxBedtimeDates; overflow > 0 {
		e.log.BedtimeDates = append([]string{}, e.log.BedtimeDates[overflow:]...)
		changed = true
	}
	if changed {
		e.persistLocked()
	}
}

func (e *Engine) statsFor(cat models.Category) *CategoryStats {
	st, ok := e.log.Stats[cat]
	if !ok {
		st = &CategoryStats{}
		e.log.Stats[cat] = st
	}
	return st
}

func (e *Engine) persistLocked() {
	if err := store.SaveJSON(e.kv, store.KeyPatternLog, e.log); err != nil {
		slog.Warn("patterns: persist failed", "error", err)
	}
}

func avg(sum, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
