package patterns

import (
	"fmt"
	"testing"
	"time"

	"github.com/sarahkitay/cute-schedule/internal/models"
	"github.com/sarahkitay/cute-schedule/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.InMemoryStore) {
	t.Helper()
	kv := store.NewInMemoryStore()
	e, err := NewEngine(kv)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e, kv
}

func event(dayKey string, hourOfDay int, cat models.Category, id string) models.CompletionEvent {
	return models.CompletionEvent{
		DayKey:      dayKey,
		TaskID:      id,
		Category:    cat,
		Hour:        fmt.Sprintf("%02d:00", hourOfDay),
		CompletedAt: time.Date(2025, 6, 1, hourOfDay, 0, 0, 0, time.UTC),
		HourOfDay:   hourOfDay,
	}
}

func TestCompletionLogCapFIFO(t *testing.T) {
	e, _ := newTestEngine(t)
	for i := 1; i <= 101; i++ {
		e.RecordCompletion(event("2025-06-01", 9, models.CategoryPersonal, fmt.Sprintf("t%d", i)))
	}
	events := e.Events()
	if len(events) != MaxEvents {
		t.Fatalf("log length must never exceed %d, got %d", MaxEvents, len(events))
	}
	// Entries 2..101 survive: the oldest is evicted first.
	if events[0].TaskID != "t2" {
		t.Errorf("oldest retained entry should be t2, got %s", events[0].TaskID)
	}
	if events[len(events)-1].TaskID != "t101" {
		t.Errorf("newest entry should be t101, got %s", events[len(events)-1].TaskID)
	}
}

func TestBestTimeOfDay(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, ok := e.BestTimeOfDay(); ok {
		t.Error("no events: no best time")
	}

	e.RecordCompletion(event("2025-06-01", 8, models.CategoryPersonal, "t1"))
	e.RecordCompletion(event("2025-06-01", 9, models.CategoryPersonal, "t2"))
	e.RecordCompletion(event("2025-06-01", 14, models.CategoryPersonal, "t3"))
	best, ok := e.BestTimeOfDay()
	if !ok || best != models.TimeMorning {
		t.Errorf("expected morning, got %s (ok=%v)", best, ok)
	}
}

func TestBestTimeOfDayTieBreaksByPriority(t *testing.T) {
	e, _ := newTestEngine(t)
	// One afternoon and one evening event: tie breaks afternoon over evening.
	e.RecordCompletion(event("2025-06-01", 13, models.CategoryPersonal, "t1"))
	e.RecordCompletion(event("2025-06-01", 19, models.CategoryPersonal, "t2"))
	best, ok := e.BestTimeOfDay()
	if !ok || best != models.TimeAfternoon {
		t.Errorf("expected afternoon on tie, got %s", best)
	}
}

func TestBestTimeOfDayIgnoresNightHours(t *testing.T) {
	e, _ := newTestEngine(t)
	e.RecordCompletion(event("2025-06-01", 23, models.CategoryPersonal, "t1"))
	e.RecordCompletion(event("2025-06-01", 3, models.CategoryPersonal, "t2"))
	if _, ok := e.BestTimeOfDay(); ok {
		t.Error("events outside the buckets must not produce a best time")
	}
}

func TestLeastServedCategory(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, _, ok := e.LeastServedCategory(); ok {
		t.Error("no activity: no least-served category")
	}

	// RHEA: 2 scheduled, 2 completed. EPC: 4 scheduled, 1 completed.
	for i := 0; i < 2; i++ {
		e.RecordScheduled(models.CategoryRhea)
	}
	for i := 0; i < 4; i++ {
		e.RecordScheduled(models.CategoryEPC)
	}
	e.RecordCompletion(event("2025-06-01", 9, models.CategoryRhea, "r1"))
	e.RecordCompletion(event("2025-06-01", 10, models.CategoryRhea, "r2"))
	e.RecordCompletion(event("2025-06-01", 11, models.CategoryEPC, "e1"))

	cat, nurture, ok := e.LeastServedCategory()
	if !ok || cat != models.CategoryEPC {
		t.Fatalf("expected EPC least served, got %s (ok=%v)", cat, ok)
	}
	// rate = 1/4, nurture = 75.
	if nurture != 75 {
		t.Errorf("expected nurture 75, got %d", nurture)
	}
}

func TestLeastServedCategoryClampsLegacyLogs(t *testing.T) {
	e, _ := newTestEngine(t)
	// Completions without scheduled counters (a log predating the counters)
	// must not yield negative nurture figures.
	e.RecordScheduled(models.CategoryPersonal)
	e.RecordCompletion(event("2025-06-01", 9, models.CategoryPersonal, "t1"))
	e.RecordCompletion(event("2025-06-01", 10, models.CategoryPersonal, "t2"))
	_, nurture, ok := e.LeastServedCategory()
	if !ok || nurture != 0 {
		t.Errorf("expected clamped nurture 0, got %d (ok=%v)", nurture, ok)
	}
}

func TestSleepCorrelation(t *testing.T) {
	e, _ := newTestEngine(t)

	// Bedtime completed on 06-01 and 06-03.
	e.RecordBedtimeComplete("2025-06-01")
	e.RecordBedtimeComplete("2025-06-03")

	// 06-02 (follows a bedtime night): 3 completions.
	for i := 0; i < 3; i++ {
		e.RecordCompletion(event("2025-06-02", 9, models.CategoryPersonal, fmt.Sprintf("a%d", i)))
	}
	// 06-04 follows a bedtime night but has no completions: counts as 0.
	// 06-06 (does not follow a bedtime night): 2 completions.
	for i := 0; i < 2; i++ {
		e.RecordCompletion(event("2025-06-06", 9, models.CategoryPersonal, fmt.Sprintf("b%d", i)))
	}

	withBed, withoutBed := e.SleepCorrelation()
	// with = (3 + 0) / 2 = 1.5
	if withBed != 1.5 {
		t.Errorf("expected withBedtime 1.5, got %v", withBed)
	}
	// without group: 06-02 follows 06-01 (bedtime, excluded); 06-06 follows
	// 06-05 (no bedtime): avg = 2.0
	if withoutBed != 2.0 {
		t.Errorf("expected withoutBedtime 2.0, got %v", withoutBed)
	}
}

func TestSleepCorrelationEmpty(t *testing.T) {
	e, _ := newTestEngine(t)
	withBed, withoutBed := e.SleepCorrelation()
	if withBed != 0 || withoutBed != 0 {
		t.Errorf("empty log must average 0, got %v / %v", withBed, withoutBed)
	}
}

func TestBedtimeDatesCapAndDedup(t *testing.T) {
	e, _ := newTestEngine(t)
	e.RecordBedtimeComplete("2025-06-01")
	e.RecordBedtimeComplete("2025-06-01")
	if len(e.BedtimeDates()) != 1 {
		t.Error("duplicate bedtime marks must be absorbed")
	}

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 70; i++ {
		e.RecordBedtimeComplete(start.AddDate(0, 0, i).Format("2006-01-02"))
	}
	dates := e.BedtimeDates()
	if len(dates) != MaxBedtimeDates {
		t.Fatalf("bedtime set must cap at %d, got %d", MaxBedtimeDates, len(dates))
	}
	if dates[len(dates)-1] != "2025-03-11" {
		t.Errorf("newest date should be retained, got %s", dates[len(dates)-1])
	}
}

func TestEnginePersistsAcrossReload(t *testing.T) {
	e, kv := newTestEngine(t)
	e.RecordScheduled(models.CategoryEPC)
	e.RecordCompletion(event("2025-06-01", 9, models.CategoryEPC, "t1"))
	e.RecordBedtimeComplete("2025-06-01")

	reloaded, err := NewEngine(kv)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(reloaded.Events()) != 1 || len(reloaded.BedtimeDates()) != 1 {
		t.Error("log must survive a reload")
	}
	sum := reloaded.Summary()
	if sum.EventCount != 1 || sum.BestTimeOfDay != models.TimeMorning {
		t.Errorf("unexpected summary after reload: %+v", sum)
	}
}

func TestTrimReappliesCaps(t *testing.T) {
	e, _ := newTestEngine(t)
	for i := 0; i < 5; i++ {
		e.RecordCompletion(event("2025-06-01", 9, models.CategoryPersonal, fmt.Sprintf("t%d", i)))
	}
	e.Trim()
	if len(e.Events()) != 5 {
		t.Error("Trim must not drop entries under the cap")
	}
}
