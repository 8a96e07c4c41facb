package coach

import (
	"testing"
	"time"

	"github.com/sarahkitay/cute-schedule/internal/models"
	"github.com/sarahkitay/cute-schedule/internal/store"
)

var policyNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := NewPolicy(store.NewInMemoryStore())
	if err != nil {
		t.Fatalf("NewPolicy() error = %v", err)
	}
	return p
}

func TestEvaluateFirstOpenTriggersOncePerDay(t *testing.T) {
	p := newTestPolicy(t)
	prog := models.Progress{Total: 3, Done: 0, Pct: 0}

	reason, ok := p.Evaluate(policyNow, "2025-06-01", true, prog)
	if !ok || reason != ReasonFirstOpen {
		t.Errorf("Evaluate() = %q, %v, want %q, true", reason, ok, ReasonFirstOpen)
	}

	// Same day, well past cooldown: the first-open trigger must not repeat.
	later := policyNow.Add(2 * time.Hour)
	p.RecordProgress(later)
	if reason, ok := p.Evaluate(later, "2025-06-01", true, prog); ok {
		t.Errorf("Evaluate() second open same day = %q, true, want suppressed", reason)
	}

	// A new day fires first-open again.
	nextDay := policyNow.Add(24 * time.Hour)
	p.RecordProgress(nextDay.Add(-time.Minute))
	if reason, ok := p.Evaluate(nextDay, "2025-06-02", true, prog); !ok || reason != ReasonFirstOpen {
		t.Errorf("Evaluate() next day = %q, %v, want %q, true", reason, ok, ReasonFirstOpen)
	}
}

func TestEvaluateSuppressedWhenNotViewingToday(t *testing.T) {
	p := newTestPolicy(t)
	if _, ok := p.Evaluate(policyNow, "2025-06-01", false, models.Progress{Total: 3}); ok {
		t.Error("Evaluate() with viewingToday=false should not trigger")
	}
}

func TestEvaluateCooldownBoundary(t *testing.T) {
	p := newTestPolicy(t)
	p.MarkCoached(policyNow)

	if !p.Locked(policyNow.Add(29 * time.Minute)) {
		t.Error("Locked() at 29m should be true")
	}
	// Exactly the cooldown is permitted again.
	if p.Locked(policyNow.Add(Cooldown)) {
		t.Error("Locked() at exactly the cooldown should be false")
	}
	if p.Locked(policyNow.Add(31 * time.Minute)) {
		t.Error("Locked() at 31m should be false")
	}

	if _, ok := p.Evaluate(policyNow.Add(29*time.Minute), "2025-06-01", true, models.Progress{Total: 1}); ok {
		t.Error("Evaluate() during cooldown should not trigger")
	}
	if reason, ok := p.Evaluate(policyNow.Add(31*time.Minute), "2025-06-01", true, models.Progress{Total: 1}); !ok || reason != ReasonFirstOpen {
		t.Errorf("Evaluate() after cooldown = %q, %v, want first open", reason, ok)
	}
}

func TestEvaluateStuck(t *testing.T) {
	p := newTestPolicy(t)
	prog := models.Progress{Total: 4, Done: 1, Pct: 25}

	// Consume the first-open trigger, then advance past the cooldown.
	if _, ok := p.Evaluate(policyNow, "2025-06-01", true, prog); !ok {
		t.Fatal("expected first-open trigger")
	}
	p.RecordProgress(policyNow.Add(5 * time.Minute))

	// 2h59m since last progress: not stuck yet.
	at := policyNow.Add(5*time.Minute + 2*time.Hour + 59*time.Minute)
	if reason, ok := p.Evaluate(at, "2025-06-01", true, prog); ok {
		t.Errorf("Evaluate() before stuck threshold = %q, true, want suppressed", reason)
	}

	at = policyNow.Add(5*time.Minute + 3*time.Hour + time.Minute)
	if reason, ok := p.Evaluate(at, "2025-06-01", true, prog); !ok || reason != ReasonStuck {
		t.Errorf("Evaluate() past stuck threshold = %q, %v, want %q, true", reason, ok, ReasonStuck)
	}
}

func TestEvaluateStuckNeedsOpenTasks(t *testing.T) {
	p := newTestPolicy(t)

	if _, ok := p.Evaluate(policyNow, "2025-06-01", true, models.Progress{}); !ok {
		t.Fatal("expected first-open trigger")
	}
	at := policyNow.Add(4 * time.Hour)

	// Empty day: nothing to be stuck on.
	if _, ok := p.Evaluate(at, "2025-06-01", true, models.Progress{}); ok {
		t.Error("Evaluate() with no tasks should not report stuck")
	}
	// All done: finished, not stuck.
	if _, ok := p.Evaluate(at, "2025-06-01", true, models.Progress{Total: 2, Done: 2, Pct: 100}); ok {
		t.Error("Evaluate() with all tasks done should not report stuck")
	}
}

func TestRemainingMinutes(t *testing.T) {
	p := newTestPolicy(t)
	if got := p.RemainingMinutes(policyNow); got != 0 {
		t.Errorf("RemainingMinutes() unlocked = %d, want 0", got)
	}

	p.MarkCoached(policyNow)
	if got := p.RemainingMinutes(policyNow.Add(10 * time.Minute)); got != 20 {
		t.Errorf("RemainingMinutes() at 10m = %d, want 20", got)
	}
	// Partial minutes round up.
	if got := p.RemainingMinutes(policyNow.Add(10*time.Minute + 30*time.Second)); got != 20 {
		t.Errorf("RemainingMinutes() at 10m30s = %d, want 20", got)
	}
	if got := p.RemainingMinutes(policyNow.Add(Cooldown)); got != 0 {
		t.Errorf("RemainingMinutes() at cooldown = %d, want 0", got)
	}
}

func TestPolicyPersistsAcrossReload(t *testing.T) {
	kv := store.NewInMemoryStore()
	p, err := NewPolicy(kv)
	if err != nil {
		t.Fatalf("NewPolicy() error = %v", err)
	}
	if _, ok := p.Evaluate(policyNow, "2025-06-01", true, models.Progress{Total: 1}); !ok {
		t.Fatal("expected first-open trigger")
	}

	reloaded, err := NewPolicy(kv)
	if err != nil {
		t.Fatalf("NewPolicy() reload error = %v", err)
	}
	if reloaded.Meta().LastAutoDayKey != "2025-06-01" {
		t.Errorf("reloaded LastAutoDayKey = %q, want 2025-06-01", reloaded.Meta().LastAutoDayKey)
	}
	if !reloaded.Locked(policyNow.Add(time.Minute)) {
		t.Error("reloaded policy should still be inside the cooldown")
	}
}
