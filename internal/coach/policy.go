// Package coach implements the coaching trigger policy and the external
// coach gateway for cute-schedule.
//
// The policy is a small state machine gating automatic coach invocation: a
// coach session fires on the first open of the day or after a stuck stretch,
// never more often than the cooldown allows, and only while the user is
// looking at today.
package coach

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/sarahkitay/cute-schedule/internal/models"
	"github.com/sarahkitay/cute-schedule/internal/store"
)

const (
	// Cooldown is the minimum interval between coach invocations. The
	// boundary is inclusive: exactly Cooldown after the last session is
	// permitted again (locked while now-last < Cooldown).
	Cooldown = 30 * time.Minute
	// StuckThreshold is how long without any toggle counts as stuck.
	StuckThreshold = 3 * time.Hour
)

// TriggerReason says why an automatic coach session fired.
type TriggerReason string

const (
	ReasonFirstOpen TriggerReason = "first_open"
	ReasonStuck     TriggerReason = "stuck"
)

// Policy owns the persisted CoachMeta and decides when the coach fires
// automatically.
type Policy struct {
	mu    sync.Mutex
	meta  models.CoachMeta
	kv    store.KV
	clock func() time.Time
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithClock overrides the time source, used in tests.
func WithClock(clock func() time.Time) PolicyOption {
	return func(p *Policy) { p.clock = clock }
}

// NewPolicy loads the persisted coach meta (or starts fresh).
func NewPolicy(kv store.KV, opts ...PolicyOption) (*Policy, error) {
	p := &Policy{kv: kv, clock: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if _, err := store.LoadJSON(kv, store.KeyCoachMeta, &p.meta); err != nil {
		return nil, fmt.Errorf("failed to load coach meta: %w", err)
	}
	slog.Debug("coach.NewPolicy: meta loaded", "last_auto_day", p.meta.LastAutoDayKey)
	return p, nil
}

// Meta returns a copy of the current bookkeeping.
func (p *Policy) Meta() models.CoachMeta {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.meta
}

// RecordProgress refreshes the last-progress timestamp. Wired to every task
// toggle, in either direction.
func (p *Policy) RecordProgress(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.meta.LastProgressAt = now
	p.persistLocked()
}

// Locked reports whether the cooldown is still in effect at now.
func (p *Policy) Locked(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lockedLocked(now)
}

func (p *Policy) lockedLocked(now time.Time) bool {
	if p.meta.LastCoachAt.IsZero() {
		return false
	}
	return now.Sub(p.meta.LastCoachAt) < Cooldown
}

// RemainingMinutes returns the whole minutes left on the cooldown, rounded
// up. Zero when unlocked.
func (p *Policy) RemainingMinutes(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.lockedLocked(now) {
		return 0
	}
	remaining := p.meta.LastCoachAt.Add(Cooldown).Sub(now)
	return int(math.Ceil(remaining.Minutes()))
}

// Evaluate runs one policy tick. When it decides to trigger it also marks
// the meta (auto day key and coach timestamp) so the session cannot
// double-fire.
func (p *Policy) Evaluate(now time.Time, currentDayKey string, viewingToday bool, prog models.Progress) (TriggerReason, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !viewingToday {
		return "", false
	}
	if p.lockedLocked(now) {
		slog.Debug("Policy.Evaluate: cooldown active", "remaining", p.meta.LastCoachAt.Add(Cooldown).Sub(now))
		return "", false
	}

	firstOpenToday := p.meta.LastAutoDayKey != currentDayKey
	stuck := now.Sub(p.meta.LastProgressAt) > StuckThreshold && prog.Total > 0 && prog.Done < prog.Total

	var reason TriggerReason
	switch {
	case firstOpenToday:
		reason = ReasonFirstOpen
	case stuck:
		reason = ReasonStuck
	default:
		return "", false
	}

	p.meta.LastAutoDayKey = currentDayKey
	p.meta.LastCoachAt = now
	p.persistLocked()
	slog.Info("Policy.Evaluate: auto coach triggered", "reason", reason, "day", currentDayKey)
	return reason, true
}

// MarkCoached stamps the cooldown after any coach session, including a
// fallback after a gateway failure. Keeping the stamp on failure avoids
// hammering a failing backend.
func (p *Policy) MarkCoached(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.meta.LastCoachAt = now
	p.persistLocked()
}

func (p *Policy) persistLocked() {
	if err := store.SaveJSON(p.kv, store.KeyCoachMeta, p.meta); err != nil {
		slog.Warn("coach: meta persist failed", "error", err)
	}
}
