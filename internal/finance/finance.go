// Package finance keeps the simple money notes for cute-schedule: a flat
// list of dated income and expense entries with a running balance. Not an
// accounting system.
package finance

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sarahkitay/cute-schedule/internal/schedule"
	"github.com/sarahkitay/cute-schedule/internal/store"
)

// Kind says which way the money moved.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Entry is one finance note.
type Entry struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"` // day key, YYYY-MM-DD
	Label     string    `json:"label"`
	Amount    float64   `json:"amount"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// Ledger owns the persisted entry list.
type Ledger struct {
	mu      sync.Mutex
	entries []Entry
	kv      store.KV
	clock   func() time.Time
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithClock overrides the time source, used in tests.
func WithClock(clock func() time.Time) LedgerOption {
	return func(l *Ledger) { l.clock = clock }
}

// NewLedger loads the persisted entries (or starts empty).
func NewLedger(kv store.KV, opts ...LedgerOption) (*Ledger, error) {
	l := &Ledger{kv: kv, clock: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	if _, err := store.LoadJSON(kv, store.KeyFinanceLedger, &l.entries); err != nil {
		return nil, fmt.Errorf("failed to load finance ledger: %w", err)
	}
	slog.Debug("finance.NewLedger: loaded", "entries", len(l.entries))
	return l, nil
}

// Add records a new entry. The label must be non-empty after trimming, the
// amount positive, the date a valid day key, and the kind known.
func (l *Ledger) Add(date, label string, amount float64, kind Kind) (*Entry, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("finance entry label must not be empty")
	}
	if amount <= 0 {
		return nil, fmt.Errorf("finance entry amount must be positive, got %v", amount)
	}
	if !schedule.IsValidDayKey(date) {
		return nil, fmt.Errorf("invalid finance entry date %q", date)
	}
	if kind != KindIncome && kind != KindExpense {
		return nil, fmt.Errorf("unknown finance entry kind %q", kind)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	entry := Entry{
		ID:        uuid.NewString(),
		Date:      date,
		Label:     label,
		Amount:    amount,
		Kind:      kind,
		CreatedAt: l.clock(),
	}
	l.entries = append(l.entries, entry)
	if err := l.persistLocked(); err != nil {
		l.entries = l.entries[:len(l.entries)-1]
		return nil, err
	}
	slog.Debug("Ledger.Add", "id", entry.ID, "kind", kind, "amount", amount)
	return &entry, nil
}

// List returns entries newest date first; ties keep newest creation first.
func (l *Ledger) List() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Delete removes an entry by ID. Unknown IDs are a no-op.
func (l *Ledger) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return l.persistLocked()
		}
	}
	return nil
}

// Balance returns income minus expenses across all entries.
func (l *Ledger) Balance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total float64
	for _, e := range l.entries {
		switch e.Kind {
		case KindIncome:
			total += e.Amount
		case KindExpense:
			total -= e.Amount
		}
	}
	return total
}

func (l *Ledger) persistLocked() error {
	return store.SaveJSON(l.kv, store.KeyFinanceLedger, l.entries)
}
