package finance

import (
	"testing"
	"time"

	"github.com/sarahkitay/cute-schedule/internal/store"
)

func newTestLedger(t *testing.T) (*Ledger, store.KV) {
	t.Helper()
	kv := store.NewInMemoryStore()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	l, err := NewLedger(kv, WithClock(func() time.Time {
		now = now.Add(time.Minute)
		return now
	}))
	if err != nil {
		t.Fatalf("NewLedger() error = %v", err)
	}
	return l, kv
}

func TestLedgerAddValidation(t *testing.T) {
	l, _ := newTestLedger(t)

	tests := []struct {
		name   string
		date   string
		label  string
		amount float64
		kind   Kind
	}{
		{name: "empty label", date: "2025-06-01", label: "   ", amount: 10, kind: KindExpense},
		{name: "zero amount", date: "2025-06-01", label: "coffee", amount: 0, kind: KindExpense},
		{name: "negative amount", date: "2025-06-01", label: "coffee", amount: -3, kind: KindExpense},
		{name: "bad date", date: "June 1st", label: "coffee", amount: 3, kind: KindExpense},
		{name: "bad kind", date: "2025-06-01", label: "coffee", amount: 3, kind: "transfer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := l.Add(tt.date, tt.label, tt.amount, tt.kind); err == nil {
				t.Error("Add() error = nil, want validation error")
			}
		})
	}

	entry, err := l.Add("2025-06-01", "  coffee  ", 3.50, KindExpense)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if entry.Label != "coffee" {
		t.Errorf("Label = %q, want trimmed", entry.Label)
	}
	if entry.ID == "" {
		t.Error("Add() should assign an ID")
	}
}

func TestLedgerListOrderAndBalance(t *testing.T) {
	l, _ := newTestLedger(t)

	if _, err := l.Add("2025-06-01", "coffee", 3.50, KindExpense); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Add("2025-06-03", "paycheck", 1200, KindIncome); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Add("2025-06-02", "groceries", 74.25, KindExpense); err != nil {
		t.Fatal(err)
	}

	got := l.List()
	if len(got) != 3 {
		t.Fatalf("List() = %d entries, want 3", len(got))
	}
	wantDates := []string{"2025-06-03", "2025-06-02", "2025-06-01"}
	for i, want := range wantDates {
		if got[i].Date != want {
			t.Errorf("List()[%d].Date = %q, want %q", i, got[i].Date, want)
		}
	}

	if balance := l.Balance(); balance != 1200-3.50-74.25 {
		t.Errorf("Balance() = %v, want %v", balance, 1200-3.50-74.25)
	}
}

func TestLedgerDeleteAndPersist(t *testing.T) {
	l, kv := newTestLedger(t)
	entry, err := l.Add("2025-06-01", "coffee", 3.50, KindExpense)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Add("2025-06-01", "lunch", 12, KindExpense); err != nil {
		t.Fatal(err)
	}

	if err := l.Delete(entry.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	// Unknown ID is a no-op.
	if err := l.Delete("nope"); err != nil {
		t.Errorf("Delete() unknown ID error = %v", err)
	}

	reloaded, err := NewLedger(kv)
	if err != nil {
		t.Fatalf("NewLedger() reload error = %v", err)
	}
	got := reloaded.List()
	if len(got) != 1 || got[0].Label != "lunch" {
		t.Errorf("reloaded List() = %v, want only lunch", got)
	}
}
