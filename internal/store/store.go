// Package store provides storage backends for cute-schedule.
//
// Every piece of durable state (the day store, pattern log, coach meta,
// notes, finance ledger, theme, push subscriptions) is persisted as a JSON
// snapshot under its own fixed key, loaded once at startup and rewritten
// after each relevant mutation.
package store

import "sync"

// Fixed snapshot keys. Each subsystem owns exactly one key.
const (
	KeyScheduleState     = "schedule_state"
	KeyPatternLog        = "pattern_log"
	KeyCoachMeta         = "coach_meta"
	KeyNotes             = "notes"
	KeyFinanceLedger     = "finance_ledger"
	KeyTheme             = "theme"
	KeyPushSubscriptions = "push_subscriptions"
	KeyRepeatArchive     = "repeat_archive"
)

// KV is the snapshot store contract. Get returns (nil, nil) for a missing
// key; callers fall back to their default value.
type KV interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database DSN (a file path for SQLite, a connection string
// for Postgres).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// InMemoryStore is a simple in-memory KV store used in tests and as a
// fallback when no DSN is configured.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string][]byte)}
}

// Get returns the stored value for key, or (nil, nil) when absent.
func (s *InMemoryStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put stores value under key, replacing any previous value.
func (s *InMemoryStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	return nil
}

// Delete removes key. Deleting a missing key is a no-op.
func (s *InMemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
