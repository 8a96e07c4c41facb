package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// DetectDSNType classifies a DSN as "postgres" or "sqlite". Connection URLs
// and key=value strings mean Postgres; anything else is treated as a SQLite
// file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// LoadJSON loads and unmarshals the snapshot stored under key into v.
// A missing key leaves v untouched and returns false. A corrupt snapshot is
// recovered locally: it is logged, v is left at its default, and no error is
// returned to the caller.
func LoadJSON(kv KV, key string, v interface{}) (bool, error) {
	data, err := kv.Get(key)
	if err != nil {
		slog.Error("store.LoadJSON: get failed", "error", err, "key", key)
		return false, fmt.Errorf("failed to load snapshot %s: %w", key, err)
	}
	if data == nil {
		slog.Debug("store.LoadJSON: no snapshot present", "key", key)
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("store.LoadJSON: corrupt snapshot, falling back to default", "key", key, "error", err)
		return false, nil
	}
	slog.Debug("store.LoadJSON: snapshot loaded", "key", key, "bytes", len(data))
	return true, nil
}

// SaveJSON marshals v and rewrites the snapshot stored under key.
func SaveJSON(kv KV, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("store.SaveJSON: marshal failed", "error", err, "key", key)
		return fmt.Errorf("failed to marshal snapshot %s: %w", key, err)
	}
	if err := kv.Put(key, data); err != nil {
		slog.Error("store.SaveJSON: put failed", "error", err, "key", key)
		return fmt.Errorf("failed to save snapshot %s: %w", key, err)
	}
	slog.Debug("store.SaveJSON: snapshot saved", "key", key, "bytes", len(data))
	return nil
}
