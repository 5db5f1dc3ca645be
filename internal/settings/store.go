package settings

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// cacheTTL bounds how stale a cached setting can be. Adapters re-read their
// configuration before every call, so this is the longest a config change
// can take to be picked up.
const cacheTTL = 5 * time.Second

// Store reads and writes the key/value settings table. Reads go through a
// short-lived cache so that per-request config refreshes don't hammer the
// database.
type Store struct {
	db    *sql.DB
	cache *expirable.LRU[string, string]
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:    db,
		cache: expirable.NewLRU[string, string](256, nil, cacheTTL),
	}
}

// Get returns the value for key, or def when the key is absent or the read
// fails. Settings reads are best-effort by design: a missing setting behaves
// like its default, it never errors a caller.
func (s *Store) Get(ctx context.Context, key, def string) string {
	if v, ok := s.cache.Get(key); ok {
		if v == "" {
			return def
		}
		return v
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			return def
		}
		value = ""
	}

	s.cache.Add(key, value)
	if value == "" {
		return def
	}
	return value
}

// GetMultiple returns the values for all given keys; absent keys map to "".
func (s *Store) GetMultiple(ctx context.Context, keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = s.Get(ctx, k, "")
	}
	return out
}

// Bool reads a setting stored as "true"/"false".
func (s *Store) Bool(ctx context.Context, key string) bool {
	return s.Get(ctx, key, "false") == "true"
}

// Int reads an integer setting, falling back to def on absent or bad values.
func (s *Store) Int(ctx context.Context, key string, def int) int {
	v := s.Get(ctx, key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Set upserts a setting and drops it from the cache so the next read sees
// the new value immediately.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	s.cache.Remove(key)
	return nil
}
