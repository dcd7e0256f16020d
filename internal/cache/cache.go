// Package cache is a small TTL cache for tool responses, backed by
// SQLite. Only read-mode tool calls are cached: repeating the same
// diagnostic query within the TTL window returns the stored payload
// instead of hitting the tool server again.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/metrics"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

const schema = `
CREATE TABLE IF NOT EXISTS tool_cache (
	key        TEXT PRIMARY KEY,
	tool       TEXT NOT NULL,
	result     TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tool_cache_expires ON tool_cache(expires_at);
`

type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// Open creates (or reuses) the cache database at path. TTL applies to
// every entry written through this store.
func Open(path string, ttl time.Duration) (*Store, error) {
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("abriendo cache db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creando schema de cache: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Store{db: db, ttl: ttl}, nil
}

// Key derives a stable cache key from the tool name and its arguments.
// encoding/json sorts map keys, so equal argument sets hash equal.
func Key(tool string, args map[string]any) string {
	blob, _ := json.Marshal(args)
	sum := sha256.Sum256([]byte(tool + "\x00" + string(blob)))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached result for key, if present and not expired.
func (s *Store) Get(key string) (string, bool, error) {
	var result string
	var expiresAt int64
	err := s.db.QueryRow(
		`SELECT result, expires_at FROM tool_cache WHERE key = ?`, key,
	).Scan(&result, &expiresAt)
	if err == sql.ErrNoRows {
		metrics.CacheLookups.Inc(map[string]string{"outcome": "miss"})
		return "", false, nil
	}
	if err != nil {
		metrics.CacheLookups.Inc(map[string]string{"outcome": "error"})
		return "", false, fmt.Errorf("leyendo cache: %w", err)
	}
	if time.Now().Unix() >= expiresAt {
		// expired: drop lazily and report a miss
		_, _ = s.db.Exec(`DELETE FROM tool_cache WHERE key = ?`, key)
		metrics.CacheLookups.Inc(map[string]string{"outcome": "miss"})
		return "", false, nil
	}
	metrics.CacheLookups.Inc(map[string]string{"outcome": "hit"})
	return result, true, nil
}

// Put stores a result under key, replacing any previous entry.
func (s *Store) Put(key, tool, result string) error {
	expires := time.Now().Add(s.ttl).Unix()
	_, err := s.db.Exec(
		`INSERT INTO tool_cache (key, tool, result, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET tool = excluded.tool, result = excluded.result, expires_at = excluded.expires_at`,
		key, tool, result, expires,
	)
	if err != nil {
		return fmt.Errorf("escribiendo cache: %w", err)
	}
	return nil
}

// Purge removes every expired entry and returns how many were dropped.
func (s *Store) Purge() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM tool_cache WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("purgando cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
