package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"

	"github.com/gitdocs/gitdocs/internal/log"
)

// DBFileName is the cache database file inside the cache directory.
const DBFileName = "cache.db"

// Options configures a cache instance.
type Options struct {
	DefaultTTL   time.Duration
	Enabled      bool
	MaxSizeBytes int64 // 0 means unbounded
}

// DefaultOptions returns the options used when no configuration is present.
func DefaultOptions() Options {
	return Options{
		DefaultTTL:   5 * time.Minute,
		Enabled:      true,
		MaxSizeBytes: 100 * 1024 * 1024,
	}
}

// Stats describes the current state of the backing store.
type Stats struct {
	Enabled   bool   `json:"enabled"`
	Directory string `json:"directory,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
	Entries   int    `json:"entries"`
}

// Cache is a namespaced TTL key/value store backed by SQLite.
// All methods are safe for concurrent use and never fail the caller:
// storage errors degrade to cache misses or no-ops.
type Cache struct {
	dir    string
	opts   Options
	logger *log.Logger

	db *sql.DB

	fetchGroup singleflight.Group

	mu     sync.Mutex // serializes prune/clear against concurrent sets
	closed bool
}

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_expires ON entries(expires_at);
`

// Open opens (or creates) the cache store in dir. A disabled configuration
// yields a no-op cache without touching disk. An unusable directory or
// database returns an error; callers should fall back to [Disabled] rather
// than aborting.
func Open(dir string, opts Options, logger *log.Logger) (*Cache, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if !opts.Enabled {
		return Disabled(), nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, DBFileName))
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("cache pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache schema: %w", err)
	}

	return &Cache{dir: dir, opts: opts, logger: logger, db: db}, nil
}

// Disabled returns a cache that never stores anything. Get always misses,
// Set and Delete are no-ops.
func Disabled() *Cache {
	return &Cache{opts: Options{Enabled: false}, logger: log.Discard()}
}

// Enabled reports whether the cache persists entries.
func (c *Cache) Enabled() bool {
	return c.opts.Enabled && c.db != nil
}

// Get returns the stored value for (namespace, key), or ok=false when the
// cache is disabled, the entry is absent, or the entry has expired.
// Expired rows are removed lazily.
func (c *Cache) Get(namespace, key string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}

	composed := Compose(namespace, key)

	var value []byte
	var expiresAt int64
	err := c.db.QueryRow(
		"SELECT value, expires_at FROM entries WHERE key = ?", composed,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		c.logger.Warnf("cache get %s: %v", composed, err)
		return nil, false
	}

	if time.Now().Unix() >= expiresAt {
		if _, err := c.db.Exec("DELETE FROM entries WHERE key = ?", composed); err != nil {
			c.logger.Warnf("cache evict %s: %v", composed, err)
		}
		return nil, false
	}

	c.logger.Debugf("cache hit: %s", composed)
	return value, true
}

// Set stores value under (namespace, key) with expiry now + ttl.
// A zero ttl uses the configured default. Overwrites any existing entry.
// Failures are logged and swallowed.
func (c *Cache) Set(namespace, key string, value []byte, ttl time.Duration) {
	if !c.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = c.opts.DefaultTTL
	}

	composed := Compose(namespace, key)
	now := time.Now()

	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO entries (key, value, expires_at, created_at) VALUES (?, ?, ?, ?)",
		composed, value, now.Add(ttl).Unix(), now.Unix(),
	)
	if err != nil {
		c.logger.Warnf("cache set %s: %v", composed, err)
		return
	}

	c.logger.Debugf("cache set: %s (ttl=%s)", composed, ttl)
	c.pruneIfOversized()
}

// Delete removes one entry. No-op if absent or on error.
func (c *Cache) Delete(namespace, key string) {
	if !c.Enabled() {
		return
	}

	composed := Compose(namespace, key)
	if _, err := c.db.Exec("DELETE FROM entries WHERE key = ?", composed); err != nil {
		c.logger.Warnf("cache delete %s: %v", composed, err)
	}
}

// ClearNamespace removes every entry in a namespace and returns the count.
// Prefix matching is exact: namespace "a" never touches entries of "ab".
func (c *Cache) ClearNamespace(namespace string) int {
	if !c.Enabled() {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := namespace + Separator
	res, err := c.db.Exec(
		"DELETE FROM entries WHERE substr(key, 1, ?) = ?", len(prefix), prefix,
	)
	if err != nil {
		c.logger.Warnf("cache clear namespace %s: %v", namespace, err)
		return 0
	}

	n, _ := res.RowsAffected()
	return int(n)
}

// ClearAll removes every entry regardless of namespace.
func (c *Cache) ClearAll() {
	if !c.Enabled() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec("DELETE FROM entries"); err != nil {
		c.logger.Warnf("cache clear: %v", err)
	}
}

// Stats returns the current store statistics.
func (c *Cache) Stats() Stats {
	if !c.Enabled() {
		return Stats{Enabled: false}
	}

	s := Stats{Enabled: true, Directory: c.dir}
	err := c.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0) FROM entries",
	).Scan(&s.Entries, &s.SizeBytes)
	if err != nil {
		c.logger.Warnf("cache stats: %v", err)
	}
	return s
}

// Close releases the backing store. Idempotent.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.db == nil {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

// pruneIfOversized enforces the size ceiling: expired rows go first, then
// the oldest rows by write time until the store fits again.
func (c *Cache) pruneIfOversized() {
	if c.opts.MaxSizeBytes <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	size, err := c.storeSize()
	if err != nil {
		c.logger.Warnf("cache prune: %v", err)
		return
	}
	if size <= c.opts.MaxSizeBytes {
		return
	}

	if _, err := c.db.Exec("DELETE FROM entries WHERE expires_at <= ?", time.Now().Unix()); err != nil {
		c.logger.Warnf("cache prune expired: %v", err)
		return
	}

	for {
		size, err = c.storeSize()
		if err != nil || size <= c.opts.MaxSizeBytes {
			return
		}
		res, err := c.db.Exec(
			"DELETE FROM entries WHERE key IN (SELECT key FROM entries ORDER BY created_at ASC LIMIT 50)",
		)
		if err != nil {
			c.logger.Warnf("cache prune oldest: %v", err)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return
		}
	}
}

func (c *Cache) storeSize() (int64, error) {
	var size int64
	err := c.db.QueryRow(
		"SELECT COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0) FROM entries",
	).Scan(&size)
	return size, err
}

// GetJSON reads a cached JSON payload into dest.
// Returns false on miss or when decoding fails (the entry is dropped then,
// since a payload that no longer decodes is useless).
func (c *Cache) GetJSON(namespace, key string, dest any) bool {
	data, ok := c.Get(namespace, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warnf("cache decode %s: %v", Compose(namespace, key), err)
		c.Delete(namespace, key)
		return false
	}
	return true
}

// SetJSON stores value as a JSON payload. Encoding failures are logged and
// swallowed like any other cache write failure.
func (c *Cache) SetJSON(namespace, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warnf("cache encode %s: %v", Compose(namespace, key), err)
		return
	}
	c.Set(namespace, key, data, ttl)
}
