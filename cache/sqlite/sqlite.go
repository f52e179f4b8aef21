/*
Package sqlite provides the durable, SQLite-backed local cache.

PURPOSE:
  The cache is the store's resilience fallback: when the HR backend is
  unreachable, submitted requests are queued here and listings are served
  from here. The collection is read and written wholesale as one JSON
  document under a fixed name, matching the read-modify-write access pattern
  of the store.

SCHEMA:
  collections(name TEXT PK, payload TEXT, revision INTEGER, updated_at TEXT)

  revision increases monotonically on every write. Watchers poll it to pick
  up edits made by another process sharing the same cache file.

CORRUPTION:
  An unparsable payload yields ErrCacheCorrupted; callers treat the
  collection as empty rather than crashing. Last write wins; there is no
  conflict resolution beyond matching on request identifier.

WAL MODE:
  SQLite is opened with WAL journaling so a reading process does not block
  the writer.

USAGE:
  c, err := sqlite.New("./leave-cache.db")
  if err != nil { ... }
  defer c.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/staffhive/leave-engine/leave"
)

// collectionName is the fixed key for the leave request collection.
const collectionName = "leave_requests"

// Cache implements leave.Cache on SQLite.
type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the cache database. Use ":memory:" for tests.
func New(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	c := &Cache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}
	return c, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		revision INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

// LoadRequests reads the whole collection. A missing row is an empty
// collection; an unparsable payload is reported as ErrCacheCorrupted.
func (c *Cache) LoadRequests(ctx context.Context) ([]leave.Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var payload string
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM collections WHERE name = ?`, collectionName,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &leave.CacheError{Op: "load", Err: err}
	}

	var reqs []leave.Request
	if err := json.Unmarshal([]byte(payload), &reqs); err != nil {
		return nil, fmt.Errorf("%w: %v", leave.ErrCacheCorrupted, err)
	}
	return reqs, nil
}

// SaveRequests replaces the collection wholesale and bumps the revision.
func (c *Cache) SaveRequests(ctx context.Context, reqs []leave.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if reqs == nil {
		reqs = []leave.Request{}
	}
	payload, err := json.Marshal(reqs)
	if err != nil {
		return &leave.CacheError{Op: "save", Err: err}
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO collections (name, payload, revision, updated_at)
		VALUES (?, ?, 1, datetime('now'))
		ON CONFLICT(name) DO UPDATE SET
			payload = excluded.payload,
			revision = collections.revision + 1,
			updated_at = excluded.updated_at
	`, collectionName, string(payload))
	if err != nil {
		return &leave.CacheError{Op: "save", Err: err}
	}
	return nil
}

// Revision returns the collection's write counter, 0 when never written.
func (c *Cache) Revision(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rev int64
	err := c.db.QueryRowContext(ctx,
		`SELECT revision FROM collections WHERE name = ?`, collectionName,
	).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, &leave.CacheError{Op: "revision", Err: err}
	}
	return rev, nil
}

var _ leave.Cache = (*Cache)(nil)
