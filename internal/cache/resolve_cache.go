// Package cache persists resolve-library-id results across requests.
//
// Policy (explicit, per the design decision): entries are keyed by the
// normalized "name@version" string, go stale TTL after they were written,
// and the table is capped at MaxEntries rows with least-recently-used
// eviction by last_used.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/doclantern/doclantern/internal/docs"
)

// ResolveCache is a SQLite-backed cache of canonical library identifiers.
type ResolveCache struct {
	mu         sync.Mutex
	db         *sql.DB
	ttl        time.Duration
	maxEntries int
	now        func() time.Time // swapped in tests
}

// New opens (or creates) the cache database at path.
// ttl defaults to 24h and maxEntries to 512 when non-positive.
func New(path string, ttl time.Duration, maxEntries int) (*ResolveCache, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 512
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	c := &ResolveCache{
		db:         db,
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return c, nil
}

func (c *ResolveCache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resolved_libraries (
		key        TEXT PRIMARY KEY,
		id         TEXT NOT NULL,
		name       TEXT NOT NULL,
		score      REAL NOT NULL,
		created_at INTEGER NOT NULL,
		last_used  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_last_used ON resolved_libraries(last_used);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Key normalizes a library query into its cache key.
func Key(q docs.LibraryQuery) string {
	name := strings.ToLower(strings.TrimSpace(q.Name))
	version := strings.ToLower(strings.TrimSpace(q.Version))
	if version == "" {
		return name
	}
	return name + "@" + version
}

// Get returns the cached resolution for q, or ok=false on a miss or a stale
// entry. Hits update last_used for LRU ordering.
func (c *ResolveCache) Get(ctx context.Context, q docs.LibraryQuery) (docs.ResolvedLibrary, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(q)
	var (
		lib       docs.ResolvedLibrary
		createdAt int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT id, name, score, created_at FROM resolved_libraries WHERE key = ?`, key,
	).Scan(&lib.ID, &lib.Name, &lib.Score, &createdAt)
	if err == sql.ErrNoRows {
		return docs.ResolvedLibrary{}, false, nil
	}
	if err != nil {
		return docs.ResolvedLibrary{}, false, fmt.Errorf("cache read: %w", err)
	}

	now := c.now()
	if now.Sub(time.Unix(createdAt, 0)) > c.ttl {
		// Stale: drop it and report a miss so the caller resolves fresh.
		_, _ = c.db.ExecContext(ctx, `DELETE FROM resolved_libraries WHERE key = ?`, key)
		return docs.ResolvedLibrary{}, false, nil
	}

	_, _ = c.db.ExecContext(ctx,
		`UPDATE resolved_libraries SET last_used = ? WHERE key = ?`, now.Unix(), key)
	return lib, true, nil
}

// Put stores a successful resolution and evicts least-recently-used rows
// beyond the cap.
func (c *ResolveCache) Put(ctx context.Context, q docs.LibraryQuery, lib docs.ResolvedLibrary) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().Unix()
	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO resolved_libraries (key, id, name, score, created_at, last_used)
		VALUES (?, ?, ?, ?, ?, ?)`,
		Key(q), lib.ID, lib.Name, lib.Score, now, now)
	if err != nil {
		return fmt.Errorf("cache write: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		DELETE FROM resolved_libraries WHERE key IN (
			SELECT key FROM resolved_libraries
			ORDER BY last_used DESC
			LIMIT -1 OFFSET ?
		)`, c.maxEntries)
	if err != nil {
		return fmt.Errorf("cache evict: %w", err)
	}
	return nil
}

// Len reports the current number of entries.
func (c *ResolveCache) Len(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resolved_libraries`).Scan(&n)
	return n, err
}

// Close releases the underlying database handle.
func (c *ResolveCache) Close() error {
	return c.db.Close()
}
