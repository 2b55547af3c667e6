package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/ladle/internal/checksum"
	"github.com/starford/ladle/internal/importcache"
)

// ImportCache is the durable importcache.Cache. The normalized URL is the
// primary key, so concurrent stores for one URL leave exactly one row.
type ImportCache struct {
	db *DB
}

var _ importcache.Cache = (*ImportCache)(nil)

// ImportCache returns the import cache backed by db.
func (db *DB) ImportCache() *ImportCache {
	return &ImportCache{db: db}
}

const cacheColumns = `normalized_url, url, result, checksum, created_at`

func scanEntry(row interface{ Scan(...any) error }) (*importcache.Entry, error) {
	var (
		e      importcache.Entry
		result string
	)
	if err := row.Scan(&e.Key, &e.URL, &result, &e.Checksum, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Result = json.RawMessage(result)
	return &e, nil
}

// Lookup implements importcache.Cache.
func (c *ImportCache) Lookup(ctx context.Context, key string) (*importcache.Entry, error) {
	e, err := scanEntry(c.db.conn.QueryRowContext(ctx,
		`SELECT `+cacheColumns+` FROM import_cache WHERE normalized_url = ?`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: import cache lookup: %w", err)
	}
	return e, nil
}

// Store implements importcache.Cache. The first writer wins; the entry
// read back in the same transaction is returned to every caller.
func (c *ImportCache) Store(ctx context.Context, key, originalURL string, result []byte) (*importcache.Entry, error) {
	var out *importcache.Entry
	err := c.db.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO import_cache (normalized_url, url, result, checksum, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(normalized_url) DO NOTHING
		`, key, originalURL, string(result), checksum.Sum(result), c.db.timestamp())
		if err != nil && !isUniqueViolation(err) {
			return fmt.Errorf("store: import cache insert: %w", err)
		}
		e, err := scanEntry(tx.QueryRowContext(ctx,
			`SELECT `+cacheColumns+` FROM import_cache WHERE normalized_url = ?`, key))
		if err != nil {
			return fmt.Errorf("store: import cache read back: %w", err)
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of cached imports.
func (c *ImportCache) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM import_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: import cache count: %w", err)
	}
	return n, nil
}
