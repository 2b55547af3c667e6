//go:build !sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on recipes.name and recipes.search_text.
	return nil
}

func ftsUpsertRecipe(_ context.Context, _ *sql.Tx, _, _, _ string) error {
	// search_text is already stored on the recipes row.
	return nil
}

func ftsDeleteRecipe(_ context.Context, _ *sql.Tx, _ string) {}

// SearchRecipes performs a LIKE-based search (fallback when FTS5 is not
// compiled in), scoped to owner.
func (db *DB) SearchRecipes(ctx context.Context, owner, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}
	like := likePattern(query)
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, slug, name, substr(search_text, 1, 200)
		FROM recipes
		WHERE owner IS ? AND (name LIKE ? ESCAPE '\' OR search_text LIKE ? ESCAPE '\')
		ORDER BY updated_at DESC
		LIMIT ?
	`, ownerArg(owner), like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	return scanResults(rows)
}
