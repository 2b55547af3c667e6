//go:build sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS recipes_fts USING fts5(
			recipe_id UNINDEXED,
			name,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsertRecipe(ctx context.Context, tx *sql.Tx, id, name, text string) error {
	_, _ = tx.ExecContext(ctx, `DELETE FROM recipes_fts WHERE recipe_id = ?`, id)
	_, err := tx.ExecContext(ctx, `INSERT INTO recipes_fts (recipe_id, name, body) VALUES (?, ?, ?)`, id, name, text)
	if err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return nil
}

func ftsDeleteRecipe(ctx context.Context, tx *sql.Tx, id string) {
	_, _ = tx.ExecContext(ctx, `DELETE FROM recipes_fts WHERE recipe_id = ?`, id)
}

// ftsQuery quotes each term so user input cannot inject FTS5 syntax, and
// makes the last term a prefix match.
func ftsQuery(q string) string {
	fields := strings.Fields(q)
	for i, f := range fields {
		fields[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	if n := len(fields); n > 0 {
		fields[n-1] += "*"
	}
	return strings.Join(fields, " ")
}

// SearchRecipes performs an FTS5 full-text search over recipe names and
// their latest content, scoped to owner.
func (db *DB) SearchRecipes(ctx context.Context, owner, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	q := ftsQuery(query)
	if q == "" {
		return []SearchResult{}, nil
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT r.id, r.slug, r.name,
		       snippet(recipes_fts, 2, '<b>', '</b>', '...', 32)
		FROM recipes_fts f
		JOIN recipes r ON r.id = f.recipe_id
		WHERE recipes_fts MATCH ? AND r.owner IS ?
		ORDER BY rank
		LIMIT ?
	`, q, ownerArg(owner), limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	return scanResults(rows)
}
