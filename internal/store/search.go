package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SearchResult is one recipe search hit.
type SearchResult struct {
	RecipeID string `json:"recipe_id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Snippet  string `json:"snippet"`
}

// refreshFTS re-indexes a recipe after its latest content changed.
func refreshFTS(ctx context.Context, tx *sql.Tx, recipeID, text string) error {
	var name string
	if err := tx.QueryRowContext(ctx, `SELECT name FROM recipes WHERE id = ?`, recipeID).Scan(&name); err != nil {
		return fmt.Errorf("store: read recipe name: %w", err)
	}
	return ftsUpsertRecipe(ctx, tx, recipeID, name, text)
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.RecipeID, &r.Slug, &r.Name, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
