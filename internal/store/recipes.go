package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/starford/ladle/internal/apperr"
	"github.com/starford/ladle/internal/recipe"
)

// Recipe is the logical recipe; its content lives in versions. An empty
// Owner means the recipe is ownerless.
type Recipe struct {
	ID                string
	Owner             string
	Name              string
	Slug              string
	LastVersionNumber int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

const recipeColumns = `id, COALESCE(owner, ''), name, slug, last_version_number, created_at, updated_at`

func scanRecipe(row interface{ Scan(...any) error }) (*Recipe, error) {
	var r Recipe
	if err := row.Scan(&r.ID, &r.Owner, &r.Name, &r.Slug, &r.LastVersionNumber, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRecipe inserts a recipe with a slug unique in the owner's scope.
func (db *DB) CreateRecipe(ctx context.Context, owner, name string) (*Recipe, error) {
	var out *Recipe
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		r, err := createRecipeTx(ctx, tx, owner, name, db.timestamp())
		out = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRecipeWithVersion inserts a recipe and its first version in one
// transaction, so a rejected document leaves no empty recipe behind.
func (db *DB) CreateRecipeWithVersion(ctx context.Context, owner, name string, doc *recipe.Document, in VersionInput) (*Recipe, *Version, error) {
	if err := recipe.Check(doc); err != nil {
		return nil, nil, err
	}
	content, err := storedDocument(doc)
	if err != nil {
		return nil, nil, err
	}
	requested, err := canonicalSemver(in.Semver)
	if err != nil {
		return nil, nil, err
	}
	in.ParentID = nil

	var (
		r *Recipe
		v *Version
	)
	err = db.inTx(ctx, func(tx *sql.Tx) error {
		now := db.timestamp()
		var err error
		if r, err = createRecipeTx(ctx, tx, owner, name, now); err != nil {
			return err
		}
		if v, err = createVersionTx(ctx, tx, r.ID, content, doc, in, requested, now); err != nil {
			return err
		}
		r.LastVersionNumber = v.Number
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return r, v, nil
}

func createRecipeTx(ctx context.Context, tx *sql.Tx, owner, name string, now time.Time) (*Recipe, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("recipe name is required")
	}
	s, err := uniqueSlug(ctx, tx, owner, name, "")
	if err != nil {
		return nil, err
	}
	r := &Recipe{
		ID:        uuid.NewString(),
		Owner:     owner,
		Name:      name,
		Slug:      s,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO recipes (id, owner, name, slug, last_version_number, search_text, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, '', ?, ?)
	`, r.ID, ownerArg(owner), r.Name, r.Slug, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: insert recipe: %w", err)
	}
	if err := ftsUpsertRecipe(ctx, tx, r.ID, r.Name, ""); err != nil {
		return nil, err
	}
	return r, nil
}

// uniqueSlug derives a slug from name and suffixes -1, -2, … until it is
// unused in the owner's scope. excludeID skips the recipe being renamed.
func uniqueSlug(ctx context.Context, tx *sql.Tx, owner, name, excludeID string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "recipe"
	}
	candidate := base
	for n := 1; ; n++ {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM recipes WHERE owner IS ? AND slug = ? AND id != ?`,
			ownerArg(owner), candidate, excludeID).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("store: slug lookup: %w", err)
		}
		if exists == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

// GetRecipe returns a recipe by id.
func (db *DB) GetRecipe(ctx context.Context, id string) (*Recipe, error) {
	r, err := scanRecipe(db.conn.QueryRowContext(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("recipe %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get recipe: %w", err)
	}
	return r, nil
}

// GetRecipeBySlug returns the recipe with slug in the owner's scope.
func (db *DB) GetRecipeBySlug(ctx context.Context, owner, s string) (*Recipe, error) {
	r, err := scanRecipe(db.conn.QueryRowContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE owner IS ? AND slug = ?`, ownerArg(owner), s))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("recipe %q not found", s)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get recipe by slug: %w", err)
	}
	return r, nil
}

// ListRecipes returns the owner's recipes, most recently updated first,
// together with the total count.
func (db *DB) ListRecipes(ctx context.Context, owner string, limit, offset int) ([]Recipe, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes WHERE owner IS ?`, ownerArg(owner)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count recipes: %w", err)
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+recipeColumns+` FROM recipes
		WHERE owner IS ?
		ORDER BY updated_at DESC, created_at DESC
		LIMIT ? OFFSET ?
	`, ownerArg(owner), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list recipes: %w", err)
	}
	defer rows.Close()

	out := []Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

// RenameRecipe changes a recipe's name and re-derives its slug.
func (db *DB) RenameRecipe(ctx context.Context, id, name string) (*Recipe, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("recipe name is required")
	}
	var out *Recipe
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		r, err := scanRecipe(tx.QueryRowContext(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("recipe %s not found", id)
		}
		if err != nil {
			return fmt.Errorf("store: get recipe: %w", err)
		}
		s, err := uniqueSlug(ctx, tx, r.Owner, name, r.ID)
		if err != nil {
			return err
		}
		r.Name, r.Slug, r.UpdatedAt = name, s, db.timestamp()
		if _, err := tx.ExecContext(ctx, `UPDATE recipes SET name = ?, slug = ?, updated_at = ? WHERE id = ?`,
			r.Name, r.Slug, r.UpdatedAt, r.ID); err != nil {
			return fmt.Errorf("store: rename recipe: %w", err)
		}
		var text string
		_ = tx.QueryRowContext(ctx, `SELECT search_text FROM recipes WHERE id = ?`, r.ID).Scan(&text)
		if err := ftsUpsertRecipe(ctx, tx, r.ID, r.Name, text); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteRecipe removes a recipe with its versions and sessions.
func (db *DB) DeleteRecipe(ctx context.Context, id string) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("store: delete recipe: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFound("recipe %s not found", id)
		}
		ftsDeleteRecipe(ctx, tx, id)
		return nil
	})
}
