package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/ladle/internal/apperr"
	"github.com/starford/ladle/internal/checksum"
	"github.com/starford/ladle/internal/recipe"
	"github.com/starford/ladle/internal/semver"
)

// Version is one immutable snapshot of a recipe's content.
type Version struct {
	ID            int64
	RecipeID      string
	Number        int64
	Semver        string
	ParentID      *int64
	CommitMessage string
	Author        string
	Title         string
	Document      *recipe.Document
	Checksum      string
	CreatedAt     time.Time
}

// Label returns the semantic version, or the integer number when no
// semantic version was recorded.
func (v *Version) Label() string {
	if v.Semver != "" {
		return v.Semver
	}
	return strconv.FormatInt(v.Number, 10)
}

// VersionInput carries the version block of a new version. A nil ParentID
// means "the current latest version"; an empty Semver means the latest
// semantic version bumped by patch (or 1.0.0 for the first version).
type VersionInput struct {
	Semver        string
	ParentID      *int64
	CommitMessage string
	Author        string
}

const versionColumns = `id, recipe_id, version_number, version_semver, parent_version_id,
	commit_message, author, title, document, checksum, created_at`

func scanVersion(row interface{ Scan(...any) error }) (*Version, error) {
	var (
		v      Version
		parent sql.NullInt64
		doc    string
	)
	if err := row.Scan(&v.ID, &v.RecipeID, &v.Number, &v.Semver, &parent,
		&v.CommitMessage, &v.Author, &v.Title, &doc, &v.Checksum, &v.CreatedAt); err != nil {
		return nil, err
	}
	if parent.Valid {
		p := parent.Int64
		v.ParentID = &p
	}
	d, err := recipe.Decode([]byte(doc))
	if err != nil {
		return nil, fmt.Errorf("store: version %d: %w", v.ID, err)
	}
	v.Document = d
	return &v, nil
}

// CreateVersion stores doc as the next version of recipeID. The version
// number is taken from the recipe's counter inside the same transaction, so
// numbers strictly increase and are never reused, even after deletions.
func (db *DB) CreateVersion(ctx context.Context, recipeID string, doc *recipe.Document, in VersionInput) (*Version, error) {
	if err := recipe.Check(doc); err != nil {
		return nil, err
	}
	content, err := storedDocument(doc)
	if err != nil {
		return nil, err
	}
	requested, err := canonicalSemver(in.Semver)
	if err != nil {
		return nil, err
	}

	var out *Version
	err = db.inTx(ctx, func(tx *sql.Tx) error {
		v, err := createVersionTx(ctx, tx, recipeID, content, doc, in, requested, db.timestamp())
		out = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func createVersionTx(ctx context.Context, tx *sql.Tx, recipeID string, content []byte, doc *recipe.Document, in VersionInput, requested string, now time.Time) (*Version, error) {
	var last int64
	err := tx.QueryRowContext(ctx, `SELECT last_version_number FROM recipes WHERE id = ?`, recipeID).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("recipe %s not found", recipeID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: read version counter: %w", err)
	}

	latest, err := latestVersionTx(ctx, tx, recipeID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	var parent *int64
	switch {
	case in.ParentID != nil:
		var owner string
		err := tx.QueryRowContext(ctx, `SELECT recipe_id FROM recipe_versions WHERE id = ?`, *in.ParentID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != recipeID) {
			return nil, apperr.Validation("parent version %d does not belong to this recipe", *in.ParentID)
		}
		if err != nil {
			return nil, fmt.Errorf("store: read parent version: %w", err)
		}
		p := *in.ParentID
		parent = &p
	case latest != nil:
		p := latest.ID
		parent = &p
	}

	sv := requested
	if sv == "" {
		if latest == nil {
			sv = semver.Initial
		} else {
			sv = semver.Apply(latest.Semver, semver.Patch)
		}
	}

	v := &Version{
		RecipeID:      recipeID,
		Number:        last + 1,
		Semver:        sv,
		ParentID:      parent,
		CommitMessage: strings.TrimSpace(in.CommitMessage),
		Author:        strings.TrimSpace(in.Author),
		Title:         doc.Title(),
		Checksum:      checksum.Sum(content),
		CreatedAt:     now,
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO recipe_versions (recipe_id, version_number, version_semver, parent_version_id,
			commit_message, author, title, document, checksum, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.RecipeID, v.Number, v.Semver, nullableID(v.ParentID), v.CommitMessage, v.Author,
		v.Title, string(content), v.Checksum, v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: insert version: %w", err)
	}
	if v.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("store: version id: %w", err)
	}

	text := searchText(doc)
	if _, err := tx.ExecContext(ctx, `
		UPDATE recipes SET last_version_number = ?, search_text = ?, updated_at = ? WHERE id = ?
	`, v.Number, text, now, recipeID); err != nil {
		return nil, fmt.Errorf("store: bump version counter: %w", err)
	}
	if err := refreshFTS(ctx, tx, recipeID, text); err != nil {
		return nil, err
	}

	if v.Document, err = recipe.Decode(content); err != nil {
		return nil, err
	}
	return v, nil
}

// canonicalSemver validates a requested semantic version; empty means
// "derive from the latest version".
func canonicalSemver(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	v, err := semver.Parse(s)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrValidation, err, "invalid semantic version")
	}
	return v.String(), nil
}

// storedDocument encodes doc without its id and version block; those are
// derived from the recipe and version rows when the document is read.
func storedDocument(doc *recipe.Document) ([]byte, error) {
	c := *doc
	c.ID = ""
	c.Version = nil
	c.Normalize()
	data, err := json.Marshal(&c)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrValidation, err, "encode recipe document")
	}
	return data, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// GetVersion returns a version of recipeID. A version of another recipe is
// reported as not found.
func (db *DB) GetVersion(ctx context.Context, recipeID string, versionID int64) (*Version, error) {
	v, err := scanVersion(db.conn.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM recipe_versions WHERE id = ? AND recipe_id = ?`, versionID, recipeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("version %d not found for this recipe", versionID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get version: %w", err)
	}
	return v, nil
}

// ListVersions returns every version of recipeID, newest number first.
func (db *DB) ListVersions(ctx context.Context, recipeID string) ([]Version, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM recipe_versions WHERE recipe_id = ? ORDER BY version_number DESC`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("store: list versions: %w", err)
	}
	defer rows.Close()

	out := []Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// LatestVersion returns the version with the greatest version number.
func (db *DB) LatestVersion(ctx context.Context, recipeID string) (*Version, error) {
	v, err := scanVersion(db.conn.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM recipe_versions WHERE recipe_id = ? ORDER BY version_number DESC LIMIT 1`, recipeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("recipe %s has no versions", recipeID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest version: %w", err)
	}
	return v, nil
}

func latestVersionTx(ctx context.Context, tx *sql.Tx, recipeID string) (*Version, error) {
	v, err := scanVersion(tx.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM recipe_versions WHERE recipe_id = ? ORDER BY version_number DESC LIMIT 1`, recipeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("recipe %s has no versions", recipeID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest version: %w", err)
	}
	return v, nil
}

// DeleteVersion removes one version. Children keep existing with a NULL
// parent; the recipe's counter is left untouched so the number is never
// handed out again.
func (db *DB) DeleteVersion(ctx context.Context, recipeID string, versionID int64) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM recipe_versions WHERE id = ? AND recipe_id = ?`, versionID, recipeID)
		if err != nil {
			return fmt.Errorf("store: delete version: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFound("version %d not found for this recipe", versionID)
		}

		text := ""
		latest, err := latestVersionTx(ctx, tx, recipeID)
		switch {
		case err == nil:
			text = searchText(latest.Document)
		case !errors.Is(err, apperr.ErrNotFound):
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE recipes SET search_text = ?, updated_at = ? WHERE id = ?`,
			text, db.timestamp(), recipeID); err != nil {
			return fmt.Errorf("store: update recipe: %w", err)
		}
		return refreshFTS(ctx, tx, recipeID, text)
	})
}

// searchText is the indexed text of a recipe's latest content.
func searchText(d *recipe.Document) string {
	parts := []string{d.Title(), d.Metadata.TranslatedTitle, d.Metadata.Cuisine, d.Metadata.Description}
	for _, ing := range d.Ingredients {
		parts = append(parts, ing.Name)
	}
	parts = append(parts, d.Tags...)
	parts = append(parts, d.Metadata.DietaryTags...)

	var b strings.Builder
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(p)
		}
	}
	return b.String()
}
