package recipeservice

import (
	"strconv"
	"time"

	"github.com/starford/ladle/internal/recipe"
	"github.com/starford/ladle/internal/store"
)

// RecipeSummary is a lightweight item in a list response.
type RecipeSummary struct {
	ID                string    `json:"id"`
	Slug              string    `json:"slug"`
	Name              string    `json:"name"`
	LastVersionNumber int64     `json:"last_version_number"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// RecipeDetail is a recipe with its latest version, if any.
type RecipeDetail struct {
	RecipeSummary
	Latest *VersionDetail `json:"latest_version"`
}

// VersionDetail is the full representation of one version.
type VersionDetail struct {
	ID              int64            `json:"id"`
	RecipeID        string           `json:"recipe_id"`
	VersionNumber   int64            `json:"version_number"`
	Version         string           `json:"version"`
	ParentVersionID *int64           `json:"parent_version_id"`
	CommitMessage   string           `json:"commit_message"`
	Author          string           `json:"author"`
	Title           string           `json:"title"`
	Checksum        string           `json:"checksum"`
	CreatedAt       time.Time        `json:"created_at"`
	Document        *recipe.Document `json:"document"`
}

func summarize(r *store.Recipe) RecipeSummary {
	return RecipeSummary{
		ID:                r.ID,
		Slug:              r.Slug,
		Name:              r.Name,
		LastVersionNumber: r.LastVersionNumber,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func detailVersion(r *store.Recipe, v *store.Version) *VersionDetail {
	return &VersionDetail{
		ID:              v.ID,
		RecipeID:        v.RecipeID,
		VersionNumber:   v.Number,
		Version:         v.Label(),
		ParentVersionID: v.ParentID,
		CommitMessage:   v.CommitMessage,
		Author:          v.Author,
		Title:           v.Title,
		Checksum:        v.Checksum,
		CreatedAt:       v.CreatedAt,
		Document:        ToDocument(r, v),
	}
}

// ToDocument renders a stored version as a canonical document: the recipe
// id plus a version block derived from the version row.
func ToDocument(r *store.Recipe, v *store.Version) *recipe.Document {
	doc, err := v.Document.Clone()
	if err != nil {
		c := *v.Document
		doc = &c
	}
	doc.ID = r.ID
	info := &recipe.VersionInfo{
		Number:        v.Label(),
		CreatedAt:     v.CreatedAt.UTC().Format(time.RFC3339),
		CommitMessage: v.CommitMessage,
		Author:        v.Author,
	}
	if v.ParentID != nil {
		p := strconv.FormatInt(*v.ParentID, 10)
		info.ParentVersion = &p
	}
	doc.Version = info
	return doc
}
