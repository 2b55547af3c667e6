package recipeservice

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/starford/ladle/internal/apperr"
	"github.com/starford/ladle/internal/recipe"
	"github.com/starford/ladle/internal/sse"
	"github.com/starford/ladle/internal/store"
)

// InitialCommitMessage is recorded on a recipe's first version.
const InitialCommitMessage = "Initial version"

// CreateRecipeInput creates a recipe, optionally with its first version.
type CreateRecipeInput struct {
	Name     string           `json:"name"`
	Document *recipe.Document `json:"document,omitempty"`
	Author   string           `json:"author,omitempty"`
}

// CreateRecipe creates a recipe in the owner's scope. With a document the
// recipe starts at version 1.0.0; without one it has no versions yet. The
// name falls back to the document title.
func (s *Service) CreateRecipe(ctx context.Context, owner string, in CreateRecipeInput) (*RecipeDetail, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = in.Document.Title()
	}
	if name == "" {
		return nil, apperr.Validation("name is required")
	}

	if in.Document == nil {
		r, err := s.repo.CreateRecipe(ctx, owner, name)
		if err != nil {
			return nil, err
		}
		s.publishRecipe(sse.RecipeCreated, r)
		return &RecipeDetail{RecipeSummary: summarize(r)}, nil
	}

	r, v, err := s.repo.CreateRecipeWithVersion(ctx, owner, name, in.Document, store.VersionInput{
		CommitMessage: InitialCommitMessage,
		Author:        in.Author,
	})
	if err != nil {
		return nil, err
	}
	s.publishRecipe(sse.RecipeCreated, r)
	s.publishVersion(r, v)
	return &RecipeDetail{RecipeSummary: summarize(r), Latest: detailVersion(r, v)}, nil
}

// GetRecipe returns a recipe with its latest version.
func (s *Service) GetRecipe(ctx context.Context, owner, slug string) (*RecipeDetail, error) {
	r, err := s.repo.GetRecipeBySlug(ctx, owner, slug)
	if err != nil {
		return nil, err
	}
	out := &RecipeDetail{RecipeSummary: summarize(r)}
	v, err := s.repo.LatestVersion(ctx, r.ID)
	switch {
	case err == nil:
		out.Latest = detailVersion(r, v)
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}
	return out, nil
}

// ListRecipes returns a page of the owner's recipes.
func (s *Service) ListRecipes(ctx context.Context, owner string, limit, offset int) ([]RecipeSummary, int, error) {
	rows, total, err := s.repo.ListRecipes(ctx, owner, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]RecipeSummary, len(rows))
	for i := range rows {
		items[i] = summarize(&rows[i])
	}
	return items, total, nil
}

// RenameRecipe changes a recipe's name; its slug follows.
func (s *Service) RenameRecipe(ctx context.Context, owner, slug, name string) (*RecipeDetail, error) {
	r, err := s.repo.GetRecipeBySlug(ctx, owner, slug)
	if err != nil {
		return nil, err
	}
	r, err = s.repo.RenameRecipe(ctx, r.ID, name)
	if err != nil {
		return nil, err
	}
	s.publishRecipe(sse.RecipeUpdated, r)
	return s.GetRecipe(ctx, owner, r.Slug)
}

// DeleteRecipe removes a recipe with all versions and sessions.
func (s *Service) DeleteRecipe(ctx context.Context, owner, slug string) error {
	r, err := s.repo.GetRecipeBySlug(ctx, owner, slug)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteRecipe(ctx, r.ID); err != nil {
		return err
	}
	s.publishRecipe(sse.RecipeDeleted, r)
	return nil
}

// SearchResult is one recipe search hit.
type SearchResult = store.SearchResult

// Search runs a full-text search over the owner's recipes.
func (s *Service) Search(ctx context.Context, owner, query string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.Validation("query is required")
	}
	return s.repo.SearchRecipes(ctx, owner, query, limit)
}

func (s *Service) publishRecipe(kind string, r *store.Recipe) {
	s.events.PublishLibraryEvent(kind, map[string]any{"id": r.ID, "slug": r.Slug, "name": r.Name})
	s.logger.Info("recipe changed", slog.String("event", kind), slog.String("slug", r.Slug))
}

func (s *Service) publishVersion(r *store.Recipe, v *store.Version) {
	s.events.PublishLibraryEvent(sse.VersionCreated, map[string]any{
		"slug":           r.Slug,
		"version_id":     v.ID,
		"version_number": v.Number,
		"version":        v.Label(),
	})
}
