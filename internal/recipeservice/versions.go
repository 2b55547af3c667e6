package recipeservice

import (
	"context"

	"github.com/starford/ladle/internal/recipe"
	"github.com/starford/ladle/internal/sse"
	"github.com/starford/ladle/internal/store"
)

// CreateVersionInput is the body of a new version. ParentVersionID
// defaults to the latest version; Version defaults to the latest semantic
// version bumped by patch.
type CreateVersionInput struct {
	Document        *recipe.Document `json:"document"`
	Version         string           `json:"version,omitempty"`
	ParentVersionID *int64           `json:"parent_version_id,omitempty"`
	CommitMessage   string           `json:"commit_message,omitempty"`
	Author          string           `json:"author,omitempty"`
}

// CreateVersion stores the next version of a recipe.
func (s *Service) CreateVersion(ctx context.Context, owner, slug string, in CreateVersionInput) (*VersionDetail, error) {
	r, err := s.repo.GetRecipeBySlug(ctx, owner, slug)
	if err != nil {
		return nil, err
	}
	return s.createVersion(ctx, r, in)
}

func (s *Service) createVersion(ctx context.Context, r *store.Recipe, in CreateVersionInput) (*VersionDetail, error) {
	v, err := s.repo.CreateVersion(ctx, r.ID, in.Document, store.VersionInput{
		Semver:        in.Version,
		ParentID:      in.ParentVersionID,
		CommitMessage: in.CommitMessage,
		Author:        in.Author,
	})
	if err != nil {
		return nil, err
	}
	s.publishVersion(r, v)
	return detailVersion(r, v), nil
}

// ListVersions returns every version of a recipe, newest first.
func (s *Service) ListVersions(ctx context.Context, owner, slug string) ([]VersionDetail, error) {
	r, err := s.repo.GetRecipeBySlug(ctx, owner, slug)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListVersions(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	out := make([]VersionDetail, len(rows))
	for i := range rows {
		out[i] = *detailVersion(r, &rows[i])
	}
	return out, nil
}

// GetVersion returns one version of a recipe.
func (s *Service) GetVersion(ctx context.Context, owner, slug string, id int64) (*VersionDetail, error) {
	r, v, err := s.resolveVersion(ctx, owner, slug, &id)
	if err != nil {
		return nil, err
	}
	return detailVersion(r, v), nil
}

// DeleteVersion removes one version. Its number is never reused.
func (s *Service) DeleteVersion(ctx context.Context, owner, slug string, id int64) error {
	r, err := s.repo.GetRecipeBySlug(ctx, owner, slug)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteVersion(ctx, r.ID, id); err != nil {
		return err
	}
	s.events.PublishLibraryEvent(sse.VersionDeleted, map[string]any{"slug": r.Slug, "version_id": id})
	return nil
}

// resolveVersion finds a recipe by slug and one of its versions; a nil id
// selects the latest.
func (s *Service) resolveVersion(ctx context.Context, owner, slug string, id *int64) (*store.Recipe, *store.Version, error) {
	r, err := s.repo.GetRecipeBySlug(ctx, owner, slug)
	if err != nil {
		return nil, nil, err
	}
	var v *store.Version
	if id != nil {
		v, err = s.repo.GetVersion(ctx, r.ID, *id)
	} else {
		v, err = s.repo.LatestVersion(ctx, r.ID)
	}
	if err != nil {
		return nil, nil, err
	}
	return r, v, nil
}
