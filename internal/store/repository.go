package store

import (
	"context"

	"github.com/starford/ladle/internal/recipe"
)

// Repository defines the persistence operations the service layer needs.
// Consumers should depend on this interface rather than the concrete *DB
// type.
type Repository interface {
	CreateRecipe(ctx context.Context, owner, name string) (*Recipe, error)
	GetRecipe(ctx context.Context, id string) (*Recipe, error)
	GetRecipeBySlug(ctx context.Context, owner, slug string) (*Recipe, error)
	ListRecipes(ctx context.Context, owner string, limit, offset int) ([]Recipe, int, error)
	RenameRecipe(ctx context.Context, id, name string) (*Recipe, error)
	DeleteRecipe(ctx context.Context, id string) error
	CreateRecipeWithVersion(ctx context.Context, owner, name string, doc *recipe.Document, in VersionInput) (*Recipe, *Version, error)

	CreateVersion(ctx context.Context, recipeID string, doc *recipe.Document, in VersionInput) (*Version, error)
	GetVersion(ctx context.Context, recipeID string, versionID int64) (*Version, error)
	ListVersions(ctx context.Context, recipeID string) ([]Version, error)
	LatestVersion(ctx context.Context, recipeID string) (*Version, error)
	DeleteVersion(ctx context.Context, recipeID string, versionID int64) error

	CreateSession(ctx context.Context, recipeID string, versionID int64, s Session) (*Session, error)
	GetSession(ctx context.Context, recipeID string, id int64) (*Session, error)
	ListSessions(ctx context.Context, recipeID string) ([]Session, error)
	UpdateSession(ctx context.Context, recipeID string, id int64, u SessionUpdate) (*Session, error)
	DeleteSession(ctx context.Context, recipeID string, id int64) error

	SearchRecipes(ctx context.Context, owner, query string, limit int) ([]SearchResult, error)
	Ping(ctx context.Context) error
	Close() error
}

// Verify *DB satisfies Repository at compile time.
var _ Repository = (*DB)(nil)
