package api

import "github.com/starford/ladle/internal/recipeservice"

// RecipeListResponse wraps paginated recipe listings.
type RecipeListResponse struct {
	Recipes []recipeservice.RecipeSummary `json:"recipes" validate:"required"`
	Total   int                           `json:"total" example:"42" validate:"required"`
}

// RenameRecipeRequest is the request body for renaming a recipe.
type RenameRecipeRequest struct {
	Name string `json:"name" example:"Tomato Soup" validate:"required"`
}

// VersionListResponse wraps a recipe's versions.
type VersionListResponse struct {
	Versions []recipeservice.VersionDetail `json:"versions" validate:"required"`
}

// SessionListResponse wraps a recipe's cooking sessions.
type SessionListResponse struct {
	Sessions []recipeservice.SessionDetail `json:"sessions" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []recipeservice.SearchResult `json:"results" validate:"required"`
}

// AddendumRequest is the request body for writing a language addendum.
type AddendumRequest struct {
	Text string `json:"text" example:"Keep ingredient names in the original language." validate:"required"`
}

// PhotoUploadResponse is returned after a successful photo upload.
type PhotoUploadResponse struct {
	Filename string                       `json:"filename" example:"3f2a.jpg" validate:"required"`
	Size     int64                        `json:"size" example:"12345" validate:"required"`
	URL      string                       `json:"url" example:"/photos/3f2a.jpg" validate:"required"`
	Session  *recipeservice.SessionDetail `json:"session" validate:"required"`
}
