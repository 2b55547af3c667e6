package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ladle/internal/apperr"
	"github.com/starford/ladle/internal/checksum"
	"github.com/starford/ladle/internal/recipeservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *recipeservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *recipeservice.Service) *Handler {
	return &Handler{svc: svc}
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

// ListRecipes handles GET /api/recipes.
//
//	@Summary		List recipes with pagination
//	@Tags			recipes
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	RecipeListResponse
//	@Security		BearerAuth
//	@Router			/recipes [get]
func (h *Handler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListRecipes(r.Context(), OwnerFrom(r.Context()), limit, offset)
	if err != nil {
		writeError(w, "list recipes", err)
		return
	}
	writeJSON(w, http.StatusOK, RecipeListResponse{Recipes: items, Total: total})
}

// CreateRecipe handles POST /api/recipes.
//
//	@Summary		Create a recipe, optionally with its first version
//	@Tags			recipes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		recipeservice.CreateRecipeInput	true	"Recipe to create"
//	@Success		201		{object}	recipeservice.RecipeDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes [post]
func (h *Handler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var req recipeservice.CreateRecipeInput
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.CreateRecipe(r.Context(), OwnerFrom(r.Context()), req)
	if err != nil {
		writeError(w, "create recipe", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// GetRecipe handles GET /api/recipes/{slug}.
//
//	@Summary		Get a recipe with its latest version
//	@Tags			recipes
//	@Produce		json
//	@Param			slug	path		string	true	"Recipe slug"
//	@Success		200		{object}	recipeservice.RecipeDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{slug} [get]
func (h *Handler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetRecipe(r.Context(), OwnerFrom(r.Context()), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, "get recipe", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// RenameRecipe handles PATCH /api/recipes/{slug}.
//
//	@Summary		Rename a recipe
//	@Tags			recipes
//	@Accept			json
//	@Produce		json
//	@Param			slug	path		string				true	"Recipe slug"
//	@Param			body	body		RenameRecipeRequest	true	"New name"
//	@Success		200		{object}	recipeservice.RecipeDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{slug} [patch]
func (h *Handler) RenameRecipe(w http.ResponseWriter, r *http.Request) {
	var req RenameRecipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.RenameRecipe(r.Context(), OwnerFrom(r.Context()), chi.URLParam(r, "slug"), req.Name)
	if err != nil {
		writeError(w, "rename recipe", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DeleteRecipe handles DELETE /api/recipes/{slug}.
//
//	@Summary		Delete a recipe with all versions and sessions
//	@Tags			recipes
//	@Param			slug	path	string	true	"Recipe slug"
//	@Success		204		"Recipe deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{slug} [delete]
func (h *Handler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRecipe(r.Context(), OwnerFrom(r.Context()), chi.URLParam(r, "slug")); err != nil {
		writeError(w, "delete recipe", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListVersions handles GET /api/recipes/{slug}/versions.
//
//	@Summary		List a recipe's versions, newest first
//	@Tags			versions
//	@Produce		json
//	@Param			slug	path		string	true	"Recipe slug"
//	@Success		200		{object}	VersionListResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{slug}/versions [get]
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListVersions(r.Context(), OwnerFrom(r.Context()), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, "list versions", err)
		return
	}
	writeJSON(w, http.StatusOK, VersionListResponse{Versions: list})
}

// CreateVersion handles POST /api/recipes/{slug}/versions.
//
//	@Summary		Store the next version of a recipe
//	@Tags			versions
//	@Accept			json
//	@Produce		json
//	@Param			slug	path		string								true	"Recipe slug"
//	@Param			body	body		recipeservice.CreateVersionInput	true	"Version content"
//	@Success		201		{object}	recipeservice.VersionDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{slug}/versions [post]
func (h *Handler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	var req recipeservice.CreateVersionInput
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.svc.CreateVersion(r.Context(), OwnerFrom(r.Context()), chi.URLParam(r, "slug"), req)
	if err != nil {
		writeError(w, "create version", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(v.Checksum))
	writeJSON(w, http.StatusCreated, v)
}

// GetVersion handles GET /api/recipes/{slug}/versions/{id}.
//
//	@Summary		Get one version; honours If-None-Match
//	@Tags			versions
//	@Produce		json
//	@Param			slug			path		string	true	"Recipe slug"
//	@Param			id				path		int		true	"Version id"
//	@Param			If-None-Match	header		string	false	"Checksum ETag"
//	@Success		200				{object}	recipeservice.VersionDetail
//	@Success		304				"Not modified"
//	@Failure		404				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{slug}/versions/{id} [get]
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, "get version", err)
		return
	}
	v, err := h.svc.GetVersion(r.Context(), OwnerFrom(r.Context()), chi.URLParam(r, "slug"), id)
	if err != nil {
		writeError(w, "get version", err)
		return
	}
	// Versions are immutable, so the content checksum is a stable ETag.
	w.Header().Set("ETag", checksum.ETag(v.Checksum))
	if inm := r.Header.Get("If-None-Match"); inm != "" && checksum.MatchETag(inm, v.Checksum) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// DeleteVersion handles DELETE /api/recipes/{slug}/versions/{id}.
//
//	@Summary		Delete one version
//	@Tags			versions
//	@Param			slug	path	string	true	"Recipe slug"
//	@Param			id		path	int		true	"Version id"
//	@Success		204		"Version deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{slug}/versions/{id} [delete]
func (h *Handler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, "delete version", err)
		return
	}
	if err := h.svc.DeleteVersion(r.Context(), OwnerFrom(r.Context()), chi.URLParam(r, "slug"), id); err != nil {
		writeError(w, "delete version", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across recipes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), OwnerFrom(r.Context()), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
