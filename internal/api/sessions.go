package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ladle/internal/recipeservice"
)

// ListSessions handles GET /api/recipes/{slug}/sessions.
//
//	@Summary		List a recipe's cooking sessions
//	@Tags			sessions
//	@Produce		json
//	@Param			slug	path		string	true	"Recipe slug"
//	@Success		200		{object}	SessionListResponse
//	@Security		BearerAuth
//	@Router			/recipes/{slug}/sessions [get]
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListSessions(r.Context(), OwnerFrom(r.Context()), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, "list sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, SessionListResponse{Sessions: list})
}

// CreateSession handles POST /api/recipes/{slug}/sessions.
//
//	@Summary		Start cooking a version of a recipe
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			slug	path		string								true	"Recipe slug"
//	@Param			body	body		recipeservice.CreateSessionInput	true	"Session"
//	@Success		201		{object}	recipeservice.SessionDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{slug}/sessions [post]
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req recipeservice.CreateSessionInput
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.svc.CreateSession(r.Context(), OwnerFrom(r.Context()), chi.URLParam(r, "slug"), req)
	if err != nil {
		writeError(w, "create session", err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// GetSession handles GET /api/recipes/{slug}/sessions/{id}.
//
//	@Summary		Get a cooking session
//	@Tags			sessions
//	@Produce		json
//	@Param			slug	path		string	true	"Recipe slug"
//	@Param			id		path		int		true	"Session id"
//	@Success		200		{object}	recipeservice.SessionDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{slug}/sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, "get session", err)
		return
	}
	s, err := h.svc.GetSession(r.Context(), OwnerFrom(r.Context()), chi.URLParam(r, "slug"), id)
	if err != nil {
		writeError(w, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// UpdateSession handles PATCH /api/recipes/{slug}/sessions/{id}.
//
//	@Summary		Update a cooking session's progress
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			slug	path		string								true	"Recipe slug"
//	@Param			id		path		int									true	"Session id"
//	@Param			body	body		recipeservice.UpdateSessionInput	true	"Changed fields"
//	@Success		200		{object}	recipeservice.SessionDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{slug}/sessions/{id} [patch]
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, "update session", err)
		return
	}
	var req recipeservice.UpdateSessionInput
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.svc.UpdateSession(r.Context(), OwnerFrom(r.Context()), chi.URLParam(r, "slug"), id, req)
	if err != nil {
		writeError(w, "update session", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// DeleteSession handles DELETE /api/recipes/{slug}/sessions/{id}.
//
//	@Summary		Delete a cooking session
//	@Tags			sessions
//	@Param			slug	path	string	true	"Recipe slug"
//	@Param			id		path	int		true	"Session id"
//	@Success		204		"Session deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{slug}/sessions/{id} [delete]
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, "delete session", err)
		return
	}
	if err := h.svc.DeleteSession(r.Context(), OwnerFrom(r.Context()), chi.URLParam(r, "slug"), id); err != nil {
		writeError(w, "delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
