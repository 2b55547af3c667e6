package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ladle/internal/recipeservice"
)

// Capabilities handles GET /api/ai/capabilities.
//
//	@Summary		Report which AI features are configured
//	@Tags			ai
//	@Produce		json
//	@Success		200	{object}	recipeservice.Capabilities
//	@Security		BearerAuth
//	@Router			/ai/capabilities [get]
func (h *Handler) Capabilities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Capabilities())
}

// Import handles POST /api/ai/import.
//
//	@Summary		Extract a recipe from webpage content or pasted text
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Param			body	body		recipeservice.ImportInput	true	"Import source"
//	@Success		200		{object}	recipeservice.ImportResult
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ai/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var req recipeservice.ImportInput
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Import(r.Context(), OwnerFrom(r.Context()), req)
	if err != nil {
		writeError(w, "import", err)
		return
	}
	status := http.StatusOK
	if res.Recipe != nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// VoiceCommand handles POST /api/ai/voice-command.
//
//	@Summary		Apply a spoken modification to a recipe
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Param			body	body		recipeservice.VoiceInput	true	"Voice command"
//	@Success		200		{object}	recipeservice.VoiceResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ai/voice-command [post]
func (h *Handler) VoiceCommand(w http.ResponseWriter, r *http.Request) {
	var req recipeservice.VoiceInput
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.VoiceCommand(r.Context(), OwnerFrom(r.Context()), req)
	if err != nil {
		writeError(w, "voice command", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Guide handles POST /api/ai/guide.
//
//	@Summary		Ask the cooking guide a question
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Param			body	body		recipeservice.GuideInput	true	"Guidance message"
//	@Success		200		{object}	recipeservice.GuideReply
//	@Failure		400		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ai/guide [post]
func (h *Handler) Guide(w http.ResponseWriter, r *http.Request) {
	var req recipeservice.GuideInput
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Guide(r.Context(), OwnerFrom(r.Context()), req)
	if err != nil {
		writeError(w, "guide", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListAddenda handles GET /api/ai/addenda.
func (h *Handler) ListAddenda(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"addenda": h.svc.ListAddenda()})
}

// PutAddendum handles PUT /api/ai/addenda/{lang}.
func (h *Handler) PutAddendum(w http.ResponseWriter, r *http.Request) {
	var req AddendumRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("text is required"))
		return
	}
	a, err := h.svc.PutAddendum(chi.URLParam(r, "lang"), req.Text)
	if err != nil {
		writeError(w, "put addendum", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DeleteAddendum handles DELETE /api/ai/addenda/{lang}.
func (h *Handler) DeleteAddendum(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveAddendum(chi.URLParam(r, "lang")); err != nil {
		writeError(w, "delete addendum", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
