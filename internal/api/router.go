package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ladle/internal/recipeservice"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// AuthEnabled controls whether Bearer token auth is enforced.
	AuthEnabled bool
	Token       string
	// Owner scopes recipes when auth is enabled.
	Owner string
	// SSE, if non-nil, is mounted at GET /events inside the auth group.
	SSE http.Handler
	// Photos, if non-nil, accepts session photo uploads.
	Photos *PhotoHandler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *recipeservice.Service, opts RouterOptions) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(opts.AuthEnabled, opts.Token, opts.Owner))

	r.Route("/recipes", func(r chi.Router) {
		r.Get("/", h.ListRecipes)
		r.Post("/", h.CreateRecipe)
		r.Route("/{slug}", func(r chi.Router) {
			r.Get("/", h.GetRecipe)
			r.Patch("/", h.RenameRecipe)
			r.Delete("/", h.DeleteRecipe)

			r.Get("/versions", h.ListVersions)
			r.Post("/versions", h.CreateVersion)
			r.Get("/versions/{id}", h.GetVersion)
			r.Delete("/versions/{id}", h.DeleteVersion)

			r.Get("/sessions", h.ListSessions)
			r.Post("/sessions", h.CreateSession)
			r.Get("/sessions/{id}", h.GetSession)
			r.Patch("/sessions/{id}", h.UpdateSession)
			r.Delete("/sessions/{id}", h.DeleteSession)
			if opts.Photos != nil {
				r.Post("/sessions/{id}/photos", opts.Photos.Upload(svc))
			}
		})
	})

	r.Route("/ai", func(r chi.Router) {
		r.Get("/capabilities", h.Capabilities)
		r.Post("/import", h.Import)
		r.Post("/voice-command", h.VoiceCommand)
		r.Post("/guide", h.Guide)
		r.Get("/addenda", h.ListAddenda)
		r.Put("/addenda/{lang}", h.PutAddendum)
		r.Delete("/addenda/{lang}", h.DeleteAddendum)
	})

	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if opts.SSE != nil {
		r.Get("/events", opts.SSE.ServeHTTP)
	}

	return r
}
