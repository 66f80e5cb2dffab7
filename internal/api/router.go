package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/galaxytab/internal/dashboard"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// feed, if non-nil, receives live gesture events.
func NewRouter(svc *dashboard.Service, authEnabled bool, token string, sseHandler http.Handler, feed Emitter) chi.Router {
	h := NewHandler(svc, feed)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.ReplaceSettings)
	r.Get("/settings/export", h.ExportSettings)
	r.Post("/settings/reset", h.ResetSettings)
	r.Patch("/settings/{section}", h.UpdateSection)

	// Links.
	r.Get("/links", h.ListLinks)
	r.Post("/links", h.CreateLink)
	r.Get("/links/{id}", h.GetLink)
	r.Put("/links/{id}", h.UpdateLink)
	r.Delete("/links/{id}", h.DeleteLink)
	r.Post("/links/{id}/click", h.ClickLink)

	// Search.
	r.Get("/search", h.Search)
	r.Get("/search/history", h.SearchHistory)
	r.Delete("/search/history", h.ClearSearchHistory)
	r.Put("/search/engine", h.SelectEngine)

	// Gestures.
	r.Post("/gestures", h.ClassifyGestures)
	r.Post("/gestures/events", h.EmitGestures)

	// Presentation environment.
	r.Get("/theme.css", h.ThemeCSS)
	r.Get("/environment", h.Environment)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
