package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/galaxytab/internal/dashboard"
	"github.com/starford/galaxytab/internal/gesture"
	"github.com/starford/galaxytab/internal/settings"
)

// Emitter accepts live gesture events; *gesture.Feed implements it.
type Emitter interface {
	Emit(gesture.Event)
}

// Handler holds API route handlers.
type Handler struct {
	svc  *dashboard.Service
	feed Emitter
}

// NewHandler creates a new Handler. feed may be nil, in which case live
// gesture events are rejected.
func NewHandler(svc *dashboard.Service, feed Emitter) *Handler {
	return &Handler{svc: svc, feed: feed}
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Get all settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	SettingsResponse
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	v := h.svc.Settings(r.Context())
	setETag(w, v.Checksum)
	writeJSON(w, http.StatusOK, v)
}

// ReplaceSettings handles PUT /api/settings.
//
//	@Summary		Save the whole settings value
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			If-Match	header	string	false	"Settings checksum for optimistic concurrency"
//	@Success		200		{object}	SettingsResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) ReplaceSettings(w http.ResponseWriter, r *http.Request) {
	var next settings.Settings
	if !decodeBody(w, r, &next) {
		return
	}
	v, err := h.svc.ReplaceSettings(r.Context(), next, ifMatch(r))
	if err != nil {
		writeError(w, "replace settings", err)
		return
	}
	setETag(w, v.Checksum)
	writeJSON(w, http.StatusOK, v)
}

// UpdateSection handles PATCH /api/settings/{section}.
//
//	@Summary		Merge fields into one settings section
//	@Description	Top-level keys of the body replace the section's keys; nested objects are replaced, not merged. Unknown sections are created.
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			section		path	string	true	"Section name"
//	@Param			If-Match	header	string	false	"Settings checksum for optimistic concurrency"
//	@Success		200		{object}	SettingsResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/{section} [patch]
func (h *Handler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	var patch settings.Section
	if !decodeBody(w, r, &patch) {
		return
	}
	v, err := h.svc.UpdateSection(r.Context(), chi.URLParam(r, "section"), patch, ifMatch(r))
	if err != nil {
		writeError(w, "update settings", err)
		return
	}
	setETag(w, v.Checksum)
	writeJSON(w, http.StatusOK, v)
}

// ResetSettings handles POST /api/settings/reset.
//
//	@Summary		Restore default settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	SettingsResponse
//	@Security		BearerAuth
//	@Router			/settings/reset [post]
func (h *Handler) ResetSettings(w http.ResponseWriter, r *http.Request) {
	v := h.svc.ResetSettings(r.Context())
	setETag(w, v.Checksum)
	writeJSON(w, http.StatusOK, v)
}

// ExportSettings handles GET /api/settings/export.
//
//	@Summary		Download settings as a JSON file
//	@Tags			settings
//	@Produce		json
//	@Success		200
//	@Security		BearerAuth
//	@Router			/settings/export [get]
func (h *Handler) ExportSettings(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ExportSettings(r.Context())
	if err != nil {
		writeError(w, "export settings", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="galaxy-tab-settings.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Search handles GET /api/search.
//
//	@Summary		Resolve a search box entry
//	@Description	URLs are returned as they are. Anything else becomes a search URL for the configured engine and is added to the history.
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	true	"Query"
//	@Success		200	{object}	SearchResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SearchHistory handles GET /api/search/history.
//
//	@Summary		List recent searches
//	@Tags			search
//	@Produce		json
//	@Success		200	{object}	HistoryResponse
//	@Security		BearerAuth
//	@Router			/search/history [get]
func (h *Handler) SearchHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HistoryResponse{History: h.svc.SearchHistory(r.Context())})
}

// ClearSearchHistory handles DELETE /api/search/history.
//
//	@Summary		Clear search history
//	@Tags			search
//	@Success		204
//	@Security		BearerAuth
//	@Router			/search/history [delete]
func (h *Handler) ClearSearchHistory(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearSearchHistory(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// SelectEngine handles PUT /api/search/engine.
//
//	@Summary		Switch search engine
//	@Tags			search
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SelectEngineRequest	true	"Engine id"
//	@Success		200		{object}	SettingsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search/engine [put]
func (h *Handler) SelectEngine(w http.ResponseWriter, r *http.Request) {
	var req SelectEngineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	v, err := h.svc.SelectEngine(r.Context(), req.Engine)
	if err != nil {
		writeError(w, "select engine", err)
		return
	}
	setETag(w, v.Checksum)
	writeJSON(w, http.StatusOK, v)
}

// ClassifyGestures handles POST /api/gestures.
//
//	@Summary		Classify a batch of raw events
//	@Tags			gestures
//	@Accept			json
//	@Produce		json
//	@Param			body	body		GesturesRequest	true	"Events in order"
//	@Success		200		{object}	GesturesResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/gestures [post]
func (h *Handler) ClassifyGestures(w http.ResponseWriter, r *http.Request) {
	var req GesturesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, GesturesResponse{Actions: h.svc.ClassifyGestures(r.Context(), req.Events)})
}

// EmitGestures handles POST /api/gestures/events.
//
//	@Summary		Feed live events to the gesture recognizer
//	@Description	Recognised actions are broadcast as gesture.action server-sent events. Events without a timestamp are stamped on arrival.
//	@Tags			gestures
//	@Accept			json
//	@Param			body	body	GesturesRequest	true	"Events in order"
//	@Success		202
//	@Failure		400	{object}	errResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/gestures/events [post]
func (h *Handler) EmitGestures(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("live gestures unavailable"))
		return
	}
	var req GesturesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	for _, e := range req.Events {
		if e.At.IsZero() {
			e.At = time.Now()
		}
		h.feed.Emit(e)
	}
	w.WriteHeader(http.StatusAccepted)
}

// ThemeCSS handles GET /api/theme.css.
//
//	@Summary		Current theme as a stylesheet
//	@Tags			settings
//	@Produce		text/css
//	@Success		200
//	@Security		BearerAuth
//	@Router			/theme.css [get]
func (h *Handler) ThemeCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.svc.ThemeCSS(r.Context())))
}

// Environment handles GET /api/environment.
//
//	@Summary		Current presentation environment
//	@Tags			settings
//	@Produce		json
//	@Success		200
//	@Security		BearerAuth
//	@Router			/environment [get]
func (h *Handler) Environment(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Environment(r.Context()))
}

func pageParam(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}
