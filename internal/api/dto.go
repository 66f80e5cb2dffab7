package api

import (
	"github.com/starford/galaxytab/internal/dashboard"
	"github.com/starford/galaxytab/internal/gesture"
	"github.com/starford/galaxytab/internal/models"
)

// SettingsResponse is the full settings value with its checksum
// (aliased from the domain layer).
type SettingsResponse = dashboard.SettingsView

// LinksPageResponse is one display page of links (aliased from the domain layer).
type LinksPageResponse = dashboard.LinksPage

// SearchResponse tells the client where a search box entry leads
// (aliased from the domain layer).
type SearchResponse = dashboard.SearchResult

// CreateLinkRequest is the request body for adding a link.
type CreateLinkRequest = models.LinkDraft

// UpdateLinkRequest is the request body for editing a link. Absent fields are
// left unchanged.
type UpdateLinkRequest = models.LinkPatch

// SelectEngineRequest is the request body for switching search engine.
type SelectEngineRequest struct {
	Engine string `json:"engine" example:"duckduckgo" validate:"required"`
}

// HistoryResponse lists recent searches, newest first.
type HistoryResponse struct {
	History []string `json:"history" validate:"required"`
}

// GesturesRequest carries raw pointer and touch events.
type GesturesRequest struct {
	Events []gesture.Event `json:"events" validate:"required"`
}

// GesturesResponse lists the actions recognised in a batch of events.
type GesturesResponse struct {
	Actions []gesture.Action `json:"actions" validate:"required"`
}
