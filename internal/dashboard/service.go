// Package dashboard coordinates the settings store, the link collection and
// the presentation environment for the outer surfaces (HTTP API, MCP, CLI).
package dashboard

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/starford/galaxytab/internal/apperr"
	"github.com/starford/galaxytab/internal/environment"
	"github.com/starford/galaxytab/internal/gesture"
	"github.com/starford/galaxytab/internal/links"
	"github.com/starford/galaxytab/internal/models"
	"github.com/starford/galaxytab/internal/settings"
	"github.com/starford/galaxytab/internal/sse"
)

// AutoPageSize is the page size when layout.columns is "auto".
const AutoPageSize = 12

// Publisher receives store change notifications; *sse.Broker implements it.
type Publisher interface {
	PublishStoreEvent(kind string, data map[string]any)
}

// SettingsView is settings plus the checksum to send back in If-Match.
type SettingsView struct {
	Settings settings.Settings `json:"settings"`
	Checksum string            `json:"checksum"`
}

// LinksPage is one display page of links.
type LinksPage struct {
	Items      []models.Link `json:"items"`
	SortBy     string        `json:"sort_by"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int           `json:"total_pages"`
	Total      int           `json:"total"`
}

// SearchResult is where a search box entry should take the user.
type SearchResult struct {
	Query  string `json:"query"`
	URL    string `json:"url"`
	Engine string `json:"engine,omitempty"`
	// Direct is set when the query was itself a URL and no search is made.
	Direct    bool `json:"direct"`
	NewWindow bool `json:"new_window"`
}

// Service is the dashboard façade.
type Service struct {
	settings *settings.Store
	links    *links.Collection
	env      *environment.Environment
	pub      Publisher
	logger   *slog.Logger
	unsubs   []func()
}

// NewService wires the stores together. Changes from either store, local or
// external, are forwarded to pub when it is non-nil.
func NewService(st *settings.Store, lc *links.Collection, env *environment.Environment, pub Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		settings: st,
		links:    lc,
		env:      env,
		pub:      pub,
		logger:   logger.With(slog.String("component", "dashboard")),
	}
	if pub != nil {
		s.unsubs = append(s.unsubs,
			st.Subscribe(func(rev settings.Revision) {
				pub.PublishStoreEvent(sse.KindSettings, map[string]any{"checksum": rev.Checksum})
			}),
			lc.Subscribe(func(items []models.Link) {
				pub.PublishStoreEvent(sse.KindLinks, map[string]any{"count": len(items)})
			}),
		)
	}
	return s
}

// Settings returns the current settings.
func (s *Service) Settings(_ context.Context) SettingsView {
	return view(s.settings.Current())
}

func view(rev settings.Revision) SettingsView {
	return SettingsView{Settings: rev.Settings, Checksum: rev.Checksum}
}

// UpdateSection merges patch into section. A non-empty ifMatch must equal the
// current checksum.
func (s *Service) UpdateSection(_ context.Context, section string, patch settings.Section, ifMatch string) (SettingsView, error) {
	if strings.TrimSpace(section) == "" {
		return SettingsView{}, fmt.Errorf("section name is required: %w", apperr.ErrInvalid)
	}
	if patch == nil {
		return SettingsView{}, fmt.Errorf("patch must be an object: %w", apperr.ErrInvalid)
	}
	next, err := s.settings.UpdateIfMatch(section, patch, ifMatch)
	if err != nil {
		return SettingsView{}, err
	}
	return view(next), nil
}

// ReplaceSettings saves a whole settings value.
func (s *Service) ReplaceSettings(_ context.Context, next settings.Settings, ifMatch string) (SettingsView, error) {
	if next == nil {
		return SettingsView{}, fmt.Errorf("settings must be an object: %w", apperr.ErrInvalid)
	}
	rev, err := s.settings.ReplaceIfMatch(next, ifMatch)
	if err != nil {
		return SettingsView{}, err
	}
	return view(rev), nil
}

// ResetSettings restores the defaults.
func (s *Service) ResetSettings(_ context.Context) SettingsView {
	return view(s.settings.Reset())
}

// ExportSettings returns the settings as an indented JSON document.
func (s *Service) ExportSettings(_ context.Context) ([]byte, error) {
	return s.settings.Export()
}

// Links returns one page of links in display order. An empty sortBy uses
// layout.sortBy. Pages are zero-based; a page past the end is empty.
func (s *Service) Links(_ context.Context, sortBy string, page int) (LinksPage, error) {
	layout := s.settings.Snapshot().Layout()
	if sortBy == "" {
		sortBy = layout.SortBy
	}
	items, err := SortLinks(s.links.List(), sortBy)
	if err != nil {
		return LinksPage{}, err
	}
	if page < 0 {
		return LinksPage{}, fmt.Errorf("page must be >= 0: %w", apperr.ErrInvalid)
	}

	per := PageSize(layout.Columns)
	total := len(items)
	pages := (total + per - 1) / per
	lo := min(page*per, total)
	hi := min(lo+per, total)
	return LinksPage{
		Items:      items[lo:hi],
		SortBy:     sortBy,
		Page:       page,
		PerPage:    per,
		TotalPages: pages,
		Total:      total,
	}, nil
}

// AllLinks returns the collection in stored order.
func (s *Service) AllLinks(_ context.Context) []models.Link {
	return s.links.List()
}

// GetLink returns one link.
func (s *Service) GetLink(_ context.Context, id string) (models.Link, error) {
	return s.links.Get(id)
}

// AddLink validates draft, normalises its URL and appends it.
func (s *Service) AddLink(_ context.Context, draft models.LinkDraft) (models.Link, error) {
	draft.Title = strings.TrimSpace(draft.Title)
	draft.URL = strings.TrimSpace(draft.URL)
	if err := draft.Validate(); err != nil {
		return models.Link{}, fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}
	draft.URL = NormalizeURL(draft.URL)
	return s.links.Add(draft), nil
}

// EditLink applies patch to the link with id.
func (s *Service) EditLink(_ context.Context, id string, patch models.LinkPatch) (models.Link, error) {
	if patch.URL != nil {
		u := strings.TrimSpace(*patch.URL)
		if u == "" {
			return models.Link{}, fmt.Errorf("url must not be empty: %w", apperr.ErrInvalid)
		}
		u = NormalizeURL(u)
		patch.URL = &u
	}
	link, ok := s.links.Edit(id, patch)
	if !ok {
		return models.Link{}, fmt.Errorf("link %s: %w", id, apperr.ErrNotFound)
	}
	return link, nil
}

// RemoveLink deletes the link with id. Removing an unknown id succeeds.
func (s *Service) RemoveLink(_ context.Context, id string) {
	s.links.Remove(id)
}

// OpenLink records a click and returns the link to open.
func (s *Service) OpenLink(_ context.Context, id string) (models.Link, error) {
	link, ok := s.links.RecordClick(id)
	if !ok {
		return models.Link{}, fmt.Errorf("link %s: %w", id, apperr.ErrNotFound)
	}
	return link, nil
}

// Search resolves a search box entry. URLs are opened as they are; anything
// else becomes a search with the configured engine and is added to history.
func (s *Service) Search(_ context.Context, query string) (SearchResult, error) {
	res, err := s.resolve(query)
	if err != nil {
		return SearchResult{}, err
	}
	if !res.Direct {
		s.settings.AddToSearchHistory(res.Query)
	}
	return res, nil
}

// PreviewSearch resolves query like Search without touching the history.
func (s *Service) PreviewSearch(_ context.Context, query string) (SearchResult, error) {
	return s.resolve(query)
}

func (s *Service) resolve(query string) (SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResult{}, fmt.Errorf("query is required: %w", apperr.ErrInvalid)
	}
	search := s.settings.Snapshot().Search()
	if settings.LooksLikeURL(query) {
		return SearchResult{Query: query, URL: query, Direct: true, NewWindow: search.OpenInNewTab}, nil
	}
	engine := settings.ResolveEngine(s.settings, s.settings.Preferences())
	return SearchResult{
		Query:     query,
		URL:       settings.BuildSearchURL(engine, search.CustomSearchURL, query),
		Engine:    engine,
		NewWindow: search.OpenInNewTab,
	}, nil
}

// SearchHistory returns recent queries, newest first.
func (s *Service) SearchHistory(_ context.Context) []string {
	return s.settings.History()
}

// ClearSearchHistory empties the search history.
func (s *Service) ClearSearchHistory(_ context.Context) {
	s.settings.ClearSearchHistory()
}

// SelectEngine switches the search engine.
func (s *Service) SelectEngine(_ context.Context, engine string) (SettingsView, error) {
	next, err := s.settings.SelectEngine(engine)
	if err != nil {
		return SettingsView{}, fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}
	return view(next), nil
}

// ClassifyGestures runs a batch of raw events through the current gesture
// settings.
func (s *Service) ClassifyGestures(_ context.Context, events []gesture.Event) []gesture.Action {
	return gesture.Classify(events, s.settings.Snapshot().Gestures())
}

// ThemeCSS renders the presentation environment as a stylesheet.
func (s *Service) ThemeCSS(_ context.Context) string {
	return s.env.CSS()
}

// Environment returns the presentation environment state.
func (s *Service) Environment(_ context.Context) environment.State {
	return s.env.State()
}

// Shutdown detaches from the stores. With advanced.clearHistoryOnExit set the
// search history is cleared first.
func (s *Service) Shutdown(_ context.Context) {
	if s.settings.Snapshot().Advanced().ClearHistoryOnExit && len(s.settings.History()) > 0 {
		s.logger.Info("clearing search history on exit")
		s.settings.ClearSearchHistory()
	}
	for _, fn := range s.unsubs {
		fn()
	}
	s.unsubs = nil
}

// PageSize returns the number of links per page for layout.columns: 12 for
// "auto", otherwise two rows of the given column count.
func PageSize(columns string) int {
	n, err := strconv.Atoi(strings.TrimSpace(columns))
	if err != nil || n <= 0 {
		return AutoPageSize
	}
	return n * 2
}

// SortLinks returns a sorted copy of items. "custom" keeps stored order;
// "alphabetical" orders by title ignoring case; "most-used" orders by click
// count, highest first. Ties keep stored order.
func SortLinks(items []models.Link, sortBy string) ([]models.Link, error) {
	out := slices.Clone(items)
	switch sortBy {
	case settings.SortCustom, "":
	case settings.SortAlphabetical:
		slices.SortStableFunc(out, func(a, b models.Link) int {
			return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		})
	case settings.SortMostUsed:
		slices.SortStableFunc(out, func(a, b models.Link) int {
			return cmp.Compare(b.ClickCount, a.ClickCount)
		})
	default:
		return nil, fmt.Errorf("unknown sort %q: %w", sortBy, apperr.ErrInvalid)
	}
	return out, nil
}

// NormalizeURL prefixes https:// to an address without a scheme.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "://") {
		return raw
	}
	lower := strings.ToLower(raw)
	for _, scheme := range []string{"mailto:", "tel:"} {
		if strings.HasPrefix(lower, scheme) {
			return raw
		}
	}
	return "https://" + strings.TrimPrefix(raw, "//")
}
