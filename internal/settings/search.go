package settings

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// PreferredEngineKey holds a bare engine id written by the search entry point.
// It is the fallback preference when no settings store is attached.
const PreferredEngineKey = "preferredSearchEngine"

// Search engine ids.
const (
	EngineGoogle     = "google"
	EngineBing       = "bing"
	EngineDuckDuckGo = "duckduckgo"
	EngineYahoo      = "yahoo"
	EngineEcosia     = "ecosia"
	EngineCustom     = "custom"
)

// Engine describes a built-in search engine. Template contains a single %s
// where the escaped query goes.
type Engine struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Template string `json:"template"`
}

// Engines is the fixed engine table.
var Engines = map[string]Engine{
	EngineGoogle:     {ID: EngineGoogle, Name: "Google", Template: "https://www.google.com/search?q=%s"},
	EngineBing:       {ID: EngineBing, Name: "Bing", Template: "https://www.bing.com/search?q=%s"},
	EngineDuckDuckGo: {ID: EngineDuckDuckGo, Name: "DuckDuckGo", Template: "https://duckduckgo.com/?q=%s"},
	EngineYahoo:      {ID: EngineYahoo, Name: "Yahoo", Template: "https://search.yahoo.com/search?p=%s"},
	EngineEcosia:     {ID: EngineEcosia, Name: "Ecosia", Template: "https://www.ecosia.org/search?q=%s"},
}

// KnownEngine reports whether id names a built-in engine or custom.
func KnownEngine(id string) bool {
	_, ok := Engines[id]
	return ok || id == EngineCustom
}

// componentUnescaper undoes the encodings url.QueryEscape applies that a
// browser's URI component encoding does not: '+' for space and the marks
// !'()* which stay literal.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EscapeQuery percent-encodes a query the way a browser encodes a URI
// component: spaces become %20, and !'()* are left as they are.
func EscapeQuery(q string) string {
	return componentUnescaper.Replace(url.QueryEscape(q))
}

// BuildSearchURL resolves engine to a template and substitutes the escaped
// query. "custom" uses customTemplate; a custom template without %s gets the
// query appended. Unknown engines and an empty custom template fall back to
// google.
func BuildSearchURL(engine, customTemplate, query string) string {
	q := EscapeQuery(query)
	if engine == EngineCustom && strings.TrimSpace(customTemplate) != "" {
		if strings.Contains(customTemplate, "%s") {
			return strings.ReplaceAll(customTemplate, "%s", q)
		}
		return customTemplate + q
	}
	e, ok := Engines[engine]
	if !ok {
		e = Engines[EngineGoogle]
	}
	return strings.Replace(e.Template, "%s", q, 1)
}

// SearchURL builds the search URL for query with the configured engine.
func (s *Store) SearchURL(query string) string {
	search := s.Snapshot().Search()
	return BuildSearchURL(search.Engine, search.CustomSearchURL, query)
}

// AddToSearchHistory records query as the most recent search. Blank queries
// are ignored; an earlier occurrence of the same query is dropped and the
// history is capped at MaxSearchHistory entries.
func (s *Store) AddToSearchHistory(query string) {
	if strings.TrimSpace(query) == "" {
		return
	}
	s.mu.Lock()
	history := s.current.Search().SearchHistory
	next := make([]any, 0, MaxSearchHistory)
	next = append(next, query)
	for _, h := range history {
		if len(next) == MaxSearchHistory {
			break
		}
		if h != query {
			next = append(next, h)
		}
	}
	s.commitLocked(s.patched(SectionSearch, Section{"searchHistory": next}))
}

// ClearSearchHistory empties search.searchHistory.
func (s *Store) ClearSearchHistory() {
	s.Update(SectionSearch, Section{"searchHistory": []any{}})
}

// History returns the current search history, most recent first.
func (s *Store) History() []string {
	h := s.Snapshot().Search().SearchHistory
	if h == nil {
		return []string{}
	}
	return h
}

// SelectEngine switches the search engine: the bare preference key is written
// for entry points without a settings store, then search.engine is updated.
func (s *Store) SelectEngine(engine string) (Revision, error) {
	if !KnownEngine(engine) {
		return Revision{}, fmt.Errorf("settings: unknown search engine %q", engine)
	}
	if _, builtin := Engines[engine]; builtin {
		_ = s.kv.WriteString(PreferredEngineKey, engine)
	}
	return s.UpdateIfMatch(SectionSearch, Section{"engine": engine}, "")
}

// Preferences reads bare string preferences; *kv.Store implements it.
type Preferences interface {
	ReadString(key string) (string, bool)
}

// Preferences returns the bare-string preference reader backing the store.
func (s *Store) Preferences() Preferences { return s.kv }

// ResolveEngine picks the engine for a search entry point: the settings
// store's engine when one is attached, else the bare preference key, else
// google.
func ResolveEngine(store *Store, prefs Preferences) string {
	if store != nil {
		if e := store.Snapshot().Search().Engine; KnownEngine(e) {
			return e
		}
	}
	if prefs != nil {
		if e, ok := prefs.ReadString(PreferredEngineKey); ok {
			if _, builtin := Engines[e]; builtin {
				return e
			}
		}
	}
	return EngineGoogle
}

var urlQueryRe = regexp.MustCompile(`^(http|https)://[a-zA-Z0-9_.-]+\.[a-zA-Z]{2,}(/.*)?$`)

// LooksLikeURL reports whether a search box entry is an address to open
// directly rather than a query.
func LooksLikeURL(query string) bool {
	return urlQueryRe.MatchString(strings.TrimSpace(query))
}

// EngineIDs returns the selectable engine ids in a stable order.
func EngineIDs() []string {
	ids := make([]string, 0, len(Engines)+1)
	for id := range Engines {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return append(ids, EngineCustom)
}
