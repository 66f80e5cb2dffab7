// Package settings owns the canonical dashboard settings record.
//
// Settings is deliberately a generic JSON object keyed by section name: fields
// inside a section are not validated at write time, and an update naming an
// unknown section creates it. Typed, read-only views of the known sections are
// decoded on demand.
package settings

import (
	"github.com/go-viper/mapstructure/v2"
)

// Key is the storage key of the persisted settings object.
const Key = "galaxyTabSettings"

// Known section names.
const (
	SectionBackground = "background"
	SectionSearch     = "search"
	SectionAppearance = "appearance"
	SectionLayout     = "layout"
	SectionGestures   = "gestures"
	SectionAdvanced   = "advanced"
)

// Sections lists the known sections in display order.
var Sections = []string{
	SectionBackground,
	SectionSearch,
	SectionAppearance,
	SectionLayout,
	SectionGestures,
	SectionAdvanced,
}

// MaxSearchHistory bounds search.searchHistory.
const MaxSearchHistory = 10

// Section is one named group of settings fields.
type Section map[string]any

// Settings is the whole settings record.
type Settings map[string]Section

// Defaults returns a fresh copy of the hard-coded default settings. The
// defaults define the expected shape: fields added here appear for users whose
// stored settings predate them.
func Defaults() Settings {
	return Settings{
		SectionBackground: {
			"type":     "particles",
			"color":    "#202225",
			"animated": true,
		},
		SectionSearch: {
			"engine":          EngineGoogle,
			"customSearchUrl": "",
			"openInNewTab":    true,
			"searchHistory":   []any{},
		},
		SectionAppearance: {
			"theme":        ThemeDark,
			"accentColor":  "#5865F2",
			"fontFamily":   "Inter, sans-serif",
			"borderRadius": "12px",
			"clock24Hour":  false,
			"showDate":     true,
			"showWeather":  true,
			"weatherUnit":  "celsius",
		},
		SectionLayout: {
			"columns": "auto",
			"sortBy":  SortCustom,
		},
		SectionGestures: {
			"enabled":           true,
			"doubleClickAction": "open-settings",
			"swipeLeftAction":   "next-page",
			"swipeRightAction":  "previous-page",
		},
		SectionAdvanced: {
			"customCSS":          "",
			"customJS":           "",
			"clearHistoryOnExit": false,
		},
	}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	out := make(Settings, len(s))
	for name, sec := range s {
		out[name] = sec.Clone()
	}
	return out
}

// Clone returns a deep copy.
func (s Section) Clone() Section {
	if s == nil {
		return nil
	}
	out := make(Section, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case Section:
		return map[string]any(t.Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	default:
		return v
	}
}

// deepMerge overlays stored onto base. Keys missing from stored keep the base
// value; keys present in stored win at the leaf level, recursing through
// nested objects. Sections and keys only present in stored are kept.
func deepMerge(base, stored Settings) Settings {
	out := base.Clone()
	if out == nil {
		out = Settings{}
	}
	for name, sec := range stored {
		if sec == nil {
			continue
		}
		if existing, ok := out[name]; ok {
			out[name] = Section(mergeObjects(existing, sec))
		} else {
			out[name] = sec.Clone()
		}
	}
	return out
}

func mergeObjects(base, over map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		out[k] = cloneValue(v)
	}
	for k, v := range over {
		bm, baseIsObj := out[k].(map[string]any)
		om, overIsObj := v.(map[string]any)
		if baseIsObj && overIsObj {
			out[k] = mergeObjects(bm, om)
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

// Background is the typed view of the background section.
type Background struct {
	Type     string `json:"type"`
	Color    string `json:"color"`
	Animated bool   `json:"animated"`
}

// Search is the typed view of the search section.
type Search struct {
	Engine          string   `json:"engine"`
	CustomSearchURL string   `json:"customSearchUrl"`
	OpenInNewTab    bool     `json:"openInNewTab"`
	SearchHistory   []string `json:"searchHistory"`
}

// Appearance is the typed view of the appearance section.
type Appearance struct {
	Theme        string `json:"theme"`
	AccentColor  string `json:"accentColor"`
	FontFamily   string `json:"fontFamily"`
	BorderRadius string `json:"borderRadius"`
	Clock24Hour  bool   `json:"clock24Hour"`
	ShowDate     bool   `json:"showDate"`
	ShowWeather  bool   `json:"showWeather"`
	WeatherUnit  string `json:"weatherUnit"`
}

// Layout is the typed view of the layout section.
type Layout struct {
	Columns string `json:"columns"`
	SortBy  string `json:"sortBy"`
}

// Gestures is the typed view of the gestures section.
type Gestures struct {
	Enabled           bool   `json:"enabled"`
	DoubleClickAction string `json:"doubleClickAction"`
	SwipeLeftAction   string `json:"swipeLeftAction"`
	SwipeRightAction  string `json:"swipeRightAction"`
}

// Advanced is the typed view of the advanced section.
type Advanced struct {
	CustomCSS          string `json:"customCSS"`
	CustomJS           string `json:"customJS"`
	ClearHistoryOnExit bool   `json:"clearHistoryOnExit"`
}

// Theme values.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
	ThemeAuto  = "auto"
)

// Link ordering values for layout.sortBy.
const (
	SortCustom       = "custom"
	SortAlphabetical = "alphabetical"
	SortMostUsed     = "most-used"
)

// Background returns the typed background section.
func (s Settings) Background() Background { return view[Background](s, SectionBackground) }

// Search returns the typed search section.
func (s Settings) Search() Search { return view[Search](s, SectionSearch) }

// Appearance returns the typed appearance section.
func (s Settings) Appearance() Appearance { return view[Appearance](s, SectionAppearance) }

// Layout returns the typed layout section.
func (s Settings) Layout() Layout { return view[Layout](s, SectionLayout) }

// Gestures returns the typed gestures section.
func (s Settings) Gestures() Gestures { return view[Gestures](s, SectionGestures) }

// Advanced returns the typed advanced section.
func (s Settings) Advanced() Advanced { return view[Advanced](s, SectionAdvanced) }

func view[T any](s Settings, section string) T {
	var v T
	s.decode(section, &v)
	return v
}

// decode fills out from the named section. Mistyped fields are coerced where
// possible and otherwise left at their zero value.
func (s Settings) decode(section string, out any) {
	sec, ok := s[section]
	if !ok {
		return
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return
	}
	_ = dec.Decode(map[string]any(sec))
}
