// Package environment is the presentation environment that settings are
// projected onto: a handful of style variables, the theme attribute, one
// custom style block and an optional sandboxed custom script.
package environment

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/starford/galaxytab/internal/settings"
)

// Style variable and attribute names.
const (
	VarBackgroundColor = "--background-color"
	VarAccentColor     = "--accent-color"
	VarFontFamily      = "--font-family"
	VarBorderRadius    = "--border-radius"

	AttrTheme = "data-theme"

	// StyleCustomCSS is the id of the style block holding advanced.customCSS.
	StyleCustomCSS = "custom-css"
)

// ScriptRunner executes user script text in isolation.
type ScriptRunner interface {
	Run(src string) error
}

// State is an observable snapshot of the environment.
type State struct {
	Vars   map[string]string `json:"vars"`
	Attrs  map[string]string `json:"attrs"`
	Styles map[string]string `json:"styles"`
	// Script is the last custom script handed to the runner.
	Script string `json:"script,omitempty"`
}

// Environment implements settings.Applier.
type Environment struct {
	mu          sync.Mutex
	vars        map[string]string
	attrs       map[string]string
	styles      map[string]string
	script      string
	prefersDark bool
	scripts     ScriptRunner
	logger      *slog.Logger
}

// Option configures an Environment.
type Option func(*Environment)

// WithScripts enables custom script execution through r. Without it
// advanced.customJS is ignored.
func WithScripts(r ScriptRunner) Option {
	return func(e *Environment) { e.scripts = r }
}

// WithPrefersDark sets the initial dark-mode preference used to resolve the
// "auto" theme.
func WithPrefersDark(dark bool) Option {
	return func(e *Environment) { e.prefersDark = dark }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Environment) { e.logger = l }
}

// New returns an empty environment.
func New(opts ...Option) *Environment {
	e := &Environment{
		vars:   make(map[string]string),
		attrs:  make(map[string]string),
		styles: make(map[string]string),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(slog.String("component", "environment"))
	return e
}

// SetPrefersDark updates the dark-mode preference. It takes effect on the next
// Apply.
func (e *Environment) SetPrefersDark(dark bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prefersDark = dark
}

// Apply projects s onto the environment. Applying the same settings twice
// leaves the same state as applying them once.
func (e *Environment) Apply(s settings.Settings) {
	bg := s.Background()
	ap := s.Appearance()
	adv := s.Advanced()

	e.mu.Lock()
	e.vars[VarBackgroundColor] = bg.Color
	e.vars[VarAccentColor] = ap.AccentColor
	e.vars[VarFontFamily] = ap.FontFamily
	e.vars[VarBorderRadius] = ap.BorderRadius
	e.attrs[AttrTheme] = e.resolveTheme(ap.Theme)

	if adv.CustomCSS == "" {
		delete(e.styles, StyleCustomCSS)
	} else {
		e.styles[StyleCustomCSS] = adv.CustomCSS
	}
	e.script = adv.CustomJS
	runner := e.scripts
	e.mu.Unlock()

	if adv.CustomJS == "" || runner == nil {
		return
	}
	if err := runner.Run(adv.CustomJS); err != nil {
		e.logger.Warn("custom script failed", slog.String("error", err.Error()))
	}
}

func (e *Environment) resolveTheme(theme string) string {
	switch theme {
	case settings.ThemeLight, settings.ThemeDark:
		return theme
	case settings.ThemeAuto:
		if e.prefersDark {
			return settings.ThemeDark
		}
		return settings.ThemeLight
	default:
		return settings.ThemeDark
	}
}

// State returns a copy of the current environment.
func (e *Environment) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Vars:   maps.Clone(e.vars),
		Attrs:  maps.Clone(e.attrs),
		Styles: maps.Clone(e.styles),
		Script: e.script,
	}
}

// Theme returns the resolved theme attribute.
func (e *Environment) Theme() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attrs[AttrTheme]
}

// CSS renders the style variables as a :root rule followed by the custom
// style block.
func (e *Environment) CSS() string {
	st := e.State()
	var b strings.Builder
	fmt.Fprintf(&b, ":root[%s=%q] {\n", AttrTheme, st.Attrs[AttrTheme])
	for _, name := range slices.Sorted(maps.Keys(st.Vars)) {
		fmt.Fprintf(&b, "  %s: %s;\n", name, st.Vars[name])
	}
	b.WriteString("}\n")
	if css, ok := st.Styles[StyleCustomCSS]; ok {
		fmt.Fprintf(&b, "/* %s */\n%s\n", StyleCustomCSS, css)
	}
	return b.String()
}
