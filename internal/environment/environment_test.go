package environment

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/galaxytab/internal/settings"
	"github.com/starford/galaxytab/internal/testutil"
)

type countingRunner struct {
	runs []string
	err  error
}

func (r *countingRunner) Run(src string) error {
	r.runs = append(r.runs, src)
	return r.err
}

func TestApply_Defaults(t *testing.T) {
	env := New()
	env.Apply(settings.Defaults())

	st := env.State()
	assert.Equal(t, map[string]string{
		VarBackgroundColor: "#202225",
		VarAccentColor:     "#5865F2",
		VarFontFamily:      "Inter, sans-serif",
		VarBorderRadius:    "12px",
	}, st.Vars)
	assert.Equal(t, "dark", st.Attrs[AttrTheme])
	assert.Empty(t, st.Styles)
}

func TestApply_Idempotent(t *testing.T) {
	s := settings.Defaults()
	s[settings.SectionAdvanced]["customCSS"] = "body { margin: 0 }"

	once := New()
	once.Apply(s)

	twice := New()
	twice.Apply(s)
	twice.Apply(s)

	assert.Equal(t, once.State(), twice.State())
	assert.Equal(t, once.CSS(), twice.CSS())
}

func TestApply_CustomCSSReplacedAndRemoved(t *testing.T) {
	env := New()
	s := settings.Defaults()

	s[settings.SectionAdvanced]["customCSS"] = "a { color: red }"
	env.Apply(s)
	s[settings.SectionAdvanced]["customCSS"] = "a { color: blue }"
	env.Apply(s)
	assert.Equal(t, map[string]string{StyleCustomCSS: "a { color: blue }"}, env.State().Styles)

	s[settings.SectionAdvanced]["customCSS"] = ""
	env.Apply(s)
	assert.Empty(t, env.State().Styles)
}

func TestApply_AutoTheme(t *testing.T) {
	s := settings.Defaults()
	s[settings.SectionAppearance]["theme"] = settings.ThemeAuto

	env := New(WithPrefersDark(true))
	env.Apply(s)
	assert.Equal(t, settings.ThemeDark, env.Theme())

	env.SetPrefersDark(false)
	assert.Equal(t, settings.ThemeDark, env.Theme(), "resolved at apply time")
	env.Apply(s)
	assert.Equal(t, settings.ThemeLight, env.Theme())
}

func TestApply_ScriptsOptIn(t *testing.T) {
	s := settings.Defaults()
	s[settings.SectionAdvanced]["customJS"] = "console.log('hi')"

	New().Apply(s) // no runner: ignored

	r := &countingRunner{err: errors.New("boom")}
	env := New(WithScripts(r), WithLogger(testutil.Logger()))
	env.Apply(s)
	assert.Equal(t, []string{"console.log('hi')"}, r.runs)
	assert.Equal(t, "console.log('hi')", env.State().Script)

	s[settings.SectionAdvanced]["customJS"] = ""
	env.Apply(s)
	assert.Len(t, r.runs, 1)
}

func TestCSS(t *testing.T) {
	env := New()
	s := settings.Defaults()
	s[settings.SectionAdvanced]["customCSS"] = ".tile { opacity: .9 }"
	env.Apply(s)

	css := env.CSS()
	assert.True(t, strings.HasPrefix(css, `:root[data-theme="dark"] {`))
	assert.Contains(t, css, "  --accent-color: #5865F2;\n")
	assert.Less(t, strings.Index(css, "--accent-color"), strings.Index(css, "--background-color"))
	assert.True(t, strings.HasSuffix(css, ".tile { opacity: .9 }\n"))
}

func TestSandbox(t *testing.T) {
	sb := NewSandbox(200*time.Millisecond, testutil.Logger())

	require.NoError(t, sb.Run(`var x = 1 + 1; console.log("x is", x);`))

	err := sb.Run(`throw new Error("bad")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")

	assert.Error(t, sb.Run(`this is not javascript`))
	assert.ErrorIs(t, sb.Run(`for (;;) {}`), ErrScriptTimeout)
}

func TestSandbox_NoHostAccess(t *testing.T) {
	sb := NewSandbox(time.Second, testutil.Logger())
	assert.Error(t, sb.Run(`require("fs")`))
	assert.Error(t, sb.Run(`process.exit(1)`))
}

func TestSandbox_FreshRuntimePerRun(t *testing.T) {
	sb := NewSandbox(time.Second, testutil.Logger())
	require.NoError(t, sb.Run(`var leaked = 42;`))
	assert.NoError(t, sb.Run(`if (typeof leaked !== "undefined") throw new Error("leaked")`))
}
