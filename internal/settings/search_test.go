package settings

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/galaxytab/internal/testutil"
)

func TestBuildSearchURL(t *testing.T) {
	tests := []struct {
		name, engine, custom, query, want string
	}{
		{"google", EngineGoogle, "", "hello world", "https://www.google.com/search?q=hello%20world"},
		{"bing", EngineBing, "", "a&b", "https://www.bing.com/search?q=a%26b"},
		{"duckduckgo", EngineDuckDuckGo, "", "go", "https://duckduckgo.com/?q=go"},
		{"yahoo", EngineYahoo, "", "x", "https://search.yahoo.com/search?p=x"},
		{"ecosia", EngineEcosia, "", "trees", "https://www.ecosia.org/search?q=trees"},
		{"custom", EngineCustom, "https://s.example/find?q=%s&lang=en", "q 1", "https://s.example/find?q=q%201&lang=en"},
		{"custom without placeholder", EngineCustom, "https://s.example/?q=", "go", "https://s.example/?q=go"},
		{"custom empty falls back", EngineCustom, "", "go", "https://www.google.com/search?q=go"},
		{"unknown falls back", "altavista", "", "go", "https://www.google.com/search?q=go"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildSearchURL(tt.engine, tt.custom, tt.query))
		})
	}
}

func TestEscapeQuery(t *testing.T) {
	tests := map[string]string{
		"hello world":     "hello%20world",
		"it's (fun)!*":    "it's%20(fun)!*",
		"a+b":             "a%2Bb",
		"100%":            "100%25",
		"-_.~":            "-_.~",
		"über & co/x?y=1": "%C3%BCber%20%26%20co%2Fx%3Fy%3D1",
	}
	for in, want := range tests {
		assert.Equal(t, want, EscapeQuery(in), in)
	}
}

func TestStoreSearchURL(t *testing.T) {
	s, _, _ := newStore(t)
	assert.Equal(t, "https://www.google.com/search?q=hello%20world", s.SearchURL("hello world"))

	s.Update(SectionSearch, Section{"engine": EngineCustom, "customSearchUrl": "https://x.test/?s=%s"})
	assert.Equal(t, "https://x.test/?s=go%2Blang", s.SearchURL("go+lang"))
}

func TestAddToSearchHistory_Bounded(t *testing.T) {
	s, _, _ := newStore(t)
	for i := 1; i <= 11; i++ {
		s.AddToSearchHistory(fmt.Sprintf("q%d", i))
	}
	h := s.History()
	require.Len(t, h, MaxSearchHistory)
	assert.Equal(t, "q11", h[0])
	assert.Equal(t, "q2", h[MaxSearchHistory-1])
	assert.NotContains(t, h, "q1")
}

func TestAddToSearchHistory_DedupAndBlank(t *testing.T) {
	s, _, _ := newStore(t)
	s.AddToSearchHistory("a")
	s.AddToSearchHistory("b")
	s.AddToSearchHistory("a")
	s.AddToSearchHistory("   ")
	assert.Equal(t, []string{"a", "b"}, s.History())

	s.ClearSearchHistory()
	assert.Empty(t, s.History())
}

func TestSelectEngine(t *testing.T) {
	s, kvs, _ := newStore(t)

	got, err := s.SelectEngine(EngineDuckDuckGo)
	require.NoError(t, err)
	assert.Equal(t, EngineDuckDuckGo, got.Settings.Search().Engine)
	pref, ok := kvs.ReadString(PreferredEngineKey)
	require.True(t, ok)
	assert.Equal(t, EngineDuckDuckGo, pref)

	_, err = s.SelectEngine("altavista")
	assert.Error(t, err)
	assert.Equal(t, EngineDuckDuckGo, s.Snapshot().Search().Engine)
}

func TestResolveEngine(t *testing.T) {
	kvs, _ := testutil.KV(t)
	assert.Equal(t, EngineGoogle, ResolveEngine(nil, kvs))

	require.NoError(t, kvs.WriteString(PreferredEngineKey, EngineBing))
	assert.Equal(t, EngineBing, ResolveEngine(nil, kvs))

	require.NoError(t, kvs.WriteString(PreferredEngineKey, "bogus"))
	assert.Equal(t, EngineGoogle, ResolveEngine(nil, kvs))

	s := New(kvs, nil, testutil.Logger())
	defer s.Close()
	s.Update(SectionSearch, Section{"engine": EngineEcosia})
	assert.Equal(t, EngineEcosia, ResolveEngine(s, kvs))
}

func TestLooksLikeURL(t *testing.T) {
	assert.True(t, LooksLikeURL("https://github.com"))
	assert.True(t, LooksLikeURL("http://example.org/path?q=1"))
	assert.False(t, LooksLikeURL("github.com"))
	assert.False(t, LooksLikeURL("how to write go"))
	assert.False(t, LooksLikeURL("ftp://example.org"))
}

func TestEngineIDs(t *testing.T) {
	assert.Equal(t, []string{"bing", "duckduckgo", "ecosia", "google", "yahoo", "custom"}, EngineIDs())
}
