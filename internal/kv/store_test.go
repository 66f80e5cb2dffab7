package kv

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStore(t *testing.T) (*Store, *FS) {
	t.Helper()
	fs := tempFS(t)
	s := New(fs, quietLogger())
	t.Cleanup(s.Close)
	return s, fs
}

// failingProvider wraps a provider and rejects every Set.
type failingProvider struct {
	Provider
}

func (failingProvider) Set(string, []byte) error { return errors.New("quota exceeded") }

func recv(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change")
		return Change{}
	}
}

func TestRead_MissingReturnsFallback(t *testing.T) {
	s, _ := testStore(t)
	got := Read(s, "absent", map[string]int{"x": 1})
	assert.Equal(t, map[string]int{"x": 1}, got)
}

func TestRead_CorruptReturnsFallback(t *testing.T) {
	s, fs := testStore(t)
	require.NoError(t, fs.Set("broken", []byte("{not json")))
	got := Read(s, "broken", []string{"fallback"})
	assert.Equal(t, []string{"fallback"}, got)
}

func TestRead_NullReturnsFallback(t *testing.T) {
	s, fs := testStore(t)
	require.NoError(t, fs.Set("nothing", []byte("null")))
	got := Read(s, "nothing", []string{"fallback"})
	assert.Equal(t, []string{"fallback"}, got)
}

func TestWriteThenRead(t *testing.T) {
	s, _ := testStore(t)
	type pair struct {
		A string `json:"a"`
		B int    `json:"b"`
	}
	require.NoError(t, Write(s, "pair", pair{A: "x", B: 2}))
	assert.Equal(t, pair{A: "x", B: 2}, Read(s, "pair", pair{}))
}

func TestWrite_FailureKeepsPriorValue(t *testing.T) {
	fs := tempFS(t)
	require.NoError(t, fs.Set("k", []byte(`"before"`)))

	s := New(failingProvider{Provider: fs}, quietLogger())
	defer s.Close()

	err := Write(s, "k", "after")
	require.Error(t, err)
	assert.Equal(t, "before", Read(s, "k", ""))
}

func TestStrings(t *testing.T) {
	s, fs := testStore(t)
	_, ok := s.ReadString("preferredSearchEngine")
	assert.False(t, ok)

	require.NoError(t, s.WriteString("preferredSearchEngine", "duckduckgo"))
	raw, _ := fs.Get("preferredSearchEngine")
	assert.Equal(t, "duckduckgo", string(raw), "bare strings are stored without JSON quoting")

	v, ok := s.ReadString("preferredSearchEngine")
	assert.True(t, ok)
	assert.Equal(t, "duckduckgo", v)
}

func TestWrite_NotifiesSubscribers(t *testing.T) {
	s, _ := testStore(t)
	ch := make(chan Change, 4)
	cancel := s.Subscribe("k", func(c Change) { ch <- c })
	defer cancel()

	require.NoError(t, Write(s, "other", 1))
	require.NoError(t, Write(s, "k", 2))

	c := recv(t, ch)
	assert.Equal(t, "k", c.Key)
	assert.Equal(t, "2", string(c.Value))
	assert.False(t, c.External)
}

func TestWrite_FailureDoesNotNotify(t *testing.T) {
	s := New(failingProvider{Provider: tempFS(t)}, quietLogger())
	defer s.Close()
	ch := make(chan Change, 1)
	s.Subscribe("", func(c Change) { ch <- c })

	_ = Write(s, "k", 1)
	select {
	case c := <-ch:
		t.Fatalf("unexpected change %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEntry_SkipsOwnWrites(t *testing.T) {
	s, _ := testStore(t)
	a := NewEntry[[]string](s, "list")
	b := NewEntry[[]string](s, "list")

	fromA := make(chan Change, 4)
	a.Subscribe(func(c Change) { fromA <- c })

	require.NoError(t, a.Write([]string{"mine"}))
	require.NoError(t, b.Write([]string{"theirs"}))

	c := recv(t, fromA)
	assert.JSONEq(t, `["theirs"]`, string(c.Value))
	assert.Equal(t, []string{"theirs"}, a.Read(nil))
}

func TestUnsubscribe(t *testing.T) {
	s, _ := testStore(t)
	cancel := s.Subscribe("", func(Change) {})
	assert.Equal(t, 1, s.Subscribers())
	cancel()
	cancel()
	assert.Equal(t, 0, s.Subscribers())
}

func TestRun_PublishesExternalChanges(t *testing.T) {
	s, fs := testStore(t)
	require.NoError(t, Write(s, "galaxyTabSettings", map[string]any{"v": 1}))

	ch := make(chan Change, 4)
	s.Subscribe("galaxyTabSettings", func(c Change) {
		if c.External {
			ch <- c
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	// A second process sharing the directory.
	other, err := NewFS(fs.Root())
	require.NoError(t, err)
	require.NoError(t, other.Set("galaxyTabSettings", []byte(`{"v":2}`)))

	c := recv(t, ch)
	assert.True(t, c.External)
	assert.JSONEq(t, `{"v":2}`, string(c.Value))
}

func TestExternal_IgnoresEchoOfOwnWrite(t *testing.T) {
	s, _ := testStore(t)
	require.NoError(t, Write(s, "k", "same"))

	ch := make(chan Change, 4)
	s.Subscribe("k", func(c Change) { ch <- c })
	s.external("k")

	select {
	case c := <-ch:
		t.Fatalf("echo should be filtered, got %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestExternal_Removal(t *testing.T) {
	s, fs := testStore(t)
	require.NoError(t, Write(s, "k", "v"))
	ch := make(chan Change, 4)
	s.Subscribe("k", func(c Change) { ch <- c })

	require.NoError(t, fs.Delete("k"))
	s.external("k")

	c := recv(t, ch)
	assert.True(t, c.External)
	assert.Nil(t, c.Value)
}
