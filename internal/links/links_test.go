package links

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/galaxytab/internal/apperr"
	"github.com/starford/galaxytab/internal/kv"
	"github.com/starford/galaxytab/internal/models"
	"github.com/starford/galaxytab/internal/testutil"
)

func newCollection(t *testing.T) (*Collection, *kv.Store) {
	t.Helper()
	store, _ := testutil.KV(t)
	c := New(store, testutil.Logger())
	t.Cleanup(c.Close)
	return c, store
}

func strPtr(s string) *string { return &s }

func TestNew_SeedsFirstRun(t *testing.T) {
	c, store := newCollection(t)
	assert.Equal(t, Seed(), c.List())
	assert.Equal(t, Seed(), kv.Read[[]models.Link](store, Key, nil))
}

func TestNew_KeepsEmptyCollection(t *testing.T) {
	store, _ := testutil.KV(t)
	require.NoError(t, kv.Write(store, Key, []models.Link{}))
	c := New(store, testutil.Logger())
	defer c.Close()
	assert.Empty(t, c.List())
}

func TestAdd_PreservesLiteralURL(t *testing.T) {
	c, store := newCollection(t)
	link := c.Add(models.LinkDraft{Title: "X", URL: "example.com", Icon: "🔗", Category: "main"})

	assert.NotEmpty(t, link.ID)
	list := c.List()
	require.Len(t, list, 4)
	assert.Equal(t, link, list[3], "appended at the end")
	assert.Equal(t, "example.com", list[3].URL)

	stored := kv.Read[[]models.Link](store, Key, nil)
	assert.Equal(t, list, stored)
}

func TestAdd_UniqueIDs(t *testing.T) {
	c, _ := newCollection(t)
	seen := map[string]bool{}
	for range 50 {
		l := c.Add(models.LinkDraft{Title: "t", URL: "https://t.example"})
		assert.False(t, seen[l.ID], "duplicate id %s", l.ID)
		seen[l.ID] = true
	}
}

func TestRemove(t *testing.T) {
	c, _ := newCollection(t)
	assert.True(t, c.Remove("2"))
	ids := []string{}
	for _, l := range c.List() {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"1", "3"}, ids)

	assert.False(t, c.Remove("missing"))
	assert.Len(t, c.List(), 2)
}

func TestEdit(t *testing.T) {
	c, _ := newCollection(t)
	before := c.List()

	got, ok := c.Edit("3", models.LinkPatch{Title: strPtr("Search"), Icon: strPtr("🔎")})
	require.True(t, ok)
	assert.Equal(t, models.Link{ID: "3", Title: "Search", URL: "https://google.com", Icon: "🔎", Category: "main"}, got)

	after := c.List()
	assert.Equal(t, before[:2], after[:2])
	assert.Equal(t, got, after[2])

	_, ok = c.Edit("nope", models.LinkPatch{Title: strPtr("x")})
	assert.False(t, ok)
	assert.Equal(t, after, c.List())
}

func TestGet(t *testing.T) {
	c, _ := newCollection(t)
	l, err := c.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "Liquid Galaxy", l.Title)

	_, err = c.Get("x")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRecordClick(t *testing.T) {
	c, _ := newCollection(t)
	c.RecordClick("2")
	l, ok := c.RecordClick("2")
	require.True(t, ok)
	assert.Equal(t, 2, l.ClickCount)

	_, ok = c.RecordClick("x")
	assert.False(t, ok)
}

func TestSubscribe(t *testing.T) {
	c, _ := newCollection(t)
	var got [][]models.Link
	cancel := c.Subscribe(func(l []models.Link) { got = append(got, l) })

	c.Add(models.LinkDraft{Title: "a", URL: "https://a.example"})
	c.Remove("1")
	c.Remove("1") // no-op, no notification
	cancel()
	c.Remove("2")

	require.Len(t, got, 2)
	assert.Len(t, got[0], 4)
	assert.Len(t, got[1], 3)
}

func TestOtherInstanceChangesReload(t *testing.T) {
	store, _ := testutil.KV(t)
	a := New(store, testutil.Logger())
	defer a.Close()
	b := New(store, testutil.Logger())
	defer b.Close()

	changed := make(chan []models.Link, 1)
	a.Subscribe(func(l []models.Link) { changed <- l })

	b.Remove("1")

	select {
	case l := <-changed:
		assert.Len(t, l, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
	assert.Len(t, a.List(), 2)
}

func TestConcurrentMutations_SubscriberMayReadCollection(t *testing.T) {
	c, _ := newCollection(t)

	var (
		mu        sync.Mutex
		delivered int
	)
	c.Subscribe(func([]models.Link) {
		_ = c.List()
		_ = c.Len()
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	const workers, perWorker = 8, 50
	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					c.RecordClick("1")
				}
			}()
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("concurrent mutations did not complete")
	}

	l, err := c.Get("1")
	require.NoError(t, err)
	assert.Equal(t, workers*perWorker, l.ClickCount)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, workers*perWorker, delivered)
}

// failingProvider reads through to the wrapped provider and rejects writes.
type failingProvider struct {
	kv.Provider
}

func (failingProvider) Set(string, []byte) error { return errors.New("quota exceeded") }

func TestAdd_WriteFailureKeepsInMemoryChange(t *testing.T) {
	_, fs := testutil.KV(t)
	seed, err := json.Marshal(Seed())
	require.NoError(t, err)
	require.NoError(t, fs.Set(Key, seed))

	store := kv.New(failingProvider{Provider: fs}, testutil.Logger())
	t.Cleanup(store.Close)
	c := New(store, testutil.Logger())
	defer c.Close()

	link := c.Add(models.LinkDraft{Title: "X", URL: "https://x.example"})

	assert.Equal(t, 4, c.Len())
	_, err = c.Get(link.ID)
	assert.NoError(t, err)

	raw, err := fs.Get(Key)
	require.NoError(t, err)
	assert.JSONEq(t, string(seed), string(raw))
}

func TestOnChange_StaleDeliveryDoesNotRollBack(t *testing.T) {
	c, _ := newCollection(t)
	stale, err := json.Marshal(Seed()[:1])
	require.NoError(t, err)

	c.Add(models.LinkDraft{Title: "new", URL: "https://n.example"})
	c.onChange(kv.Change{Key: Key, Value: stale})

	assert.Equal(t, 4, c.Len())
}
