// Package links holds the ordered, persisted collection of dashboard links.
//
// The collection stores exactly what it is given: URL normalisation, sorting
// and pagination belong to the caller.
package links

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/galaxytab/internal/apperr"
	"github.com/starford/galaxytab/internal/kv"
	"github.com/starford/galaxytab/internal/models"
)

// Key is the storage key of the persisted link array.
const Key = "galaxyTabLinks"

// Seed returns the links a first run starts with.
func Seed() []models.Link {
	return []models.Link{
		{ID: "1", Title: "Liquid Galaxy", URL: "https://liquidgalaxy.org", Icon: "🌌", Category: "main"},
		{ID: "2", Title: "GitHub", URL: "https://github.com", Icon: "💻", Category: "dev"},
		{ID: "3", Title: "Google", URL: "https://google.com", Icon: "🔍", Category: "main"},
	}
}

// Collection is the ordered link list. Insertion order is the display order
// unless the caller sorts.
type Collection struct {
	// mu guards items, subs and the notification queue. Subscribers run
	// without mu held, in commit order.
	mu sync.Mutex

	entry    *kv.Entry[[]models.Link]
	items    []models.Link
	logger   *slog.Logger
	subs     map[uint64]func([]models.Link)
	nextSub  uint64
	pending  [][]models.Link
	draining bool
	unwatch  func()
}

// New loads the collection. When nothing has been stored yet the seed links
// are installed and persisted.
func New(store *kv.Store, logger *slog.Logger) *Collection {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Collection{
		entry:  kv.NewEntry[[]models.Link](store, Key),
		logger: logger.With(slog.String("component", "links")),
		subs:   make(map[uint64]func([]models.Link)),
	}
	c.items = c.entry.Read(nil)
	if c.items == nil {
		c.items = Seed()
		_ = c.entry.Write(c.items)
	}
	c.unwatch = c.entry.Subscribe(c.onChange)
	return c
}

// Close stops following external changes.
func (c *Collection) Close() {
	if c.unwatch != nil {
		c.unwatch()
	}
}

// List returns a copy of the collection in stored order.
func (c *Collection) List() []models.Link {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Len returns the number of links.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Get returns the link with id.
func (c *Collection) Get(id string) (models.Link, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return models.Link{}, fmt.Errorf("links: %s: %w", id, apperr.ErrNotFound)
	}
	return c.items[i], nil
}

// Add appends a link built from draft under a fresh id and persists the
// collection.
func (c *Collection) Add(draft models.LinkDraft) models.Link {
	link := models.Link{
		ID:       newID(),
		Title:    draft.Title,
		URL:      draft.URL,
		Icon:     draft.Icon,
		Category: draft.Category,
	}
	c.mu.Lock()
	next := append(slices.Clone(c.items), link)
	c.commitLocked(next)
	return link
}

// Remove deletes the link with id. An unknown id is a no-op.
func (c *Collection) Remove(id string) bool {
	c.mu.Lock()
	i := c.index(id)
	if i < 0 {
		c.mu.Unlock()
		return false
	}
	c.commitLocked(slices.Delete(slices.Clone(c.items), i, i+1))
	return true
}

// Edit merges patch into the link with id, leaving every other link alone.
// An unknown id is a no-op and reports false.
func (c *Collection) Edit(id string, patch models.LinkPatch) (models.Link, bool) {
	return c.modify(id, patch.Apply)
}

// RecordClick increments the click counter used by the most-used ordering.
func (c *Collection) RecordClick(id string) (models.Link, bool) {
	return c.modify(id, func(l models.Link) models.Link {
		l.ClickCount++
		return l
	})
}

func (c *Collection) modify(id string, fn func(models.Link) models.Link) (models.Link, bool) {
	c.mu.Lock()
	i := c.index(id)
	if i < 0 {
		c.mu.Unlock()
		return models.Link{}, false
	}
	next := slices.Clone(c.items)
	next[i] = fn(next[i])
	next[i].ID = id
	updated := next[i]
	c.commitLocked(next)
	return updated, true
}

// Subscribe registers fn to receive the collection after every change and
// returns a function that removes it. fn runs without the collection locked
// and may read it.
func (c *Collection) Subscribe(fn func([]models.Link)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	id := c.nextSub
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Collection) index(id string) int {
	return slices.IndexFunc(c.items, func(l models.Link) bool { return l.ID == id })
}

// commitLocked installs next and persists it under mu, then releases mu and
// notifies subscribers in mutation order. A failed write is logged by kv and
// the in-memory list keeps the change.
func (c *Collection) commitLocked(next []models.Link) {
	c.items = next
	_ = c.entry.Write(next)
	c.publishLocked(slices.Clone(next))
}

// publishLocked queues next and releases mu. The first goroutine to find the
// queue idle drains it, calling subscribers without mu.
func (c *Collection) publishLocked(next []models.Link) {
	c.pending = append(c.pending, next)
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true
	for len(c.pending) > 0 {
		batch := c.pending
		c.pending = nil
		subs := make([]func([]models.Link), 0, len(c.subs))
		for _, fn := range c.subs {
			subs = append(subs, fn)
		}
		c.mu.Unlock()
		for _, items := range batch {
			for _, fn := range subs {
				fn(slices.Clone(items))
			}
		}
		c.mu.Lock()
	}
	c.draining = false
	c.mu.Unlock()
}

// onChange follows writes made by other instances or processes. The list is
// re-read from storage under mu so a late delivery cannot overwrite a newer
// local write. A removed or unparsable value reads as the seed links, the same
// as on a first run.
func (c *Collection) onChange(ch kv.Change) {
	c.mu.Lock()
	next := c.entry.Read(nil)
	if next == nil {
		next = Seed()
	}
	if slices.Equal(next, c.items) {
		c.mu.Unlock()
		return
	}
	c.items = next
	c.logger.Debug("links reloaded", slog.Int("count", len(next)), slog.Bool("external", ch.External))
	c.publishLocked(slices.Clone(next))
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
