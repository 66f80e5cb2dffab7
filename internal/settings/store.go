package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/galaxytab/internal/apperr"
	"github.com/starford/galaxytab/internal/checksum"
	"github.com/starford/galaxytab/internal/kv"
)

// Applier projects settings onto the presentation environment. Apply must be
// idempotent and must not panic.
type Applier interface {
	Apply(Settings)
}

// ApplierFunc adapts a function to Applier.
type ApplierFunc func(Settings)

// Apply calls f(s).
func (f ApplierFunc) Apply(s Settings) { f(s) }

// Revision is a settings snapshot together with the checksum of that exact
// value.
type Revision struct {
	Settings Settings
	Checksum string
}

// Store owns the canonical settings value. Consumers get snapshots and go
// through Update/Reset to mutate.
type Store struct {
	// mu guards current, subs and the notification queue. Subscribers run
	// without mu held, one revision at a time in commit order.
	mu sync.Mutex

	kv       *kv.Store
	entry    *kv.Entry[Settings]
	defaults Settings
	current  Settings
	applier  Applier
	logger   *slog.Logger

	subs     map[uint64]func(Revision)
	nextSub  uint64
	pending  []Revision
	draining bool
	unwatch  func()
}

// New builds the store: it reads the persisted settings, fills anything
// missing from the defaults, applies side effects and starts following
// changes written by other instances.
func New(store *kv.Store, applier Applier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		kv:       store,
		entry:    kv.NewEntry[Settings](store, Key),
		defaults: Defaults(),
		applier:  applier,
		logger:   logger.With(slog.String("component", "settings")),
		subs:     make(map[uint64]func(Revision)),
	}
	s.initialize()
	s.unwatch = s.entry.Subscribe(s.onChange)
	return s
}

func (s *Store) initialize() {
	stored := s.entry.Read(nil)
	s.current = deepMerge(s.defaults, stored)
	s.apply(s.current)
}

// Close stops following external changes.
func (s *Store) Close() {
	if s.unwatch != nil {
		s.unwatch()
	}
}

// Defaults returns a copy of the defaults this store merges against.
func (s *Store) Defaults() Settings { return s.defaults.Clone() }

// Snapshot returns a deep copy of the current settings.
func (s *Store) Snapshot() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Checksum returns the SHA-256 of the canonical JSON encoding of the current
// settings. Callers pass it back to UpdateIfMatch for optimistic concurrency.
func (s *Store) Checksum() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return checksumOf(s.current)
}

// Current returns a snapshot and its checksum read under one lock.
func (s *Store) Current() Revision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Revision{Settings: s.current.Clone(), Checksum: checksumOf(s.current)}
}

func checksumOf(v Settings) string {
	raw, _ := json.Marshal(v)
	return checksum.Sum(raw)
}

// Update shallow-merges patch into section: top-level keys of patch replace
// the section's keys, and an object value replaces the existing object
// wholesale. Unknown sections are created. The full settings value is then
// persisted, side effects applied and subscribers notified.
func (s *Store) Update(section string, patch Section) Settings {
	s.mu.Lock()
	return s.commitLocked(s.patched(section, patch)).Settings
}

// UpdateIfMatch is Update guarded by the checksum the caller last saw. An
// empty ifMatch skips the check.
func (s *Store) UpdateIfMatch(section string, patch Section, ifMatch string) (Revision, error) {
	s.mu.Lock()
	if ifMatch != "" && ifMatch != checksumOf(s.current) {
		s.mu.Unlock()
		return Revision{}, fmt.Errorf("settings: update %s: %w", section, apperr.ErrConflict)
	}
	return s.commitLocked(s.patched(section, patch)), nil
}

// Replace installs a whole settings value at once, as the settings panel does
// on save. Fields missing from next are filled from the defaults.
func (s *Store) Replace(next Settings) Settings {
	s.mu.Lock()
	return s.commitLocked(deepMerge(s.defaults, next)).Settings
}

// ReplaceIfMatch is Replace guarded by the checksum the caller last saw. An
// empty ifMatch skips the check.
func (s *Store) ReplaceIfMatch(next Settings, ifMatch string) (Revision, error) {
	s.mu.Lock()
	if ifMatch != "" && ifMatch != checksumOf(s.current) {
		s.mu.Unlock()
		return Revision{}, fmt.Errorf("settings: replace: %w", apperr.ErrConflict)
	}
	return s.commitLocked(deepMerge(s.defaults, next)), nil
}

// Reset restores the defaults.
func (s *Store) Reset() Revision {
	s.mu.Lock()
	return s.commitLocked(s.defaults.Clone())
}

// patched returns a copy of current with patch merged into section.
// Callers hold mu.
func (s *Store) patched(section string, patch Section) Settings {
	next := s.current.Clone()
	merged := next[section]
	if merged == nil {
		merged = Section{}
	}
	for k, v := range patch {
		merged[k] = cloneValue(v)
	}
	next[section] = merged
	return next
}

// commitLocked installs next, persists it and applies side effects while
// holding mu, then releases mu and notifies subscribers. A failed write is
// logged by kv; the in-memory value still changes and simply won't outlive
// this process.
func (s *Store) commitLocked(next Settings) Revision {
	s.current = next
	_ = s.entry.Write(next)
	s.apply(next)
	rev := Revision{Settings: next.Clone(), Checksum: checksumOf(next)}
	s.publishLocked(rev)
	return Revision{Settings: rev.Settings.Clone(), Checksum: rev.Checksum}
}

// publishLocked queues rev and releases mu. If no other goroutine is
// delivering, the caller drains the queue itself, running subscribers without
// mu so they may read the store. Revisions are delivered in commit order.
func (s *Store) publishLocked(rev Revision) {
	s.pending = append(s.pending, rev)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.pending) > 0 {
		batch := s.pending
		s.pending = nil
		subs := make([]func(Revision), 0, len(s.subs))
		for _, fn := range s.subs {
			subs = append(subs, fn)
		}
		s.mu.Unlock()
		for _, r := range batch {
			for _, fn := range subs {
				fn(Revision{Settings: r.Settings.Clone(), Checksum: r.Checksum})
			}
		}
		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}

func (s *Store) apply(v Settings) {
	if s.applier == nil {
		return
	}
	s.applier.Apply(v.Clone())
}

// onChange follows writes to the settings key made by other instances or
// processes. The value is re-read from storage under mu rather than taken from
// the change, so a late delivery cannot roll current back past a newer write.
// The result is re-merged with the defaults, applied and published, but not
// written back.
func (s *Store) onChange(c kv.Change) {
	s.mu.Lock()
	stored := s.entry.Read(nil)
	next := deepMerge(s.defaults, stored)
	sum := checksumOf(next)
	if sum == checksumOf(s.current) {
		s.mu.Unlock()
		return
	}
	s.current = next
	s.apply(next)
	s.logger.Debug("settings reloaded", slog.Bool("external", c.External))
	s.publishLocked(Revision{Settings: next.Clone(), Checksum: sum})
}

// Subscribe registers fn to receive a revision after every change and
// returns a function that removes it. fn runs without the store locked and may
// read it; a mutation made from fn is delivered after fn returns.
func (s *Store) Subscribe(fn func(Revision)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Export returns the current settings as indented JSON.
func (s *Store) Export() ([]byte, error) {
	return json.MarshalIndent(s.Snapshot(), "", "  ")
}
