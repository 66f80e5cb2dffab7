package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/starford/galaxytab/internal/apperr"
	"github.com/starford/galaxytab/internal/checksum"
)

// Store provides typed, parse-safe access to a Provider and publishes a
// Change after every successful write.
type Store struct {
	provider Provider
	logger   *slog.Logger
	notes    *notifier
	origins  atomic.Uint64

	mu    sync.Mutex
	known map[string]string // key -> checksum of the last value this process read or wrote
}

// New wraps provider. The returned Store must be closed to stop its notifier.
func New(provider Provider, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		provider: provider,
		logger:   logger.With(slog.String("component", "kv")),
		notes:    newNotifier(),
		known:    make(map[string]string),
	}
}

// Provider returns the underlying storage medium.
func (s *Store) Provider() Provider { return s.provider }

// Close stops change delivery. It does not close the provider.
func (s *Store) Close() {
	s.notes.close()
}

// Subscribe registers fn for changes to key ("" for every key) and returns a
// function that removes the subscription.
func (s *Store) Subscribe(key string, fn Listener) func() {
	return s.notes.subscribe(key, fn)
}

// Subscribers reports the number of registered listeners.
func (s *Store) Subscribers() int { return s.notes.count() }

// Read decodes the JSON value stored under key. A missing, null or unparsable
// value yields fallback; problems are logged, never returned.
func Read[T any](s *Store, key string, fallback T) T {
	raw, ok := s.readRaw(key)
	if !ok {
		return fallback
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return fallback
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		s.logger.Warn("error reading key, using fallback",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return fallback
	}
	return v
}

// Write JSON-encodes value and stores it under key. On failure the previous
// stored value is left untouched, a warning is logged and the error returned.
func Write[T any](s *Store, key string, value T) error {
	return s.write(key, value, 0)
}

// ReadString returns the bare string stored under key.
func (s *Store) ReadString(key string) (string, bool) {
	raw, ok := s.readRaw(key)
	if !ok {
		return "", false
	}
	return string(raw), true
}

// WriteString stores value under key without JSON encoding.
func (s *Store) WriteString(key, value string) error {
	return s.put(key, []byte(value), 0)
}

func (s *Store) readRaw(key string) ([]byte, bool) {
	raw, err := s.provider.Get(key)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn("error reading key",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
		return nil, false
	}
	s.remember(key, raw)
	return raw, true
}

func (s *Store) write(key string, value any, origin uint64) error {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("error encoding key",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return fmt.Errorf("kv: encode %s: %w", key, err)
	}
	return s.put(key, raw, origin)
}

func (s *Store) put(key string, raw []byte, origin uint64) error {
	if err := s.provider.Set(key, raw); err != nil {
		s.logger.Warn("error setting key",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return err
	}
	s.remember(key, raw)
	s.notes.publish(Change{Key: key, Value: raw, Origin: origin})
	return nil
}

func (s *Store) remember(key string, raw []byte) {
	s.mu.Lock()
	s.known[key] = checksum.Sum(raw)
	s.mu.Unlock()
}

// Run forwards changes made outside this process as external Changes until
// ctx is cancelled. Providers that cannot watch make Run block until ctx ends.
func (s *Store) Run(ctx context.Context) error {
	w, ok := s.provider.(Watcher)
	if !ok {
		<-ctx.Done()
		return nil
	}
	s.logger.Info("watcher: started")
	defer s.logger.Info("watcher: stopped")
	return w.Watch(ctx, s.external)
}

// external re-reads key and publishes it unless the content matches what this
// process last saw, which filters out the echo of our own writes.
func (s *Store) external(key string) {
	raw, err := s.provider.Get(key)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		s.logger.Warn("watcher: read failed", slog.String("key", key), slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	prev, had := s.known[key]
	if raw == nil {
		if !had {
			s.mu.Unlock()
			return
		}
		delete(s.known, key)
	} else {
		sum := checksum.Sum(raw)
		if had && prev == sum {
			s.mu.Unlock()
			return
		}
		s.known[key] = sum
	}
	s.mu.Unlock()

	s.logger.Debug("watcher: external change", slog.String("key", key))
	s.notes.publish(Change{Key: key, Value: raw, External: true})
}
