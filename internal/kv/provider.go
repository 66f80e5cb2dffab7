// Package kv is the durable key/value layer behind the settings and link stores.
//
// A Provider holds raw bytes per key. Store adds typed, parse-safe access on top
// of a Provider, an in-process change notifier, and (through Run) a watcher that
// turns writes made by other processes into change notifications.
package kv

import (
	"context"
	"fmt"
	"regexp"
)

// Provider is the interface for a durable, per-key storage medium.
type Provider interface {
	// Get returns the stored bytes for key, or an error wrapping apperr.ErrNotFound.
	Get(key string) ([]byte, error)
	// Set replaces the value stored under key. A failed Set leaves the prior value intact.
	Set(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Keys returns every stored key.
	Keys() ([]string, error)
	// Close releases the medium.
	Close() error
}

// Watcher is implemented by providers that can observe writes made outside
// this process. Watch blocks until ctx is cancelled, calling fn with the key of
// every entry that may have changed.
type Watcher interface {
	Watch(ctx context.Context, fn func(key string)) error
}

var keyRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func validateKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("kv: invalid key %q", key)
	}
	return nil
}
