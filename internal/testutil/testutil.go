// Package testutil provides shared test helpers for setting up storage.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/starford/galaxytab/internal/kv"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// KV creates a kv.Store over a temporary directory. The store is closed when
// the test ends.
func KV(t *testing.T) (*kv.Store, *kv.FS) {
	t.Helper()
	fs, err := kv.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store := kv.New(fs, Logger())
	t.Cleanup(store.Close)
	return store, fs
}

// ShareKV opens a second kv.Store over the same directory as fs, standing in
// for another process.
func ShareKV(t *testing.T, fs *kv.FS) *kv.Store {
	t.Helper()
	other, err := kv.NewFS(fs.Root())
	if err != nil {
		t.Fatal(err)
	}
	store := kv.New(other, Logger())
	t.Cleanup(store.Close)
	return store
}
