package kv

// Entry is a typed accessor bound to one key. Each Entry has its own origin,
// so its subscribers hear about writes from every other writer (other entries
// in this process, anonymous writes, other processes) but not its own.
type Entry[T any] struct {
	store  *Store
	key    string
	origin uint64
}

// NewEntry returns an accessor for key.
func NewEntry[T any](s *Store, key string) *Entry[T] {
	return &Entry[T]{store: s, key: key, origin: s.origins.Add(1)}
}

// Key returns the key the entry is bound to.
func (e *Entry[T]) Key() string { return e.key }

// Read returns the stored value, or fallback when absent or unparsable.
func (e *Entry[T]) Read(fallback T) T {
	return Read(e.store, e.key, fallback)
}

// Write persists value.
func (e *Entry[T]) Write(value T) error {
	return e.store.write(e.key, value, e.origin)
}

// Subscribe registers fn for changes to the entry's key made by anyone else.
func (e *Entry[T]) Subscribe(fn Listener) func() {
	return e.store.Subscribe(e.key, func(c Change) {
		if c.Origin == e.origin {
			return
		}
		fn(c)
	})
}
