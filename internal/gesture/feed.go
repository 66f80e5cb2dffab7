package gesture

import "sync"

// Feed is an in-process Source. Events passed to Emit go to every attached
// listener in attach order.
type Feed struct {
	mu        sync.Mutex
	listeners []*listener
}

type listener struct {
	fn func(Event)
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{}
}

// Listen implements Source.
func (f *Feed) Listen(fn func(Event)) func() {
	l := &listener{fn: fn}
	f.mu.Lock()
	f.listeners = append(f.listeners, l)
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			for i, x := range f.listeners {
				if x == l {
					f.listeners = append(f.listeners[:i:i], f.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Emit delivers e synchronously.
func (f *Feed) Emit(e Event) {
	f.mu.Lock()
	ls := make([]*listener, len(f.listeners))
	copy(ls, f.listeners)
	f.mu.Unlock()
	for _, l := range ls {
		l.fn(e)
	}
}

// Listeners returns the number of attached listeners.
func (f *Feed) Listeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}
