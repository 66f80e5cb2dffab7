package kv

import (
	"sync/atomic"
)

// Change describes a write to one key.
type Change struct {
	Key string
	// Value is the raw stored value; nil when the key was removed.
	Value []byte
	// Origin identifies the in-process writer (see Entry). Zero for anonymous
	// writes and for external changes.
	Origin uint64
	// External is true when the write happened outside this process.
	External bool
}

// Listener receives changes. Listeners run on the notifier goroutine and must
// not call Subscribe or Unsubscribe.
type Listener func(Change)

type subscription struct {
	id  uint64
	key string // empty matches every key
	fn  Listener
}

// notifier delivers changes to listeners in publish order.
//
// A single internal loop owns the subscription table; public methods talk to
// it through channels, so no mutexes are required.
type notifier struct {
	subscribeCh   chan subscription
	unsubscribeCh chan uint64
	publishCh     chan Change
	countReqCh    chan chan int

	nextID  atomic.Uint64
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

func newNotifier() *notifier {
	n := &notifier{
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan uint64),
		publishCh:     make(chan Change, 1024),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *notifier) run() {
	defer close(n.stopped)

	subs := make(map[uint64]subscription)

	for {
		select {
		case <-n.stopCh:
			return

		case s := <-n.subscribeCh:
			subs[s.id] = s

		case id := <-n.unsubscribeCh:
			delete(subs, id)

		case c := <-n.publishCh:
			for _, s := range subs {
				if s.key == "" || s.key == c.Key {
					s.fn(c)
				}
			}

		case resp := <-n.countReqCh:
			resp <- len(subs)
		}
	}
}

func (n *notifier) close() {
	if n.closed.CompareAndSwap(false, true) {
		close(n.stopCh)
	}
	<-n.stopped
}

func (n *notifier) subscribe(key string, fn Listener) func() {
	if n.closed.Load() {
		return func() {}
	}
	s := subscription{id: n.nextID.Add(1), key: key, fn: fn}
	select {
	case n.subscribeCh <- s:
	case <-n.stopped:
		return func() {}
	}

	var once atomic.Bool
	return func() {
		if !once.CompareAndSwap(false, true) || n.closed.Load() {
			return
		}
		select {
		case n.unsubscribeCh <- s.id:
		case <-n.stopped:
		}
	}
}

func (n *notifier) publish(c Change) {
	if n.closed.Load() {
		return
	}
	select {
	case n.publishCh <- c:
	case <-n.stopped:
	}
}

func (n *notifier) count() int {
	if n.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case n.countReqCh <- resp:
	case <-n.stopped:
		return 0
	}
	select {
	case c := <-resp:
		return c
	case <-n.stopped:
		return 0
	}
}
