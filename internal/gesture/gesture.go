// Package gesture turns raw pointer and touch events into logical gestures
// and resolves them to action ids through the gesture settings.
//
// The recognizer never knows what an action does: it hands the action id to a
// Handler and the consumer decides.
package gesture

import (
	"log/slog"
	"sync"
	"time"

	"github.com/starford/galaxytab/internal/settings"
)

// Recognition thresholds.
const (
	DoubleClickWindow = 300 * time.Millisecond
	MinSwipeDistance  = 100.0
)

// Kind is a recognised gesture.
type Kind string

// Gesture kinds.
const (
	DoubleClick Kind = "double-click"
	SwipeLeft   Kind = "swipe-left"
	SwipeRight  Kind = "swipe-right"
)

// EventType is the raw event type.
type EventType string

// Raw event types.
const (
	Click      EventType = "click"
	TouchStart EventType = "touchstart"
	TouchEnd   EventType = "touchend"
)

// Event is one raw input event. X is the horizontal screen coordinate of the
// touch; Button is the mouse button of a click, 0 being primary.
type Event struct {
	Type   EventType `json:"type"`
	X      float64   `json:"x,omitempty"`
	At     time.Time `json:"at"`
	Button int       `json:"button,omitempty"`
}

// Action is a recognised gesture resolved to its configured action id.
type Action struct {
	Kind   Kind   `json:"kind"`
	Action string `json:"action"`
}

// Handler receives recognised gestures.
type Handler func(kind Kind, action string)

// Source delivers raw events to listeners. Listen returns a function that
// detaches fn.
type Source interface {
	Listen(fn func(Event)) func()
}

// machine is the per-attachment recognition state.
type machine struct {
	lastClick time.Time
	touchX    float64
	touching  bool
}

// step feeds one event and returns the gesture it completes, if any.
func (m *machine) step(e Event) (Kind, bool) {
	switch e.Type {
	case Click:
		if e.Button != 0 {
			return "", false
		}
		if !m.lastClick.IsZero() && e.At.Sub(m.lastClick) < DoubleClickWindow {
			// A third click inside the window starts over.
			m.lastClick = time.Time{}
			return DoubleClick, true
		}
		m.lastClick = e.At
	case TouchStart:
		m.touchX = e.X
		m.touching = true
	case TouchEnd:
		if !m.touching {
			return "", false
		}
		m.touching = false
		dx := e.X - m.touchX
		switch {
		case dx <= -MinSwipeDistance:
			return SwipeLeft, true
		case dx >= MinSwipeDistance:
			return SwipeRight, true
		}
	}
	return "", false
}

// ActionFor returns the action id configured for kind.
func ActionFor(g settings.Gestures, kind Kind) string {
	switch kind {
	case DoubleClick:
		return g.DoubleClickAction
	case SwipeLeft:
		return g.SwipeLeftAction
	case SwipeRight:
		return g.SwipeRightAction
	}
	return ""
}

// Classify runs events through a fresh recognizer configured with g and
// returns the resulting actions. Disabled gestures yield nothing, and so do
// gestures whose action id is empty.
func Classify(events []Event, g settings.Gestures) []Action {
	out := []Action{}
	if !g.Enabled {
		return out
	}
	var m machine
	for _, e := range events {
		kind, ok := m.step(e)
		if !ok {
			continue
		}
		if action := ActionFor(g, kind); action != "" {
			out = append(out, Action{Kind: kind, Action: action})
		}
	}
	return out
}

// Recognizer listens to a Source while gestures are enabled and calls the
// handler for every recognised gesture.
type Recognizer struct {
	mu      sync.Mutex
	source  Source
	handler Handler
	logger  *slog.Logger

	cfg        settings.Gestures
	state      machine
	detach     func()
	gen        uint64
	unbind     func()
	configured bool
}

// New returns a detached recognizer. Call Configure or Bind to attach it.
func New(source Source, handler Handler, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recognizer{
		source:  source,
		handler: handler,
		logger:  logger.With(slog.String("component", "gesture")),
	}
}

// Configure installs g: listeners are detached, the recognition state is
// cleared and, when g.Enabled, listeners are attached again.
func (r *Recognizer) Configure(g settings.Gestures) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configureLocked(g)
}

func (r *Recognizer) configureLocked(g settings.Gestures) {
	if r.detach != nil {
		r.detach()
		r.detach = nil
	}
	r.gen++
	r.cfg = g
	r.configured = true
	r.state = machine{}
	if !g.Enabled {
		r.logger.Debug("gestures disabled")
		return
	}
	gen := r.gen
	r.detach = r.source.Listen(func(e Event) { r.handle(gen, e) })
	r.logger.Debug("gestures attached",
		slog.String("double_click", g.DoubleClickAction),
		slog.String("swipe_left", g.SwipeLeftAction),
		slog.String("swipe_right", g.SwipeRightAction))
}

// Bind configures the recognizer from store and follows later changes to the
// gesture settings. Changes to other sections leave the recognizer alone.
func (r *Recognizer) Bind(store *settings.Store) {
	unsub := store.Subscribe(func(rev settings.Revision) {
		g := rev.Settings.Gestures()
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.configured && g == r.cfg {
			return
		}
		r.configureLocked(g)
	})
	r.mu.Lock()
	if r.unbind != nil {
		r.unbind()
	}
	r.unbind = unsub
	r.mu.Unlock()
	r.Configure(store.Snapshot().Gestures())
}

func (r *Recognizer) handle(gen uint64, e Event) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return
	}
	kind, ok := r.state.step(e)
	action := ActionFor(r.cfg, kind)
	r.mu.Unlock()

	if !ok || action == "" || r.handler == nil {
		return
	}
	r.handler(kind, action)
}

// Attached reports whether the recognizer is listening.
func (r *Recognizer) Attached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.detach != nil
}

// Close detaches from the source and stops following settings.
func (r *Recognizer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unbind != nil {
		r.unbind()
		r.unbind = nil
	}
	if r.detach != nil {
		r.detach()
		r.detach = nil
	}
	r.gen++
}
