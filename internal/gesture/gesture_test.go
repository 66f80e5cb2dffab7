package gesture

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/galaxytab/internal/settings"
	"github.com/starford/galaxytab/internal/testutil"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func defaults() settings.Gestures { return settings.Defaults().Gestures() }

func click(ms int) Event {
	return Event{Type: Click, At: t0.Add(time.Duration(ms) * time.Millisecond)}
}

func swipe(from, to float64) []Event {
	return []Event{{Type: TouchStart, X: from, At: t0}, {Type: TouchEnd, X: to, At: t0}}
}

type calls struct {
	mu  sync.Mutex
	got []Action
}

func (c *calls) handle(kind Kind, action string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, Action{Kind: kind, Action: action})
}

func (c *calls) list() []Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Action(nil), c.got...)
}

func TestClassify_DoubleClickWindow(t *testing.T) {
	g := defaults()
	assert.Equal(t, []Action{{DoubleClick, "open-settings"}}, Classify([]Event{click(0), click(250)}, g))
	assert.Empty(t, Classify([]Event{click(0), click(400)}, g))
	assert.Empty(t, Classify([]Event{click(0), click(300)}, g), "window is exclusive")
}

func TestClassify_TripleClickFiresOnce(t *testing.T) {
	got := Classify([]Event{click(0), click(100), click(200)}, defaults())
	assert.Len(t, got, 1)

	got = Classify([]Event{click(0), click(100), click(200), click(250)}, defaults())
	assert.Len(t, got, 2)
}

func TestClassify_SlowClicksSlideBaseline(t *testing.T) {
	got := Classify([]Event{click(0), click(400), click(600)}, defaults())
	assert.Equal(t, []Action{{DoubleClick, "open-settings"}}, got)
}

func TestClassify_SecondaryButtonIgnored(t *testing.T) {
	right := click(100)
	right.Button = 2
	assert.Empty(t, Classify([]Event{click(0), right}, defaults()))
}

func TestClassify_Swipes(t *testing.T) {
	g := defaults()
	assert.Equal(t, []Action{{SwipeRight, "previous-page"}}, Classify(swipe(100, 250), g))
	assert.Equal(t, []Action{{SwipeLeft, "next-page"}}, Classify(swipe(300, 150), g))
	assert.Empty(t, Classify(swipe(100, 150), g))
	assert.Empty(t, Classify(swipe(100, 1), g))
	assert.Equal(t, []Action{{SwipeRight, "previous-page"}}, Classify(swipe(0, 100), g), "threshold is inclusive")
}

func TestClassify_TouchEndWithoutStart(t *testing.T) {
	assert.Empty(t, Classify([]Event{{Type: TouchEnd, X: 500}}, defaults()))
}

func TestClassify_EmptyActionAndDisabled(t *testing.T) {
	g := defaults()
	g.SwipeLeftAction = ""
	assert.Empty(t, Classify(swipe(300, 0), g))

	g = defaults()
	g.Enabled = false
	assert.Empty(t, Classify([]Event{click(0), click(10)}, g))
}

func TestRecognizer_Configure(t *testing.T) {
	feed := NewFeed()
	var c calls
	r := New(feed, c.handle, testutil.Logger())
	defer r.Close()

	assert.Equal(t, 0, feed.Listeners(), "inert until configured")

	r.Configure(defaults())
	assert.True(t, r.Attached())
	assert.Equal(t, 1, feed.Listeners())

	feed.Emit(click(0))
	feed.Emit(click(250))
	for _, e := range swipe(0, 150) {
		feed.Emit(e)
	}
	assert.Equal(t, []Action{{DoubleClick, "open-settings"}, {SwipeRight, "previous-page"}}, c.list())

	g := defaults()
	g.Enabled = false
	r.Configure(g)
	assert.False(t, r.Attached())
	assert.Equal(t, 0, feed.Listeners())
	feed.Emit(click(1000))
	feed.Emit(click(1010))
	assert.Len(t, c.list(), 2)
}

func TestRecognizer_ReconfigureResetsState(t *testing.T) {
	feed := NewFeed()
	var c calls
	r := New(feed, c.handle, testutil.Logger())
	defer r.Close()

	r.Configure(defaults())
	feed.Emit(click(0))
	r.Configure(defaults())
	feed.Emit(click(100))
	assert.Empty(t, c.list())
}

func TestRecognizer_BindFollowsSettings(t *testing.T) {
	kvs, _ := testutil.KV(t)
	store := settings.New(kvs, nil, testutil.Logger())
	defer store.Close()

	feed := NewFeed()
	var c calls
	r := New(feed, c.handle, testutil.Logger())
	defer r.Close()
	r.Bind(store)
	require.True(t, r.Attached())

	store.Update(settings.SectionGestures, settings.Section{"enabled": false})
	assert.False(t, r.Attached())
	assert.Equal(t, 0, feed.Listeners())

	store.Update(settings.SectionGestures, settings.Section{"enabled": true, "doubleClickAction": "new-link"})
	assert.True(t, r.Attached())
	assert.Equal(t, 1, feed.Listeners())

	feed.Emit(click(0))
	feed.Emit(click(200))
	assert.Equal(t, []Action{{DoubleClick, "new-link"}}, c.list())

	// Unrelated sections do not reset a half-finished double click.
	feed.Emit(click(5000))
	store.Update(settings.SectionAppearance, settings.Section{"theme": "light"})
	feed.Emit(click(5100))
	assert.Len(t, c.list(), 2)
}

func TestRecognizer_Close(t *testing.T) {
	feed := NewFeed()
	r := New(feed, nil, testutil.Logger())
	r.Configure(defaults())
	r.Close()
	assert.Equal(t, 0, feed.Listeners())
	feed.Emit(click(0)) // no handler, no panic
}

func TestFeed_CancelIdempotent(t *testing.T) {
	feed := NewFeed()
	var n int
	cancel := feed.Listen(func(Event) { n++ })
	other := feed.Listen(func(Event) {})
	feed.Emit(Event{Type: Click})
	cancel()
	cancel()
	assert.Equal(t, 1, feed.Listeners())
	feed.Emit(Event{Type: Click})
	assert.Equal(t, 1, n)
	other()
	assert.Equal(t, 0, feed.Listeners())
}
