// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package sequencer

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/synthoma/reader/core/chapter"
	"codeberg.org/synthoma/reader/core/requests"
	"codeberg.org/synthoma/reader/core/reveal"
)

const chapterOne = `<html><head><title>One</title></head><body><div class="content">` +
	`<p>Hello.</p>` +
	`<p class="choice" data-tags="A">Left</p>` +
	`<p class="choice" data-tags="B" data-next="two.html">Right</p>` +
	`<p class="choice" data-next="https://example.com/x">Away</p>` +
	`<p class="choice" data-next="#notes">Notes</p>` +
	`<p>After.</p>` +
	`</div></body></html>`

const chapterTwo = `<html><head><title>Two</title></head><body><div class="content">` +
	`<p>The second chapter is a little longer than the first one.</p>` +
	`</div></body></html>`

// loop runs posted work when drained and timer callbacks when advanced.
type loop struct {
	*reveal.ManualScheduler

	queue []func()
	held  []func()
	hold  bool
}

func newLoop() *loop {
	return &loop{ManualScheduler: &reveal.ManualScheduler{}}
}

func (l *loop) Post(fn func()) {
	l.queue = append(l.queue, fn)
}

func (l *loop) Go(fn func()) {
	if l.hold {
		l.held = append(l.held, fn)

		return
	}

	fn()
}

func (l *loop) drain() {
	for len(l.queue) > 0 {
		fn := l.queue[0]
		l.queue = l.queue[1:]
		fn()
	}
}

func (l *loop) release() {
	held := l.held
	l.held = nil

	for _, fn := range held {
		fn()
	}

	l.drain()
}

type pages map[string]string

func (p pages) Fetch(_ context.Context, path string) (string, error) {
	raw, ok := p[path]
	if !ok {
		return "", &requests.FetchError{Path: path, StatusCode: http.StatusNotFound, Err: errors.New("not found")}
	}

	return raw, nil
}

type recorder struct {
	snapshots     []Snapshot
	announcements []string
	navigated     []string
	opened        []string
	scrolled      []string
	tags          []string
	started       int
	stopped       int
}

func (r *recorder) Show(s Snapshot) { r.snapshots = append(r.snapshots, s) }
func (r *recorder) Announce(msg string) { r.announcements = append(r.announcements, msg) }
func (r *recorder) NavigateTo(path string) { r.navigated = append(r.navigated, path) }
func (r *recorder) Open(url string) { r.opened = append(r.opened, url) }
func (r *recorder) Scroll(fragment string) { r.scrolled = append(r.scrolled, fragment) }
func (r *recorder) Increment(tags ...string) { r.tags = append(r.tags, tags...) }
func (r *recorder) Start() { r.started++ }
func (r *recorder) Stop() { r.stopped++ }

func (r *recorder) ReadAll() map[string]int {
	out := map[string]int{}
	for _, t := range r.tags {
		out[t]++
	}

	return out
}

func (r *recorder) last() Snapshot {
	return r.snapshots[len(r.snapshots)-1]
}

type nextTable struct {
	next   map[string]string
	warmed int
}

func (n *nextTable) ResolveNext(_ context.Context, path string) (string, bool) {
	next, ok := n.next[path]

	return next, ok
}

func (n *nextTable) Warm(context.Context) error {
	n.warmed++

	return nil
}

type harness struct {
	seq  *Sequencer
	loop *loop
	rec  *recorder
	next *nextTable
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	h := &harness{
		loop: newLoop(),
		rec:  &recorder{},
		next: &nextTable{next: map[string]string{"/books/one.html": "/books/two.html"}},
	}

	if opts.Pacing == (reveal.Pacing{}) {
		opts.Pacing = reveal.Pacing{Fixed: time.Second}
	}

	seq, err := New(context.Background(), Ports{
		Fetcher:   pages{"/books/one.html": chapterOne, "/books/two.html": chapterTwo},
		Executor:  h.loop,
		Scores:    h.rec,
		Navigator: h.rec,
		Next:      h.next,
		Announcer: h.rec,
		Effects:   h.rec,
		View:      h.rec,
	}, opts)
	require.NoError(t, err)

	h.seq = seq

	return h
}

// load loads path and types it out completely.
func (h *harness) load(path string) {
	h.seq.Load(path)
	h.loop.drain()
	h.loop.Advance(time.Minute)
	h.loop.drain()
}

func (h *harness) group() *chapter.Group {
	for i := len(h.seq.blocks) - 1; i >= 0; i-- {
		if g := h.seq.blocks[i].group; g != nil {
			return g
		}
	}

	return nil
}

func TestNewRequiresFetcherAndExecutor(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Ports{Executor: newLoop()}, Options{})
	require.ErrorIs(t, err, ErrNoFetcher)

	_, err = New(context.Background(), Ports{Fetcher: pages{}}, Options{})
	require.ErrorIs(t, err, ErrNoExecutor)

	seq, err := New(context.Background(), Ports{Fetcher: pages{}, Executor: newLoop()}, Options{})
	require.NoError(t, err)
	assert.Equal(t, Idle, seq.Phase())
}

func TestLoadTypesThenReveals(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Options{})

	h.seq.Load("/books/one.html")
	assert.Equal(t, Fetching, h.seq.Phase())

	h.loop.drain()
	require.Equal(t, Typing, h.seq.Phase())
	assert.Equal(t, 1, h.next.warmed)
	assert.Equal(t, 1, h.rec.started)

	snap := h.rec.last()
	assert.Equal(t, "One", snap.Title)
	assert.Zero(t, snap.Typed)
	assert.Positive(t, snap.Total)
	assert.NotContains(t, snap.Live, "Hello.")

	h.loop.Advance(500 * time.Millisecond)
	assert.Equal(t, Typing, h.seq.Phase())

	h.loop.Advance(time.Second)
	require.Equal(t, Revealed, h.seq.Phase())
	assert.Equal(t, 1, h.rec.stopped)
	assert.Zero(t, h.loop.Pending())

	snap = h.rec.last()
	assert.Empty(t, snap.Live)
	assert.Contains(t, snap.Committed, "<p>Hello.</p>")
	assert.Contains(t, snap.Committed, `class="choice-link"`)
	assert.NotContains(t, snap.Committed, "After.")
	assert.Equal(t, []string{"Options are ready. Focus on: Left"}, h.rec.announcements)

	typed := -1

	for _, s := range h.rec.snapshots {
		if s.Phase != Typing {
			continue
		}

		assert.GreaterOrEqual(t, s.Typed, typed)
		typed = s.Typed
	}
}

func TestActivateContinuesWithRemainder(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Options{})
	h.load("/books/one.html")

	g := h.group()
	require.NotNil(t, g)

	require.NoError(t, h.seq.Activate(g.ID, 0))
	assert.Equal(t, []string{"A"}, h.rec.tags)
	assert.Equal(t, chapter.Locked, g.State())
	assert.Equal(t, Typing, h.seq.Phase())
	assert.Contains(t, h.rec.announcements, "Selected: Left. Continuing…")

	snap := h.rec.last()
	assert.Contains(t, snap.Committed, "<p>Hello.</p>", "continuation appends")
	assert.Contains(t, snap.Committed, "selected")

	h.loop.Advance(time.Minute)
	h.loop.drain()

	assert.Equal(t, Done, h.seq.Phase())

	snap = h.rec.last()
	assert.Contains(t, snap.Committed, "<p>After.</p>")
	assert.Equal(t, "/books/two.html", snap.Next)
	assert.Empty(t, h.rec.navigated, "the next chapter is only offered")
}

func TestActivateLockedGroupIsNoop(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Options{})
	h.load("/books/one.html")

	g := h.group()
	require.NoError(t, h.seq.Activate(g.ID, 0))

	err := h.seq.Activate(g.ID, 1)
	require.ErrorIs(t, err, chapter.ErrGroupLocked)
	assert.Equal(t, []string{"A"}, h.rec.tags)
	assert.Equal(t, 0, g.Selected())
}

func TestActivateUnknownGroup(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Options{})
	h.load("/books/one.html")

	require.ErrorIs(t, h.seq.Activate("nope", 0), ErrUnknownGroup)
	assert.Empty(t, h.rec.tags)
}

func TestActivateNavigates(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Options{})
	h.load("/books/one.html")

	require.NoError(t, h.seq.Activate(h.group().ID, 1))
	assert.Equal(t, []string{"B"}, h.rec.tags)
	assert.Equal(t, []string{"/books/two.html"}, h.rec.navigated)
	assert.Equal(t, Fetching, h.seq.Phase())

	h.loop.drain()
	assert.Equal(t, Typing, h.seq.Phase())
	assert.Equal(t, "/books/two.html", h.seq.Path())

	snap := h.rec.last()
	assert.Equal(t, "Two", snap.Title)
	assert.Empty(t, snap.Committed, "navigation replaces the view")
}

func TestActivateExternalAndFragmentTargets(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Options{})
	h.load("/books/one.html")
	require.NoError(t, h.seq.Activate(h.group().ID, 2))
	assert.Equal(t, []string{"https://example.com/x"}, h.rec.opened)
	assert.Empty(t, h.rec.navigated)

	h = newHarness(t, Options{})
	h.load("/books/one.html")
	require.NoError(t, h.seq.Activate(h.group().ID, 3))
	assert.Equal(t, []string{"notes"}, h.rec.scrolled)
	assert.Empty(t, h.rec.navigated)
}

func TestFastForward(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Options{})
	h.seq.Load("/books/one.html")
	h.loop.drain()
	h.loop.Advance(100 * time.Millisecond)

	require.True(t, h.seq.FastForward())
	assert.Equal(t, Revealed, h.seq.Phase())
	assert.False(t, h.seq.FastForward())

	count := len(h.rec.snapshots)
	h.loop.Advance(time.Minute)
	assert.Len(t, h.rec.snapshots, count, "no ticks after fast-forward")
}

func TestNavigationCancelsReveal(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Options{})
	h.seq.Load("/books/one.html")
	h.loop.drain()
	h.loop.Advance(200 * time.Millisecond)
	require.Equal(t, Typing, h.seq.Phase())

	h.seq.Load("/books/two.html")
	assert.Equal(t, 1, h.rec.stopped, "effects stop with the cancelled reveal")

	from := len(h.rec.snapshots)

	h.loop.drain()
	h.loop.Advance(time.Minute)

	for _, s := range h.rec.snapshots[from:] {
		assert.Equal(t, "/books/two.html", s.Path)
		assert.NotContains(t, s.Live, "Hello.")
		assert.NotContains(t, s.Committed, "Hello.")
	}

	assert.Equal(t, Done, h.seq.Phase())
}

func TestStaleFetchIsDropped(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Options{})
	h.loop.hold = true

	h.seq.Load("/books/one.html")
	h.seq.Load("/books/two.html")
	h.loop.release()

	assert.Equal(t, "/books/two.html", h.seq.Path())
	assert.Equal(t, "Two", h.rec.last().Title)

	for _, s := range h.rec.snapshots {
		assert.NotEqual(t, "One", s.Title)
	}
}

func TestLoadDoesNotWaitForWarm(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Options{})
	h.loop.hold = true

	h.seq.Load("/books/one.html")
	require.Len(t, h.loop.held, 2)

	fetch, warm := h.loop.held[0], h.loop.held[1]
	h.loop.held = nil

	fetch()
	h.loop.drain()

	assert.Equal(t, Typing, h.seq.Phase())
	assert.Zero(t, h.next.warmed)

	warm()
	assert.Equal(t, 1, h.next.warmed)
}

func TestFetchErrorIsTerminal(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Options{})
	h.load("/books/missing.html")

	assert.Equal(t, Error, h.seq.Phase())
	assert.True(t, h.seq.Phase().Terminal())

	var fe *requests.FetchError

	require.ErrorAs(t, h.rec.last().Err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.Zero(t, h.loop.Pending())
}

func TestReduceMotionCompletesAtOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Options{ReduceMotion: true})
	h.seq.Load("/books/one.html")
	h.loop.drain()

	assert.Equal(t, Revealed, h.seq.Phase())
	assert.Zero(t, h.loop.Pending())
}

func TestFollowNext(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Options{})
	h.load("/books/one.html")

	require.ErrorIs(t, h.seq.FollowNext(), ErrNothingNext)

	require.NoError(t, h.seq.Activate(h.group().ID, 0))
	h.loop.Advance(time.Minute)
	h.loop.drain()
	require.Equal(t, Done, h.seq.Phase())

	require.NoError(t, h.seq.FollowNext())
	assert.Equal(t, []string{"/books/two.html"}, h.rec.navigated)

	h.loop.drain()
	assert.Equal(t, "/books/two.html", h.seq.Path())
}

func TestFocusAnnounces(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Options{})
	h.seq.Load("/books/one.html")
	h.loop.drain()

	h.seq.Focus("c1-g1", 0)
	assert.Empty(t, h.rec.announcements, "nothing to focus while typing")

	h.loop.Advance(time.Minute)
	h.seq.Focus(h.group().ID, 1)
	h.seq.Focus(h.group().ID, 9)

	assert.Equal(t, []string{
		"Options are ready. Focus on: Left",
		"Choice focused: Right",
	}, h.rec.announcements)
}

func TestResolveTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		current string
		target  string
		want    string
	}{
		{"/books/a/one.html", "two.html", "/books/a/two.html"},
		{"/books/a/one.html", "../b/x.html", "/books/b/x.html"},
		{"/books/a/one.html", "/books/c.html", "/books/c.html"},
		{"/books/a/one.html?x=1", "two.html#top", "/books/a/two.html#top"},
		{"one.html", "two.html", "/two.html"},
		{"/books/Příběh/1.html", "2 konec.html", "/books/Příběh/2 konec.html"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, ResolveTarget(tt.current, tt.target))
		})
	}
}
