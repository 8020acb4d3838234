// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/synthoma/reader/core/requests"
	"codeberg.org/synthoma/reader/core/reveal"
	"codeberg.org/synthoma/reader/core/sequencer"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type pages map[string]string

func (p pages) Fetch(_ context.Context, path string) (string, error) {
	raw, ok := p[path]
	if !ok {
		return "", &requests.FetchError{Path: path, StatusCode: http.StatusNotFound, Err: errors.New("not found")}
	}

	return raw, nil
}

var library = pages{
	"/books/a/1.html": `<title>Start</title><p>Dawn.</p>` +
		`<p class="choice" data-tags="I">Stay</p>` +
		`<p class="choice" data-tags="E" data-next="2.html">Leave</p>` +
		`<p>Dusk.</p>`,
	"/books/a/2.html": `<title>Road</title><p>The road.</p>`,
}

type memoryBackend struct {
	mu     sync.Mutex
	counts map[string]map[string]int
}

func (m *memoryBackend) Increment(_ context.Context, session string, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.counts[session] == nil {
		m.counts[session] = map[string]int{}
	}

	for _, tag := range tags {
		m.counts[session][tag]++
	}

	return nil
}

func (m *memoryBackend) Load(_ context.Context, session string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := map[string]int{}
	for k, v := range m.counts[session] {
		out[k] = v
	}

	return out, nil
}

func testDeps(backend *memoryBackend) Deps {
	deps := Deps{
		Fetcher: library,
		Options: sequencer.Options{
			Pacing:  reveal.Pacing{Fixed: 20 * time.Millisecond},
			MinStep: time.Millisecond,
		},
		PersistTimeout: time.Second,
	}

	if backend != nil {
		deps.Backend = backend
	}

	return deps
}

// waitPhase waits for a frame in phase and returns it.
func waitPhase(t *testing.T, sub *Subscription, phase sequencer.Phase) Frame {
	t.Helper()

	timeout := time.After(waitFor)

	for {
		select {
		case ev := <-sub.Frames:
			frame, ok := ev.Data.(Frame)
			require.True(t, ok)

			if frame.Phase == phase.String() {
				return frame
			}
		case <-timeout:
			t.Fatalf("no %s frame", phase)
		}
	}
}

func drainEvents(sub *Subscription) []Event {
	var out []Event

	for {
		select {
		case ev := <-sub.Events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestLoopRunsInOrder(t *testing.T) {
	t.Parallel()

	l := NewLoop()
	defer l.Close()

	var got []int

	for i := range 5 {
		l.Post(func() { got = append(got, i) })
	}

	require.True(t, l.Do(func() {}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoopAfterFuncRunsOnLoop(t *testing.T) {
	t.Parallel()

	l := NewLoop()
	defer l.Close()

	var fired atomic.Bool

	l.AfterFunc(time.Millisecond, func() { fired.Store(true) })

	assert.Eventually(t, fired.Load, waitFor, tick)

	stopped := l.AfterFunc(time.Hour, func() { t.Error("stopped timer fired") })
	assert.True(t, stopped.Stop())
}

func TestLoopClose(t *testing.T) {
	t.Parallel()

	l := NewLoop()
	l.Close()
	l.Close()

	assert.False(t, l.Do(func() { t.Error("ran after close") }))

	select {
	case <-l.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestFramesKeepOnlyTheLatest(t *testing.T) {
	t.Parallel()

	b := newBroadcaster(context.Background(), "s")
	sub := b.subscribe()

	for i := range 10 {
		b.Show(sequencer.Snapshot{Path: "/p", Phase: sequencer.Typing, Typed: i})
	}

	ev := <-sub.Frames
	assert.Equal(t, 9, ev.Data.(Frame).Typed) //nolint:forcetypeassert

	select {
	case <-sub.Frames:
		t.Fatal("older frames were kept")
	default:
	}

	late := b.subscribe()
	ev = <-late.Frames
	assert.Equal(t, 9, ev.Data.(Frame).Typed, "late subscribers get the latest frame") //nolint:forcetypeassert

	sub.Close()
	<-sub.Done
	assert.Equal(t, 1, b.subscribers())
}

func TestBroadcasterErrorAndOffer(t *testing.T) {
	t.Parallel()

	b := newBroadcaster(context.Background(), "s")
	sub := b.subscribe()

	fetchErr := &requests.FetchError{Path: "/x", StatusCode: http.StatusNotFound, Err: errors.New("gone")}

	b.Show(sequencer.Snapshot{Path: "/x", Phase: sequencer.Fetching})
	b.Show(sequencer.Snapshot{Path: "/x", Phase: sequencer.Error, Err: fetchErr})
	b.Show(sequencer.Snapshot{Path: "/x", Phase: sequencer.Error, Err: fetchErr})

	events := drainEvents(sub)
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Name)
	assert.Equal(t, "This chapter does not exist.", events[0].Data)

	b.Show(sequencer.Snapshot{Path: "/y", Phase: sequencer.Done, Next: "/z"})
	b.Show(sequencer.Snapshot{Path: "/y", Phase: sequencer.Done, Next: "/z"})

	events = drainEvents(sub)
	require.Len(t, events, 1)
	assert.Equal(t, Event{Name: EventOffer, Data: "/z"}, events[0])
}

func TestReaderStory(t *testing.T) {
	t.Parallel()

	backend := &memoryBackend{counts: map[string]map[string]int{}}

	rd, err := NewReader(context.Background(), "s1", testDeps(backend))
	require.NoError(t, err)

	defer rd.Close()

	sub := rd.Subscribe()
	defer sub.Close()

	rd.Open("/books/a/1.html", false)
	assert.True(t, rd.Visited("/books/a/1.html"))

	frame := waitPhase(t, sub, sequencer.Revealed)
	assert.Equal(t, "Start", frame.Title)
	assert.Contains(t, frame.Committed, "Dawn.")

	snap, err := rd.Snapshot()
	require.NoError(t, err)
	require.Equal(t, sequencer.Revealed, snap.Phase)

	group := "c1-g1"
	require.NoError(t, rd.Choose(group, 1))
	assert.ErrorIs(t, rd.Choose(group, 0), sequencer.ErrUnknownGroup, "the old chapter is gone")

	frame = waitPhase(t, sub, sequencer.Done)
	assert.Equal(t, "/books/a/2.html", frame.Path)
	assert.True(t, rd.Visited("/books/a/2.html"))
	assert.Equal(t, map[string]int{"E": 1}, rd.Scores())

	names := map[string]bool{}
	for _, ev := range drainEvents(sub) {
		names[ev.Name] = true
	}

	assert.True(t, names[EventNavigate])
	assert.True(t, names[EventAnnounce])
	assert.True(t, names[EventEffects])

	rd.Close()
	<-sub.Done
	assert.True(t, rd.Closed())

	stored, err := backend.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"E": 1}, stored)

	rd2, err := NewReader(context.Background(), "s1", testDeps(backend))
	require.NoError(t, err)

	defer rd2.Close()

	assert.Equal(t, map[string]int{"E": 1}, rd2.Scores(), "scores are loaded back")
}

func TestReaderSkip(t *testing.T) {
	t.Parallel()

	deps := testDeps(nil)
	deps.Options.Pacing = reveal.Pacing{Fixed: time.Hour}

	rd, err := NewReader(context.Background(), "s2", deps)
	require.NoError(t, err)

	defer rd.Close()

	sub := rd.Subscribe()
	defer sub.Close()

	rd.Open("/books/a/1.html", false)
	waitPhase(t, sub, sequencer.Typing)

	assert.True(t, rd.Skip())
	assert.False(t, rd.Skip())

	snap, err := rd.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, sequencer.Revealed, snap.Phase)
}

func TestReaderClosed(t *testing.T) {
	t.Parallel()

	rd, err := NewReader(context.Background(), "s3", testDeps(nil))
	require.NoError(t, err)

	rd.Close()

	require.ErrorIs(t, rd.Choose("g", 0), ErrClosed)
	require.ErrorIs(t, rd.Next(), ErrClosed)

	_, err = rd.Snapshot()
	require.ErrorIs(t, err, ErrClosed)

	sub := rd.Subscribe()
	<-sub.Done
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	var started atomic.Int32

	reg := NewRegistry(time.Hour, time.Hour, func(ctx context.Context, id string) (*Reader, error) {
		started.Add(1)

		return NewReader(ctx, id, testDeps(nil))
	})
	defer reg.Close()

	rd, err := reg.Acquire(context.Background(), "")
	require.NoError(t, err)

	_, err = uuid.Parse(rd.ID)
	require.NoError(t, err, "fresh sessions get a uuid")

	same, err := reg.Acquire(context.Background(), rd.ID)
	require.NoError(t, err)
	assert.Same(t, rd, same)

	other, err := reg.Acquire(context.Background(), "not-a-uuid")
	require.NoError(t, err)
	assert.NotEqual(t, rd.ID, other.ID)

	assert.Equal(t, 2, reg.Len())
	assert.EqualValues(t, 2, started.Load())

	reg.Remove(rd.ID)
	assert.Eventually(t, rd.Closed, waitFor, tick)

	_, ok := reg.Get(rd.ID)
	assert.False(t, ok)
}

func TestRegistryConcurrentAcquire(t *testing.T) {
	t.Parallel()

	var started atomic.Int32

	reg := NewRegistry(time.Hour, time.Hour, func(ctx context.Context, id string) (*Reader, error) {
		started.Add(1)

		return NewReader(ctx, id, testDeps(nil))
	})
	defer reg.Close()

	id := uuid.NewString()

	var wg sync.WaitGroup

	readers := make([]*Reader, 8)

	for i := range readers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			rd, err := reg.Acquire(context.Background(), id)
			assert.NoError(t, err)

			readers[i] = rd
		}()
	}

	wg.Wait()

	for _, rd := range readers {
		assert.Same(t, readers[0], rd)
	}

	assert.Equal(t, 1, reg.Len())
}

func TestRegistryExpiry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(10*time.Millisecond, time.Hour, func(ctx context.Context, id string) (*Reader, error) {
		return NewReader(ctx, id, testDeps(nil))
	})
	defer reg.Close()

	rd, err := reg.Acquire(context.Background(), "")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	reg.Sweep()

	assert.Zero(t, reg.Len())
	assert.Eventually(t, rd.Closed, waitFor, tick)
}
