// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package session keeps one reading session per reader.

Every Reader owns a Sequencer and the loop it runs on, the reader's score
counts and the pages subscribed to its events. Readers live in a Registry
and are closed when they expire.
*/
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"codeberg.org/synthoma/reader/core/scores"
	"codeberg.org/synthoma/reader/core/sequencer"
)

// ErrClosed is returned by a Reader that has been closed.
var ErrClosed = errors.New("reader session closed")

// Deps are shared by every Reader.
type Deps struct {
	Fetcher sequencer.Fetcher
	Next    sequencer.NextResolver

	// Backend persists scores; nil keeps them in memory only.
	Backend        scores.Backend
	PersistTimeout time.Duration

	Options sequencer.Options
}

// Reader is one reader's session.
type Reader struct {
	ID string

	loop   *Loop
	seq    *sequencer.Sequencer
	scores *scores.Store
	b      *broadcaster

	closeOnce sync.Once
}

// NewReader starts a session. ctx carries the reader's locale; counts
// persisted for id are loaded back when a backend is configured.
func NewReader(ctx context.Context, id string, deps Deps) (*Reader, error) {
	loop := NewLoop()
	b := newBroadcaster(ctx, id)
	store := scores.NewStore(id, deps.Backend, deps.PersistTimeout)

	seq, err := sequencer.New(ctx, sequencer.Ports{
		Fetcher:   deps.Fetcher,
		Executor:  loop,
		Scores:    store,
		Navigator: b,
		Next:      deps.Next,
		Announcer: b,
		Effects:   b,
		View:      b,
	}, deps.Options)
	if err != nil {
		loop.Close()

		return nil, err
	}

	if deps.Backend != nil {
		hctx, cancel := context.WithTimeout(ctx, max(deps.PersistTimeout, time.Second))
		if err := store.Hydrate(hctx); err != nil {
			log.Warn().Err(err).Str("sys", "session").Str("session", id).Msg("Failed to load stored scores")
		}
		cancel()
	}

	return &Reader{
		ID:     id,
		loop:   loop,
		seq:    seq,
		scores: store,
		b:      b,
	}, nil
}

// Open shows the chapter at path. A chapter that is already being shown
// is kept as it is unless it failed to load.
func (r *Reader) Open(path string, reduceMotion bool) {
	r.b.markVisited(path)

	r.loop.Post(func() {
		r.seq.SetReduceMotion(reduceMotion)

		if r.seq.Path() == path && r.seq.Phase() != sequencer.Error && r.seq.Phase() != sequencer.Idle {
			r.b.Show(r.seq.Snapshot())

			return
		}

		r.seq.Load(path)
	})
}

// Choose activates option index of group.
func (r *Reader) Choose(group string, index int) error {
	var err error

	if !r.loop.Do(func() { err = r.seq.Activate(group, index) }) {
		return ErrClosed
	}

	return err
}

// Focus announces the option the reader moved to.
func (r *Reader) Focus(group string, index int) {
	r.loop.Post(func() { r.seq.Focus(group, index) })
}

// Skip completes the text being typed. It reports whether anything was
// being typed.
func (r *Reader) Skip() bool {
	var skipped bool

	r.loop.Do(func() { skipped = r.seq.FastForward() })

	return skipped
}

// Next follows the chapter offered at the end of the current one.
func (r *Reader) Next() error {
	var err error

	if !r.loop.Do(func() { err = r.seq.FollowNext() }) {
		return ErrClosed
	}

	return err
}

// SetContext switches the locale of later announcements and messages.
func (r *Reader) SetContext(ctx context.Context) {
	r.loop.Post(func() {
		r.b.ctx = ctx
		r.seq.SetContext(ctx)
	})
}

// Snapshot returns what the reader's page currently shows.
func (r *Reader) Snapshot() (sequencer.Snapshot, error) {
	var snap sequencer.Snapshot

	if !r.loop.Do(func() { snap = r.seq.Snapshot() }) {
		return snap, ErrClosed
	}

	return snap, nil
}

// Subscribe attaches a page. The most recent frame is delivered at once.
func (r *Reader) Subscribe() *Subscription {
	return r.b.subscribe()
}

// Subscribers returns the number of attached pages.
func (r *Reader) Subscribers() int {
	return r.b.subscribers()
}

// Scores returns the reader's tag counts.
func (r *Reader) Scores() map[string]int {
	return r.scores.ReadAll()
}

// Visited reports whether the reader has opened path.
func (r *Reader) Visited(path string) bool {
	return r.b.hasVisited(path)
}

// Closed reports whether Close was called.
func (r *Reader) Closed() bool {
	select {
	case <-r.loop.Done():
		return true
	default:
		return false
	}
}

// Close stops the session and detaches every page.
func (r *Reader) Close() {
	r.closeOnce.Do(func() {
		r.loop.Do(r.seq.Close)
		r.loop.Close()
		r.b.close()
		r.scores.Wait()
	})
}
