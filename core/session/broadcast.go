// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package session

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"codeberg.org/synthoma/reader/core/requests"
	"codeberg.org/synthoma/reader/core/sequencer"
	"codeberg.org/synthoma/reader/i18n"
)

// Event names sent to subscribers.
const (
	EventFrame    = "frame"
	EventAnnounce = "announce"
	EventNavigate = "navigate"
	EventOpen     = "open"
	EventScroll   = "scroll"
	EventEffects  = "effects"
	EventOffer    = "offer"
	EventError    = "error"
)

const eventBuffer = 32

// Event is one message for the reader's page.
type Event struct {
	Name string
	Data any
}

// Frame is the JSON form of a sequencer snapshot.
type Frame struct {
	Path      string `json:"path"`
	Title     string `json:"title"`
	Phase     string `json:"phase"`
	Committed string `json:"committed"`
	Live      string `json:"live"`
	Typed     int    `json:"typed"`
	Total     int    `json:"total"`
	Next      string `json:"next,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Subscription delivers the events of one reader to one page.
//
// Frames only ever holds the most recent frame; a slow page skips frames
// rather than falling behind.
type Subscription struct {
	Frames <-chan Event
	Events <-chan Event

	// Done is closed when the subscription or its reader is closed.
	Done <-chan struct{}

	b   *broadcaster
	sub *subscriber
}

// Close detaches the subscription.
func (s *Subscription) Close() {
	s.b.remove(s.sub)
}

type subscriber struct {
	frames chan Event
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriber) pushFrame(ev Event) {
	for {
		select {
		case s.frames <- ev:
			return
		default:
		}

		select {
		case <-s.frames:
		default:
		}
	}
}

// broadcaster turns sequencer output into events. Its port methods run on
// the reader's loop.
type broadcaster struct {
	id string

	// ctx carries the locale of error messages; loop only.
	ctx context.Context

	mu      sync.Mutex
	subs    map[*subscriber]struct{}
	latest  *Event
	visited map[string]struct{}
	closed  bool

	offered  string
	reported bool
}

func newBroadcaster(ctx context.Context, id string) *broadcaster {
	return &broadcaster{
		id:      id,
		ctx:     ctx,
		subs:    make(map[*subscriber]struct{}),
		visited: make(map[string]struct{}),
	}
}

func (b *broadcaster) subscribe() *Subscription {
	sub := &subscriber{
		frames: make(chan Event, 1),
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		sub.close()
	} else {
		b.subs[sub] = struct{}{}

		if b.latest != nil {
			sub.pushFrame(*b.latest)
		}
	}

	return &Subscription{
		Frames: sub.frames,
		Events: sub.events,
		Done:   sub.done,
		b:      b,
		sub:    sub,
	}
}

func (b *broadcaster) remove(sub *subscriber) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()

	sub.close()
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true

	for sub := range b.subs {
		sub.close()
		delete(b.subs, sub)
	}
}

func (b *broadcaster) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}

func (b *broadcaster) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		select {
		case sub.events <- ev:
		default:
			log.Debug().
				Str("sys", "session").
				Str("session", b.id).
				Str("event", ev.Name).
				Msg("Dropped event for slow subscriber")
		}
	}
}

func (b *broadcaster) markVisited(path string) {
	b.mu.Lock()
	b.visited[path] = struct{}{}
	b.mu.Unlock()
}

func (b *broadcaster) hasVisited(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.visited[path]

	return ok
}

func (b *broadcaster) Show(snap sequencer.Snapshot) {
	frame := Frame{
		Path:      snap.Path,
		Title:     snap.Title,
		Phase:     snap.Phase.String(),
		Committed: snap.Committed,
		Live:      snap.Live,
		Typed:     snap.Typed,
		Total:     snap.Total,
		Next:      snap.Next,
	}

	if snap.Err != nil {
		frame.Error = ErrorMessage(b.ctx, snap.Err)
	}

	ev := Event{Name: EventFrame, Data: frame}

	b.mu.Lock()
	b.latest = &ev

	for sub := range b.subs {
		sub.pushFrame(ev)
	}
	b.mu.Unlock()

	switch {
	case snap.Phase == sequencer.Fetching:
		b.offered = ""
		b.reported = false
	case snap.Phase == sequencer.Error && !b.reported:
		b.reported = true
		b.publish(Event{Name: EventError, Data: frame.Error})
	case snap.Next != "" && snap.Next != b.offered:
		b.offered = snap.Next
		b.publish(Event{Name: EventOffer, Data: snap.Next})
	}
}

// ErrorMessage describes a chapter load failure to the reader.
func ErrorMessage(ctx context.Context, err error) string {
	var fe *requests.FetchError

	switch {
	case errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound:
		return i18n.Tr(ctx, "This chapter does not exist.")
	case errors.As(err, &fe) && fe.StatusCode != 0:
		return i18n.Tr(ctx, "The chapter could not be loaded (status {{.Status}}).", "Status", fe.StatusCode)
	default:
		return i18n.Tr(ctx, "The chapter could not be loaded. Check your connection and try again.")
	}
}

func (b *broadcaster) Announce(message string) {
	b.publish(Event{Name: EventAnnounce, Data: message})
}

func (b *broadcaster) NavigateTo(path string) {
	b.markVisited(path)
	b.publish(Event{Name: EventNavigate, Data: path})
}

func (b *broadcaster) Open(url string) {
	b.publish(Event{Name: EventOpen, Data: url})
}

func (b *broadcaster) Scroll(fragment string) {
	b.publish(Event{Name: EventScroll, Data: fragment})
}

func (b *broadcaster) Start() {
	b.publish(Event{Name: EventEffects, Data: "start"})
}

func (b *broadcaster) Stop() {
	b.publish(Event{Name: EventEffects, Data: "stop"})
}
