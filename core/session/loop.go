// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package session

import (
	"sync"
	"time"

	"codeberg.org/synthoma/reader/core/reveal"
)

// Loop runs posted functions one at a time on its own goroutine.
//
// Posting never blocks, so code running on the loop may post to it too.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool

	wake chan struct{}
	done chan struct{}
}

// NewLoop starts a loop.
func NewLoop() *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	go l.run()

	return l
}

func (l *Loop) run() {
	for {
		select {
		case <-l.done:
			return
		case <-l.wake:
		}

		for {
			fn := l.pop()
			if fn == nil {
				break
			}

			fn()
		}
	}
}

func (l *Loop) pop() func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || len(l.queue) == 0 {
		return nil
	}

	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]

	return fn
}

// Post queues fn. Functions posted after Close are dropped.
func (l *Loop) Post(fn func()) {
	l.post(fn)
}

func (l *Loop) post(fn func()) bool {
	l.mu.Lock()

	if l.closed {
		l.mu.Unlock()

		return false
	}

	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}

	return true
}

// Do runs fn on the loop and waits for it. It reports false when the loop
// was closed before fn could run. Do must not be called from the loop.
func (l *Loop) Do(fn func()) bool {
	finished := make(chan struct{})

	if !l.post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}

	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

// Go runs blocking work off the loop.
func (l *Loop) Go(fn func()) {
	go fn()
}

// AfterFunc posts fn to the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) reveal.Timer {
	return time.AfterFunc(d, func() {
		l.Post(fn)
	})
}

// Close stops the loop. Queued functions that have not started are
// dropped; work started with Go runs to completion but cannot post back.
func (l *Loop) Close() {
	l.mu.Lock()

	if l.closed {
		l.mu.Unlock()

		return
	}

	l.closed = true
	l.queue = nil
	l.mu.Unlock()

	close(l.done)
}

// Done is closed once the loop has been closed.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
