// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package reveal

import (
	"sync"
	"time"
)

// ManualScheduler is a Scheduler on a virtual clock that only moves when
// Advance is called. It is used to replay a reveal deterministically.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualTimer
}

type manualTimer struct {
	s     *ManualScheduler
	at    time.Duration
	seq   int
	fn    func()
	fired bool
	stop  bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if t.fired || t.stop {
		return false
	}

	t.stop = true

	return true
}

// AfterFunc schedules fn at the current virtual time plus d.
func (s *ManualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &manualTimer{s: s, at: s.now + d, seq: s.seq, fn: fn}
	s.pending = append(s.pending, t)

	return t
}

// Advance moves the clock forward by d, running due callbacks in order.
// Callbacks scheduled while advancing run too if they fall within d.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		t := s.popDue(target)
		if t == nil {
			return
		}

		t.fn()
	}
}

func (s *ManualScheduler) popDue(target time.Duration) *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := -1

	for i, t := range s.pending {
		if t.stop || t.at > target {
			continue
		}

		if next == -1 || t.at < s.pending[next].at || (t.at == s.pending[next].at && t.seq < s.pending[next].seq) {
			next = i
		}
	}

	if next == -1 {
		s.now = target
		s.compact()

		return nil
	}

	t := s.pending[next]
	s.pending = append(s.pending[:next], s.pending[next+1:]...)
	s.now = t.at
	t.fired = true

	return t
}

// compact drops stopped timers.
func (s *ManualScheduler) compact() {
	kept := s.pending[:0]

	for _, t := range s.pending {
		if !t.stop {
			kept = append(kept, t)
		}
	}

	s.pending = kept
}

// Now returns the virtual time elapsed since the scheduler was created.
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.now
}

// Pending returns the number of callbacks still waiting to run.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0

	for _, t := range s.pending {
		if !t.stop {
			n++
		}
	}

	return n
}
