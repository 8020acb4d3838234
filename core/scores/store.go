// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package scores counts the tags of the choices a reader has picked.

Counts live in memory and are authoritative for the session. A [Backend], when
configured, receives every increment on a best-effort basis so results
survive restarts; a failed write is logged and otherwise ignored.
*/
package scores

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"codeberg.org/synthoma/reader/core/audit"
)

// Backend persists score increments for a session.
type Backend interface {
	Increment(ctx context.Context, session string, tags []string) error
	Load(ctx context.Context, session string) (map[string]int, error)
}

// Store holds one session's tag counts.
type Store struct {
	session string
	backend Backend
	timeout time.Duration

	mu     sync.Mutex
	counts map[string]int

	pending sync.WaitGroup
}

// NewStore returns an empty store. backend may be nil.
func NewStore(session string, backend Backend, timeout time.Duration) *Store {
	return &Store{
		session: session,
		backend: backend,
		timeout: timeout,
		counts:  make(map[string]int),
	}
}

// Increment adds one to every tag. Empty tags are ignored.
func (s *Store) Increment(tags ...string) {
	kept := make([]string, 0, len(tags))

	s.mu.Lock()
	for _, tag := range tags {
		if tag == "" {
			continue
		}

		s.counts[tag]++
		kept = append(kept, tag)
	}
	s.mu.Unlock()

	if s.backend == nil || len(kept) == 0 {
		return
	}

	s.pending.Add(1)

	go func() {
		defer s.pending.Done()

		ctx, cancel := s.context()
		defer cancel()

		if err := s.backend.Increment(ctx, s.session, kept); err != nil {
			audit.ScorePersistFailures.Inc()
			log.Warn().
				Err(err).
				Str("sys", "scores").
				Str("session", s.session).
				Strs("tags", kept).
				Msg("Failed to persist score increment")
		}
	}()
}

// ReadAll returns a copy of the counts.
func (s *Store) ReadAll() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return maps.Clone(s.counts)
}

// Hydrate merges counts from the backend, keeping the larger value per tag.
func (s *Store) Hydrate(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}

	stored, err := s.backend.Load(ctx, s.session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for tag, n := range stored {
		if n > s.counts[tag] {
			s.counts[tag] = n
		}
	}

	return nil
}

// Wait blocks until every started backend write has returned.
func (s *Store) Wait() {
	s.pending.Wait()
}

func (s *Store) context() (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(context.Background())
	}

	return context.WithTimeout(context.Background(), s.timeout)
}
