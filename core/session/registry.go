// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"codeberg.org/synthoma/reader/core/audit"
)

// Factory starts the session for id.
type Factory func(ctx context.Context, id string) (*Reader, error)

// Registry holds the live sessions. A session expires once it has not been
// acquired for the registry's TTL; expired sessions are closed.
type Registry struct {
	readers *cache.Cache
	factory Factory
	group   singleflight.Group
}

// NewRegistry returns an empty registry sweeping expired sessions every
// cleanup interval.
func NewRegistry(ttl, cleanup time.Duration, factory Factory) *Registry {
	r := &Registry{
		readers: cache.New(ttl, cleanup),
		factory: factory,
	}

	r.readers.OnEvicted(func(id string, v any) {
		audit.ActiveSessions.Dec()

		log.Debug().Str("sys", "session").Str("session", id).Msg("Session closed")

		if rd, ok := v.(*Reader); ok {
			rd.Close()
		}
	})

	return r
}

// Get returns the session for id and extends its lifetime.
func (r *Registry) Get(id string) (*Reader, bool) {
	v, ok := r.readers.Get(id)
	if !ok {
		return nil, false
	}

	rd, ok := v.(*Reader)
	if !ok || rd.Closed() {
		return nil, false
	}

	r.readers.Set(id, rd, cache.DefaultExpiration)

	return rd, true
}

// Acquire returns the session for id, starting it when it is not live.
// An empty or malformed id gets a fresh session with a new id.
func (r *Registry) Acquire(ctx context.Context, id string) (*Reader, error) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	if rd, ok := r.Get(id); ok {
		return rd, nil
	}

	v, err, _ := r.group.Do(id, func() (any, error) {
		if rd, ok := r.Get(id); ok {
			return rd, nil
		}

		rd, err := r.factory(context.WithoutCancel(ctx), id)
		if err != nil {
			return nil, err
		}

		if err := r.readers.Add(id, rd, cache.DefaultExpiration); err != nil {
			rd.Close()

			existing, ok := r.Get(id)
			if !ok {
				return nil, err
			}

			return existing, nil
		}

		audit.ActiveSessions.Inc()

		log.Debug().Str("sys", "session").Str("session", id).Msg("Session started")

		return rd, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Reader), nil //nolint:forcetypeassert // only *Reader is stored
}

// Remove closes the session for id.
func (r *Registry) Remove(id string) {
	r.readers.Delete(id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.readers.ItemCount()
}

// Sweep closes expired sessions now instead of at the next cleanup.
func (r *Registry) Sweep() {
	r.readers.DeleteExpired()
}

// Close closes every session.
func (r *Registry) Close() {
	for id := range r.readers.Items() {
		r.readers.Delete(id)
	}
}
