// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package manifest

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Fetcher retrieves a content file.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (string, error)
}

// invalidator is implemented by fetchers with their own cache.
type invalidator interface {
	Invalidate(prefix string) []string
}

// Resolver loads the manifest and media table on demand and keeps them for TTL.
type Resolver struct {
	fetcher      Fetcher
	manifestPath string
	mediaPath    string
	ttl          time.Duration

	now   func() time.Time
	group singleflight.Group

	mu         sync.Mutex
	manifest   *Manifest
	media      Media
	manifestAt time.Time
	mediaAt    time.Time
}

// NewResolver returns a resolver reading manifestPath and mediaPath through fetcher.
// An empty mediaPath disables media lookups.
func NewResolver(fetcher Fetcher, manifestPath, mediaPath string, ttl time.Duration) *Resolver {
	return &Resolver{
		fetcher:      fetcher,
		manifestPath: manifestPath,
		mediaPath:    mediaPath,
		ttl:          ttl,
		now:          time.Now,
	}
}

// Manifest returns the cached manifest, reloading it once the TTL has passed.
// A stale copy is kept when the reload fails.
func (r *Resolver) Manifest(ctx context.Context) (*Manifest, error) {
	r.mu.Lock()
	cached, fresh := r.manifest, r.manifest != nil && r.now().Sub(r.manifestAt) < r.ttl
	r.mu.Unlock()

	if fresh {
		return cached, nil
	}

	v, err, _ := r.group.Do("manifest", func() (any, error) {
		raw, err := r.fetch(ctx, r.manifestPath)
		if err != nil {
			return nil, err
		}

		m, err := Parse(raw)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.manifest, r.manifestAt = m, r.now()
		r.mu.Unlock()

		return m, nil
	})
	if err != nil {
		if cached != nil {
			log.Warn().Err(err).Str("sys", "manifest").Msg("Serving stale manifest")

			return cached, nil
		}

		return nil, err
	}

	m, _ := v.(*Manifest)

	return m, nil
}

// ResolveNext returns the chapter following path, if the manifest lists one.
// Failures are logged and reported as no next chapter.
func (r *Resolver) ResolveNext(ctx context.Context, path string) (string, bool) {
	m, err := r.Manifest(ctx)
	if err != nil {
		log.Debug().Err(err).Str("sys", "manifest").Str("path", path).Msg("No manifest for next chapter")

		return "", false
	}

	return m.Next(path)
}

// Media returns the media entry for path.
func (r *Resolver) Media(ctx context.Context, path string) (MediaEntry, bool) {
	if r.mediaPath == "" {
		return MediaEntry{}, false
	}

	r.mu.Lock()
	media, fresh := r.media, r.media != nil && r.now().Sub(r.mediaAt) < r.ttl
	r.mu.Unlock()

	if !fresh {
		v, err, _ := r.group.Do("media", func() (any, error) {
			raw, err := r.fetch(ctx, r.mediaPath)
			if err != nil {
				// a missing table just means no media
				raw = "{}"
			}

			parsed := ParseMedia(raw)

			r.mu.Lock()
			r.media, r.mediaAt = parsed, r.now()
			r.mu.Unlock()

			return parsed, nil
		})
		if err == nil {
			media, _ = v.(Media)
		}
	}

	return media.Lookup(path)
}

// Warm loads the manifest so the first ResolveNext does not wait.
func (r *Resolver) Warm(ctx context.Context) error {
	_, err := r.Manifest(ctx)

	return err
}

func (r *Resolver) fetch(ctx context.Context, path string) (string, error) {
	if inv, ok := r.fetcher.(invalidator); ok {
		inv.Invalidate(path)
	}

	return r.fetcher.Fetch(ctx, path)
}
