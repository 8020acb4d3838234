// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package requests retrieves chapter markup and other content files.

Paths are interpreted relative to the content prefix (e.g. /books/) and
handed to a [Source]. Absolute http(s) URLs go to a separate remote source
when one is configured. Successful results are kept in an LRU cache.
*/
package requests

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"codeberg.org/synthoma/reader/config"
	"codeberg.org/synthoma/reader/core/requests/lrucache"
)

// DefaultFetcher is the fetcher built by Setup.
var DefaultFetcher *Fetcher

// Fetcher resolves content paths against a Source and caches the results.
type Fetcher struct {
	Source Source

	// Remote serves absolute URLs. Nil rejects them with ErrRemoteDisabled.
	Remote Source

	// Prefix is stripped from paths before they reach Source.
	Prefix string

	cache *lrucache.Cache
}

// NewFetcher returns a Fetcher for source. cache may be nil.
func NewFetcher(source Source, prefix string, cache *lrucache.Cache) *Fetcher {
	return &Fetcher{Source: source, Prefix: prefix, cache: cache}
}

// Setup builds DefaultFetcher from config.Global.
func Setup() error {
	content := config.Global.Content

	var source Source
	if content.BaseURL != "" {
		source = HTTPSource{Base: content.BaseURL}
	} else {
		source = DirSource{FS: os.DirFS(content.Root)}
	}

	var cache *lrucache.Cache

	if config.Global.Cache.Enabled {
		var err error

		cache, err = lrucache.New(config.Global.Cache.Size, config.Global.Cache.TTL, config.Global.Cache.Compress)
		if err != nil {
			return fmt.Errorf("failed to create content cache: %w", err)
		}

		log.Info().
			Int("size", config.Global.Cache.Size).
			Dur("ttl", config.Global.Cache.TTL).
			Bool("compress", config.Global.Cache.Compress).
			Msg("Initialized content cache")
	} else {
		log.Info().Msg("Content cache is disabled")
	}

	DefaultFetcher = NewFetcher(source, content.Prefix, cache)

	if content.AllowRemote {
		DefaultFetcher.Remote = HTTPSource{}
	}

	return nil
}

// FetchChapter fetches path through DefaultFetcher.
func FetchChapter(ctx context.Context, path string) (string, error) {
	return DefaultFetcher.Fetch(ctx, path)
}

// Fetch returns the content at path. A cached copy is used when present.
// Failed fetches are never cached and never retried.
func (f *Fetcher) Fetch(ctx context.Context, path string) (string, error) {
	key := f.Key(path)

	if f.cache != nil {
		if markup, ok := f.cache.Get(key); ok {
			log.Ctx(ctx).Debug().Str("path", key).Msg("Content cache hit")

			return markup, nil
		}
	}

	var (
		markup string
		err    error
	)

	if IsAbsoluteURL(path) {
		if f.Remote == nil {
			return "", &FetchError{Path: path, StatusCode: http.StatusForbidden, Err: ErrRemoteDisabled}
		}

		markup, err = f.Remote.Fetch(ctx, path)
	} else {
		markup, err = f.Source.Fetch(ctx, f.relative(path))
	}

	if err != nil {
		return "", err
	}

	if f.cache != nil {
		f.cache.Add(key, markup)
	}

	return markup, nil
}

// Key is the canonical form of path used for caching.
func (f *Fetcher) Key(path string) string {
	if IsAbsoluteURL(path) {
		return path
	}

	p, _ := splitSuffix(path)

	return f.Prefix + EncodePath(f.relative(p))
}

// relative strips leading slashes and the content prefix from path.
func (f *Fetcher) relative(path string) string {
	path = strings.TrimLeft(path, "/")

	if prefix := strings.Trim(f.Prefix, "/"); prefix != "" {
		if path == prefix {
			return ""
		}

		path = strings.TrimPrefix(path, prefix+"/")
	}

	return strings.TrimLeft(path, "/")
}

// Invalidate drops cached entries whose path starts with prefix and returns
// their keys. prefix is canonicalized like the paths given to Fetch.
func (f *Fetcher) Invalidate(prefix string) []string {
	if f.cache == nil {
		return nil
	}

	removed := f.cache.Purge(f.Key(prefix))

	log.Debug().
		Int("count", len(removed)).
		Strs("paths", removed).
		Msg("Invalidated cached content")

	return removed
}
