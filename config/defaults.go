// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"time"

	"codeberg.org/synthoma/reader/core/reveal"
)

const (
	defaultCacheTTL    = 10 * time.Minute
	defaultManifestTTL = time.Minute

	defaultHTTPCacheMaxAge               = 30 * time.Second
	defaultHTTPCacheStaleWhileRevalidate = 60 * time.Second

	defaultSessionTTL     = 12 * time.Hour
	defaultPersistTimeout = 2 * time.Second
)

// SetDefaults populates the configuration with default values.
func (cfg *ServerConfig) SetDefaults() {
	cfg.Basic.Host = "localhost"
	cfg.Basic.Port = "8383"

	cfg.Content.Root = "./books"
	cfg.Content.Prefix = "/books/"
	cfg.Content.ManifestPath = "manifest.json"
	cfg.Content.MediaPath = "chapters-media.json"
	cfg.Content.AllowRemote = false
	cfg.Content.ManifestTTL = defaultManifestTTL

	cfg.Cache.Enabled = true
	cfg.Cache.Size = 256
	cfg.Cache.TTL = defaultCacheTTL
	cfg.Cache.Compress = true

	cfg.HTTPCache.MaxAge = defaultHTTPCacheMaxAge
	cfg.HTTPCache.StaleWhileRevalidate = defaultHTTPCacheStaleWhileRevalidate

	pacing := reveal.DefaultPacing()
	cfg.Reveal.PerChar = pacing.PerChar
	cfg.Reveal.Min = pacing.Min
	cfg.Reveal.Max = pacing.Max
	cfg.Reveal.Fixed = pacing.Fixed
	cfg.Reveal.MinStep = 10 * time.Millisecond
	cfg.Reveal.ChoiceStagger = 80 * time.Millisecond
	cfg.Reveal.GroupingPolicy = "adjacent"

	cfg.Session.TTL = defaultSessionTTL
	cfg.Session.ScoreBackend = MemoryBackend
	cfg.Session.PersistTimeout = defaultPersistTimeout

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.KeyPrefix = "synthoma:scores:"

	cfg.Metrics.Enabled = false

	cfg.Instance.RepoURL = "https://codeberg.org/synthoma/reader"

	cfg.Log.Level = "info"
	cfg.Log.Outputs = []string{"/dev/stderr"}
	cfg.Log.Format = "console"

	cfg.Limiter.Enabled = true
	cfg.Limiter.Rate = 5
	cfg.Limiter.Burst = 20
	cfg.Limiter.IPv4Prefix = 24
	cfg.Limiter.IPv6Prefix = 48
	cfg.Limiter.IdleTimeout = 10 * time.Minute
	cfg.Limiter.CleanupInterval = time.Minute

	cfg.Internationalization.StrictMissingKeys = false
}
