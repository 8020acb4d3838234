// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package session

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"codeberg.org/synthoma/reader/config"
	"codeberg.org/synthoma/reader/core/chapter"
	"codeberg.org/synthoma/reader/core/manifest"
	"codeberg.org/synthoma/reader/core/requests"
	"codeberg.org/synthoma/reader/core/reveal"
	"codeberg.org/synthoma/reader/core/scores"
	"codeberg.org/synthoma/reader/core/sequencer"
)

const sweepInterval = 5 * time.Minute

// Default is the registry built by Setup.
var Default *Registry

var backendCloser io.Closer

// Setup builds Default from config.Global. requests.Setup and
// manifest.Setup must have run.
func Setup() error {
	var backend scores.Backend

	if config.Global.Session.ScoreBackend == config.RedisBackend {
		redis, err := scores.NewRedisBackend()
		if err != nil {
			return fmt.Errorf("failed to connect to the score backend: %w", err)
		}

		backend = redis
		backendCloser = redis

		log.Info().Str("addr", config.Global.Redis.Addr).Msg("Persisting scores to Redis")
	}

	deps := Deps{
		Fetcher:        requests.DefaultFetcher,
		Backend:        backend,
		PersistTimeout: config.Global.Session.PersistTimeout,
		Options:        Options(),
	}

	if manifest.Default != nil {
		deps.Next = manifest.Default
	}

	Default = NewRegistry(config.Global.Session.TTL, sweepInterval, func(ctx context.Context, id string) (*Reader, error) {
		return NewReader(ctx, id, deps)
	})

	return nil
}

// Options returns the sequencer options configured in config.Global.
func Options() sequencer.Options {
	rc := config.Global.Reveal

	// validated when the configuration was loaded
	policy, _ := chapter.ParseGroupingPolicy(rc.GroupingPolicy)

	return sequencer.Options{
		Pacing: reveal.Pacing{
			PerChar: rc.PerChar,
			Min:     rc.Min,
			Max:     rc.Max,
			Fixed:   rc.Fixed,
		},
		MinStep: rc.MinStep,
		Stagger: rc.ChoiceStagger,
		Policy:  policy,
	}
}

// Fini closes every session and the score backend.
func Fini() {
	if Default != nil {
		Default.Close()
	}

	if backendCloser != nil {
		if err := backendCloser.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close the score backend")
		}
	}
}
