// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Synthoma is a reader for interactive fiction written as plain HTML chapters.

Chapters are typed out progressively and pause at groups of choices; the
reader's choices lead on through the story and are tallied per tag.
*/
package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"codeberg.org/synthoma/reader/config"
	"codeberg.org/synthoma/reader/core/audit"
	"codeberg.org/synthoma/reader/core/manifest"
	"codeberg.org/synthoma/reader/core/requests"
	"codeberg.org/synthoma/reader/core/session"
	"codeberg.org/synthoma/reader/i18n"
	"codeberg.org/synthoma/reader/server/assets"
	"codeberg.org/synthoma/reader/server/middleware/limiter"
	"codeberg.org/synthoma/reader/server/router"
)

// http.Server timeouts (gosec G112). Event streams lift their own write
// deadline.
const (
	readHeaderTimeout = 15 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 30 * time.Second

	shutdownGrace = 5 * time.Second
)

//go:embed assets/css assets/js
//go:embed all:po
var embeddedContent embed.FS

//nolint:gochecknoinits // assets.FS must be set before any package reads it
func init() {
	static, err := fs.Sub(embeddedContent, "assets")
	if err != nil {
		panic(err)
	}

	assets.FS = overlayFS{static: static, root: embeddedContent}
}

// overlayFS serves po/ from the module root and css/ and js/ from assets/.
type overlayFS struct {
	static fs.FS
	root   fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	if name == "po" || strings.HasPrefix(name, "po/") {
		return o.root.Open(name)
	}

	return o.static.Open(name)
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Reader failed")
	}
}

// setupSteps run in order; each depends on the ones before it.
var setupSteps = []struct {
	name string
	fn   func() error
}{
	{"configuration", config.Global.LoadConfig},
	{"i18n", i18n.Setup},
	{"content fetcher", requests.Setup},
	{"manifest", func() error {
		manifest.Setup(requests.DefaultFetcher)

		return nil
	}},
	{"reader sessions", session.Setup},
}

// run starts the reader and serves until SIGINT or SIGTERM.
func run() error {
	audit.SetDefaultLogger()

	for _, step := range setupSteps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("failed to set up %s: %w", step.name, err)
		}

		log.Debug().Str("step", step.name).Msg("Set up")
	}

	defer session.Fini()
	defer limiter.Fini()

	r := router.NewRouter()
	r.DefineRoutes()
	r.RegisterMiddleware()

	server := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	// event streams only end when their sessions do
	server.RegisterOnShutdown(session.Default.Close)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, server)
}

// serve runs server on the configured listener until ctx is done, then
// shuts it down within shutdownGrace.
func serve(ctx context.Context, server *http.Server) error {
	listener, err := listen(ctx)
	if err != nil {
		return err
	}

	served := make(chan error, 1)

	go func() {
		served <- server.Serve(listener)
	}()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server did not shut down cleanly: %w", err)
	}

	log.Info().Msg("Reader stopped")

	return nil
}
