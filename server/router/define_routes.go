// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"net/http"
	"net/http/pprof"
	"runtime/trace"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"codeberg.org/synthoma/reader/config"
	"codeberg.org/synthoma/reader/core/audit"
	"codeberg.org/synthoma/reader/server/assets"
	"codeberg.org/synthoma/reader/server/middleware"
	"codeberg.org/synthoma/reader/server/routes"
)

// DefineRoutes registers every route on the router.
func (router *Router) DefineRoutes() {
	fileServerHandler := fileServer()

	// Patterns ending in "/" are prefix matches.
	router.Handle("GET /css/", fileServerHandler)
	router.Handle("GET /js/", fileServerHandler)

	// Chapters, the manifest and chapter media
	prefix := config.Global.Content.Prefix
	router.Handle("GET "+prefix, middleware.CatchError(StripPrefix(prefix, routes.ContentFiles())))

	// Library
	// /{$} matches only the root path
	router.HandleFunc("GET /{$}", middleware.CatchError(routes.LibraryPage))

	// Reader
	router.HandleFunc("GET /reader", middleware.CatchError(routes.ReaderPage))
	router.HandleFunc("GET /reader/events", routes.ReaderEvents)
	router.HandleFunc("POST /reader/choice", middleware.CatchError(routes.ReaderChoice))
	router.HandleFunc("POST /reader/focus", middleware.CatchError(routes.ReaderFocus))
	router.HandleFunc("POST /reader/skip", middleware.CatchError(routes.ReaderSkip))
	router.HandleFunc("POST /reader/next", middleware.CatchError(routes.ReaderNext))
	router.HandleFunc("POST /reader/reset", middleware.CatchError(routes.ResetReader))

	// Results
	router.HandleFunc("GET /results", middleware.CatchError(routes.ResultsPage))
	router.HandleFunc("GET /results.json", middleware.CatchError(routes.ResultsJSON))

	// Links from older deployments
	router.HandleFunc("GET /chapter/{path...}", redirectPathToReader(prefix))
	router.HandleFunc("GET /read", redirectQueryParamToReader("chapter"))

	if config.Global.Metrics.Enabled {
		router.Handle("GET /metrics", promhttp.HandlerFor(audit.Registry, promhttp.HandlerOpts{Registry: audit.Registry}))
	}

	if config.Global.Development.InDevelopment {
		registerDebugRoutes(router)
	}

	// everything else gets the error page
	router.HandleFunc("/", middleware.CatchError(func(w http.ResponseWriter, _ *http.Request) error {
		w.WriteHeader(http.StatusNotFound)

		return nil
	}))
}

// fileServer serves the embedded css/ and js/ trees.
func fileServer() http.HandlerFunc {
	fileServer := http.FileServerFS(assets.FS)

	return func(w http.ResponseWriter, r *http.Request) {
		// go:embed files only change with a rebuild, so the per-instance
		// cache ID is a strong validator
		w.Header().Set("ETag", `"`+config.Global.Instance.FileServerCacheID+`"`)
		fileServer.ServeHTTP(w, r)
	}
}

var flightRecorder = trace.NewFlightRecorder(trace.FlightRecorderConfig{MinAge: time.Minute})

func registerDebugRoutes(router *Router) {
	err := flightRecorder.Start()
	if err != nil {
		panic(err)
	}

	router.HandleFunc("GET /debug/pprof/", pprof.Index)
	router.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
	router.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	router.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	router.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	router.HandleFunc("GET /debug/flight", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = flightRecorder.WriteTo(w)
	})
}
