// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"maps"
	"net/http"
	"strings"
	"sync/atomic"

	"codeberg.org/synthoma/reader/config"
	"codeberg.org/synthoma/reader/server/utils"
)

var (
	// baseHeaders are set on every response.
	//
	// Synthoma-Version and Synthoma-Revision are added in SetResponseHeaders.
	baseHeaders = http.Header{
		"Referrer-Policy":        {"no-referrer"},
		"X-Frame-Options":        {"DENY"},
		"X-Content-Type-Options": {"nosniff"},
		"Permissions-Policy":     {strings.Join(defaultPermissionsPolicy, ", ")},
	}

	// choice delays travel in data-delay attributes, so no inline styles
	// are needed
	baseCSP = []string{
		"base-uri 'self'",
		"default-src 'self'",
		"style-src 'self'",
		"script-src 'self'",
		"font-src 'self'",
		"connect-src 'self'",
		"form-action 'self'",
		"frame-ancestors 'none'",
	}

	defaultPermissionsPolicy = []string{
		"accelerometer=()",
		"camera=()",
		"display-capture=()",
		"geolocation=()",
		"gyroscope=()",
		"magnetometer=()",
		"microphone=()",
		"payment=()",
		"usb=()",
		"xr-spatial-tracking=()",
	}
)

// SetResponseHeaders adds the default headers to every response.
func SetResponseHeaders(w http.ResponseWriter, r *http.Request, next http.Handler) {
	headers := w.Header()

	maps.Insert(headers, maps.All(baseHeaders))

	if config.Global.Development.InDevelopment {
		clearCacheOnce(headers)
	}

	setCacheControl(headers, r.URL.Path)

	headers.Set("Synthoma-Version", config.BuildVersion)
	headers.Set("Synthoma-Revision", config.Global.Build.Revision())
	headers.Set("Content-Security-Policy", buildCSP())

	next.ServeHTTP(w, r)
}

var cacheCleared atomic.Bool

// clearCacheOnce asks the first browser to connect to drop its cache, so
// edited stylesheets and scripts show up after a restart.
func clearCacheOnce(headers http.Header) {
	if cacheCleared.CompareAndSwap(false, true) {
		headers.Set("Clear-Site-Data", `"cache"`)
	}
}

// setCacheControl sets the default caching for path. Handlers may override it.
func setCacheControl(headers http.Header, path string) {
	switch {
	// the file server's ETag changes with every build
	case strings.HasPrefix(path, "/js/"), strings.HasPrefix(path, "/css/"):
		headers.Set("Cache-Control", "public, max-age=604800")
	// reader state and SSE must never be reused
	case path == "/reader" || strings.HasPrefix(path, "/reader/"), strings.HasPrefix(path, "/results"):
		headers.Set("Cache-Control", "no-store")
	default:
		headers.Set("Cache-Control", "private, no-cache")
	}
}

// buildCSP allows chapter media from the content origin when chapters are
// fetched from another host.
func buildCSP() string {
	directives := make([]string, len(baseCSP), len(baseCSP)+2)
	copy(directives, baseCSP)

	imgSrc := "img-src 'self' data:"
	mediaSrc := "media-src 'self'"

	if origin := utils.GetOriginFromURL(config.Global.Content.BaseURL); origin != "" {
		imgSrc += " " + origin
		mediaSrc += " " + origin
	}

	directives = append(directives, imgSrc, mediaSrc)

	return strings.Join(directives, "; ") + ";"
}
