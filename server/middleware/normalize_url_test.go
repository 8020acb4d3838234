// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		requestURL       string
		expectedStatus   int
		expectedLocation string
	}{
		{
			name:           "Root path should not redirect",
			requestURL:     "/",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Canonical path should not redirect",
			requestURL:     "/reader?u=%2Fbooks%2Fa%2F1.html",
			expectedStatus: http.StatusOK,
		},
		{
			name:             "Trailing slash should redirect",
			requestURL:       "/results/",
			expectedStatus:   http.StatusPermanentRedirect,
			expectedLocation: "/results",
		},
		{
			name:             "Query parameters should be preserved",
			requestURL:       "/reader/?u=%2Fbooks%2Fa.html&instant=1",
			expectedStatus:   http.StatusPermanentRedirect,
			expectedLocation: "/reader?u=%2Fbooks%2Fa.html&instant=1",
		},
		{
			name:             "Repeated slashes should collapse",
			requestURL:       "/books//a///1.html",
			expectedStatus:   http.StatusPermanentRedirect,
			expectedLocation: "/books/a/1.html",
		},
		{
			name:             "Dot segments should resolve",
			requestURL:       "/books/a/../b/./1.html",
			expectedStatus:   http.StatusPermanentRedirect,
			expectedLocation: "/books/b/1.html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := Wrap(NormalizeURL, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
			// set directly so that the path reaches the middleware uncleaned
			req.URL.Path, req.URL.RawQuery, _ = strings.Cut(tt.requestURL, "?")

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedLocation, w.Header().Get("Location"))
		})
	}
}

func TestCanonicalPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path      string
		canonical string
		ok        bool
	}{
		{"/", "/", true},
		{"", "/", true},
		{"/results", "/results", true},
		{"/results/", "/results", false},
		{"//evil.example/x", "/evil.example/x", false},
		{"/books/a/../1.html", "/books/1.html", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			canonical, ok := canonicalPath(tt.path)
			assert.Equal(t, tt.canonical, canonical)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
