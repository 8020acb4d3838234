// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"codeberg.org/synthoma/reader/core/requests"
	"codeberg.org/synthoma/reader/server/request_context"
)

// createTestRequest creates a test HTTP request with request context.
func createTestRequest(t *testing.T) *http.Request {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	return req.WithContext(request_context.WithRequestContext(req.Context(), req))
}

func TestCatchError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		handler     func(w http.ResponseWriter, r *http.Request) error
		wantStatus  int
		wantBody    string
		wantErr     bool
		wantHeaders map[string]string
	}{
		{
			name: "success passes through",
			handler: func(w http.ResponseWriter, _ *http.Request) error {
				w.Header().Set("X-Test", "kept")
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"status": "success"}`))

				return nil
			},
			wantStatus:  http.StatusCreated,
			wantBody:    `{"status": "success"}`,
			wantHeaders: map[string]string{"X-Test": "kept"},
		},
		{
			name: "unhandled error renders the error page",
			handler: func(w http.ResponseWriter, _ *http.Request) error {
				_, _ = w.Write([]byte("partial"))

				return errors.New("test handler error")
			},
			wantStatus:  http.StatusInternalServerError,
			wantBody:    "500 Internal Server Error",
			wantErr:     true,
			wantHeaders: map[string]string{"Cache-Control": "no-store"},
		},
		{
			name: "fetch errors keep their status",
			handler: func(http.ResponseWriter, *http.Request) error {
				return &requests.FetchError{Path: "/x", StatusCode: http.StatusNotFound, Err: errors.New("gone")}
			},
			wantStatus: http.StatusNotFound,
			wantBody:   "This chapter does not exist.",
			wantErr:    true,
		},
		{
			name: "written 404 is replaced by the error page",
			handler: func(w http.ResponseWriter, _ *http.Request) error {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte("raw not found"))

				return nil
			},
			wantStatus: http.StatusNotFound,
			wantBody:   "404 Not Found",
		},
		{
			name: "handled error status is kept",
			handler: func(w http.ResponseWriter, _ *http.Request) error {
				http.Error(w, "bad index", http.StatusBadRequest)

				return errors.New("bad index")
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "bad index",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := createTestRequest(t)
			rr := httptest.NewRecorder()

			CatchError(tt.handler).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)

			for k, v := range tt.wantHeaders {
				assert.Equal(t, v, rr.Header().Get(k), k)
			}

			ctx := request_context.FromRequest(req)
			assert.Equal(t, tt.wantStatus, ctx.StatusCode)
			assert.Equal(t, tt.wantErr, ctx.RequestError != nil)
		})
	}
}

func TestWithRequestContext(t *testing.T) {
	t.Parallel()

	var ids []string

	handler := Wrap(WithRequestContext, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := request_context.FromRequest(r)

		assert.Equal(t, http.StatusOK, ctx.StatusCode)
		assert.NoError(t, ctx.RequestError)
		assert.True(t, ctx.ReduceMotion)

		ids = append(ids, ctx.RequestID)

		w.WriteHeader(http.StatusOK)
	}))

	for range 3 {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/reader?instant=1", nil))
	}

	assert.Len(t, ids, 3)

	seen := map[string]bool{}
	for _, id := range ids {
		assert.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate request ID %s", id)
		seen[id] = true
	}
}

func TestSetResponseHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path         string
		cacheControl string
	}{
		{"/", "private, no-cache"},
		{"/css/reader.css", "public, max-age=604800"},
		{"/js/reader.js", "public, max-age=604800"},
		{"/reader", "no-store"},
		{"/reader/events", "no-store"},
		{"/results.json", "no-store"},
		{"/readers-guide", "private, no-cache"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			rr := httptest.NewRecorder()
			handler := Wrap(SetResponseHeaders, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.cacheControl, rr.Header().Get("Cache-Control"))
			assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
			assert.NotEmpty(t, rr.Header().Get("Synthoma-Version"))

			csp := rr.Header().Get("Content-Security-Policy")
			assert.Contains(t, csp, "connect-src 'self'")
			assert.NotContains(t, csp, "unsafe-inline")
		})
	}
}
