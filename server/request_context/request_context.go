// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package request_context carries per-request state through the middleware chain.

It is a separate package because Go disallows a cyclic import graph.
*/
package request_context

import (
	"context"
	"net/http"

	"golang.org/x/text/language"

	"codeberg.org/synthoma/reader/core/idgen"
	"codeberg.org/synthoma/reader/core/untrusted"
	"codeberg.org/synthoma/reader/i18n"
)

// RequestContext is request-scoped state shared by middleware and handlers.
type RequestContext struct {
	// RequestID is an identifier for tracing requests.
	RequestID string

	// RequestError is set by middleware.CatchError when a handler fails; an
	// error page is rendered in place of the normal response.
	RequestError error

	// StatusCode to be sent in the response. Defaults to 200 OK.
	StatusCode int

	Lang language.Tag

	// ReduceMotion is true when reveals should complete instantly.
	ReduceMotion bool
}

type requestContextKeyType struct{}

var requestContextKey = requestContextKeyType{}

// WithRequestContext attaches a new RequestContext for r to ctx.
func WithRequestContext(ctx context.Context, r *http.Request) context.Context {
	ctx = i18n.WithRequest(ctx, r)

	rc := RequestContext{
		RequestID:    idgen.Make(),
		StatusCode:   http.StatusOK,
		Lang:         i18n.TagFrom(ctx),
		ReduceMotion: untrusted.ReduceMotion(r),
	}

	return context.WithValue(ctx, requestContextKey, &rc)
}

// FromContext returns the RequestContext in ctx, or a zero value.
func FromContext(ctx context.Context) *RequestContext {
	if ctx != nil {
		if rc, ok := ctx.Value(requestContextKey).(*RequestContext); ok {
			return rc
		}
	}

	return &RequestContext{}
}

// FromRequest is FromContext(r.Context()).
func FromRequest(r *http.Request) *RequestContext {
	return FromContext(r.Context())
}
