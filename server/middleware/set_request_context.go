// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"net/http"
	"strings"

	"codeberg.org/synthoma/reader/core/cookie"
	"codeberg.org/synthoma/reader/core/untrusted"
	"codeberg.org/synthoma/reader/i18n"
	"codeberg.org/synthoma/reader/server/request_context"
)

// WithRequestContext attaches a RequestContext to each request.
func WithRequestContext(w http.ResponseWriter, r *http.Request, next http.Handler) {
	ctx := request_context.WithRequestContext(r.Context(), r)
	rememberPreferences(w, r, request_context.FromContext(ctx))

	next.ServeHTTP(w, r.WithContext(ctx))
}

// rememberPreferences keeps a language or reduced motion picked in the
// query string for the following requests.
func rememberPreferences(w http.ResponseWriter, r *http.Request, rc *request_context.RequestContext) {
	if r.Method != http.MethodGet {
		return
	}

	q := r.URL.Query()

	if q.Has(i18n.LangParam) {
		if strings.EqualFold(q.Get(i18n.LangParam), "auto") {
			untrusted.ClearCookie(w, r, cookie.LangCookie)
		} else {
			untrusted.SetCookie(w, r, cookie.LangCookie, rc.Lang.String())
		}
	}

	if q.Has("instant") {
		value := ""
		if rc.ReduceMotion {
			value = "1"
		}

		untrusted.SetCookie(w, r, cookie.ReduceMotionCookie, value)
	}
}
