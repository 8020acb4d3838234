// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"net/http"
	"path"
	"strings"
)

// NormalizeURL redirects requests whose path is not in canonical form:
// trailing slashes (except on the root), repeated slashes and dot segments.
// The query is preserved.
func NormalizeURL(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if canonical, ok := canonicalPath(r.URL.Path); !ok {
		target := *r.URL
		target.Path = canonical
		target.RawPath = ""

		http.Redirect(w, r, target.RequestURI(), http.StatusPermanentRedirect)

		return
	}

	next.ServeHTTP(w, r)
}

// canonicalPath returns the canonical form of p and whether p already is.
func canonicalPath(p string) (string, bool) {
	if p == "" || p == "/" {
		return "/", true
	}

	clean := path.Clean("/" + p)

	return clean, clean == p && !strings.HasSuffix(p, "/")
}
