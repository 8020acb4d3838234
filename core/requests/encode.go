// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package requests

import (
	"net/url"
	"strings"
)

// IsAbsoluteURL reports whether p is an http or https URL.
func IsAbsoluteURL(p string) bool {
	lower := strings.ToLower(p)

	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// EncodePath percent-encodes every segment of p and keeps the separators.
//
// A "?query" or "#fragment" suffix is kept verbatim and absolute http(s)
// URLs are returned unchanged. Segments are unescaped first so that an
// already encoded path comes back the same.
func EncodePath(p string) string {
	if IsAbsoluteURL(p) {
		return p
	}

	p, suffix := splitSuffix(p)

	segments := strings.Split(p, "/")
	for i, segment := range segments {
		if decoded, err := url.PathUnescape(segment); err == nil {
			segment = decoded
		}

		segments[i] = url.PathEscape(segment)
	}

	return strings.Join(segments, "/") + suffix
}

// splitSuffix separates the path from a trailing "?query" or "#fragment".
func splitSuffix(p string) (string, string) {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		return p[:i], p[i:]
	}

	return p, ""
}
