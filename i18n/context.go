// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package i18n

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"codeberg.org/synthoma/reader/core/cookie"
	"codeberg.org/synthoma/reader/core/untrusted"
)

type contextKeyType struct{}

var tagKey = contextKeyType{}

// LangParam is the query parameter carrying a preferred UI language.
const LangParam = "lang"

// WithTag returns a context carrying t.
func WithTag(ctx context.Context, t language.Tag) context.Context {
	return context.WithValue(ctx, tagKey, t)
}

// TagFrom returns the tag stored in ctx, or the base locale's tag.
func TagFrom(ctx context.Context) language.Tag {
	if ctx != nil {
		if t, _ := ctx.Value(tagKey).(language.Tag); t != (language.Tag{}) {
			return t
		}
	}

	return baseTag
}

// FromRequest picks the best supported tag for r, preferring the lang query
// parameter, then the Lang cookie, then Accept-Language. "auto" in the query
// ignores the cookie.
func FromRequest(r *http.Request) language.Tag {
	if r == nil || matcher == nil {
		return baseTag
	}

	q := r.URL.Query().Get(LangParam)
	auto := strings.EqualFold(q, "auto")

	preferred := make([]string, 0, 3)
	if q != "" && !auto {
		preferred = append(preferred, q)
	}

	if !auto {
		if c := untrusted.GetCookie(r, cookie.LangCookie); c != "" {
			preferred = append(preferred, c)
		}
	}

	if al := r.Header.Get("Accept-Language"); al != "" {
		preferred = append(preferred, al)
	}

	_, index := language.MatchStrings(matcher, preferred...)

	return supportedTags[index]
}

// WithRequest is WithTag(ctx, FromRequest(r)).
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return WithTag(ctx, FromRequest(r))
}
