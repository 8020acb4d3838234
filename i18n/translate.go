// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package i18n

import (
	"context"
	"strings"
	"sync"
	"text/template"

	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
)

// templateCache holds compiled templates keyed by their text.
var templateCache sync.Map

// Vars holds named placeholder values.
type Vars map[string]any

// UserError is an error whose message is already translated and can be shown to the reader.
type UserError struct {
	msg string
}

// NewUserError translates msgid for the locale in ctx.
func NewUserError(ctx context.Context, msgid string, kv ...any) *UserError {
	return &UserError{msg: Tr(ctx, msgid, kv...)}
}

func (e *UserError) Error() string {
	return e.msg
}

// Tr translates msgid for the locale in ctx and fills in key-value placeholders.
func Tr(ctx context.Context, msgid string, kv ...any) string {
	return translate(ctx, msgid, "", 0, false, pairs(kv))
}

// TrN picks the singular or plural form for n.
func TrN(ctx context.Context, singular, plural string, n int, kv ...any) string {
	return translate(ctx, singular, plural, n, true, pairs(kv))
}

func translate(ctx context.Context, singular, plural string, n int, pluralMode bool, vars Vars) string {
	loc, matched := resolveLocale(TagFrom(ctx))

	text := singular
	if pluralMode && n != 1 {
		text = plural
	}

	found := false

	if loc != nil {
		if pluralMode {
			if found = loc.IsTranslatedND(poDomain, singular, n); found {
				text = loc.GetND(poDomain, singular, plural, n)
			}
		// n=1 so the plural formula picks the singular form
		} else if found = loc.IsTranslatedND(poDomain, singular, 1); found {
			text = loc.GetD(poDomain, singular)
		}
	}

	// the base locale has no catalogue of its own
	if !found && matched != baseTag && strictMissingKeys() {
		logMissingOnce(matched, singular)

		text = "⟦" + text + "⟧"
	}

	return render(text, vars)
}

// render executes s as a text/template over data.
func render(s string, data Vars) string {
	if !strings.Contains(s, "{{") {
		return s
	}

	var tmpl *template.Template

	if cached, ok := templateCache.Load(s); ok {
		tmpl, _ = cached.(*template.Template)
	} else {
		var err error

		tmpl, err = template.New("msg").Option("missingkey=error").Parse(s)
		if err != nil {
			Logger.Error().Err(err).Str("text", s).Msg("Invalid translation template")

			return s
		}

		templateCache.Store(s, tmpl)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, map[string]any(data)); err != nil {
		Logger.Error().Err(err).Str("text", s).Msg("Failed to render translation")

		return s
	}

	return b.String()
}

// resolveLocale matches t against the loaded locales.
func resolveLocale(t language.Tag) (*gotext.Locale, language.Tag) {
	if matcher == nil {
		return nil, baseTag
	}

	_, index, _ := matcher.Match(t)
	matched := supportedTags[index]

	return localesByTag[matched.String()], matched
}

// pairs builds Vars from alternating key, value arguments.
// Panics on programmer error.
func pairs(kv []any) Vars {
	if len(kv)%2 != 0 {
		panic("i18n: odd number of arguments, want key, value pairs")
	}

	m := make(Vars, len(kv)/2)

	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic("i18n: key must be a string")
		}

		m[k] = kv[i+1]
	}

	return m
}
