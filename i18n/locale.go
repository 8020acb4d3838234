// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package i18n

import (
	"slices"

	"golang.org/x/text/language"
)

// BaseLocale is the language msgids are written in.
const BaseLocale = "en"

var baseTag = language.Make(BaseLocale)

// Languages returns the supported tags, base locale first.
//
// Setup must be called successfully before using Languages; otherwise it panics.
func Languages() []language.Tag {
	if matcher == nil {
		panic("i18n: Setup must be called before calling Languages")
	}

	return slices.Clone(supportedTags)
}

// Loaded reports whether Setup has loaded the catalogues.
func Loaded() bool {
	return matcher != nil
}
