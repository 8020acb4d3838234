// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package i18n

import (
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/leonelquinteros/gotext"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"codeberg.org/synthoma/reader/server/assets"
)

// poDomain is the gettext domain loaded under each locale.
const poDomain = "synthoma"

var (
	// localesByTag maps canonical BCP 47 tags to their loaded locale.
	localesByTag map[string]*gotext.Locale

	// supportedTags starts with baseTag, the matcher's fallback.
	supportedTags []language.Tag

	matcher language.Matcher
)

// Setup loads the catalogues embedded under po/.
func Setup() error {
	return SetupFS(assets.FS)
}

// SetupFS loads every po/<locale>.po file in fsys. The file name may use
// hyphens or underscores ("pt-BR.po", "pt_BR.po"). Calling it again replaces
// the loaded locales.
func SetupFS(fsys fs.FS) error {
	Logger = log.With().Str("sys", "i18n").Logger()

	entries, err := fs.ReadDir(fsys, "po")
	if err != nil {
		return fmt.Errorf("failed to read po directory: %w", err)
	}

	loaded := make(map[string]*gotext.Locale)
	tags := []language.Tag{}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".po" {
			continue
		}

		t, err := language.Parse(strings.ReplaceAll(strings.TrimSuffix(name, ".po"), "_", "-"))
		if err != nil {
			Logger.Warn().Err(err).Str("file", name).Msg("Skipping invalid locale file")

			continue
		}

		po := gotext.NewPoFS(fsys)
		po.ParseFile(path.Join("po", name))

		loc := gotext.NewLocale("", t.String())
		loc.AddTranslator(poDomain, po)

		loaded[t.String()] = loc

		if t != baseTag {
			tags = append(tags, t)
		}

		Logger.Info().
			Str("locale", t.String()).
			Msg("Loaded locale")
	}

	slices.SortFunc(tags, func(a, b language.Tag) int { return strings.Compare(a.String(), b.String()) })

	localesByTag = loaded
	supportedTags = append([]language.Tag{baseTag}, tags...)
	matcher = language.NewMatcher(supportedTags)

	return nil
}
