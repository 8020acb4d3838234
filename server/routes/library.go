// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"codeberg.org/synthoma/reader/core/manifest"
	"codeberg.org/synthoma/reader/i18n"
	"codeberg.org/synthoma/reader/views"
)

// LibraryPage lists the manifest's collections. Chapters the reader has
// opened in this session are marked.
func LibraryPage(w http.ResponseWriter, r *http.Request) error {
	data := views.LibraryData{}

	m, err := loadManifest(r)
	if err != nil {
		log.Warn().Err(err).Str("sys", "manifest").Msg("Library unavailable")

		data.Unavailable = true
	} else {
		rd, hasSession := currentSession(r)

		for _, c := range m.Collections {
			collection := views.LibraryCollection{Title: c.DisplayTitle()}

			for _, ch := range c.Chapters {
				collection.Chapters = append(collection.Chapters, views.LibraryChapter{
					Title:   ch.DisplayTitle(),
					Path:    ch.Path,
					Visited: hasSession && rd.Visited(ch.Path),
				})
			}

			data.Collections = append(data.Collections, collection)
		}
	}

	return renderPage(w, r, i18n.Tr(r.Context(), "Library"), views.Library(data))
}

func loadManifest(r *http.Request) (*manifest.Manifest, error) {
	if manifest.Default == nil {
		return &manifest.Manifest{}, nil
	}

	return manifest.Default.Manifest(r.Context())
}
