// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"
	"strings"
	"time"

	"codeberg.org/synthoma/reader/config"
	"codeberg.org/synthoma/reader/core/manifest"
	"codeberg.org/synthoma/reader/core/requests"
	"codeberg.org/synthoma/reader/core/session"
	"codeberg.org/synthoma/reader/i18n"
	"codeberg.org/synthoma/reader/server/request_context"
	"codeberg.org/synthoma/reader/server/utils"
	"codeberg.org/synthoma/reader/views"
)

// ChapterParam is the query parameter naming the chapter to read.
const ChapterParam = "u"

// ReaderPage opens a chapter in the reader's session and renders the
// reader shell. Without a chapter it redirects to the library's first one.
func ReaderPage(w http.ResponseWriter, r *http.Request) error {
	path := strings.TrimSpace(utils.GetQueryParam(r, ChapterParam))
	if path == "" {
		return redirectToFirstChapter(w, r)
	}

	if !openable(path) {
		return i18n.NewUserError(r.Context(), "This address cannot be opened in the reader.")
	}

	start := time.Now()

	rd, err := acquireSession(w, r)
	if err != nil {
		return err
	}

	rd.Open(path, request_context.FromRequest(r).ReduceMotion)

	snap, err := rd.Snapshot()
	if err != nil {
		return err
	}

	utils.AddServerTimingHeader(w, "session", time.Since(start), "Reader session")

	data := views.ReaderData{
		Path:         snap.Path,
		Title:        snap.Title,
		Phase:        snap.Phase.String(),
		Committed:    snap.Committed,
		Live:         snap.Live,
		Typed:        snap.Typed,
		Total:        snap.Total,
		Next:         snap.Next,
		ReduceMotion: request_context.FromRequest(r).ReduceMotion,
		EventsURL:    "/reader/events",
	}

	if snap.Err != nil {
		data.Error = session.ErrorMessage(r.Context(), snap.Err)
	}

	if manifest.Default != nil {
		if media, ok := manifest.Default.Media(r.Context(), path); ok {
			data.Video = media.Video
			data.Audio = media.Audio
		}
	}

	title := data.Title
	if title == "" {
		title = i18n.Tr(r.Context(), "Reader")
	}

	return renderPage(w, r, title, views.Reader(data))
}

// openable accepts rooted paths, and absolute URLs when remote chapters
// are allowed.
func openable(path string) bool {
	if requests.IsAbsoluteURL(path) {
		return config.Global.Content.AllowRemote
	}

	return strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "//")
}

func redirectToFirstChapter(w http.ResponseWriter, r *http.Request) error {
	m, err := loadManifest(r)
	if err != nil {
		return err
	}

	flat := m.Flat()
	if len(flat) == 0 {
		http.Redirect(w, r, "/", http.StatusSeeOther)

		return nil
	}

	http.Redirect(w, r, views.ReaderURL(flat[0].Path), http.StatusSeeOther)

	return nil
}
