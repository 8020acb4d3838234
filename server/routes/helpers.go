// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package routes holds the reader's HTTP handlers.

Page handlers return an error and are wrapped by middleware.CatchError,
which renders ErrorPage for errors they leave unhandled. The event stream
is a plain handler since it must not be buffered.
*/
package routes

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/a-h/templ"

	"codeberg.org/synthoma/reader/config"
	"codeberg.org/synthoma/reader/core/chapter"
	"codeberg.org/synthoma/reader/core/requests"
	"codeberg.org/synthoma/reader/core/sequencer"
	"codeberg.org/synthoma/reader/core/session"
	"codeberg.org/synthoma/reader/i18n"
	"codeberg.org/synthoma/reader/server/request_context"
	"codeberg.org/synthoma/reader/views"
)

// StatusFor maps err to the status of the error page. written is the
// status the handler wrote before failing.
func StatusFor(err error, written int) int {
	var (
		fetchErr *requests.FetchError
		userErr  *i18n.UserError
	)

	switch {
	case err == nil && written >= http.StatusBadRequest:
		return written
	case errors.As(err, &fetchErr) && fetchErr.StatusCode >= http.StatusBadRequest:
		return fetchErr.StatusCode
	case errors.As(err, &userErr), errors.Is(err, chapter.ErrChoiceOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, sequencer.ErrUnknownGroup),
		errors.Is(err, sequencer.ErrNothingNext),
		errors.Is(err, chapter.ErrGroupLocked),
		errors.Is(err, chapter.ErrGroupNotRevealed):
		return http.StatusConflict
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// pageData fills the data shared by every page.
func pageData(r *http.Request, title string) views.PageData {
	data := views.PageData{
		Title:      title,
		CurrentURL: r.URL.RequestURI(),
		Lang:       request_context.FromRequest(r).Lang,
	}

	if i18n.Loaded() {
		data.Languages = i18n.Languages()
	}

	return data
}

// renderPage writes body inside the page shell.
func renderPage(w http.ResponseWriter, r *http.Request, title string, body templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	return views.Page(pageData(r, title), body).Render(r.Context(), w)
}

// setPublicCache lets shared caches keep the response briefly.
func setPublicCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d",
		int(config.Global.HTTPCache.MaxAge.Seconds()),
		int(config.Global.HTTPCache.StaleWhileRevalidate.Seconds())))
}
