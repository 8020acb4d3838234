// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"codeberg.org/synthoma/reader/core/requests"
	"codeberg.org/synthoma/reader/core/session"
	"codeberg.org/synthoma/reader/i18n"
	"codeberg.org/synthoma/reader/server/request_context"
	"codeberg.org/synthoma/reader/views"
)

// ErrorPage renders the error page for the request's RequestError and
// StatusCode. The status line has already been written.
func ErrorPage(w http.ResponseWriter, r *http.Request) {
	rc := request_context.FromRequest(r)

	data := views.ErrorData{
		StatusCode: rc.StatusCode,
		Message:    errorMessage(r, rc.RequestError, rc.StatusCode),
	}

	if err := views.Page(pageData(r, i18n.Tr(r.Context(), "Error")), views.Error(data)).Render(r.Context(), w); err != nil {
		log.Err(err).Msg("Failed to render the error page")
	}
}

func errorMessage(r *http.Request, err error, status int) string {
	var (
		fetchErr *requests.FetchError
		userErr  *i18n.UserError
	)

	switch {
	case errors.As(err, &fetchErr):
		return session.ErrorMessage(r.Context(), err)
	case errors.As(err, &userErr):
		return userErr.Error()
	case status == http.StatusNotFound:
		return i18n.Tr(r.Context(), "This page does not exist.")
	case status == http.StatusConflict:
		return i18n.Tr(r.Context(), "The story has moved on. Reload the chapter and try again.")
	case status == http.StatusGone:
		return i18n.Tr(r.Context(), "Your reading session has ended. Open the chapter again to start a new one.")
	default:
		return i18n.Tr(r.Context(), "Something went wrong.")
	}
}
