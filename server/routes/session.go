// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"codeberg.org/synthoma/reader/config"
	"codeberg.org/synthoma/reader/core/cookie"
	"codeberg.org/synthoma/reader/core/session"
	"codeberg.org/synthoma/reader/core/untrusted"
	"codeberg.org/synthoma/reader/i18n"
	"codeberg.org/synthoma/reader/server/request_context"
	"codeberg.org/synthoma/reader/server/utils"
)

// sessionID returns the session ID carried by the request's signed
// cookie, or "" when there is none or it does not verify.
func sessionID(r *http.Request) string {
	token := untrusted.GetCookie(r, cookie.SessionCookie)
	if token == "" {
		return ""
	}

	id, err := config.SessionSigner.Verify(token)
	if err != nil {
		log.Debug().Err(err).Str("sys", "session").Msg("Ignoring invalid session cookie")

		return ""
	}

	return id
}

// currentSession returns the reader's live session without starting one.
func currentSession(r *http.Request) (*session.Reader, bool) {
	id := sessionID(r)
	if id == "" || session.Default == nil {
		return nil, false
	}

	return session.Default.Get(id)
}

// acquireSession returns the reader's session, starting one and issuing
// its cookie when needed. The session speaks the request's language.
func acquireSession(w http.ResponseWriter, r *http.Request) (*session.Reader, error) {
	id := sessionID(r)

	// only the language outlives the request
	ctx := i18n.WithTag(context.Background(), request_context.FromRequest(r).Lang)

	rd, err := session.Default.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}

	if rd.ID != id {
		token, err := config.SessionSigner.Sign(rd.ID, config.Global.Session.TTL)
		if err != nil {
			return nil, err
		}

		untrusted.SetCookieFor(w, r, cookie.SessionCookie, token, config.Global.Session.TTL)
	} else {
		rd.SetContext(ctx)
	}

	return rd, nil
}

// ResetReader ends the reader's session and forgets every cookie the
// reader set, then sends them to the posted return path or the library.
func ResetReader(w http.ResponseWriter, r *http.Request) error {
	if id := sessionID(r); id != "" && session.Default != nil {
		session.Default.Remove(id)
	}

	untrusted.ClearAllCookies(w, r)

	to := utils.SanitizeReturnPath(utils.GetFormValue(r, "return"))
	if to == "" {
		to = "/"
	}

	http.Redirect(w, r, to, http.StatusSeeOther)

	return nil
}
