// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package untrusted

import (
	"net/http"
	"net/url"
	"time"

	"codeberg.org/synthoma/reader/core/cookie"
	"codeberg.org/synthoma/reader/server/utils"
)

// CookieSameSite is Lax so that readers arriving from external links keep their session.
const CookieSameSite = http.SameSiteLaxMode

const cookieMaxAge = 30 * 24 * time.Hour

// Clear a cookie by setting its expiration date to this
var cookieExpireDelete = time.Date(2009, time.November, 10, 23, 0, 0, 0, time.UTC)

func newCookie(name cookie.CookieName, value string, expires time.Time, isSecure bool) *http.Cookie {
	return &http.Cookie{
		Name:     string(name),
		Value:    value,
		Path:     "/",
		Expires:  expires,
		Secure:   isSecure,
		HttpOnly: cookie.IsHttpOnly(name),
		SameSite: CookieSameSite,
	}
}

// GetCookie returns the unescaped value of the named cookie, or "".
func GetCookie(r *http.Request, name cookie.CookieName) string {
	c, err := r.Cookie(string(name))
	if err != nil {
		return ""
	}

	value, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}

	return value
}

// SetCookie stores value for 30 days. An empty value clears the cookie.
func SetCookie(w http.ResponseWriter, r *http.Request, name cookie.CookieName, value string) {
	SetCookieFor(w, r, name, value, cookieMaxAge)
}

// SetCookieFor stores value for maxAge.
func SetCookieFor(w http.ResponseWriter, r *http.Request, name cookie.CookieName, value string, maxAge time.Duration) {
	if value == "" {
		ClearCookie(w, r, name)

		return
	}

	http.SetCookie(w, newCookie(name, url.QueryEscape(value), time.Now().Add(maxAge), utils.IsConnectionSecure(r)))
}

// ClearCookie expires the named cookie.
func ClearCookie(w http.ResponseWriter, r *http.Request, name cookie.CookieName) {
	http.SetCookie(w, newCookie(name, "", cookieExpireDelete, utils.IsConnectionSecure(r)))
}

// ClearAllCookies expires every cookie the reader sets.
func ClearAllCookies(w http.ResponseWriter, r *http.Request) {
	for _, name := range cookie.AllCookieNames {
		ClearCookie(w, r, name)
	}
}

// ReduceMotion reports whether the reader asked for instant reveals, either
// with ?instant=1 or the ReduceMotion cookie.
func ReduceMotion(r *http.Request) bool {
	if v := r.URL.Query().Get("instant"); v != "" {
		return v == "1" || v == "true"
	}

	return GetCookie(r, cookie.ReduceMotionCookie) == "1"
}
