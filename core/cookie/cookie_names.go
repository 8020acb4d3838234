// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package cookie defines the cookie names used by the reader.
*/
package cookie

// CookieName names a cookie set by the reader.
type CookieName string

const (
	// SessionCookie holds the signed reader session token.
	SessionCookie CookieName = "Session"

	// ReduceMotionCookie makes every reveal instant when set to "1".
	ReduceMotionCookie CookieName = "ReduceMotion"

	LangCookie CookieName = "Lang"
)

// AllCookieNames lists every cookie the reader may set.
var AllCookieNames = []CookieName{
	SessionCookie,
	ReduceMotionCookie,
	LangCookie,
}

// IsHttpOnly reports whether scripts must not see the cookie.
//
//nolint:revive // matches the net/http field name
func IsHttpOnly(name CookieName) bool {
	return name == SessionCookie
}
