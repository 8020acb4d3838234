// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package idgen makes short identifiers for correlating log lines.
*/
package idgen

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// entropyBytes is the number of random bytes appended to the timestamp.
const entropyBytes = 3

// Make returns a short ID: the wall-clock time as hhmmss followed by
// four URL-safe characters of entropy.
func Make() string {
	return MakeAt(time.Now())
}

// MakeAt is Make for a given instant.
func MakeAt(t time.Time) string {
	var entropy [entropyBytes]byte

	_, _ = rand.Read(entropy[:])

	return clock(t) + base64.RawURLEncoding.EncodeToString(entropy[:])
}

// Child derives the ID of a request made on behalf of parent.
func Child(parent string) string {
	if parent == "" {
		return Make()
	}

	return parent + "-" + Make()
}

func clock(t time.Time) string {
	return t.Format("150405")
}
