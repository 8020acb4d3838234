// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package reveal

import "time"

// Pacing turns a character count into a typing budget.
type Pacing struct {
	// PerChar is the time spent on each character before clamping.
	PerChar time.Duration

	// Min and Max clamp the budget of a non-empty segment.
	Min time.Duration
	Max time.Duration

	// Fixed, when positive, is used for every segment regardless of length.
	Fixed time.Duration
}

// DefaultPacing returns the pacing used when nothing is configured.
func DefaultPacing() Pacing {
	return Pacing{
		PerChar: 16 * time.Millisecond,
		Min:     2500 * time.Millisecond,
		Max:     24 * time.Second,
	}
}

// Budget returns the typing duration for chars characters.
func (p Pacing) Budget(chars int) time.Duration {
	if chars <= 0 {
		return 0
	}

	if p.Fixed > 0 {
		return p.Fixed
	}

	d := time.Duration(chars) * p.PerChar

	if p.Max > 0 {
		d = min(d, p.Max)
	}

	return max(d, p.Min)
}
