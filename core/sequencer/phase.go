// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package sequencer

import "fmt"

// Phase is the stage of a chapter view.
type Phase int

const (
	Idle Phase = iota
	Fetching
	Sanitizing
	Segmenting
	Typing
	Revealed
	Continuing
	NavigatingAway
	Done
	Error
)

var phaseNames = [...]string{
	Idle:           "idle",
	Fetching:       "fetching",
	Sanitizing:     "sanitizing",
	Segmenting:     "segmenting",
	Typing:         "typing",
	Revealed:       "revealed",
	Continuing:     "continuing",
	NavigatingAway: "navigating-away",
	Done:           "done",
	Error:          "error",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}

	return fmt.Sprintf("Phase(%d)", int(p))
}

// Terminal reports whether the view stays in p until the next Load.
func (p Phase) Terminal() bool {
	return p == Done || p == Error
}

// Snapshot is what a view shows at one instant.
type Snapshot struct {
	Path  string
	Title string
	Phase Phase

	// Committed is the markup that no longer changes except for the state
	// of its choice groups.
	Committed string

	// Live is the partially typed segment.
	Live string

	Typed int
	Total int

	// Next is the chapter offered once the current one is done.
	Next string

	Err error
}
