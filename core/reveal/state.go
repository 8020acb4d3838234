// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package reveal paces the typewriter effect.

[State] is a pure transition function over the typed character count; it
knows nothing about time. [Typewriter] drives a State with a [Scheduler], which
is the only place timers are involved.
*/
package reveal

// State is the progress of one typing run.
type State struct {
	Total  int
	Typed  int
	Typing bool
}

// Effect is a side effect requested by a State transition.
type Effect interface {
	isEffect()
}

// Frame asks for the markup revealed up to Typed characters to be shown.
type Frame struct {
	Typed int
}

// Completed signals that typing has finished.
type Completed struct{}

func (Frame) isEffect()     {}
func (Completed) isEffect() {}

// NewState begins typing total characters.
func NewState(total int) State {
	return State{Total: max(total, 0), Typing: true}
}

// Tick types one more character.
func (s State) Tick() (State, []Effect) {
	if !s.Typing {
		return s, nil
	}

	s.Typed = min(s.Typed+1, s.Total)

	if s.Typed == s.Total {
		s.Typing = false

		return s, []Effect{Frame{Typed: s.Typed}, Completed{}}
	}

	return s, []Effect{Frame{Typed: s.Typed}}
}

// FastForward types every remaining character at once.
func (s State) FastForward() (State, []Effect) {
	if !s.Typing {
		return s, nil
	}

	s.Typed = s.Total
	s.Typing = false

	return s, []Effect{Frame{Typed: s.Typed}, Completed{}}
}

// Remaining returns the number of characters left to type.
func (s State) Remaining() int {
	return s.Total - s.Typed
}
