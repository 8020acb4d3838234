// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package sequencer

import (
	"context"

	"codeberg.org/synthoma/reader/core/reveal"
)

// Fetcher retrieves raw chapter markup.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (string, error)
}

// ScoreStore counts the tags of activated choices.
type ScoreStore interface {
	Increment(tags ...string)
	ReadAll() map[string]int
}

// Navigator performs the transitions requested by choices.
type Navigator interface {
	// NavigateTo records that the view moves to another chapter.
	NavigateTo(path string)

	// Open leaves the reader for an external URL.
	Open(url string)

	// Scroll moves to an element of the current chapter.
	Scroll(fragment string)
}

// NextResolver finds the chapter that follows path, if any.
type NextResolver interface {
	ResolveNext(ctx context.Context, path string) (string, bool)
}

// Warmer is implemented by resolvers that can prefetch their data
// while a chapter is being fetched.
type Warmer interface {
	Warm(ctx context.Context) error
}

// Announcer sends short messages to assistive technology.
type Announcer interface {
	Announce(message string)
}

// Effects are decorative animations paused while text is being typed.
type Effects interface {
	Start()
	Stop()
}

// View receives every change of the chapter view.
type View interface {
	Show(s Snapshot)
}

// Executor serializes the sequencer's work.
//
// Post and the callbacks of AfterFunc run one at a time on the same loop;
// Go runs blocking work off the loop.
type Executor interface {
	reveal.Scheduler

	Post(fn func())
	Go(fn func())
}

type noopScores struct{}

func (noopScores) Increment(...string) {}

func (noopScores) ReadAll() map[string]int { return map[string]int{} }

type noopNavigator struct{}

func (noopNavigator) NavigateTo(string) {}
func (noopNavigator) Open(string)       {}
func (noopNavigator) Scroll(string)     {}

type noopResolver struct{}

func (noopResolver) ResolveNext(context.Context, string) (string, bool) { return "", false }

type noopAnnouncer struct{}

func (noopAnnouncer) Announce(string) {}

type noopEffects struct{}

func (noopEffects) Start() {}
func (noopEffects) Stop()  {}

type noopView struct{}

func (noopView) Show(Snapshot) {}
