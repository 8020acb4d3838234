// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package reveal

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMinStep is the shortest delay between two ticks.
const DefaultMinStep = 10 * time.Millisecond

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs fn once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// TimeScheduler schedules with the runtime's timers.
type TimeScheduler struct{}

func (TimeScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Options configures a Typewriter.
type Options struct {
	// Total is the number of characters to type.
	Total int

	// Budget is the intended duration of the whole run.
	// Zero or less completes the run as soon as it starts.
	Budget time.Duration

	// MinStep bounds the delay between ticks from below.
	// Zero means DefaultMinStep.
	MinStep time.Duration

	OnFrame func(typed int)
	OnDone  func()
}

// StepDuration returns the delay between ticks for typing total characters
// within budget, never shorter than minStep.
func StepDuration(budget time.Duration, total int, minStep time.Duration) time.Duration {
	if total <= 0 {
		return minStep
	}

	// whole milliseconds
	step := time.Duration(math.Round(float64(budget)/float64(total)/float64(time.Millisecond))) * time.Millisecond

	return max(step, minStep)
}

// Typewriter types one segment, one character per tick.
//
// A Typewriter runs at most once. Cancelling it stops future ticks without
// touching what was already shown; fast-forwarding completes it at once.
// OnDone is called exactly once unless the run is cancelled first.
type Typewriter struct {
	sched Scheduler
	opts  Options
	step  time.Duration

	cancelled atomic.Bool
	ticks     atomic.Int64

	mu      sync.Mutex
	state   State
	started bool
	timer   Timer
}

// NewTypewriter prepares a run; nothing happens until Start.
func NewTypewriter(sched Scheduler, opts Options) *Typewriter {
	if opts.MinStep <= 0 {
		opts.MinStep = DefaultMinStep
	}

	return &Typewriter{
		sched: sched,
		opts:  opts,
		step:  StepDuration(opts.Budget, opts.Total, opts.MinStep),
		state: NewState(opts.Total),
	}
}

// Step returns the delay between ticks.
func (tw *Typewriter) Step() time.Duration {
	return tw.step
}

// Start shows the empty frame and schedules the first tick.
func (tw *Typewriter) Start() {
	tw.mu.Lock()

	if tw.started || tw.cancelled.Load() {
		tw.mu.Unlock()

		return
	}

	tw.started = true

	var effects []Effect

	if tw.opts.Total <= 0 || tw.opts.Budget <= 0 {
		tw.state, effects = tw.state.FastForward()
	} else {
		effects = []Effect{Frame{Typed: 0}}
		tw.timer = tw.sched.AfterFunc(tw.step, tw.tick)
	}

	tw.mu.Unlock()

	tw.dispatch(effects)
}

func (tw *Typewriter) tick() {
	if tw.cancelled.Load() {
		return
	}

	tw.mu.Lock()

	if !tw.state.Typing {
		tw.mu.Unlock()

		return
	}

	var effects []Effect

	tw.state, effects = tw.state.Tick()
	tw.ticks.Add(1)

	if tw.state.Typing {
		tw.timer = tw.sched.AfterFunc(tw.step, tw.tick)
	}

	tw.mu.Unlock()

	tw.dispatch(effects)
}

// FastForward types the rest of the segment and calls OnDone before
// returning. It reports whether there was anything left to complete.
func (tw *Typewriter) FastForward() bool {
	if tw.cancelled.Load() {
		return false
	}

	tw.mu.Lock()

	if !tw.state.Typing {
		tw.mu.Unlock()

		return false
	}

	var effects []Effect

	tw.started = true
	tw.state, effects = tw.state.FastForward()

	if tw.timer != nil {
		tw.timer.Stop()
	}

	tw.mu.Unlock()

	tw.dispatch(effects)

	return true
}

// Cancel stops the run. Ticks already scheduled become no-ops.
func (tw *Typewriter) Cancel() {
	tw.cancelled.Store(true)

	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timer != nil {
		tw.timer.Stop()
	}
}

// Cancelled reports whether Cancel was called.
func (tw *Typewriter) Cancelled() bool {
	return tw.cancelled.Load()
}

// State returns the current progress.
func (tw *Typewriter) State() State {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	return tw.state
}

// Ticks returns the number of ticks that advanced the run.
func (tw *Typewriter) Ticks() int {
	return int(tw.ticks.Load())
}

func (tw *Typewriter) dispatch(effects []Effect) {
	for _, effect := range effects {
		if tw.cancelled.Load() {
			return
		}

		switch e := effect.(type) {
		case Frame:
			if tw.opts.OnFrame != nil {
				tw.opts.OnFrame(e.Typed)
			}
		case Completed:
			if tw.opts.OnDone != nil {
				tw.opts.OnDone()
			}
		}
	}
}
