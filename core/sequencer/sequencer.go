// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package sequencer drives a chapter view from fetch to the last choice.

A Sequencer loads a chapter, types its first pass and hands the reader the
choice group that ends it. Picking an option either navigates to another
chapter or continues with the rest of the current one, appended below what
was already shown. Every method must be called on the loop of the Executor
the Sequencer was built with; only fetching and next-chapter lookup leave it.
*/
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"codeberg.org/synthoma/reader/core/audit"
	"codeberg.org/synthoma/reader/core/chapter"
	"codeberg.org/synthoma/reader/core/markup"
	"codeberg.org/synthoma/reader/core/requests"
	"codeberg.org/synthoma/reader/core/reveal"
	"codeberg.org/synthoma/reader/i18n"
)

var (
	ErrNoFetcher    = errors.New("sequencer: no fetcher")
	ErrNoExecutor   = errors.New("sequencer: no executor")
	ErrUnknownGroup = errors.New("unknown choice group")
	ErrNothingNext  = errors.New("no next chapter on offer")
)

// Ports are the collaborators of a Sequencer. Fetcher and Executor are
// required; the others default to no-ops.
type Ports struct {
	Fetcher   Fetcher
	Executor  Executor
	Scores    ScoreStore
	Navigator Navigator
	Next      NextResolver
	Announcer Announcer
	Effects   Effects
	View      View
}

// Options tune typing and grouping.
type Options struct {
	Pacing  reveal.Pacing
	MinStep time.Duration
	Stagger time.Duration
	Policy  chapter.GroupingPolicy

	// ReduceMotion completes every segment as soon as it starts.
	ReduceMotion bool
}

// block is one committed part of the view: static markup or a choice group.
type block struct {
	static string
	group  *chapter.Group
}

func (b block) markup() string {
	if b.group != nil {
		return b.group.Markup()
	}

	return b.static
}

// segment is the pass being typed.
type segment struct {
	pre    []markup.Node
	group  *chapter.Group
	typing []markup.Node
	total  int
	typed  int
	tw     *reveal.Typewriter
}

// Sequencer is the state machine of one chapter view.
type Sequencer struct {
	ctx   context.Context
	ports Ports
	opts  Options

	gen         uint64
	cancelFetch context.CancelFunc

	path      string
	title     string
	phase     Phase
	blocks    []block
	live      *segment
	remainder []markup.Node
	next      string
	err       error

	groups  int
	skipped bool
}

// New returns an idle Sequencer. ctx carries the reader's locale and bounds
// every fetch.
func New(ctx context.Context, ports Ports, opts Options) (*Sequencer, error) {
	if ports.Fetcher == nil {
		return nil, ErrNoFetcher
	}

	if ports.Executor == nil {
		return nil, ErrNoExecutor
	}

	if ports.Scores == nil {
		ports.Scores = noopScores{}
	}

	if ports.Navigator == nil {
		ports.Navigator = noopNavigator{}
	}

	if ports.Next == nil {
		ports.Next = noopResolver{}
	}

	if ports.Announcer == nil {
		ports.Announcer = noopAnnouncer{}
	}

	if ports.Effects == nil {
		ports.Effects = noopEffects{}
	}

	if ports.View == nil {
		ports.View = noopView{}
	}

	return &Sequencer{ctx: ctx, ports: ports, opts: opts}, nil
}

// Phase returns the current stage.
func (s *Sequencer) Phase() Phase {
	return s.phase
}

// Path returns the chapter being shown.
func (s *Sequencer) Path() string {
	return s.path
}

// Snapshot returns what the view currently shows.
func (s *Sequencer) Snapshot() Snapshot {
	snap := Snapshot{
		Path:  s.path,
		Title: s.title,
		Phase: s.phase,
		Next:  s.next,
		Err:   s.err,
	}

	var committed strings.Builder

	for _, b := range s.blocks {
		committed.WriteString(b.markup())
	}

	snap.Committed = committed.String()

	if s.live != nil {
		snap.Live = markup.Render(markup.Reveal(s.live.typing, s.live.typed))
		snap.Typed = s.live.typed
		snap.Total = s.live.total
	}

	return snap
}

// SetContext replaces the context of later fetches and announcements.
func (s *Sequencer) SetContext(ctx context.Context) {
	s.ctx = ctx
}

// SetReduceMotion switches instant reveals on or off for later segments.
func (s *Sequencer) SetReduceMotion(on bool) {
	s.opts.ReduceMotion = on
}

// Load replaces the view with the chapter at p.
//
// The live typewriter is cancelled before the fetch starts, and a fetch
// still in flight for an earlier Load is abandoned.
func (s *Sequencer) Load(p string) {
	s.stop()

	s.gen++
	gen := s.gen

	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelFetch = cancel

	s.path = p
	s.title = ""
	s.blocks = nil
	s.remainder = nil
	s.next = ""
	s.err = nil
	s.groups = 0
	s.setPhase(Fetching)

	s.ports.Executor.Go(func() {
		raw, err := s.ports.Fetcher.Fetch(ctx, p)

		s.ports.Executor.Post(func() {
			s.loaded(gen, raw, err)
		})
	})

	s.warm(ctx)
}

// warm loads the next-chapter lookup in the background. The chapter never
// waits for it; ResolveNext is only asked once the chapter is done.
func (s *Sequencer) warm(ctx context.Context) {
	w, ok := s.ports.Next.(Warmer)
	if !ok {
		return
	}

	s.ports.Executor.Go(func() {
		if err := w.Warm(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Debug().Str("sys", "sequencer").Err(err).Msg("Could not warm next-chapter lookup")
		}
	})
}

func (s *Sequencer) loaded(gen uint64, raw string, err error) {
	if gen != s.gen {
		return
	}

	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}

	if err != nil {
		audit.ChaptersLoaded.WithLabelValues("error").Inc()

		log.Warn().
			Str("sys", "sequencer").
			Str("path", s.path).
			Err(err).
			Msg("Chapter could not be loaded")

		s.err = err
		s.setPhase(Error)

		return
	}

	audit.ChaptersLoaded.WithLabelValues("ok").Inc()

	s.setPhase(Sanitizing)

	doc, perr := chapter.ParseDocument(raw)
	if perr != nil {
		log.Warn().Str("sys", "sequencer").Str("path", s.path).Err(perr).Msg("Using chapter markup as is")

		doc = chapter.Document{Markup: raw}
	}

	s.title = doc.Title

	nodes := markup.SanitizeNodes(markup.Parse(doc.Markup))

	s.setPhase(Segmenting)
	s.begin(s.segment(nodes))
}

func (s *Sequencer) segment(nodes []markup.Node) chapter.Pass {
	pass := chapter.Segmenter{Policy: s.opts.Policy}.Segment(nodes)
	if pass.Ambiguity != nil {
		log.Warn().
			Str("sys", "segment").
			Str("path", s.path).
			Err(pass.Ambiguity).
			Msg("Showing choices as plain text")
	}

	return pass
}

// empty reports whether pass has nothing to type and no choices.
func empty(pass chapter.Pass) bool {
	return !pass.HasGroup() && chapter.Project(pass.Pre).Total() == 0
}

// begin types pass, or finishes the chapter when there is nothing to type.
func (s *Sequencer) begin(pass chapter.Pass) {
	s.remainder = pass.Remainder

	if empty(pass) {
		s.finish()

		return
	}

	seg := &segment{pre: pass.Pre}

	typing := pass.Pre
	if pass.HasGroup() {
		s.groups++
		seg.group = chapter.NewGroup(fmt.Sprintf("c%d-g%d", s.gen, s.groups), pass, s.opts.Stagger)
		typing = append(append([]markup.Node{}, pass.Pre...), pass.Group...)
	}

	proj := chapter.Project(typing)
	seg.typing = proj.Typing
	seg.total = proj.Total()

	budget := s.opts.Pacing.Budget(seg.total)
	if s.opts.ReduceMotion {
		budget = 0
	}

	s.live = seg
	s.skipped = false
	s.phase = Typing

	s.ports.Effects.Start()

	seg.tw = reveal.NewTypewriter(s.ports.Executor, reveal.Options{
		Total:   seg.total,
		Budget:  budget,
		MinStep: s.opts.MinStep,
		OnFrame: func(typed int) {
			seg.typed = typed
			s.show()
		},
		OnDone: func() {
			s.revealed(seg)
		},
	})
	seg.tw.Start()
}

// revealed commits a fully typed segment and hands over its choices.
func (s *Sequencer) revealed(seg *segment) {
	if s.live != seg {
		return
	}

	s.ports.Effects.Stop()

	mode := "typed"

	switch {
	case s.opts.ReduceMotion:
		mode = "instant"
	case s.skipped:
		mode = "skipped"
	}

	audit.RevealsCompleted.WithLabelValues(mode).Inc()

	s.live = nil

	if len(seg.pre) > 0 {
		s.blocks = append(s.blocks, block{static: markup.Render(seg.pre)})
	}

	if seg.group == nil {
		s.finish()

		return
	}

	seg.group.Reveal()
	s.blocks = append(s.blocks, block{group: seg.group})
	s.setPhase(Revealed)

	label := seg.group.Markers[0].Label
	if s.groups > 1 {
		s.announce("New options are ready. Focus on: {{.Label}}", label)
	} else {
		s.announce("Options are ready. Focus on: {{.Label}}", label)
	}
}

// finish ends the chapter and looks up the chapter after it.
func (s *Sequencer) finish() {
	s.live = nil
	s.remainder = nil
	s.setPhase(Done)

	gen := s.gen
	ctx := s.ctx
	current := s.path

	s.ports.Executor.Go(func() {
		next, ok := s.ports.Next.ResolveNext(ctx, current)
		if !ok {
			return
		}

		s.ports.Executor.Post(func() {
			if gen != s.gen || s.phase != Done {
				return
			}

			s.next = next
			s.show()
		})
	})
}

// FastForward completes the segment being typed. It reports whether there
// was one.
func (s *Sequencer) FastForward() bool {
	if s.phase != Typing || s.live == nil {
		return false
	}

	s.skipped = true

	return s.live.tw.FastForward()
}

// Focus announces the option the reader moved to.
func (s *Sequencer) Focus(groupID string, index int) {
	g := s.group(groupID)
	if g == nil || g.State() != chapter.Revealed || index < 0 || index >= len(g.Markers) {
		return
	}

	s.announce("Choice focused: {{.Label}}", g.Markers[index].Label)
}

// Activate picks option index of the group with groupID.
//
// The group is locked and the option's tags are counted before the view
// moves on. Activating a locked group fails with chapter.ErrGroupLocked and
// changes nothing.
func (s *Sequencer) Activate(groupID string, index int) error {
	g := s.group(groupID)
	if g == nil {
		return fmt.Errorf("%w: %q", ErrUnknownGroup, groupID)
	}

	choice, err := g.Activate(index)
	if err != nil {
		return err
	}

	s.ports.Scores.Increment(choice.Tags...)

	target := choice.NavigationTarget

	switch {
	case target == "":
		pass := s.segment(s.remainder)
		if empty(pass) {
			audit.ChoicesActivated.WithLabelValues("end").Inc()
			s.announce("Selected: {{.Label}}.", choice.Label)
			s.finish()

			return nil
		}

		audit.ChoicesActivated.WithLabelValues("continue").Inc()
		s.announce("Selected: {{.Label}}. Continuing…", choice.Label)
		s.setPhase(Continuing)
		s.begin(pass)

	case requests.IsAbsoluteURL(target):
		audit.ChoicesActivated.WithLabelValues("external").Inc()
		s.announce("Selected: {{.Label}}.", choice.Label)
		s.show()
		s.ports.Navigator.Open(target)

	case strings.HasPrefix(target, "#"):
		audit.ChoicesActivated.WithLabelValues("scroll").Inc()
		s.announce("Selected: {{.Label}}.", choice.Label)
		s.show()
		s.ports.Navigator.Scroll(strings.TrimPrefix(target, "#"))

	default:
		audit.ChoicesActivated.WithLabelValues("navigate").Inc()
		s.announce("Selected: {{.Label}}.", choice.Label)
		s.navigate(ResolveTarget(s.path, target))
	}

	return nil
}

// FollowNext loads the chapter offered once the current one is done.
func (s *Sequencer) FollowNext() error {
	if s.phase != Done || s.next == "" {
		return ErrNothingNext
	}

	s.navigate(s.next)

	return nil
}

func (s *Sequencer) navigate(p string) {
	s.stop()
	s.setPhase(NavigatingAway)
	s.ports.Navigator.NavigateTo(p)
	s.Load(p)
}

// Close stops typing and abandons any fetch in flight.
func (s *Sequencer) Close() {
	s.stop()
	s.gen++
	s.phase = Idle
}

// stop cancels the live typewriter and the pending fetch.
func (s *Sequencer) stop() {
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}

	if s.live == nil {
		return
	}

	s.live.tw.Cancel()
	s.live = nil

	if s.phase == Typing {
		s.ports.Effects.Stop()
	}
}

func (s *Sequencer) group(id string) *chapter.Group {
	for _, b := range s.blocks {
		if b.group != nil && b.group.ID == id {
			return b.group
		}
	}

	return nil
}

func (s *Sequencer) setPhase(p Phase) {
	s.phase = p
	s.show()
}

func (s *Sequencer) show() {
	s.ports.View.Show(s.Snapshot())
}

func (s *Sequencer) announce(msgid i18n.MsgKey, label string) {
	s.ports.Announcer.Announce(i18n.Tr(s.ctx, string(msgid), "Label", label))
}

// ResolveTarget resolves a chapter-relative navigation target against the
// chapter at current. Rooted targets are returned unchanged.
func ResolveTarget(current, target string) string {
	if strings.HasPrefix(target, "/") {
		return target
	}

	rel, suffix := target, ""
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		rel, suffix = target[:i], target[i:]
	}

	if i := strings.IndexAny(current, "?#"); i >= 0 {
		current = current[:i]
	}

	dir := path.Dir(current)
	if !strings.HasPrefix(dir, "/") {
		dir = "/" + dir
	}

	return path.Join(dir, rel) + suffix
}
