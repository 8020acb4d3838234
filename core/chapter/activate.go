// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package chapter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"codeberg.org/synthoma/reader/core/markup"
)

var (
	ErrGroupNotRevealed = errors.New("choice group has not been revealed")
	ErrGroupLocked      = errors.New("choice group is locked")
	ErrChoiceOutOfRange = errors.New("choice index out of range")
)

// GroupState is the lifecycle stage of a choice group.
type GroupState int

const (
	// Idle groups are still being typed or not reached yet.
	Idle GroupState = iota

	// Revealed groups are interactive.
	Revealed

	// Locked groups had one option picked and never change again.
	Locked
)

func (s GroupState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Revealed:
		return "revealed"
	case Locked:
		return "locked"
	default:
		return fmt.Sprintf("GroupState(%d)", int(s))
	}
}

// Group is an interactive set of mutually exclusive options.
//
// A Group is not safe for concurrent use.
type Group struct {
	ID      string
	Markers []ChoiceMarker

	// Stagger delays the fade-in of each successive control.
	Stagger time.Duration

	layout   []markup.Node
	state    GroupState
	selected int
}

// NewGroup builds an idle group from a segmented pass.
func NewGroup(id string, pass Pass, stagger time.Duration) *Group {
	return &Group{
		ID:       id,
		Markers:  pass.Markers,
		Stagger:  stagger,
		layout:   pass.Group,
		selected: -1,
	}
}

// State returns the group's lifecycle stage.
func (g *Group) State() GroupState {
	return g.state
}

// Selected returns the index of the picked option, or -1.
func (g *Group) Selected() int {
	return g.selected
}

// Reveal makes an idle group interactive.
func (g *Group) Reveal() {
	if g.state == Idle {
		g.state = Revealed
	}
}

// Activate picks option i and locks the group.
//
// Only the first successful call has any effect; later calls fail with
// ErrGroupLocked whichever option they name.
func (g *Group) Activate(i int) (ChoiceMarker, error) {
	switch g.state {
	case Idle:
		return ChoiceMarker{}, ErrGroupNotRevealed
	case Locked:
		return ChoiceMarker{}, ErrGroupLocked
	}

	if i < 0 || i >= len(g.Markers) {
		return ChoiceMarker{}, fmt.Errorf("%w: %d of %d", ErrChoiceOutOfRange, i, len(g.Markers))
	}

	g.state = Locked
	g.selected = i

	return g.Markers[i], nil
}

// Render returns the group's markup with every marker replaced by a control
// reflecting the group's state.
func (g *Group) Render() []markup.Node {
	index := 0

	return g.renderNodes(g.layout, &index)
}

// Markup is Render serialized.
func (g *Group) Markup() string {
	return markup.Render(g.Render())
}

func (g *Group) renderNodes(nodes []markup.Node, index *int) []markup.Node {
	out := make([]markup.Node, 0, len(nodes))

	for _, n := range nodes {
		e, ok := n.(*markup.Element)
		if !ok {
			out = append(out, markup.Clone(n))

			continue
		}

		if IsChoiceMarker(e) && *index < len(g.Markers) {
			out = append(out, g.control(*index))
			*index++

			continue
		}

		out = append(out, e.WithChildren(g.renderNodes(e.Children, index)))
	}

	return out
}

func (g *Group) control(i int) *markup.Element {
	m := g.Markers[i]

	b := markup.NewElement("button",
		"type", "button",
		"class", ChoiceLinkClass,
		"data-group", g.ID,
		"data-index", strconv.Itoa(i),
		"data-delay", strconv.FormatInt((time.Duration(i)*g.Stagger).Milliseconds(), 10),
	)

	if len(m.Tags) > 0 {
		b.SetAttr("data-tags", strings.Join(m.Tags, ","))
	}

	if m.NavigationTarget != "" {
		b.SetAttr("data-next", m.NavigationTarget)
	}

	if m.UI != "" {
		b.SetAttr("data-ui", m.UI)
	}

	switch {
	case g.state == Locked && i == g.selected:
		b.AddClass("selected")
		b.SetAttr("aria-pressed", "true")
	case g.state == Locked:
		b.AddClass("disabled")
		b.SetAttr("disabled", "")
		b.SetAttr("aria-disabled", "true")
	case g.state == Idle:
		b.SetAttr("disabled", "")
	}

	b.Children = markup.CloneAll(m.content)

	return b
}
