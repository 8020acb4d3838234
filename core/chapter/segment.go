// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package chapter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"codeberg.org/synthoma/reader/core/markup"
)

// ErrAmbiguousChoices is reported when choice markers are present but no
// interactive group can be formed from them.
var ErrAmbiguousChoices = errors.New("choice markers cannot form a group")

// GroupingPolicy decides which nodes may sit between two choice markers
// without splitting them into separate groups.
type GroupingPolicy int

const (
	// AdjacentOnly batches markers separated by whitespace-only text at most.
	AdjacentOnly GroupingPolicy = iota

	// SkipDecorative also batches markers separated by decorative elements:
	// line breaks, rules and aria-hidden elements.
	SkipDecorative
)

func (p GroupingPolicy) String() string {
	switch p {
	case AdjacentOnly:
		return "adjacent"
	case SkipDecorative:
		return "skip-decorative"
	default:
		return fmt.Sprintf("GroupingPolicy(%d)", int(p))
	}
}

// ParseGroupingPolicy parses the String form of a policy.
func ParseGroupingPolicy(s string) (GroupingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "adjacent":
		return AdjacentOnly, nil
	case "skip-decorative":
		return SkipDecorative, nil
	default:
		return AdjacentOnly, fmt.Errorf("unknown grouping policy %q", s)
	}
}

// bridges reports whether n may separate two markers of the same group.
func (p GroupingPolicy) bridges(n markup.Node) bool {
	switch n := n.(type) {
	case *markup.Text:
		return strings.TrimSpace(n.Data) == ""
	case *markup.Element:
		if p != SkipDecorative {
			return false
		}

		return n.Tag == "br" || n.Tag == "hr" || n.AttrOr("aria-hidden", "") == "true"
	default:
		return false
	}
}

// interactiveAncestors cannot contain a choice control.
var interactiveAncestors = map[string]struct{}{
	"a":      {},
	"button": {},
	"label":  {},
	"select": {},
	"option": {},
}

// Pass is the result of segmenting markup once.
type Pass struct {
	// Pre is the narrative before the group, or all content when there is no group.
	Pre []markup.Node

	// Group is the contiguous run of markers with its shared surrounding markup.
	Group []markup.Node

	// Markers are the options of Group, in document order.
	Markers []ChoiceMarker

	// Remainder is everything after the group up to the cache boundary.
	Remainder []markup.Node

	// Ambiguity is set when markers were found but could not be grouped;
	// the content is then kept in Pre without interactivity.
	Ambiguity error
}

// HasGroup reports whether the pass ends in a choice group.
func (p Pass) HasGroup() bool {
	return len(p.Markers) > 0
}

// Segmenter splits chapter markup into passes.
type Segmenter struct {
	Policy GroupingPolicy
}

// Segment splits nodes into the narrative before the first choice group,
// the group and the remainder. Content from the cache boundary on is dropped.
// nodes is not modified.
func (s Segmenter) Segment(nodes []markup.Node) Pass {
	kept, _ := TruncateAtBoundary(nodes)

	path, ancestors := findFirstMarker(kept, nil, nil)
	if path == nil {
		return Pass{Pre: kept}
	}

	for _, a := range ancestors {
		if _, ok := interactiveAncestors[a.Tag]; ok {
			return s.ambiguous(kept, fmt.Errorf("%w: marker nested in <%s>", ErrAmbiguousChoices, a.Tag))
		}
	}

	siblings := kept
	if len(ancestors) > 0 {
		siblings = ancestors[len(ancestors)-1].Children
	}

	lo := path[len(path)-1]
	hi := lo

	for i := lo + 1; i < len(siblings); i++ {
		if IsChoiceMarker(siblings[i]) {
			hi = i

			continue
		}

		if !s.Policy.bridges(siblings[i]) {
			break
		}
	}

	var markers []ChoiceMarker

	for _, n := range siblings[lo : hi+1] {
		if IsChoiceMarker(n) {
			m := ParseChoiceMarker(n.(*markup.Element))
			if m.Label == "" {
				return s.ambiguous(kept, fmt.Errorf("%w: marker without a label", ErrAmbiguousChoices))
			}

			markers = append(markers, m)
		}
	}

	pre, group, rest := cut(kept, path[:len(path)-1], lo, hi)

	return Pass{
		Pre:       pre,
		Group:     group,
		Markers:   markers,
		Remainder: rest,
	}
}

func (s Segmenter) ambiguous(nodes []markup.Node, err error) Pass {
	log.Warn().
		Str("sys", "segment").
		Err(err).
		Str("policy", s.Policy.String()).
		Msg("Showing content without choices")

	return Pass{Pre: nodes, Ambiguity: err}
}

// SegmentMarkup segments markup with the default policy and serializes the
// three parts of the pass.
func SegmentMarkup(raw string) (pre, choiceGroup, remainder string) {
	p := Segmenter{}.Segment(markup.Parse(raw))

	return markup.Render(p.Pre), markup.Render(p.Group), markup.Render(p.Remainder)
}

// TruncateAtBoundary copies nodes up to the cache boundary element.
//
// Ancestors of the boundary are kept, without the boundary and anything that
// follows it. found reports whether a boundary was present.
func TruncateAtBoundary(nodes []markup.Node) (kept []markup.Node, found bool) {
	kept = make([]markup.Node, 0, len(nodes))

	for _, n := range nodes {
		e, ok := n.(*markup.Element)
		if !ok {
			kept = append(kept, markup.Clone(n))

			continue
		}

		if IsCacheBoundary(e) {
			return kept, true
		}

		children, found := TruncateAtBoundary(e.Children)
		kept = append(kept, e.WithChildren(children))

		if found {
			return kept, true
		}
	}

	return kept, false
}

// findFirstMarker returns the index path of the first visible choice marker
// in document order along with the elements enclosing it.
// Hidden subtrees and the inside of markers are not searched.
func findFirstMarker(nodes []markup.Node, path []int, ancestors []*markup.Element) ([]int, []*markup.Element) {
	for i, n := range nodes {
		e, ok := n.(*markup.Element)
		if !ok || IsHidden(e) {
			continue
		}

		at := append(path[:len(path):len(path)], i)

		if IsChoiceMarker(e) {
			return at, ancestors
		}

		if found, anc := findFirstMarker(e.Children, at, append(ancestors[:len(ancestors):len(ancestors)], e)); found != nil {
			return found, anc
		}
	}

	return nil, nil
}

// cut splits nodes around the sibling run [lo, hi] found under parentPath,
// cloning the run's ancestors around each part the way a DOM range would.
func cut(nodes []markup.Node, parentPath []int, lo, hi int) (before, inside, after []markup.Node) {
	if len(parentPath) == 0 {
		return markup.CloneAll(nodes[:lo]), markup.CloneAll(nodes[lo : hi+1]), markup.CloneAll(nodes[hi+1:])
	}

	i := parentPath[0]
	parent := nodes[i].(*markup.Element)
	b, in, a := cut(parent.Children, parentPath[1:], lo, hi)

	before = append(markup.CloneAll(nodes[:i]), parent.WithChildren(b))
	inside = []markup.Node{continuation(parent, in)}
	after = append([]markup.Node{continuation(parent, a)}, markup.CloneAll(nodes[i+1:])...)

	return before, inside, after
}

// continuation clones parent around children for a later part of a cut.
// The id stays with the first part so fragment targets stay unique.
func continuation(parent *markup.Element, children []markup.Node) *markup.Element {
	c := parent.WithChildren(children)
	c.RemoveAttr("id")

	return c
}
