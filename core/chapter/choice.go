// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package chapter

import (
	"regexp"
	"strings"

	"codeberg.org/synthoma/reader/core/markup"
)

const (
	// CacheBoundaryID is the id of the element that ends the revealable part
	// of a chapter. It and everything after it is held back from every pass.
	CacheBoundaryID = "story-cache"

	// ChoiceClass marks an element as a selectable option.
	ChoiceClass = "choice"

	// ChoiceLinkClass marks a ready-made control (an anchor or a button) as a
	// selectable option.
	ChoiceLinkClass = "choice-link"

	// HiddenClass marks content that is never typed or shown.
	HiddenClass = "hidden"
)

var tagSeparators = regexp.MustCompile(`[,;\s]+`)

// ChoiceMarker is one selectable option of a choice group.
type ChoiceMarker struct {
	// Label is the option's collapsed plain text.
	Label string

	// DisplayMarkup is the option's inner markup, without nested controls.
	DisplayMarkup string

	// Tags are opaque score labels counted when the option is picked.
	Tags []string

	// NavigationTarget is the chapter path or URL the option leads to.
	// Empty means the chapter continues with its remainder.
	NavigationTarget string

	// UI is an opaque presentation hint passed through to the client.
	UI string

	content []markup.Node
}

// IsCacheBoundary reports whether n is the cache boundary element.
func IsCacheBoundary(n markup.Node) bool {
	e, ok := n.(*markup.Element)

	return ok && e.ID() == CacheBoundaryID
}

// IsChoiceMarker reports whether n denotes a selectable option.
func IsChoiceMarker(n markup.Node) bool {
	e, ok := n.(*markup.Element)

	return ok && (e.HasClass(ChoiceClass) || e.HasClass(ChoiceLinkClass))
}

// IsHidden reports whether n is excluded from typing.
func IsHidden(n markup.Node) bool {
	e, ok := n.(*markup.Element)

	return ok && (e.HasClass(HiddenClass) || e.ID() == CacheBoundaryID)
}

// isControl reports whether e is an authored anchor or button control.
func isControl(e *markup.Element) bool {
	return (e.Tag == "a" || e.Tag == "button") && e.HasClass(ChoiceLinkClass)
}

// ParseChoiceMarker reads the option carried by a choice marker element.
//
// Tags come from data-tags, falling back to the legacy single data-mbti tag.
// The target comes from data-next, falling back to the href of the element or
// of an authored choice link inside it.
func ParseChoiceMarker(e *markup.Element) ChoiceMarker {
	link := e
	if !isControl(e) {
		if inner := findControl(e.Children); inner != nil {
			link = inner
		}
	}

	tags := parseTags(e)
	if len(tags) == 0 && link != e {
		tags = parseTags(link)
	}

	target := strings.TrimSpace(e.AttrOr("data-next", ""))
	if target == "" {
		target = strings.TrimSpace(link.AttrOr("data-next", ""))
	}

	if target == "" && link.Tag == "a" {
		target = strings.TrimSpace(link.AttrOr("href", ""))
	}

	content := unwrapControls(e.Children)

	return ChoiceMarker{
		Label:            markup.Label(visibleNodes(content)),
		DisplayMarkup:    markup.Render(content),
		Tags:             tags,
		NavigationTarget: target,
		UI:               e.AttrOr("data-ui", link.AttrOr("data-ui", "")),
		content:          content,
	}
}

func parseTags(e *markup.Element) []string {
	var tags []string

	for _, tag := range tagSeparators.Split(e.AttrOr("data-tags", ""), -1) {
		if tag != "" {
			tags = append(tags, tag)
		}
	}

	if len(tags) == 0 {
		if legacy := strings.TrimSpace(e.AttrOr("data-mbti", "")); legacy != "" {
			tags = append(tags, legacy)
		}
	}

	return tags
}

func findControl(nodes []markup.Node) *markup.Element {
	var found *markup.Element

	markup.Walk(nodes, func(n markup.Node) bool {
		if found != nil {
			return false
		}

		if e, ok := n.(*markup.Element); ok && isControl(e) {
			found = e

			return false
		}

		return true
	})

	return found
}

// unwrapControls copies nodes with every anchor and button replaced by its
// children, so the result can be placed inside a new control.
func unwrapControls(nodes []markup.Node) []markup.Node {
	out := make([]markup.Node, 0, len(nodes))

	for _, n := range nodes {
		e, ok := n.(*markup.Element)
		if !ok {
			out = append(out, markup.Clone(n))

			continue
		}

		if e.Tag == "a" || e.Tag == "button" {
			out = append(out, unwrapControls(e.Children)...)

			continue
		}

		out = append(out, e.WithChildren(unwrapControls(e.Children)))
	}

	return out
}

// visibleNodes copies nodes without hidden subtrees.
func visibleNodes(nodes []markup.Node) []markup.Node {
	out := make([]markup.Node, 0, len(nodes))

	for _, n := range nodes {
		if IsHidden(n) {
			continue
		}

		if e, ok := n.(*markup.Element); ok {
			out = append(out, e.WithChildren(visibleNodes(e.Children)))

			continue
		}

		out = append(out, markup.Clone(n))
	}

	return out
}
