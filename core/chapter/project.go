// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package chapter

import (
	"codeberg.org/synthoma/reader/core/markup"
)

// Projection is markup prepared for typing.
type Projection struct {
	// PlainText is the text that gets typed; its length in runes paces the reveal.
	PlainText string

	// Typing is the markup shown while typing.
	Typing []markup.Node
}

// Total returns the number of characters to type.
func (p Projection) Total() int {
	return markup.TextLen(p.Typing)
}

// Project prepares nodes for typing.
//
// Hidden subtrees and the cache boundary are removed and whitespace runs are
// collapsed. Choice markers are reduced to their plain label, and authored
// choice controls become inert spans, so nothing looks clickable until the
// text has been typed out.
func Project(nodes []markup.Node) Projection {
	typing := projectNodes(nodes)

	return Projection{
		PlainText: markup.PlainText(typing),
		Typing:    typing,
	}
}

func projectNodes(nodes []markup.Node) []markup.Node {
	out := make([]markup.Node, 0, len(nodes))

	for _, n := range nodes {
		switch n := n.(type) {
		case *markup.Text:
			out = append(out, &markup.Text{Data: markup.CollapseSpace(n.Data)})
		case *markup.Element:
			switch {
			case IsHidden(n):
				continue
			case markup.IsNonVisual(n):
				out = append(out, markup.Clone(n))
			case isControl(n):
				span := markup.NewElement("span", "class", ChoiceClass)
				span.Children = labelNodes(n.Children)
				out = append(out, span)
			case IsChoiceMarker(n):
				out = append(out, n.WithChildren(labelNodes(n.Children)))
			default:
				out = append(out, n.WithChildren(projectNodes(n.Children)))
			}
		}
	}

	return out
}

// labelNodes flattens nodes to a single text node holding their label.
func labelNodes(nodes []markup.Node) []markup.Node {
	label := markup.Label(visibleNodes(nodes))
	if label == "" {
		return nil
	}

	return []markup.Node{&markup.Text{Data: label}}
}
