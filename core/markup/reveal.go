// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package markup

import "unicode/utf8"

// Reveal returns a copy of nodes showing only the first n visible characters.
//
// Every element survives with its tag and attributes, even once the budget is
// spent, so wrappers styled or animated by CSS keep rendering while their text
// is still being typed. Text past the budget is dropped. Non-visual elements
// are copied whole and do not consume the budget.
func Reveal(nodes []Node, n int) []Node {
	remaining := max(n, 0)

	return revealNodes(nodes, &remaining)
}

func revealNodes(nodes []Node, remaining *int) []Node {
	out := make([]Node, 0, len(nodes))

	for _, node := range nodes {
		switch node := node.(type) {
		case *Text:
			if *remaining == 0 {
				continue
			}

			count := utf8.RuneCountInString(node.Data)
			if count <= *remaining {
				*remaining -= count

				out = append(out, &Text{Data: node.Data})

				continue
			}

			out = append(out, &Text{Data: truncateRunes(node.Data, *remaining)})
			*remaining = 0
		case *Element:
			if IsNonVisual(node) {
				out = append(out, Clone(node))

				continue
			}

			out = append(out, node.WithChildren(revealNodes(node.Children, remaining)))
		}
	}

	return out
}

// truncateRunes returns the first n runes of s.
func truncateRunes(s string, n int) string {
	i := 0

	for pos := range s {
		if i == n {
			return s[:pos]
		}

		i++
	}

	return s
}
