// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package markup

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// nonVisual lists elements whose text content is never shown to the reader.
//
// Such elements are excluded from character counts and survive a reveal whole.
var nonVisual = map[string]struct{}{
	"style":    {},
	"template": {},
	"noscript": {},
}

// IsNonVisual reports whether e holds text that is not rendered as prose.
func IsNonVisual(e *Element) bool {
	_, ok := nonVisual[e.Tag]

	return ok
}

// TextLen returns the number of visible characters (runes) in nodes.
func TextLen(nodes []Node) int {
	total := 0

	Walk(nodes, func(n Node) bool {
		switch n := n.(type) {
		case *Text:
			total += utf8.RuneCountInString(n.Data)
		case *Element:
			return !IsNonVisual(n)
		}

		return true
	})

	return total
}

// PlainText concatenates the visible text of nodes in document order.
func PlainText(nodes []Node) string {
	var b strings.Builder

	Walk(nodes, func(n Node) bool {
		switch n := n.(type) {
		case *Text:
			b.WriteString(n.Data)
		case *Element:
			return !IsNonVisual(n)
		}

		return true
	})

	return b.String()
}

// CollapseSpace replaces every run of whitespace in s with a single space.
func CollapseSpace(s string) string {
	return whitespaceRun.ReplaceAllString(s, " ")
}

// Label returns the trimmed, whitespace-collapsed plain text of nodes.
func Label(nodes []Node) string {
	return strings.TrimSpace(CollapseSpace(PlainText(nodes)))
}
