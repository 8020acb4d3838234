// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package markup

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// removedElements are dropped together with all of their descendants.
var removedElements = map[string]struct{}{
	"script": {},
	"iframe": {},
	"object": {},
	"embed":  {},
}

// safeURLPrefixes are the only accepted beginnings of href and src values.
var safeURLPrefixes = []string{"http://", "https://", "//", "/", "#"}

var javascriptURL = regexp.MustCompile(`(?i)^\s*javascript:`)

// Sanitize strips dangerous elements and attributes from an HTML fragment.
//
// It is pure and idempotent. Sanitize never panics: should the tree
// manipulation fail, the anomaly is logged and raw is returned unchanged.
func Sanitize(raw string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("sys", "sanitize").
				Interface("panic", r).
				Int("length", len(raw)).
				Msg("Sanitizer failed, returning markup unchanged")

			out = raw
		}
	}()

	return Render(SanitizeNodes(Parse(raw)))
}

// SanitizeNodes returns a sanitized deep copy of nodes.
func SanitizeNodes(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))

	for _, n := range nodes {
		switch n := n.(type) {
		case *Text:
			out = append(out, &Text{Data: n.Data})
		case *Element:
			if _, drop := removedElements[n.Tag]; drop {
				continue
			}

			e := &Element{Tag: n.Tag}

			for _, a := range n.Attrs {
				if keepAttr(a) {
					e.Attrs = append(e.Attrs, a)
				}
			}

			e.Children = SanitizeNodes(n.Children)
			out = append(out, e)
		}
	}

	return out
}

func keepAttr(a Attr) bool {
	key := strings.ToLower(a.Key)

	// namespaced keys such as xlink:href are judged by their local name
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		key = key[i+1:]
	}

	switch {
	case strings.HasPrefix(key, "on"):
		return false
	case key == "style":
		return false
	case key == "href" || key == "src":
		return isSafeURL(a.Val)
	default:
		return true
	}
}

func isSafeURL(val string) bool {
	if javascriptURL.MatchString(val) {
		return false
	}

	lower := strings.ToLower(val)

	for _, prefix := range safeURLPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}

	return false
}
