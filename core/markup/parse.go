// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package markup

import (
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// fragmentContext is the element chapter fragments are parsed inside of.
var fragmentContext = &html.Node{
	Type:     html.ElementNode,
	Data:     "body",
	DataAtom: atom.Body,
}

// Parse converts an HTML fragment into a markup tree.
//
// Parsing is forgiving: malformed markup still yields a tree, comments and
// doctypes are dropped, and if the parser fails outright the whole input is
// kept as a single text node.
func Parse(raw string) []Node {
	if raw == "" {
		return nil
	}

	parsed, err := html.ParseFragment(strings.NewReader(raw), fragmentContext)
	if err != nil {
		log.Warn().
			Str("sys", "markup").
			Err(err).
			Msg("Failed to parse fragment, treating it as text")

		return []Node{&Text{Data: raw}}
	}

	nodes := make([]Node, 0, len(parsed))

	for _, h := range parsed {
		if n := fromHTML(h); n != nil {
			nodes = append(nodes, n)
		}
	}

	return nodes
}

func fromHTML(h *html.Node) Node {
	switch h.Type {
	case html.TextNode:
		return &Text{Data: h.Data}
	case html.ElementNode:
		e := &Element{Tag: h.Data}

		for _, a := range h.Attr {
			key := a.Key
			if a.Namespace != "" {
				key = a.Namespace + ":" + a.Key
			}

			e.Attrs = append(e.Attrs, Attr{Key: key, Val: a.Val})
		}

		for c := h.FirstChild; c != nil; c = c.NextSibling {
			if n := fromHTML(c); n != nil {
				e.Children = append(e.Children, n)
			}
		}

		return e
	default:
		return nil
	}
}

// Render serializes nodes back to HTML.
func Render(nodes []Node) string {
	var b strings.Builder

	for _, n := range nodes {
		h := toHTML(n)
		if h == nil {
			continue
		}

		if err := html.Render(&b, h); err != nil {
			log.Warn().
				Str("sys", "markup").
				Err(err).
				Msg("Failed to render node")
		}
	}

	return b.String()
}

func toHTML(n Node) *html.Node {
	switch n := n.(type) {
	case *Text:
		return &html.Node{Type: html.TextNode, Data: n.Data}
	case *Element:
		h := &html.Node{
			Type:     html.ElementNode,
			Data:     n.Tag,
			DataAtom: atom.Lookup([]byte(n.Tag)),
		}

		for _, a := range n.Attrs {
			h.Attr = append(h.Attr, html.Attribute{Key: a.Key, Val: a.Val})
		}

		for _, c := range n.Children {
			if hc := toHTML(c); hc != nil {
				h.AppendChild(hc)
			}
		}

		return h
	default:
		return nil
	}
}
