// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package markup models chapter HTML as a small tree of text and element nodes.

The tree is parsed once from a markup string and serialized back once per
output, so every transformation in between (sanitizing, projecting, revealing)
is a pure function over [Node] values rather than over a live DOM.
*/
package markup

import (
	"slices"
	"strings"
)

// Node is a single node of a markup tree.
//
// It is implemented by *Text and *Element only.
type Node interface {
	// isNode is a marker method that keeps the set of node kinds closed.
	isNode()
}

// Text is a run of character data.
type Text struct {
	Data string
}

// Attr is a single element attribute.
type Attr struct {
	Key string
	Val string
}

// Element is a tag with attributes and child nodes.
type Element struct {
	Tag      string
	Attrs    []Attr
	Children []Node
}

func (*Text) isNode()    {}
func (*Element) isNode() {}

// NewElement returns an element with the given tag and attribute pairs.
func NewElement(tag string, kv ...string) *Element {
	e := &Element{Tag: tag}

	for i := 0; i+1 < len(kv); i += 2 {
		e.Attrs = append(e.Attrs, Attr{Key: kv[i], Val: kv[i+1]})
	}

	return e
}

// Attr returns the value of the attribute named key.
func (e *Element) Attr(key string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Val, true
		}
	}

	return "", false
}

// AttrOr returns the value of the attribute named key, or fallback if absent.
func (e *Element) AttrOr(key, fallback string) string {
	if v, ok := e.Attr(key); ok {
		return v
	}

	return fallback
}

// SetAttr sets the attribute named key, replacing an existing value.
func (e *Element) SetAttr(key, val string) {
	for i := range e.Attrs {
		if e.Attrs[i].Key == key {
			e.Attrs[i].Val = val

			return
		}
	}

	e.Attrs = append(e.Attrs, Attr{Key: key, Val: val})
}

// RemoveAttr deletes every attribute named key.
func (e *Element) RemoveAttr(key string) {
	e.Attrs = slices.DeleteFunc(e.Attrs, func(a Attr) bool { return a.Key == key })
}

// ID returns the element's id attribute.
func (e *Element) ID() string {
	return e.AttrOr("id", "")
}

// Classes returns the element's class list.
func (e *Element) Classes() []string {
	return strings.Fields(e.AttrOr("class", ""))
}

// HasClass reports whether the element carries class name.
func (e *Element) HasClass(name string) bool {
	return slices.Contains(e.Classes(), name)
}

// AddClass appends name to the class list unless it is already present.
func (e *Element) AddClass(name string) {
	classes := e.Classes()
	if slices.Contains(classes, name) {
		return
	}

	e.SetAttr("class", strings.Join(append(classes, name), " "))
}

// RemoveClass removes name from the class list.
func (e *Element) RemoveClass(name string) {
	classes := slices.DeleteFunc(e.Classes(), func(c string) bool { return c == name })
	if len(classes) == 0 {
		e.RemoveAttr("class")

		return
	}

	e.SetAttr("class", strings.Join(classes, " "))
}

// ShallowClone copies the element's tag and attributes but none of its children.
func (e *Element) ShallowClone() *Element {
	return &Element{
		Tag:   e.Tag,
		Attrs: slices.Clone(e.Attrs),
	}
}

// WithChildren returns a shallow clone of e holding children.
func (e *Element) WithChildren(children []Node) *Element {
	c := e.ShallowClone()
	c.Children = children

	return c
}

// Clone returns a deep copy of n.
func Clone(n Node) Node {
	switch n := n.(type) {
	case *Text:
		return &Text{Data: n.Data}
	case *Element:
		return n.WithChildren(CloneAll(n.Children))
	default:
		return nil
	}
}

// CloneAll returns a deep copy of nodes.
func CloneAll(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}

	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Clone(n))
	}

	return out
}

// Walk visits nodes depth-first in document order.
//
// When fn returns false for an element, its children are skipped.
func Walk(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		if !fn(n) {
			continue
		}

		if e, ok := n.(*Element); ok {
			Walk(e.Children, fn)
		}
	}
}
