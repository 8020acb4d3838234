// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package views renders the reader's pages as templ components.

Components are written against the templ runtime directly. Text and
attribute values go through templ's escaping; only markup that has already
been sanitized is written raw.
*/
package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// printer writes markup until the first error, which it keeps.
type printer struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newPrinter(ctx context.Context, w io.Writer) *printer {
	return &printer{ctx: ctx, w: w}
}

// raw writes trusted markup.
func (p *printer) raw(parts ...string) {
	for _, s := range parts {
		if p.err != nil {
			return
		}

		_, p.err = io.WriteString(p.w, s)
	}
}

// text writes escaped character data.
func (p *printer) text(s string) {
	p.raw(templ.EscapeString(s))
}

// attr writes ` name="value"` with value escaped.
func (p *printer) attr(name, value string) {
	p.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

// href writes an href attribute. Unsafe schemes are replaced by templ.
func (p *printer) href(u string) {
	p.attr("href", string(templ.URL(u)))
}

func (p *printer) intAttr(name string, v int) {
	p.attr(name, strconv.Itoa(v))
}

func (p *printer) boolAttr(name string, on bool) {
	if on {
		p.raw(" ", name)
	}
}

func (p *printer) render(c templ.Component) {
	if p.err != nil || c == nil {
		return
	}

	p.err = c.Render(p.ctx, p.w)
}
