// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package views

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"codeberg.org/synthoma/reader/i18n"
)

// ReaderData is the first paint of the reader page. Later frames arrive
// over the event stream.
type ReaderData struct {
	Path  string
	Title string
	Phase string

	// Committed and Live are sanitized markup.
	Committed string
	Live      string

	Typed int
	Total int

	Next  string
	Error string

	Video string
	Audio string

	ReduceMotion bool

	// EventsURL is the event stream of the reader's session.
	EventsURL string
}

func Reader(data ReaderData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(ctx, w)

		p.raw(`<section id="reader"`)
		p.attr("data-path", data.Path)
		p.attr("data-phase", data.Phase)
		p.attr("data-events", data.EventsURL)
		p.attr("data-reduce-motion", boolString(data.ReduceMotion))

		if data.Video != "" {
			p.attr("data-video", data.Video)
		}

		if data.Audio != "" {
			p.attr("data-audio", data.Audio)
		}

		p.raw(">")

		p.raw(`<h1 id="chapter-title">`)
		p.text(data.Title)
		p.raw("</h1>")

		p.raw(`<article class="story"><div id="story">`)
		p.raw(data.Committed)
		p.raw(`</div><div id="live" aria-hidden="true"`)
		p.intAttr("data-typed", data.Typed)
		p.intAttr("data-total", data.Total)
		p.raw(">")
		p.raw(data.Live)
		p.raw("</div></article>")

		p.raw(`<div id="announcer" class="visually-hidden" role="status" aria-live="polite" aria-atomic="true"></div>`)

		p.raw(`<p id="error" class="notice" role="alert"`)
		p.boolAttr("hidden", data.Error == "")
		p.raw(">")
		p.text(data.Error)
		p.raw("</p>")

		p.raw(`<div class="reader-controls"><form method="post" action="/reader/skip">`)
		p.raw(`<button type="submit" id="skip">`)
		p.text(i18n.Tr(ctx, "Show all"))
		p.raw(`</button></form><form method="post" action="/reader/next" id="next-form"`)
		p.boolAttr("hidden", data.Next == "")
		p.raw(`><button type="submit" id="next">`)
		p.text(i18n.Tr(ctx, "Next chapter"))
		p.raw("</button></form></div>")

		p.raw(`<noscript><p class="notice">`)
		p.text(i18n.Tr(ctx, "Choices need JavaScript. Add ?instant=1 to the address to read without animation."))
		p.raw("</p></noscript>")

		p.raw("</section>")

		return p.err
	})
}

func boolString(b bool) string {
	if b {
		return "true"
	}

	return "false"
}
