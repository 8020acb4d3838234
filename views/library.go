// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package views

import (
	"context"
	"io"
	"net/url"

	"github.com/a-h/templ"

	"codeberg.org/synthoma/reader/i18n"
)

type LibraryChapter struct {
	Title   string
	Path    string
	Visited bool
}

type LibraryCollection struct {
	Title    string
	Chapters []LibraryChapter
}

type LibraryData struct {
	Collections []LibraryCollection

	// Unavailable is set when the manifest could not be loaded.
	Unavailable bool
}

// ReaderURL links to the reader page for a chapter.
func ReaderURL(chapterPath string) string {
	return "/reader?u=" + url.QueryEscape(chapterPath)
}

func Library(data LibraryData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(ctx, w)

		p.raw(`<section class="library"><h1>`)
		p.text(i18n.Tr(ctx, "Library"))
		p.raw("</h1>")

		switch {
		case data.Unavailable:
			p.raw(`<p class="notice">`)
			p.text(i18n.Tr(ctx, "The library is unavailable right now."))
			p.raw("</p>")
		case len(data.Collections) == 0:
			p.raw(`<p class="notice">`)
			p.text(i18n.Tr(ctx, "There are no stories yet."))
			p.raw("</p>")
		}

		for _, collection := range data.Collections {
			p.raw(`<section class="collection"><h2>`)
			p.text(collection.Title)
			p.raw(`</h2><p class="chapter-count">`)
			p.text(i18n.TrN(ctx, "{{.Count}} chapter", "{{.Count}} chapters", len(collection.Chapters), "Count", len(collection.Chapters)))
			p.raw("</p><ol>")

			for _, chapter := range collection.Chapters {
				p.raw("<li")

				if chapter.Visited {
					p.attr("class", "visited")
				}

				p.raw("><a")
				p.href(ReaderURL(chapter.Path))
				p.raw(">")
				p.text(chapter.Title)
				p.raw("</a>")

				if chapter.Visited {
					p.raw(`<span class="visited-mark">`)
					p.text(i18n.Tr(ctx, "read"))
					p.raw("</span>")
				}

				p.raw("</li>")
			}

			p.raw("</ol></section>")
		}

		p.raw("</section>")

		return p.err
	})
}
