// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package views

import (
	"context"
	"io"
	"net/url"

	"github.com/a-h/templ"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"codeberg.org/synthoma/reader/config"
	"codeberg.org/synthoma/reader/i18n"
)

// PageData is shared by every page.
type PageData struct {
	Title string

	// CurrentURL is the path and query of the page, reused by the
	// language links.
	CurrentURL string

	Lang      language.Tag
	Languages []language.Tag
}

// Page wraps body in the document shell.
func Page(data PageData, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(ctx, w)

		p.raw("<!DOCTYPE html><html")
		p.attr("lang", data.Lang.String())
		p.raw(`><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
		p.raw("<title>")

		if data.Title != "" {
			p.text(data.Title)
			p.raw(" · ")
		}

		p.raw("Synthoma</title>")
		p.raw(`<link rel="stylesheet"`)
		p.href("/css/reader.css?v=" + config.Global.Instance.FileServerCacheID)
		p.raw(`><script defer`)
		p.attr("src", "/js/reader.js?v="+config.Global.Instance.FileServerCacheID)
		p.raw("></script></head><body>")

		p.raw(`<header class="site-header"><nav`)
		p.attr("aria-label", i18n.Tr(ctx, "Main"))
		p.raw(`><a class="brand" href="/">Synthoma</a><a href="/">`)
		p.text(i18n.Tr(ctx, "Library"))
		p.raw(`</a><a href="/results">`)
		p.text(i18n.Tr(ctx, "Results"))
		p.raw("</a></nav>")
		languageLinks(p, data)
		p.raw("</header>")

		p.raw(`<main id="content">`)
		p.render(body)
		p.raw("</main>")

		p.raw(`<footer class="site-footer"><a`)
		p.href(config.Global.Instance.RepoURL)
		p.raw(">Synthoma ")
		p.text(config.BuildVersion)
		p.raw("</a></footer></body></html>")

		return p.err
	})
}

func languageLinks(p *printer, data PageData) {
	if len(data.Languages) < 2 {
		return
	}

	p.raw(`<ul class="languages">`)

	for _, tag := range data.Languages {
		p.raw("<li><a")
		p.href(withLang(data.CurrentURL, tag))
		p.attr("hreflang", tag.String())

		if tag == data.Lang {
			p.attr("aria-current", "true")
		}

		p.raw(">")
		p.text(display.Self.Name(tag))
		p.raw("</a></li>")
	}

	p.raw("</ul>")
}

// withLang sets the lang query parameter of current.
func withLang(current string, tag language.Tag) string {
	u, err := url.Parse(current)
	if err != nil {
		u = &url.URL{Path: "/"}
	}

	q := u.Query()
	q.Set(i18n.LangParam, tag.String())
	u.RawQuery = q.Encode()

	return u.RequestURI()
}
