// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"codeberg.org/synthoma/reader/i18n"
)

// Score is a tag and how often the reader chose it.
type Score struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type ResultsData struct {
	Scores []Score
}

func Results(data ResultsData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(ctx, w)

		p.raw(`<section class="results"><h1>`)
		p.text(i18n.Tr(ctx, "Results"))
		p.raw("</h1>")

		if len(data.Scores) == 0 {
			p.raw(`<p class="notice">`)
			p.text(i18n.Tr(ctx, "You have not made any choices yet."))
			p.raw("</p></section>")

			return p.err
		}

		p.raw("<table><thead><tr><th scope=\"col\">")
		p.text(i18n.Tr(ctx, "Tag"))
		p.raw("</th><th scope=\"col\">")
		p.text(i18n.Tr(ctx, "Choices"))
		p.raw("</th></tr></thead><tbody>")

		for _, score := range data.Scores {
			p.raw("<tr><td>")
			p.text(score.Tag)
			p.raw("</td><td>")
			p.text(strconv.Itoa(score.Count))
			p.raw("</td></tr>")
		}

		p.raw(`</tbody></table><p><a href="/results.json">`)
		p.text(i18n.Tr(ctx, "Download as JSON"))
		p.raw("</a></p>")
		startOver(p)

		return p.err
	})
}

// startOver closes the results section with the form that forgets the
// reader's session and scores.
func startOver(p *printer) {
	p.raw(`<form class="reset" method="post" action="/reader/reset"><button type="submit">`)
	p.text(i18n.Tr(p.ctx, "Start over"))
	p.raw("</button></form></section>")
}
