// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package views

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/a-h/templ"

	"codeberg.org/synthoma/reader/i18n"
)

type ErrorData struct {
	StatusCode int
	Message    string
}

func Error(data ErrorData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(ctx, w)

		p.raw(`<section class="error-page"><h1>`)
		p.text(strconv.Itoa(data.StatusCode))
		p.raw(" ")
		p.text(http.StatusText(data.StatusCode))
		p.raw("</h1>")

		if data.Message != "" {
			p.raw("<p>")
			p.text(data.Message)
			p.raw("</p>")
		}

		p.raw(`<p><a href="/">`)
		p.text(i18n.Tr(ctx, "Back to the library"))
		p.raw("</a></p></section>")

		return p.err
	})
}
