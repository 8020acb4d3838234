// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package chapter turns chapter markup into reveal passes and choice groups.

A chapter is consumed in passes. Each pass splits the remaining markup into
narrative text before the first choice group, the group itself and whatever
follows it; the remainder feeds the next pass once the reader picks an option
that does not navigate away.
*/
package chapter

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// contentSelector selects the element holding the narrative of a chapter page.
const contentSelector = ".content"

// Document is a fetched chapter page reduced to its narrative markup.
type Document struct {
	Title  string
	Markup string
}

// ParseDocument extracts the title and narrative markup from a chapter page.
//
// The narrative is the inner HTML of the first .content element, or of the
// body when the page has none. Fragments without a document wrapper are
// accepted too.
func ParseDocument(raw string) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return Document{}, fmt.Errorf("failed to parse chapter document: %w", err)
	}

	content := doc.Find(contentSelector).First()
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}

	inner, err := content.Html()
	if err != nil {
		return Document{}, fmt.Errorf("failed to serialize chapter content: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(content.Find("h1").First().Text())
	}

	return Document{
		Title:  title,
		Markup: strings.TrimSpace(inner),
	}, nil
}
