// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package manifest reads the library index and the chapter media table.

The index is a JSON document listing collections in reading order:

	{"collections": [{"slug": "...", "title": "...", "chapters": [{"title": "...", "path": "/books/..."}]}]}

Chapter paths are compared after percent-decoding and Unicode NFC
normalisation, so an encoded link and a literal one name the same chapter.
*/
package manifest

import (
	"errors"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/unicode/norm"
)

var errInvalidManifest = errors.New("manifest has no collections array")

// Manifest is the parsed library index.
type Manifest struct {
	Collections []Collection `json:"collections"`
}

// Collection is one story or book.
type Collection struct {
	Slug     string    `json:"slug,omitempty"`
	Title    string    `json:"title,omitempty"`
	Chapters []Chapter `json:"chapters"`
}

// Chapter is an entry of a collection.
type Chapter struct {
	Title string `json:"title,omitempty"`
	Path  string `json:"path"`
}

// DisplayTitle falls back to the slug when the collection has no title.
func (c Collection) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}

	return c.Slug
}

// DisplayTitle falls back to the path when the chapter has no title.
func (c Chapter) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}

	return c.Path
}

// Parse reads a manifest document. Chapters without a path are skipped.
func Parse(raw string) (*Manifest, error) {
	if !gjson.Valid(raw) {
		return nil, errInvalidManifest
	}

	collections := gjson.Get(raw, "collections")
	if !collections.IsArray() {
		return nil, errInvalidManifest
	}

	m := &Manifest{}

	for _, col := range collections.Array() {
		c := Collection{
			Slug:  col.Get("slug").String(),
			Title: col.Get("title").String(),
		}

		for _, ch := range col.Get("chapters").Array() {
			p := ch.Get("path").String()
			if p == "" {
				continue
			}

			c.Chapters = append(c.Chapters, Chapter{Title: ch.Get("title").String(), Path: p})
		}

		m.Collections = append(m.Collections, c)
	}

	return m, nil
}

// Flat returns every chapter in reading order across collections.
func (m *Manifest) Flat() []Chapter {
	var all []Chapter
	for _, c := range m.Collections {
		all = append(all, c.Chapters...)
	}

	return all
}

// Find returns the chapter matching p and its collection.
func (m *Manifest) Find(p string) (Collection, Chapter, bool) {
	key := Normalize(p)

	for _, c := range m.Collections {
		for _, ch := range c.Chapters {
			if Normalize(ch.Path) == key {
				return c, ch, true
			}
		}
	}

	return Collection{}, Chapter{}, false
}

// Next returns the path of the chapter after p in flat order.
func (m *Manifest) Next(p string) (string, bool) {
	all := m.Flat()
	key := Normalize(p)

	for i, ch := range all {
		if Normalize(ch.Path) == key && i+1 < len(all) {
			return all[i+1].Path, true
		}
	}

	return "", false
}

// Normalize decodes percent-escapes, applies NFC and ensures a leading slash.
// Absolute URLs only get the first two steps.
func Normalize(p string) string {
	p = strings.TrimSpace(p)

	if decoded, err := url.PathUnescape(p); err == nil {
		p = decoded
	}

	p = norm.NFC.String(p)

	lower := strings.ToLower(p)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return p
	}

	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	return p
}
