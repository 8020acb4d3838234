// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package manifest

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"github.com/maruel/natural"
	"github.com/rs/zerolog/log"

	"codeberg.org/synthoma/reader/core/chapter"
)

// Build indexes a content tree: every top-level directory is a collection
// and every .html file inside it a chapter, both in natural order. Chapter
// titles come from the documents themselves. Paths are prefixed with prefix.
func Build(fsys fs.FS, prefix string) (*Manifest, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list content root: %w", err)
	}

	dirs := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			dirs = append(dirs, entry.Name())
		}
	}

	slices.SortFunc(dirs, compareNatural)

	m := &Manifest{Collections: []Collection{}}

	for _, dir := range dirs {
		c, err := buildCollection(fsys, dir, prefix)
		if err != nil {
			return nil, err
		}

		if len(c.Chapters) == 0 {
			log.Debug().Str("sys", "manifest").Str("dir", dir).Msg("Skipping directory without chapters")

			continue
		}

		m.Collections = append(m.Collections, c)
	}

	return m, nil
}

func buildCollection(fsys fs.FS, dir, prefix string) (Collection, error) {
	c := Collection{
		Slug:     slug.Make(dir),
		Title:    dir,
		Chapters: []Chapter{},
	}

	var files []string

	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && strings.EqualFold(path.Ext(p), ".html") {
			files = append(files, p)
		}

		return nil
	})
	if err != nil {
		return Collection{}, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	slices.SortFunc(files, compareNatural)

	for _, file := range files {
		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return Collection{}, fmt.Errorf("failed to read %s: %w", file, err)
		}

		title := strings.TrimSuffix(path.Base(file), path.Ext(file))
		if doc, err := chapter.ParseDocument(string(raw)); err == nil && doc.Title != "" {
			title = doc.Title
		}

		c.Chapters = append(c.Chapters, Chapter{
			Title: title,
			Path:  strings.TrimSuffix(prefix, "/") + "/" + file,
		})
	}

	return c, nil
}

func compareNatural(a, b string) int {
	switch {
	case natural.Less(a, b):
		return -1
	case natural.Less(b, a):
		return 1
	default:
		return 0
	}
}

// Marshal encodes m as indented JSON.
func (m *Manifest) Marshal() ([]byte, error) {
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}

	return append(out, '\n'), nil
}
