// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package manifest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const library = `{
  "collections": [
    {"slug": "noc", "title": "Noc", "chapters": [
      {"title": "Úvod", "path": "/books/noc/01 úvod.html"},
      {"title": "Dál", "path": "/books/noc/02.html"},
      {"title": "no path"}
    ]},
    {"slug": "den", "chapters": [
      {"path": "/books/den/01.html"}
    ]}
  ]
}`

func TestParse(t *testing.T) {
	t.Parallel()

	m, err := Parse(library)
	require.NoError(t, err)
	require.Len(t, m.Collections, 2)
	assert.Len(t, m.Collections[0].Chapters, 2, "chapters without a path are skipped")
	assert.Equal(t, "den", m.Collections[1].DisplayTitle())
	assert.Equal(t, "/books/den/01.html", m.Collections[1].Chapters[0].DisplayTitle())

	for _, raw := range []string{"", "[]", `{"collections": {}}`, "{"} {
		_, err := Parse(raw)
		require.Error(t, err, raw)
	}
}

func TestNext(t *testing.T) {
	t.Parallel()

	m, err := Parse(library)
	require.NoError(t, err)

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"/books/noc/01 úvod.html", "/books/noc/02.html", true},
		{"/books/noc/01%20%C3%BAvod.html", "/books/noc/02.html", true},
		{"/books/noc/01 u\u0301vod.html", "/books/noc/02.html", true},
		{"books/noc/02.html", "/books/den/01.html", true},
		{"/books/den/01.html", "", false},
		{"/books/elsewhere.html", "", false},
	}

	for _, tt := range tests {
		got, ok := m.Next(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	c, ch, ok := m.Find("/books/noc/02.html")
	require.True(t, ok)
	assert.Equal(t, "noc", c.Slug)
	assert.Equal(t, "Dál", ch.Title)
}

func TestParseMedia(t *testing.T) {
	t.Parallel()

	media := ParseMedia(`{
		"/books/noc/01%20úvod.html": {"video": "/media/rain.mp4", "audio": "/media/rain.ogg"},
		"/books/noc/02.html": {},
		"junk": 4
	}`)

	entry, ok := media.Lookup("/books/noc/01 úvod.html")
	require.True(t, ok)
	assert.Equal(t, "/media/rain.mp4", entry.Video)

	_, ok = media.Lookup("/books/noc/02.html")
	assert.False(t, ok)

	assert.Empty(t, ParseMedia("not json"))
}

type stubFetcher struct {
	mu          sync.Mutex
	files       map[string]string
	calls       int
	invalidated []string
}

func (s *stubFetcher) Fetch(_ context.Context, p string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	if v, ok := s.files[p]; ok {
		return v, nil
	}

	return "", errors.New("not found")
}

func (s *stubFetcher) Invalidate(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidated = append(s.invalidated, prefix)

	return nil
}

func (s *stubFetcher) set(p, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[p] = v
}

func TestResolver(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{files: map[string]string{"/books/manifest.json": library}}
	r := NewResolver(f, "/books/manifest.json", "/books/chapters-media.json", time.Minute)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	require.NoError(t, r.Warm(t.Context()))

	next, ok := r.ResolveNext(t.Context(), "/books/noc/02.html")
	require.True(t, ok)
	assert.Equal(t, "/books/den/01.html", next)
	assert.Equal(t, 1, f.calls, "manifest is cached")
	assert.Equal(t, []string{"/books/manifest.json"}, f.invalidated)

	_, ok = r.Media(t.Context(), "/books/noc/02.html")
	assert.False(t, ok, "missing media table means no media")

	// expired and the source now fails: stale copy is served
	f.set("/books/manifest.json", "{")
	now = now.Add(2 * time.Minute)

	next, ok = r.ResolveNext(t.Context(), "/books/noc/02.html")
	require.True(t, ok)
	assert.Equal(t, "/books/den/01.html", next)
}

func TestResolverWithoutManifest(t *testing.T) {
	t.Parallel()

	r := NewResolver(&stubFetcher{files: map[string]string{}}, "/books/manifest.json", "", time.Minute)

	_, ok := r.ResolveNext(t.Context(), "/books/a.html")
	assert.False(t, ok)
	require.Error(t, r.Warm(t.Context()))
}

func TestBuild(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"Noc v lese/kapitola 10.html": {Data: []byte("<html><head><title>Deset</title></head><body><p>x</p></body></html>")},
		"Noc v lese/kapitola 2.html":  {Data: []byte("<p>bez titulku</p>")},
		"Noc v lese/notes.txt":        {Data: []byte("skip")},
		"Den/01.html":                 {Data: []byte("<h1>Ráno</h1>")},
		"empty/readme.md":             {Data: []byte("none")},
		".git/HEAD":                   {Data: []byte("ref")},
		"loose.html":                  {Data: []byte("<p>top level</p>")},
	}

	m, err := Build(fsys, "/books/")
	require.NoError(t, err)

	require.Len(t, m.Collections, 2)
	assert.Equal(t, "Den", m.Collections[0].Title)
	assert.Equal(t, "noc-v-lese", m.Collections[1].Slug)

	assert.Equal(t, []Chapter{{Title: "Ráno", Path: "/books/Den/01.html"}}, m.Collections[0].Chapters)
	assert.Equal(t, []Chapter{
		{Title: "kapitola 2", Path: "/books/Noc v lese/kapitola 2.html"},
		{Title: "Deset", Path: "/books/Noc v lese/kapitola 10.html"},
	}, m.Collections[1].Chapters)

	out, err := m.Marshal()
	require.NoError(t, err)

	back, err := Parse(string(out))
	require.NoError(t, err)
	assert.Equal(t, m.Flat(), back.Flat())
}
