// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package requests

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/synthoma/reader/config"
	"codeberg.org/synthoma/reader/core/requests/lrucache"
)

func TestEncodePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"/books/story/ch1.html", "/books/story/ch1.html"},
		{"/books/Příběh 1/kapitola 2.html", "/books/P%C5%99%C3%ADb%C4%9Bh%201/kapitola%202.html"},
		{"/books/a%20b.html", "/books/a%20b.html"},
		{"/books/a b.html?x=1 2#part 3", "/books/a%20b.html?x=1 2#part 3"},
		{"https://example.com/a b", "https://example.com/a b"},
		{"HTTP://example.com/x", "HTTP://example.com/x"},
		{"relative/100%.html", "relative/100%25.html"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EncodePath(tt.in), tt.in)
	}
}

func TestEncodePathIdempotent(t *testing.T) {
	t.Parallel()

	for _, p := range []string{"/a b/č.html", "/x%2Fy", "/100%"} {
		once := EncodePath(p)
		assert.Equal(t, once, EncodePath(once), p)
	}
}

func TestDirSource(t *testing.T) {
	t.Parallel()

	src := DirSource{FS: fstest.MapFS{
		"story/ch 1.html": {Data: []byte("<p>one</p>")},
	}}

	got, err := src.Fetch(t.Context(), "story/ch%201.html?instant=1#top")
	require.NoError(t, err)
	assert.Equal(t, "<p>one</p>", got)

	_, err = src.Fetch(t.Context(), "story/missing.html")
	require.True(t, NotFound(err))

	_, err = src.Fetch(t.Context(), "../etc/passwd")
	require.True(t, NotFound(err), "escapes are cleaned, then missing")

	var fe *FetchError

	_, err = src.Fetch(t.Context(), "")
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
}

func TestHTTPSource(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.EscapedPath() {
		case "/books/a%20b.html":
			_, _ = w.Write([]byte("<p>ok</p>"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	src := HTTPSource{Base: srv.URL + "/books/", Client: srv.Client()}

	got, err := src.Fetch(t.Context(), "a b.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", got)

	var fe *FetchError

	_, err = src.Fetch(t.Context(), "missing.html")
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.Equal(t, "missing.html", fe.Path)

	got, err = src.Fetch(t.Context(), srv.URL+"/books/a%20b.html#frag")
	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", got)
}

func TestHTTPSourceNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	var fe *FetchError

	_, err := HTTPSource{Base: base}.Fetch(t.Context(), "a.html")
	require.ErrorAs(t, err, &fe)
	assert.Zero(t, fe.StatusCode)
}

type countingSource struct {
	calls int
	data  map[string]string
}

func (s *countingSource) Fetch(_ context.Context, rel string) (string, error) {
	s.calls++

	if v, ok := s.data[rel]; ok {
		return v, nil
	}

	return "", &FetchError{Path: rel, StatusCode: http.StatusNotFound, Err: errors.New("missing")}
}

func TestFetcherCaches(t *testing.T) {
	t.Parallel()

	cache, err := lrucache.New(8, time.Minute, false)
	require.NoError(t, err)

	src := &countingSource{data: map[string]string{"story/ch1.html": "<p>1</p>"}}
	f := NewFetcher(src, "/books/", cache)

	for range 3 {
		got, err := f.Fetch(t.Context(), "/books/story/ch1.html")
		require.NoError(t, err)
		assert.Equal(t, "<p>1</p>", got)
	}

	assert.Equal(t, 1, src.calls)

	for range 2 {
		_, err := f.Fetch(t.Context(), "/books/story/ch2.html")
		require.Error(t, err)
	}

	assert.Equal(t, 3, src.calls, "failures are not cached")

	assert.Equal(t, []string{"/books/story/ch1.html"}, f.Invalidate("/books/story/"))

	_, err = f.Fetch(t.Context(), "/books/story/ch1.html")
	require.NoError(t, err)
	assert.Equal(t, 4, src.calls)
}

func TestFetcherRemote(t *testing.T) {
	t.Parallel()

	f := NewFetcher(&countingSource{}, "/books/", nil)

	_, err := f.Fetch(t.Context(), "https://example.com/ch.html")
	require.ErrorIs(t, err, ErrRemoteDisabled)

	remote := &countingSource{data: map[string]string{"https://example.com/ch.html": "<p>r</p>"}}
	f.Remote = remote

	got, err := f.Fetch(t.Context(), "https://example.com/ch.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>r</p>", got)
}

func TestFetcherKey(t *testing.T) {
	t.Parallel()

	f := NewFetcher(nil, "/books/", nil)

	assert.Equal(t, "/books/a%20b.html", f.Key("/books/a b.html"))
	assert.Equal(t, "/books/a%20b.html", f.Key("books/a%20b.html?instant=1"))
	assert.Equal(t, "https://x/y", f.Key("https://x/y"))
}

// Not parallel: Setup replaces DefaultFetcher from config.Global.
func TestSetupFetchChapter(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "story"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "story", "ch 1.html"), []byte("<p>one</p>"), 0o600))

	saved, savedFetcher := config.Global, DefaultFetcher

	t.Cleanup(func() {
		config.Global, DefaultFetcher = saved, savedFetcher
	})

	config.Global.Content.Root = root
	config.Global.Content.BaseURL = ""
	config.Global.Content.Prefix = "/books/"
	config.Global.Content.AllowRemote = false
	config.Global.Cache.Enabled = true
	config.Global.Cache.Size = 4
	config.Global.Cache.TTL = time.Minute
	config.Global.Cache.Compress = true

	require.NoError(t, Setup())

	got, err := FetchChapter(t.Context(), "/books/story/ch%201.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>one</p>", got)

	_, err = FetchChapter(t.Context(), "/books/story/missing.html")
	assert.True(t, NotFound(err))

	_, err = FetchChapter(t.Context(), "https://example.com/ch.html")
	require.ErrorIs(t, err, ErrRemoteDisabled)
}
