// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"io/fs"
	"net/http"
	"os"
	"strings"

	"codeberg.org/synthoma/reader/config"
)

// ContentFiles serves the content root: chapters, the manifest and media.
// Paths reach it with the content prefix already stripped. With a content
// base URL configured, requests are redirected there instead.
func ContentFiles() func(w http.ResponseWriter, r *http.Request) error {
	if base := strings.TrimSuffix(config.Global.Content.BaseURL, "/"); base != "" {
		return func(w http.ResponseWriter, r *http.Request) error {
			http.Redirect(w, r, base+"/"+strings.TrimPrefix(r.URL.EscapedPath(), "/"), http.StatusFound)

			return nil
		}
	}

	return contentFileServer(os.DirFS(config.Global.Content.Root))
}

func contentFileServer(fsys fs.FS) func(w http.ResponseWriter, r *http.Request) error {
	fileServer := http.FileServerFS(fsys)

	return func(w http.ResponseWriter, r *http.Request) error {
		// no directory listings
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)

			return nil
		}

		setPublicCache(w)
		fileServer.ServeHTTP(w, r)

		return nil
	}
}
