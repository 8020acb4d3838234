// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

// The code in this file keeps links from older deployments working.
//
// Add more redirects in (*Router).DefineRoutes

package router

import (
	"net/http"
	"path"

	"codeberg.org/synthoma/reader/server/utils"
	"codeberg.org/synthoma/reader/views"
)

// redirectPathToReader redirects requests to the reader, opening the
// {path...} wildcard below the content prefix.
//
// Example:   /chapter/book/1.html   ->   /reader?u=%2Fbooks%2Fbook%2F1.html
func redirectPathToReader(prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := path.Join("/", prefix, utils.GetPathVar(r, "path"))

		http.Redirect(w, r, views.ReaderURL(target), http.StatusPermanentRedirect)
	}
}

// redirectQueryParamToReader redirects to the reader, opening the chapter
// named by a query parameter.
//
// Example:   /read?chapter=/books/book/1.html   ->   /reader?u=%2Fbooks%2Fbook%2F1.html
func redirectQueryParamToReader(preservedParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, views.ReaderURL(utils.GetQueryParam(r, preservedParam)), http.StatusPermanentRedirect)
	}
}
