// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"cmp"
	"encoding/json"
	"net/http"
	"slices"

	"github.com/maruel/natural"

	"codeberg.org/synthoma/reader/i18n"
	"codeberg.org/synthoma/reader/views"
)

// ResultsPage shows how often the reader chose each tag.
func ResultsPage(w http.ResponseWriter, r *http.Request) error {
	return renderPage(w, r, i18n.Tr(r.Context(), "Results"), views.Results(views.ResultsData{Scores: scores(r)}))
}

// ResultsJSON is ResultsPage as {"scores": [{"tag": ..., "count": ...}]}.
func ResultsJSON(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	return json.NewEncoder(w).Encode(struct {
		Scores []views.Score `json:"scores"`
	}{Scores: scores(r)})
}

// scores lists the session's counts, highest first, ties in natural tag order.
func scores(r *http.Request) []views.Score {
	out := []views.Score{}

	rd, ok := currentSession(r)
	if !ok {
		return out
	}

	for tag, count := range rd.Scores() {
		out = append(out, views.Score{Tag: tag, Count: count})
	}

	slices.SortFunc(out, func(a, b views.Score) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}

		switch {
		case natural.Less(a.Tag, b.Tag):
			return -1
		case natural.Less(b.Tag, a.Tag):
			return 1
		default:
			return 0
		}
	})

	return out
}
