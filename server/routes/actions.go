// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"
	"strconv"

	"codeberg.org/synthoma/reader/core/session"
	"codeberg.org/synthoma/reader/i18n"
	"codeberg.org/synthoma/reader/server/utils"
	"codeberg.org/synthoma/reader/views"
)

// Reader actions are posted by the page script, which expects 204, or by
// the reader's plain forms, which are sent back to the reader.

// ReaderChoice activates option index of group.
func ReaderChoice(w http.ResponseWriter, r *http.Request) error {
	rd, group, index, err := choiceRequest(r)
	if err != nil {
		return err
	}

	return respond(w, r, rd, rd.Choose(group, index))
}

// ReaderFocus announces the option the reader moved to.
func ReaderFocus(w http.ResponseWriter, r *http.Request) error {
	rd, group, index, err := choiceRequest(r)
	if err != nil {
		return err
	}

	rd.Focus(group, index)

	return respond(w, r, rd, nil)
}

// ReaderSkip shows the rest of the text being typed at once.
func ReaderSkip(w http.ResponseWriter, r *http.Request) error {
	rd, err := postedSession(r)
	if err != nil {
		return err
	}

	rd.Skip()

	return respond(w, r, rd, nil)
}

// ReaderNext follows the next chapter on offer.
func ReaderNext(w http.ResponseWriter, r *http.Request) error {
	rd, err := postedSession(r)
	if err != nil {
		return err
	}

	return respond(w, r, rd, rd.Next())
}

func postedSession(r *http.Request) (*session.Reader, error) {
	rd, ok := currentSession(r)
	if !ok {
		return nil, session.ErrClosed
	}

	return rd, nil
}

func choiceRequest(r *http.Request) (*session.Reader, string, int, error) {
	rd, err := postedSession(r)
	if err != nil {
		return nil, "", 0, err
	}

	group := utils.GetFormValue(r, "group")

	index, err := strconv.Atoi(utils.GetFormValue(r, "index"))
	if group == "" || err != nil || index < 0 {
		return nil, "", 0, i18n.NewUserError(r.Context(), "Invalid choice.")
	}

	return rd, group, index, nil
}

// respond finishes an action. Script requests get a bare status; form
// posts are redirected back to the chapter.
func respond(w http.ResponseWriter, r *http.Request, rd *session.Reader, err error) error {
	if fromScript(r) {
		if err != nil {
			http.Error(w, err.Error(), StatusFor(err, 0))

			return err
		}

		w.WriteHeader(http.StatusNoContent)

		return nil
	}

	if err != nil {
		return err
	}

	target := "/"

	if snap, snapErr := rd.Snapshot(); snapErr == nil && snap.Path != "" {
		target = views.ReaderURL(snap.Path)
	}

	http.Redirect(w, r, target, http.StatusSeeOther)

	return nil
}

// ActionHeader marks requests sent by the page script.
const ActionHeader = "Synthoma-Action"

func fromScript(r *http.Request) bool {
	return r.Header.Get(ActionHeader) != ""
}
