// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package requests

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRemoteDisabled is returned for absolute chapter URLs when remote content is not allowed.
	ErrRemoteDisabled = errors.New("remote chapters are disabled")

	errStatus  = errors.New("unexpected status")
	errBadPath = errors.New("invalid content path")
)

// FetchError describes a chapter that could not be retrieved.
type FetchError struct {
	Path string

	// StatusCode is the HTTP status of the response, or 0 when no response
	// was received at all.
	StatusCode int

	Err error
}

func (e *FetchError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("fetching %s: %v", e.Path, e.Err)
	}

	return fmt.Sprintf("fetching %s: %d %s: %v", e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NotFound reports whether err is a FetchError for a missing chapter.
func NotFound(err error) bool {
	var fe *FetchError

	return errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound
}
