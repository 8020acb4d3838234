// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package requests

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"

	"codeberg.org/synthoma/reader/core/audit"
	"codeberg.org/synthoma/reader/core/idgen"
	"codeberg.org/synthoma/reader/server/request_context"
	"codeberg.org/synthoma/reader/server/utils"
)

// maxBodySize caps how much of a chapter is read.
const maxBodySize = 8 << 20

// Source retrieves raw files by their path relative to the content root.
type Source interface {
	Fetch(ctx context.Context, rel string) (string, error)
}

// HTTPSource fetches content from a web server.
type HTTPSource struct {
	// Base is prepended to relative paths. May be empty when only absolute
	// URLs are fetched.
	Base string

	Client *http.Client
}

// Fetch issues a GET for rel, which is either relative to Base or an absolute URL.
func (s HTTPSource) Fetch(ctx context.Context, rel string) (string, error) {
	target := rel
	if !IsAbsoluteURL(rel) {
		if s.Base == "" {
			return "", &FetchError{Path: rel, StatusCode: http.StatusNotFound, Err: errBadPath}
		}

		target = strings.TrimSuffix(s.Base, "/") + "/" + EncodePath(strings.TrimPrefix(rel, "/"))
	}

	body, status, err := s.get(ctx, target)
	if err != nil {
		return "", &FetchError{Path: rel, Err: err}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return "", &FetchError{Path: rel, StatusCode: status, Err: errStatus}
	}

	return string(body), nil
}

func (s HTTPSource) get(ctx context.Context, target string) (_ []byte, _ int, err error) {
	client := s.Client
	if client == nil {
		client = utils.HTTPClient
	}

	// fragments never reach the server
	if u, parseErr := url.Parse(target); parseErr == nil {
		u.Fragment = ""
		target = u.String()
	}

	span := audit.Span{
		Destination: audit.ToContent,
		RequestID:   idgen.Child(request_context.FromContext(ctx).RequestID),
		Method:      http.MethodGet,
		URL:         target,
	}

	defer func() { span.Error = err }()

	ctx = span.Begin(ctx)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "text/html, application/json;q=0.9, */*;q=0.1")

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	span.StatusCode = resp.StatusCode

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}

	span.Body = body

	span.End()
	span.Log()

	return body, resp.StatusCode, nil
}

// DirSource reads content from a file system, usually os.DirFS of the content root.
type DirSource struct {
	FS fs.FS
}

// Fetch reads rel from the file system. Query and fragment suffixes are ignored.
func (s DirSource) Fetch(_ context.Context, rel string) (string, error) {
	name, err := fsName(rel)
	if err != nil {
		return "", &FetchError{Path: rel, StatusCode: http.StatusNotFound, Err: err}
	}

	data, err := fs.ReadFile(s.FS, name)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", &FetchError{Path: rel, StatusCode: http.StatusNotFound, Err: err}
	case errors.Is(err, fs.ErrPermission):
		return "", &FetchError{Path: rel, StatusCode: http.StatusForbidden, Err: err}
	case err != nil:
		return "", &FetchError{Path: rel, Err: err}
	}

	if len(data) > maxBodySize {
		data = data[:maxBodySize]
	}

	return string(data), nil
}

// fsName turns a request path into an fs.FS name.
func fsName(rel string) (string, error) {
	p, _ := splitSuffix(rel)

	decoded, err := url.PathUnescape(p)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errBadPath, err)
	}

	name := strings.TrimPrefix(path.Clean("/"+decoded), "/")
	if name == "" || !fs.ValidPath(name) {
		return "", fmt.Errorf("%w: %q", errBadPath, rel)
	}

	return name, nil
}
