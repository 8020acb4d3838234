// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ParseURL parses an absolute URL, dropping a trailing slash from its path.
func ParseURL(urlStr, urlType string) (*url.URL, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s URL: %w", urlType, err)
	}

	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf(
			"%s URL is invalid: %s. Please specify a complete URL with scheme and host, e.g. https://example.com",
			urlType,
			urlStr)
	}

	parsedURL.Path = strings.TrimSuffix(parsedURL.Path, "/")

	return parsedURL, nil
}

// GetQueryParam returns the named query parameter, or the default when it is empty.
func GetQueryParam(r *http.Request, name string, defaultValue ...string) string {
	return orDefault(r.URL.Query().Get(name), defaultValue)
}

// GetFormValue returns the named form value, or the default when it is empty.
func GetFormValue(r *http.Request, name string, defaultValue ...string) string {
	var v string
	if err := r.ParseForm(); err == nil {
		v = r.FormValue(name)
	}

	return orDefault(v, defaultValue)
}

// GetPathVar returns the named path wildcard, or the default when it is empty.
func GetPathVar(r *http.Request, name string, defaultValue ...string) string {
	return orDefault(r.PathValue(name), defaultValue)
}

func orDefault(v string, defaultValue []string) string {
	if v == "" && len(defaultValue) > 0 {
		return defaultValue[0]
	}

	return v
}

// SanitizeReturnPath ensures that s is a same-origin absolute path.
// Returns "" if the value is unsafe; callers should fall back to "/".
func SanitizeReturnPath(s string) string {
	s = strings.TrimSpace(s)

	if s == "" || strings.Contains(s, "://") || strings.HasPrefix(s, "//") || strings.HasPrefix(s, `/\`) {
		return ""
	}

	if !strings.HasPrefix(s, "/") {
		return ""
	}

	return s
}

// GetOriginFromURL returns the scheme and host of raw, or "" when raw is
// not an absolute URL.
func GetOriginFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}

	return u.Scheme + "://" + u.Host
}
