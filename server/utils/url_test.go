// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils_test

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/synthoma/reader/server/utils"
)

func TestParseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		urlStr   string
		wantErr  bool
		expected string
	}{
		{"Valid URL", "https://example.com", false, "https://example.com"},
		{"Valid URL with path", "https://example.com/books", false, "https://example.com/books"},
		{"Missing scheme", "example.com", true, ""},
		{"Missing host", "https://", true, ""},
		{"Trailing slash", "https://example.com/books/", false, "https://example.com/books"},
		{"Empty URL", "", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := utils.ParseURL(tt.urlStr, "Test")
			if (err != nil) != tt.wantErr {
				t.Errorf("utils.ParseURL() error = %v, wantErr %v", err, tt.wantErr)

				return
			}

			if !tt.wantErr && got.String() != tt.expected {
				t.Errorf("utils.ParseURL() got = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSanitizeReturnPath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/reader?path=a":         "/reader?path=a",
		"  /library ":            "/library",
		"https://evil.example/":  "",
		"//evil.example":         "",
		`/\evil.example`:         "",
		"reader":                 "",
		"":                       "",
	}

	for in, want := range tests {
		if got := utils.SanitizeReturnPath(in); got != want {
			t.Errorf("SanitizeReturnPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsConnectionSecure(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.2:1234"

	if utils.IsConnectionSecure(r) {
		t.Error("plain request reported secure")
	}

	r.Header.Set("X-Forwarded-Proto", "https")

	if !utils.IsConnectionSecure(r) {
		t.Error("private proxy with https not trusted")
	}

	r.RemoteAddr = "203.0.113.9:1234"

	if utils.IsConnectionSecure(r) {
		t.Error("public peer trusted")
	}

	r.TLS = &tls.ConnectionState{}

	if !utils.IsConnectionSecure(r) {
		t.Error("TLS request reported insecure")
	}
}

func TestGetOriginFromURL(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"https://cdn.example/books/": "https://cdn.example",
		"http://localhost:9000":      "http://localhost:9000",
		"/books/":                    "",
		"":                           "",
	}

	for in, want := range tests {
		if got := utils.GetOriginFromURL(in); got != want {
			t.Errorf("GetOriginFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}
