// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Rate limiting header names.
//
// ref: https://www.ietf.org/archive/id/draft-polli-ratelimit-headers-02.html
const (
	HeaderRateLimitLimit     = "RateLimit-Limit"
	HeaderRateLimitRemaining = "RateLimit-Remaining"
)

// limitedPrefix holds the reader's state-changing endpoints.
const limitedPrefix = "/reader/"

// Evaluate limits POST requests to the reader's actions. It is a no-op
// until Init has run.
func Evaluate(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if active == nil || !limited(r) {
		next.ServeHTTP(w, r)

		return
	}

	active.Evaluate(w, r, next)
}

func limited(r *http.Request) bool {
	return r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, limitedPrefix)
}

// Evaluate is the middleware for l.
func (l *Limiter) Evaluate(w http.ResponseWriter, r *http.Request, next http.Handler) {
	ip, ok := getClientIP(r)
	if !ok {
		log.Error().Str("remote_addr", r.RemoteAddr).Msg("Could not determine client IP")
		http.Error(w, "Bad Request", http.StatusBadRequest)

		return
	}

	decision := l.Check(ip)

	if !decision.Passed {
		w.Header().Set(HeaderRateLimitLimit, strconv.Itoa(decision.Limit))
		w.Header().Set(HeaderRateLimitRemaining, strconv.Itoa(decision.Remaining))
	}

	if !decision.Allowed {
		log.Warn().
			Str("network", decision.Network.String()).
			Str("path", r.URL.Path).
			Msg("Rate limit exceeded")

		w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter()))
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)

		return
	}

	next.ServeHTTP(w, r)
}

// retryAfter is the number of whole seconds until a token is available.
func (l *Limiter) retryAfter() int {
	if l.opts.Rate <= 0 {
		return 60
	}

	return max(int(math.Ceil(1/l.opts.Rate)), 1)
}
