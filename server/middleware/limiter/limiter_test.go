// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		header     http.Header
		expectedIP string
	}{
		{
			name:       "X-Real-IP from a trusted peer",
			remoteAddr: "127.0.0.1:12345",
			header:     http.Header{"X-Real-Ip": {"2.2.2.2"}},
			expectedIP: "2.2.2.2",
		},
		{
			name:       "last X-Forwarded-For hop",
			remoteAddr: "192.168.1.1:12345",
			header:     http.Header{"X-Forwarded-For": {"3.3.3.3, 4.4.4.4"}},
			expectedIP: "4.4.4.4",
		},
		{
			name:       "headers from an untrusted peer are ignored",
			remoteAddr: "1.1.1.1:12345",
			header:     http.Header{"X-Real-Ip": {"2.2.2.2"}},
			expectedIP: "1.1.1.1",
		},
		{
			name:       "IPv6 peer",
			remoteAddr: "[2001:db8::1]:443",
			expectedIP: "2001:db8::1",
		},
		{
			name:       "mapped IPv4 is unmapped",
			remoteAddr: "[::ffff:5.5.5.5]:80",
			expectedIP: "5.5.5.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ip, ok := getClientIP(&http.Request{RemoteAddr: tt.remoteAddr, Header: tt.header})
			require.True(t, ok)
			assert.Equal(t, tt.expectedIP, ip.String())
		})
	}

	_, ok := getClientIP(&http.Request{RemoteAddr: "nonsense"})
	assert.False(t, ok)
}

func TestParsePassList(t *testing.T) {
	t.Parallel()

	list, invalid := parsePassList([]string{"10.0.0.0/8", "2.2.2.2", " ", "2001:db8::/32", "bogus"})

	assert.Equal(t, []string{"bogus"}, invalid)
	require.Len(t, list, 3)

	assert.True(t, ipMatchesList(netip.MustParseAddr("10.1.2.3"), list))
	assert.True(t, ipMatchesList(netip.MustParseAddr("2.2.2.2"), list))
	assert.True(t, ipMatchesList(netip.MustParseAddr("2001:db8::7"), list))
	assert.False(t, ipMatchesList(netip.MustParseAddr("2.2.2.3"), list))
}

func TestGetNetwork(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1.2.3.0/24", getNetwork(netip.MustParseAddr("1.2.3.4"), 24, 48).String())
	assert.Equal(t, "2001:db8:1::/48", getNetwork(netip.MustParseAddr("2001:db8:1:2::9"), 24, 48).String())
}

func newTestLimiter() *Limiter {
	return New(Options{
		Rate:        1,
		Burst:       2,
		PassIPs:     []string{"9.9.9.9"},
		IPv4Prefix:  24,
		IPv6Prefix:  48,
		IdleTimeout: time.Minute,
	})
}

// useClock freezes timeNow for the test and returns a function advancing it.
func useClock(t *testing.T) func(time.Duration) {
	t.Helper()

	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return now }

	t.Cleanup(func() { timeNow = time.Now })

	return func(d time.Duration) { now = now.Add(d) }
}

//nolint:paralleltest // replaces timeNow
func TestEvaluate(t *testing.T) {
	advance := useClock(t)
	l := newTestLimiter()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	do := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/reader/choice", nil)
		req.RemoteAddr = remote

		rr := httptest.NewRecorder()
		l.Evaluate(rr, req, next)

		return rr
	}

	assert.Equal(t, http.StatusNoContent, do("1.2.3.4:1").Code)

	rr := do("1.2.3.5:1")
	assert.Equal(t, http.StatusNoContent, rr.Code, "same network shares the bucket")
	assert.Equal(t, "2", rr.Header().Get(HeaderRateLimitLimit))
	assert.Equal(t, "0", rr.Header().Get(HeaderRateLimitRemaining))

	rr = do("1.2.3.6:1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, do("1.2.4.1:1").Code, "other networks are unaffected")

	advance(time.Second)
	assert.Equal(t, http.StatusNoContent, do("1.2.3.4:1").Code, "tokens refill")

	for range 5 {
		rr = do("9.9.9.9:1")
		assert.Equal(t, http.StatusNoContent, rr.Code, "pass list")
		assert.Empty(t, rr.Header().Get(HeaderRateLimitLimit))
	}
}

//nolint:paralleltest // replaces timeNow
func TestCleanup(t *testing.T) {
	advance := useClock(t)
	l := newTestLimiter()

	l.Check(netip.MustParseAddr("1.2.3.4"))
	advance(30 * time.Second)
	l.Check(netip.MustParseAddr("5.6.7.8"))

	assert.Zero(t, l.Cleanup())

	advance(45 * time.Second)
	assert.Equal(t, 1, l.Cleanup())

	advance(time.Minute)
	assert.Equal(t, 1, l.Cleanup())
	assert.Zero(t, l.Cleanup())
}

func TestLimited(t *testing.T) {
	t.Parallel()

	assert.True(t, limited(httptest.NewRequest(http.MethodPost, "/reader/skip", nil)))
	assert.False(t, limited(httptest.NewRequest(http.MethodGet, "/reader/events", nil)))
	assert.False(t, limited(httptest.NewRequest(http.MethodPost, "/results", nil)))
}
