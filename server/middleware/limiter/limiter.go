// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"net/netip"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"codeberg.org/synthoma/reader/config"
)

// timeNow is replaced in tests.
var timeNow = time.Now

// Options configure a Limiter.
type Options struct {
	Rate       float64
	Burst      int
	PassIPs    []string
	IPv4Prefix int
	IPv6Prefix int

	// IdleTimeout is how long a network's bucket is kept once unused.
	IdleTimeout time.Duration
}

// Limiter holds one token bucket per client network.
type Limiter struct {
	opts Options
	pass []netip.Prefix

	limiters sync.Map // netip.Prefix -> *limiterWrapper
}

type limiterWrapper struct {
	mu         sync.Mutex
	limiter    *rate.Limiter
	lastAccess time.Time
}

// New returns a Limiter. Invalid pass list entries are logged and ignored.
func New(opts Options) *Limiter {
	pass, invalid := parsePassList(opts.PassIPs)
	for _, entry := range invalid {
		log.Warn().Str("entry", entry).Msg("Ignoring invalid limiter pass list entry")
	}

	return &Limiter{opts: opts, pass: pass}
}

// Decision is the outcome of checking one request.
type Decision struct {
	Allowed bool
	Passed  bool // on the pass list
	Network netip.Prefix

	Limit     int
	Remaining int
}

// Check consumes a token for ip's network.
func (l *Limiter) Check(ip netip.Addr) Decision {
	if ipMatchesList(ip, l.pass) {
		return Decision{Allowed: true, Passed: true}
	}

	network := getNetwork(ip, l.opts.IPv4Prefix, l.opts.IPv6Prefix)
	wrapper := l.getOrCreateLimiter(network)

	wrapper.mu.Lock()
	defer wrapper.mu.Unlock()

	now := timeNow()
	wrapper.lastAccess = now

	allowed := wrapper.limiter.AllowN(now, 1)

	return Decision{
		Allowed:   allowed,
		Network:   network,
		Limit:     l.opts.Burst,
		Remaining: max(int(wrapper.limiter.TokensAt(now)), 0),
	}
}

func (l *Limiter) getOrCreateLimiter(network netip.Prefix) *limiterWrapper {
	if existing, ok := l.limiters.Load(network); ok {
		return existing.(*limiterWrapper) //nolint:forcetypeassert // only wrappers are stored
	}

	fresh := &limiterWrapper{
		limiter:    rate.NewLimiter(rate.Limit(l.opts.Rate), l.opts.Burst),
		lastAccess: timeNow(),
	}

	actual, _ := l.limiters.LoadOrStore(network, fresh)

	return actual.(*limiterWrapper) //nolint:forcetypeassert // only wrappers are stored
}

// Cleanup drops the buckets of networks idle for longer than IdleTimeout
// and returns how many were dropped.
func (l *Limiter) Cleanup() int {
	cutoff := timeNow().Add(-l.opts.IdleTimeout)
	dropped := 0

	l.limiters.Range(func(key, value any) bool {
		wrapper := value.(*limiterWrapper) //nolint:forcetypeassert // only wrappers are stored

		wrapper.mu.Lock()
		idle := wrapper.lastAccess.Before(cutoff)
		wrapper.mu.Unlock()

		if idle {
			l.limiters.Delete(key)

			dropped++
		}

		return true
	})

	return dropped
}

var (
	active   *Limiter
	stopOnce sync.Once
	stop     chan struct{}
)

// Init builds the limiter from config.Global and starts its cleanup.
func Init() {
	cfg := config.Global.Limiter

	active = New(Options{
		Rate:        cfg.Rate,
		Burst:       cfg.Burst,
		PassIPs:     cfg.PassIPs,
		IPv4Prefix:  cfg.IPv4Prefix,
		IPv6Prefix:  cfg.IPv6Prefix,
		IdleTimeout: cfg.IdleTimeout,
	})

	stop = make(chan struct{})
	stopOnce = sync.Once{}

	go runCleanup(active, cfg.CleanupInterval, stop)

	log.Info().
		Float64("rate", cfg.Rate).
		Int("burst", cfg.Burst).
		Msg("Limiter enabled")
}

// Fini stops the cleanup started by Init.
func Fini() {
	if stop == nil {
		return
	}

	stopOnce.Do(func() { close(stop) })
}

func runCleanup(l *Limiter, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			start := timeNow()
			dropped := l.Cleanup()

			log.Debug().Int("dropped", dropped).Dur("dur", time.Since(start)).Msg("limiter cleanup")
		}
	}
}
