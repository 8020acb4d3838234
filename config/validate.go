// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"codeberg.org/synthoma/reader/core/authenticated"
	"codeberg.org/synthoma/reader/core/chapter"
	"codeberg.org/synthoma/reader/server/utils"
)

// validation errors.
var (
	errUnixSocketWithHostPort       = errors.New("unix socket configured - cannot specify Host and Port simultaneously")
	errUnixSocketInvalidPermissions = errors.New("invalid Basic.UnixSocketPermissions value")
	errUnixSocketUserDoesNotExist   = errors.New("user does not exist")
	errUnixSocketGroupDoesNotExist  = errors.New("group does not exist")
	errSessionSecretInvalid         = errors.New("basic.secret is not a valid paseto key")
	errNoContentSource              = errors.New("either content.root or content.baseUrl must be set")
	errContentPrefix                = errors.New("content.prefix must start and end with a slash")
	errInvalidRevealBounds          = errors.New("reveal.min must not exceed reveal.max")
	errNegativeRevealDuration       = errors.New("reveal durations must not be negative")
	errInvalidScoreBackend          = errors.New("session.scoreBackend must be memory or redis")
	errRedisAddrRequired            = errors.New("redis.addr is required for the redis score backend")
	errInvalidCacheSize             = errors.New("cache.cacheSize must be positive when the cache is enabled")
	errInvalidLimiterRate           = errors.New("limiter.rate and limiter.burst must be positive")
	errInvalidIPv4Prefix            = errors.New("IPv4 prefix must be between 0 and 32")
	errInvalidIPv6Prefix            = errors.New("IPv6 prefix must be between 0 and 128")
	errInvalidPassIP                = errors.New("limiter.passList entry is not an IP or CIDR")
)

var (
	fileModeOctalRegexp  = regexp.MustCompile(`^0?[0-7]{3}$`)
	fileModeStringRegexp = regexp.MustCompile(`^(?:[r-][w-][x-]){3}$`)
	digitsRegexp         = regexp.MustCompile(`^[0-9]+$`)
)

// validateAndSet validates the configuration and fills in derived fields.
func (cfg *ServerConfig) validateAndSet() error {
	validators := []func() error{
		cfg.validateListener,
		cfg.validateSecret,
		cfg.validateContent,
		cfg.validateReveal,
		cfg.validateSession,
		cfg.validateLimiter,
	}

	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}

	if cfg.Cache.Enabled && cfg.Cache.Size <= 0 {
		return errInvalidCacheSize
	}

	repoURL, err := utils.ParseURL(cfg.Instance.RepoURL, "Repo")
	if err != nil {
		return fmt.Errorf("invalid repo URL: %w", err)
	}

	cfg.Instance.RepoURL = repoURL.String()

	return nil
}

func (cfg *ServerConfig) validateListener() error {
	if cfg.Basic.UnixSocket == "" {
		if cfg.Basic.Host == "" {
			cfg.Basic.Host = "localhost"
		}

		if cfg.Basic.Port == "" {
			cfg.Basic.Port = "8383"
		}

		return nil
	}

	if cfg.Basic.Host != "" || cfg.Basic.Port != "" {
		return errUnixSocketWithHostPort
	}

	mode, err := parseFileMode(cfg.Basic.RawUnixSocketPermissions)
	if err != nil {
		return err
	}

	cfg.Basic.UnixSocketPermissions = mode

	if name := cfg.Basic.UnixSocketUser; name != "" {
		lookup := user.Lookup
		if digitsRegexp.MatchString(name) {
			lookup = user.LookupId
		}

		if _, err := lookup(name); err != nil {
			return errUnixSocketUserDoesNotExist
		}
	}

	if name := cfg.Basic.UnixSocketGroup; name != "" {
		lookup := user.LookupGroup
		if digitsRegexp.MatchString(name) {
			lookup = user.LookupGroupId
		}

		if _, err := lookup(name); err != nil {
			return errUnixSocketGroupDoesNotExist
		}
	}

	return nil
}

// parseFileMode accepts "660", "0660" or "rw-rw----". Empty means 0666.
func parseFileMode(raw string) (os.FileMode, error) {
	switch {
	case raw == "":
		return 0o666, nil
	case fileModeOctalRegexp.MatchString(raw):
		n, _ := strconv.ParseUint(raw, 8, 32)

		return os.FileMode(n), nil
	case fileModeStringRegexp.MatchString(raw):
		var mode os.FileMode

		const highestBit = 8

		for i, c := range raw {
			if c != '-' {
				mode |= 1 << (highestBit - i)
			}
		}

		return mode, nil
	default:
		return 0, errUnixSocketInvalidPermissions
	}
}

func (cfg *ServerConfig) validateSecret() error {
	if cfg.Basic.SessionSecret == "" {
		SessionSigner.UseEphemeralKey()
		log.Warn().
			Msg("basic.secret is empty; reader sessions will not survive a restart")

		return nil
	}

	if err := SessionSigner.LoadSecretKeyFromHex(cfg.Basic.SessionSecret); err != nil {
		key := authenticated.NewSecretKeyHex()
		log.Error().Err(err).Msgf("Generated secret key (put this in config.yaml)\nbasic:\n  secret: \"%s\"", key)

		return errSessionSecretInvalid
	}

	// no longer needed once loaded
	cfg.Basic.SessionSecret = ""

	return nil
}

func (cfg *ServerConfig) validateContent() error {
	if cfg.Content.Root == "" && cfg.Content.BaseURL == "" {
		return errNoContentSource
	}

	if cfg.Content.BaseURL != "" {
		u, err := utils.ParseURL(cfg.Content.BaseURL, "Content")
		if err != nil {
			return err
		}

		cfg.Content.BaseURL = u.String()
	} else {
		cfg.Content.Root = filepath.Clean(cfg.Content.Root)
		if _, err := os.Stat(cfg.Content.Root); err != nil {
			log.Warn().
				Err(err).
				Str("root", cfg.Content.Root).
				Msg("Content root is not readable yet")
		}
	}

	if !strings.HasPrefix(cfg.Content.Prefix, "/") || !strings.HasSuffix(cfg.Content.Prefix, "/") {
		return errContentPrefix
	}

	return nil
}

func (cfg *ServerConfig) validateReveal() error {
	r := cfg.Reveal

	for _, d := range []int64{int64(r.PerChar), int64(r.Min), int64(r.Max), int64(r.Fixed), int64(r.MinStep), int64(r.ChoiceStagger)} {
		if d < 0 {
			return errNegativeRevealDuration
		}
	}

	if r.Max > 0 && r.Min > r.Max {
		return errInvalidRevealBounds
	}

	if _, err := chapter.ParseGroupingPolicy(r.GroupingPolicy); err != nil {
		return fmt.Errorf("reveal.grouping: %w", err)
	}

	return nil
}

func (cfg *ServerConfig) validateSession() error {
	switch cfg.Session.ScoreBackend {
	case MemoryBackend:
	case RedisBackend:
		if cfg.Redis.Addr == "" {
			return errRedisAddrRequired
		}
	default:
		return errInvalidScoreBackend
	}

	return nil
}

func (cfg *ServerConfig) validateLimiter() error {
	if !cfg.Limiter.Enabled {
		return nil
	}

	if cfg.Limiter.Rate <= 0 || cfg.Limiter.Burst <= 0 {
		return errInvalidLimiterRate
	}

	if cfg.Limiter.IPv4Prefix < 0 || cfg.Limiter.IPv4Prefix > 32 {
		return errInvalidIPv4Prefix
	}

	if cfg.Limiter.IPv6Prefix < 0 || cfg.Limiter.IPv6Prefix > 128 {
		return errInvalidIPv6Prefix
	}

	for _, entry := range cfg.Limiter.PassIPs {
		if net.ParseIP(entry) != nil {
			continue
		}

		if _, _, err := net.ParseCIDR(entry); err != nil {
			return fmt.Errorf("%w: %s", errInvalidPassIP, entry)
		}
	}

	return nil
}
