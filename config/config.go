// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package config loads, validates and prints the reader's configuration.

Values are layered: built-in defaults, then a YAML file, then a .env file,
then the process environment. The result is validated once and exposed as
[Global].
*/
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"

	"codeberg.org/synthoma/reader/core/authenticated"
	"codeberg.org/synthoma/reader/core/idgen"
)

// Global exposes the server configuration.
var Global ServerConfig

// SessionSigner signs and verifies reader session cookies.
var SessionSigner authenticated.Signer

// Score backends.
const (
	MemoryBackend ScoreBackend = "memory"
	RedisBackend  ScoreBackend = "redis"
)

// ScoreBackend selects where reader scores are persisted.
type ScoreBackend string

// ServerConfig holds the application configuration.
type ServerConfig struct {
	Build buildInfo `yaml:"-"`

	Basic struct {
		Host                     string      `env:"SYNTHOMA_HOST,overwrite" yaml:"host"`
		Port                     string      `env:"SYNTHOMA_PORT,overwrite" yaml:"port"`
		UnixSocket               string      `env:"SYNTHOMA_UNIXSOCKET" yaml:"unixSocket"`
		RawUnixSocketPermissions string      `env:"SYNTHOMA_UNIXSOCKET_PERMISSIONS" yaml:"unixSocketPermissions"`
		UnixSocketPermissions    os.FileMode `yaml:"-"`
		UnixSocketUser           string      `env:"SYNTHOMA_UNIXSOCKET_USER" yaml:"unixSocketUser"`
		UnixSocketGroup          string      `env:"SYNTHOMA_UNIXSOCKET_GROUP" yaml:"unixSocketGroup"`
		// hex of a v4.public secret key; signs reader session cookies
		SessionSecret string `env:"SYNTHOMA_SECRET" yaml:"secret"`
	} `yaml:"basic"`

	Content struct {
		// Root is a local directory of chapters served under Prefix.
		Root string `env:"SYNTHOMA_CONTENT_ROOT,overwrite" yaml:"root"`
		// BaseURL, when set, is fetched from instead of Root.
		BaseURL      string `env:"SYNTHOMA_CONTENT_BASE_URL,overwrite" yaml:"baseUrl"`
		Prefix       string `env:"SYNTHOMA_CONTENT_PREFIX,overwrite" yaml:"prefix"`
		ManifestPath string `env:"SYNTHOMA_CONTENT_MANIFEST,overwrite" yaml:"manifest"`
		MediaPath    string `env:"SYNTHOMA_CONTENT_MEDIA,overwrite" yaml:"media"`
		// AllowRemote permits absolute http(s) chapter paths.
		AllowRemote bool          `env:"SYNTHOMA_CONTENT_ALLOW_REMOTE,overwrite" yaml:"allowRemote"`
		ManifestTTL time.Duration `env:"SYNTHOMA_CONTENT_MANIFEST_TTL,overwrite" yaml:"manifestTTL"`
	} `yaml:"content"`

	Cache struct {
		Enabled  bool          `env:"SYNTHOMA_CACHE,overwrite" yaml:"enabled"`
		Size     int           `env:"SYNTHOMA_CACHE_SIZE,overwrite" yaml:"cacheSize"`
		TTL      time.Duration `env:"SYNTHOMA_CACHE_TTL,overwrite" yaml:"cacheTTL"`
		Compress bool          `env:"SYNTHOMA_CACHE_COMPRESS,overwrite" yaml:"compress"`
	} `yaml:"cache"`

	HTTPCache struct {
		MaxAge               time.Duration `env:"SYNTHOMA_CACHE_CONTROL_MAX_AGE,overwrite" yaml:"cacheControlMaxAge"`
		StaleWhileRevalidate time.Duration `env:"SYNTHOMA_CACHE_CONTROL_STALE_WHILE_REVALIDATE,overwrite" yaml:"cacheControlStaleWhileRevalidate"`
	} `yaml:"httpCache"`

	Reveal struct {
		PerChar        time.Duration `env:"SYNTHOMA_REVEAL_PER_CHAR,overwrite" yaml:"perChar"`
		Min            time.Duration `env:"SYNTHOMA_REVEAL_MIN,overwrite" yaml:"min"`
		Max            time.Duration `env:"SYNTHOMA_REVEAL_MAX,overwrite" yaml:"max"`
		Fixed          time.Duration `env:"SYNTHOMA_REVEAL_FIXED,overwrite" yaml:"fixed"`
		MinStep        time.Duration `env:"SYNTHOMA_REVEAL_MIN_STEP,overwrite" yaml:"minStep"`
		ChoiceStagger  time.Duration `env:"SYNTHOMA_REVEAL_CHOICE_STAGGER,overwrite" yaml:"choiceStagger"`
		GroupingPolicy string        `env:"SYNTHOMA_REVEAL_GROUPING,overwrite" yaml:"grouping"`
	} `yaml:"reveal"`

	Session struct {
		TTL            time.Duration `env:"SYNTHOMA_SESSION_TTL,overwrite" yaml:"ttl"`
		ScoreBackend   ScoreBackend  `env:"SYNTHOMA_SCORE_BACKEND,overwrite" yaml:"scoreBackend"`
		PersistTimeout time.Duration `env:"SYNTHOMA_SCORE_PERSIST_TIMEOUT,overwrite" yaml:"persistTimeout"`
	} `yaml:"session"`

	Redis struct {
		Addr      string `env:"SYNTHOMA_REDIS_ADDR,overwrite" yaml:"addr"`
		Username  string `env:"SYNTHOMA_REDIS_USERNAME" yaml:"username"`
		Password  string `env:"SYNTHOMA_REDIS_PASSWORD" yaml:"password"`
		DB        int    `env:"SYNTHOMA_REDIS_DB,overwrite" yaml:"db"`
		KeyPrefix string `env:"SYNTHOMA_REDIS_KEY_PREFIX,overwrite" yaml:"keyPrefix"`
	} `yaml:"redis"`

	Metrics struct {
		Enabled bool `env:"SYNTHOMA_METRICS,overwrite" yaml:"enabled"`
	} `yaml:"metrics"`

	Instance struct {
		StartingTime      string `yaml:"-"`
		FileServerCacheID string `yaml:"-"`
		RepoURL           string `env:"SYNTHOMA_REPO_URL,overwrite" yaml:"repoUrl"`
	} `yaml:"instance"`

	Development struct {
		InDevelopment bool `env:"SYNTHOMA_DEV" yaml:"inDevelopment"`
	} `yaml:"development"`

	Log struct {
		Level   string   `env:"SYNTHOMA_LOG_LEVEL,overwrite" yaml:"logLevel"`
		Outputs []string `env:"SYNTHOMA_LOG_OUTPUTS,overwrite" yaml:"logOutputs"`
		Format  string   `env:"SYNTHOMA_LOG_FORMAT,overwrite" yaml:"logFormat"`
	} `yaml:"log"`

	Limiter struct {
		Enabled         bool          `env:"SYNTHOMA_LIMITER,overwrite" yaml:"enabled"`
		Rate            float64       `env:"SYNTHOMA_LIMITER_RATE,overwrite" yaml:"rate"`
		Burst           int           `env:"SYNTHOMA_LIMITER_BURST,overwrite" yaml:"burst"`
		PassIPs         []string      `env:"SYNTHOMA_LIMITER_PASS_IPS,overwrite" yaml:"passList"`
		IPv4Prefix      int           `env:"SYNTHOMA_LIMITER_IPV4_PREFIX,overwrite" yaml:"ipv4Prefix"`
		IPv6Prefix      int           `env:"SYNTHOMA_LIMITER_IPV6_PREFIX,overwrite" yaml:"ipv6Prefix"`
		IdleTimeout     time.Duration `env:"SYNTHOMA_LIMITER_IDLE_TIMEOUT,overwrite" yaml:"idleTimeout"`
		CleanupInterval time.Duration `env:"SYNTHOMA_LIMITER_CLEANUP_INTERVAL,overwrite" yaml:"cleanupInterval"`
	} `yaml:"limiter"`

	Internationalization struct {
		// When enabled, missing keys are logged once per locale and key and
		// visibly wrapped using markers.
		StrictMissingKeys bool `env:"SYNTHOMA_STRICT_MISSING_KEYS" yaml:"strictMissingKeys"`
	} `yaml:"internationalization"`
}

// LoadConfig loads the configuration from the command line, files and the environment.
func (cfg *ServerConfig) LoadConfig() error {
	parsedConfigFlagValue := parseCommandLineArgs()

	configFlagUserSet := false

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			configFlagUserSet = true
		}
	})

	// Precedence: -config, then SYNTHOMA_CONFIGFILE, then ./config.yaml or ./config.yml.
	var configFilePath string

	switch envVar := os.Getenv("SYNTHOMA_CONFIGFILE"); {
	case configFlagUserSet:
		configFilePath = parsedConfigFlagValue
	case envVar != "":
		configFilePath = envVar
	default:
		configFilePath = parsedConfigFlagValue
		if _, err := os.Stat(configFilePath); os.IsNotExist(err) {
			if _, statErr := os.Stat("./config.yml"); statErr == nil {
				configFilePath = "./config.yml"
			}
		}
	}

	if err := useDotEnv(); err != nil {
		return fmt.Errorf("error using .env file: %w", err)
	}

	if err := cfg.load(configFilePath); err != nil {
		return err
	}

	cfg.setupAudit()
	cfg.print()

	if isContainerized() && cfg.Basic.UnixSocket == "" && cfg.Basic.Host != "0.0.0.0" && cfg.Basic.Host != "::" {
		log.Warn().
			Str("host", cfg.Basic.Host).
			Msg("Running in a container but host is not a wildcard address; the reader may be unreachable from outside")
	}

	return nil
}

// load applies defaults, the YAML file and the environment, then validates.
func (cfg *ServerConfig) load(configFilePath string) error {
	cfg.SetDefaults()

	cfg.Build.load()

	cfg.Instance.FileServerCacheID = idgen.Make()
	cfg.Instance.StartingTime = time.Now().UTC().Format("2006-01-02 15:04")

	if err := cfg.readYAML(configFilePath); err != nil {
		return fmt.Errorf("error loading YAML config: %w", err)
	}

	if err := readEnv(cfg); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}

	if err := cfg.validateAndSet(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	return nil
}

var staticSkippedPathPrefixes = []string{"/css/", "/js/", "/img/", "/metrics"}

// ShouldSkipServerLogging determines if a request should bypass request logging.
func (cfg *ServerConfig) ShouldSkipServerLogging(path string) bool {
	for _, prefix := range staticSkippedPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return !cfg.Development.InDevelopment && strings.HasPrefix(path, cfg.Content.Prefix)
}

// isContainerized checks for common indicators of a containerized environment.
//
// This is a heuristic and may not be accurate.
func isContainerized() bool {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true
	}

	for _, marker := range []string{"/.dockerenv", "/.containerenv"} {
		if _, err := os.Stat(marker); err == nil {
			return true
		}
	}

	// #nosec G304 -- well-known system file
	cgroup, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}

	for _, keyword := range []string{"docker", "kubepods", "containerd", "lxc", "crio", ".machine"} {
		if strings.Contains(string(cgroup), keyword) {
			return true
		}
	}

	return false
}

// GetDurationEncoderOption returns a YAML encoder option that marshals
// time.Duration in its human-readable form (e.g. "30m", "1h").
func GetDurationEncoderOption() yaml.EncodeOption {
	return yaml.CustomMarshaler[time.Duration](
		func(d time.Duration) ([]byte, error) {
			return yaml.Marshal(d.String())
		},
	)
}
