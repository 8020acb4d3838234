// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"
)

const redactedValue = "[redacted]"

// Printable returns a copy of cfg with secrets redacted.
func (cfg *ServerConfig) Printable() ServerConfig {
	printable := *cfg

	if printable.Basic.SessionSecret != "" {
		printable.Basic.SessionSecret = redactedValue
	}

	if printable.Redis.Password != "" {
		printable.Redis.Password = redactedValue
	}

	return printable
}

func (cfg *ServerConfig) print() {
	log.Info().
		Str("version", BuildVersion).
		Str("revision", cfg.Build.Revision()).
		Str("cacheid", cfg.Instance.FileServerCacheID).
		Msg("Starting Synthoma reader")

	configYAML, err := yaml.MarshalWithOptions(cfg.Printable(), GetDurationEncoderOption())
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal config to YAML for printing")

		return
	}

	log.Info().Msg("Application configuration:")
	fmt.Fprintln(os.Stderr, string(configYAML))
}
