// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Genconfig writes example configuration files for deployments: one
// setting every option through environment variables and one through YAML.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"

	"codeberg.org/synthoma/reader/config"
	"codeberg.org/synthoma/reader/core/audit"
	"codeberg.org/synthoma/reader/core/authenticated"
)

const (
	envFileName  = ".env.example"
	yamlFileName = "config.yaml.example"
	filePerm     = 0o644
	dirPerm      = 0o755

	generatedBy = "# Generated by go run ./cmd/genconfig.\n"

	envFileHeader = "# Synthoma reader configuration (environment variables)\n" +
		"#\n# Copy this file to .env and uncomment what you need.\n" + generatedBy + "\n"

	yamlFileHeader = "# Synthoma reader configuration (YAML)\n" +
		"#\n# Copy this file to config.yaml and uncomment what you need.\n" + generatedBy

	secretComment = "# A fixed secret keeps reader sessions valid across restarts.\n" +
		"# This one was generated for you; never share it.\n"
)

// uncommented are the variables written active rather than commented out.
var uncommented = map[string]struct{}{
	"SYNTHOMA_HOST":         {},
	"SYNTHOMA_PORT":         {},
	"SYNTHOMA_CONTENT_ROOT": {},
}

func main() {
	dir := flag.String("dir", "deploy", "output directory")
	flag.Parse()

	audit.SetDefaultLogger()

	if err := os.MkdirAll(*dir, dirPerm); err != nil {
		log.Fatal().Err(err).Str("path", *dir).Msg("Failed to create output directory")
	}

	secret := authenticated.NewSecretKeyHex()

	write(filepath.Join(*dir, envFileName), envExample(secret))

	yamlExample, err := yamlExample(secret)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode configuration")
	}

	write(filepath.Join(*dir, yamlFileName), yamlExample)
}

func write(path, content string) {
	if err := os.WriteFile(path, []byte(content), filePerm); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to write example")
	}

	log.Info().Str("path", path).Msg("Wrote example")
}

func defaults() *config.ServerConfig {
	cfg := &config.ServerConfig{}
	cfg.SetDefaults()

	return cfg
}

// envExample lists every env-tagged field, one section per top-level struct.
func envExample(secret string) string {
	var sb strings.Builder

	sb.WriteString(envFileHeader)

	val := reflect.ValueOf(*defaults())
	typ := val.Type()

	for i := range typ.NumField() {
		section := val.Field(i)
		if section.Kind() != reflect.Struct || typ.Field(i).Tag.Get("yaml") == "-" {
			continue
		}

		fmt.Fprintf(&sb, "## %s\n", typ.Field(i).Name)

		for j := range section.NumField() {
			tag, ok := section.Type().Field(j).Tag.Lookup("env")
			if !ok {
				continue
			}

			name, _, _ := strings.Cut(tag, ",")
			sb.WriteString(envLine(name, section.Field(j), secret))
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

func envLine(name string, value reflect.Value, secret string) string {
	if name == "SYNTHOMA_SECRET" {
		return secretComment + fmt.Sprintf("# %s=%s\n", name, secret)
	}

	if _, ok := uncommented[name]; ok {
		return fmt.Sprintf("%s=%q\n", name, fmt.Sprint(value.Interface()))
	}

	switch {
	case value.Kind() == reflect.Slice:
		parts := make([]string, value.Len())
		for i := range parts {
			parts[i] = fmt.Sprint(value.Index(i).Interface())
		}

		return fmt.Sprintf("# %s=%s\n", name, strings.Join(parts, ","))
	case value.Kind() == reflect.String && value.Len() == 0:
		return fmt.Sprintf("# %s=\n", name)
	default:
		return fmt.Sprintf("# %s=%v\n", name, value.Interface())
	}
}

// yamlExample is the default configuration as YAML with every value
// commented out except the section headers.
func yamlExample(secret string) (string, error) {
	cfg := defaults()
	cfg.Basic.SessionSecret = secret

	raw, err := yaml.MarshalWithOptions(cfg, config.GetDurationEncoderOption(), yaml.Indent(2))
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	sb.WriteString(yamlFileHeader)

	for line := range strings.SplitSeq(string(raw), "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			continue
		case !strings.HasPrefix(line, " "):
			fmt.Fprintf(&sb, "\n%s\n", line)

			continue
		case strings.HasPrefix(trimmed, "secret:"):
			for comment := range strings.SplitSeq(strings.TrimSpace(secretComment), "\n") {
				fmt.Fprintf(&sb, "  %s\n", comment)
			}
		}

		indent := len(line) - len(strings.TrimLeft(line, " "))
		fmt.Fprintf(&sb, "%s# %s\n", strings.Repeat(" ", indent), trimmed)
	}

	return sb.String(), nil
}
