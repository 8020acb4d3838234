// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"codeberg.org/synthoma/reader/core/manifest"
)

const filePerm = 0o644

var errManifestStale = errors.New("manifest is out of date")

func runManifest(_ context.Context, cmd *cli.Command) error {
	m, err := manifest.Build(rootFS(cmd.String("root")), cmd.String("prefix"))
	if err != nil {
		return err
	}

	out, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	target := cmd.String("output")

	if cmd.Bool("check") {
		return checkManifest(target, out)
	}

	if target == "-" {
		_, err = cmd.Root().Writer.Write(out)

		return err
	}

	if err := os.WriteFile(target, out, filePerm); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	log.Info().
		Str("path", target).
		Int("collections", len(m.Collections)).
		Int("chapters", len(m.Flat())).
		Msg("Wrote manifest")

	return nil
}

// checkManifest compares the index stored in file with built.
func checkManifest(file string, built []byte) error {
	if file == "-" {
		return errors.New("--check needs --output FILE")
	}

	stored, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	if !bytes.Equal(bytes.TrimSpace(stored), bytes.TrimSpace(built)) {
		return fmt.Errorf("%w: %s", errManifestStale, file)
	}

	return nil
}
