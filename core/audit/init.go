// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package audit holds the reader's logging defaults, HTTP spans and metrics.
*/
package audit

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetDefaultLogger installs a readable console logger for use until the
// configuration has been loaded.
func SetDefaultLogger() {
	zerolog.DurationFieldUnit = time.Millisecond

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
}
