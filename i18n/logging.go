// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package i18n

import (
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"codeberg.org/synthoma/reader/config"
)

var (
	// Logger is the logger used by package i18n.
	Logger = zerolog.Nop()

	// missingKeyOnce deduplicates missing msgid warnings. Keyed by locale+"\x00"+msgid.
	missingKeyOnce sync.Map
)

func strictMissingKeys() bool {
	return config.Global.Internationalization.StrictMissingKeys
}

func logMissingOnce(locale language.Tag, key string) {
	base, script, region := locale.Raw()
	stripped, _ := language.Compose(base, script, region)

	id := stripped.String() + "\x00" + key
	if _, seen := missingKeyOnce.LoadOrStore(id, struct{}{}); !seen {
		Logger.Warn().
			Str("locale", stripped.String()).
			Str("key", key).
			Msg("Missing i18n translation")
	}
}
