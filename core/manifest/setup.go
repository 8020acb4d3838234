// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package manifest

import (
	"codeberg.org/synthoma/reader/config"
)

// Default is the resolver built by Setup.
var Default *Resolver

// Setup builds Default over fetcher from config.Global.
func Setup(fetcher Fetcher) {
	content := config.Global.Content

	Default = NewResolver(fetcher, content.ManifestPath, content.MediaPath, content.ManifestTTL)
}
