// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package assets provides access to the reader's embedded static files.
*/
package assets

import (
	"embed"
	"io/fs"
)

// FS holds the css/, js/ and po/ trees. main replaces it with the embedded
// files; the empty default keeps packages that read it usable in tests.
var FS fs.FS = embed.FS{}
