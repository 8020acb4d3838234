// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package i18n translates reader UI text and screen-reader announcements using
GNU gettext .po catalogues.

Use the original English text as the msgid:

	i18n.Tr(ctx, "Library")
	i18n.Tr(ctx, "Selected: {{.Label}}.", "Label", label)
	i18n.TrN(ctx, "{{.Count}} chapter", "{{.Count}} chapters", n, "Count", n)

Placeholders use text/template syntax. Missing translations return the msgid
unchanged; with strict mode enabled they are logged once per locale and key
and wrapped as "⟦...⟧".
*/
package i18n
