// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package i18n

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

const csPo = `msgid ""
msgstr ""
"Language: cs\n"
"Content-Type: text/plain; charset=UTF-8\n"
"Plural-Forms: nplurals=3; plural=(n==1) ? 0 : (n>=2 && n<=4) ? 1 : 2;\n"

msgid "Selected: {{.Label}}."
msgstr "Vybráno: {{.Label}}."

msgid "Library"
msgstr "Knihovna"

msgid "{{.Count}} chapter"
msgid_plural "{{.Count}} chapters"
msgstr[0] "{{.Count}} kapitola"
msgstr[1] "{{.Count}} kapitoly"
msgstr[2] "{{.Count}} kapitol"
`

//nolint:paralleltest // Setup replaces package state
func TestTranslate(t *testing.T) {
	require.NoError(t, SetupFS(fstest.MapFS{
		"po/cs.po":    {Data: []byte(csPo)},
		"po/notes.md": {Data: []byte("ignored")},
	}))

	assert.Equal(t, []language.Tag{language.English, language.Czech}, Languages())

	cs := WithTag(t.Context(), language.Czech)

	assert.Equal(t, "Knihovna", Tr(cs, "Library"))
	assert.Equal(t, "Vybráno: Doleva.", Tr(cs, "Selected: {{.Label}}.", "Label", "Doleva"))
	assert.Equal(t, "Selected: Left.", Tr(t.Context(), "Selected: {{.Label}}.", "Label", "Left"))
	assert.Equal(t, "Untranslated", Tr(cs, "Untranslated"))

	assert.Equal(t, "3 kapitoly", TrN(cs, "{{.Count}} chapter", "{{.Count}} chapters", 3, "Count", 3))
	assert.Equal(t, "1 chapter", TrN(t.Context(), "{{.Count}} chapter", "{{.Count}} chapters", 1, "Count", 1))
	assert.Equal(t, "5 chapters", TrN(t.Context(), "{{.Count}} chapter", "{{.Count}} chapters", 5, "Count", 5))

	r := httptest.NewRequest(http.MethodGet, "/?lang=auto", nil)
	r.Header.Set("Accept-Language", "cs-CZ,cs;q=0.9,en;q=0.5")
	assert.Equal(t, "Knihovna", Tr(WithRequest(t.Context(), r), "Library"))

	r = httptest.NewRequest(http.MethodGet, "/?lang=en", nil)
	r.Header.Set("Accept-Language", "cs")
	assert.Equal(t, "Library", Tr(WithRequest(t.Context(), r), "Library"))

	var _ templ.Component = MsgKey("Library")

	var buf bytes.Buffer
	require.NoError(t, MsgKey("Library").Render(cs, &buf))
	assert.Equal(t, "Knihovna", buf.String())
}

func TestPairsPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { pairs([]any{"odd"}) })
	assert.Panics(t, func() { pairs([]any{1, 2}) })
}
