// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
I18n_extract collects the translatable strings of the module into a gettext
template and reports msgids missing from the catalogues under po/.

	go run ./cmd/i18n_extract [-o po/synthoma.pot] [-check]

With -check nothing is written; the command fails when a catalogue lacks a
msgid used in the code.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/leonelquinteros/gotext"
	"github.com/rs/zerolog/log"
	"golang.org/x/tools/go/packages"

	"codeberg.org/synthoma/reader/core/audit"
)

const (
	filePerm = 0o644
	dirPerm  = 0o755
)

func main() {
	outPath := flag.String("o", "po/synthoma.pot", "template to write")
	check := flag.Bool("check", false, "report msgids missing from po/*.po instead of writing the template")
	flag.Parse()

	audit.SetDefaultLogger()

	wd, err := os.Getwd()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get working directory")
	}

	root := projectRoot(wd)

	// Test files are skipped; their strings never reach a reader.
	pkgs, err := packages.Load(&packages.Config{Mode: packages.LoadAllSyntax, Dir: root}, "./...")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load packages")
	}

	if packages.PrintErrors(pkgs) > 0 {
		log.Fatal().Msg("Packages have errors")
	}

	entries := extract(pkgs, root)

	log.Info().Int("msgids", len(entries)).Msg("Extracted messages")

	if *check {
		if missing := checkCatalogues(filepath.Join(root, "po"), entries); missing > 0 {
			log.Fatal().Int("missing", missing).Msg("Catalogues are incomplete")
		}

		return
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), dirPerm); err != nil {
		log.Fatal().Err(err).Msg("Failed to create output directory")
	}

	if err := os.WriteFile(*outPath, []byte(template(entries)), filePerm); err != nil {
		log.Fatal().Err(err).Str("path", *outPath).Msg("Failed to write template")
	}

	log.Info().Str("path", *outPath).Msg("Wrote template")
}

// template renders entries as a POT file.
func template(entries []entry) string {
	var b strings.Builder

	fmt.Fprintln(&b, `msgid ""`)
	fmt.Fprintln(&b, `msgstr ""`)
	fmt.Fprintf(&b, "\"Project-Id-Version: synthoma-reader %s\\n\"\n", gitVersion())
	fmt.Fprintf(&b, "\"POT-Creation-Date: %s\\n\"\n", time.Now().UTC().Format("2006-01-02 15:04+0000"))
	fmt.Fprintln(&b, `"Language: en\n"`)
	fmt.Fprintln(&b, `"MIME-Version: 1.0\n"`)
	fmt.Fprintln(&b, `"Content-Type: text/plain; charset=UTF-8\n"`)
	fmt.Fprintln(&b, `"Content-Transfer-Encoding: 8bit\n"`)
	fmt.Fprintln(&b, `"Plural-Forms: nplurals=2; plural=(n != 1);\n"`)

	for _, e := range entries {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "#: %s\n", strings.Join(e.refs, " "))
		fmt.Fprintf(&b, "msgid %q\n", e.id)

		if e.plural != "" {
			fmt.Fprintf(&b, "msgid_plural %q\n", e.plural)
			fmt.Fprintln(&b, `msgstr[0] ""`)
			fmt.Fprintln(&b, `msgstr[1] ""`)
		} else {
			fmt.Fprintln(&b, `msgstr ""`)
		}
	}

	return b.String()
}

// checkCatalogues logs every msgid a catalogue in dir lacks and returns how
// many were missing in total.
func checkCatalogues(dir string, entries []entry) int {
	files, err := filepath.Glob(filepath.Join(dir, "*.po"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list catalogues")
	}

	slices.Sort(files)

	missing := 0

	for _, file := range files {
		po := gotext.NewPo()
		po.ParseFile(file)

		for _, e := range entries {
			translated := po.IsTranslated(e.id)
			if e.plural != "" {
				translated = po.IsTranslatedN(e.id, 2)
			}

			if !translated {
				missing++

				log.Warn().Str("file", filepath.Base(file)).Str("msgid", e.id).Msg("Missing translation")
			}
		}
	}

	return missing
}

// gitVersion describes the checkout, or returns "dev" outside of git.
func gitVersion() string {
	out, err := exec.Command("git", "describe", "--tags", "--always", "--dirty").Output()
	if err != nil {
		return "dev"
	}

	return strings.TrimSpace(string(out))
}

// projectRoot is the nearest directory above wd holding go.mod.
func projectRoot(wd string) string {
	for dir := filepath.Clean(wd); ; {
		if fi, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil && !fi.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return wd
		}

		dir = parent
	}
}
