// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Chapterlint checks, indexes and previews a directory of chapters.

	chapterlint [--root DIR] lint [FILE...]
	chapterlint [--root DIR] manifest [--check] [-o FILE]
	chapterlint [--root DIR] preview [--choose 0,1] FILE
*/
package main

import (
	"context"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/maruel/natural"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"codeberg.org/synthoma/reader/config"
	"codeberg.org/synthoma/reader/core/audit"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:            "chapterlint",
		Usage:           "check, index and preview interactive chapters",
		Version:         config.BuildVersion,
		HideHelpCommand: true,
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}

			return ctx, nil
		},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Value: "./books", Usage: "content root `DIR`"},
			&cli.StringFlag{Name: "prefix", Value: "/books/", Usage: "URL `PREFIX` the content root is served under"},
			&cli.StringFlag{Name: "grouping", Value: "adjacent", Usage: "choice grouping `POLICY` (adjacent or skip-decorative)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log debug messages"},
		},
		Commands: []*cli.Command{
			{
				Name:      "lint",
				Usage:     "report chapters whose choices cannot work",
				ArgsUsage: "[FILE...]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "jobs", Aliases: []string{"j"}, Value: defaultJobs(), Usage: "check `N` chapters at once"},
					&cli.StringFlag{Name: "manifest", Value: "manifest.json", Usage: "library index `FILE`, relative to the root"},
				},
				Action: runLint,
			},
			{
				Name:  "manifest",
				Usage: "build the library index from the content root",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "-", Usage: "write to `FILE` instead of standard output"},
					&cli.BoolFlag{Name: "check", Usage: "fail when FILE differs from the built index"},
				},
				Action: runManifest,
			},
			{
				Name:      "preview",
				Usage:     "read a chapter in the terminal",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.IntSliceFlag{Name: "choose", Aliases: []string{"c"}, Usage: "pick option `N` of each choice in turn"},
					&cli.BoolFlag{Name: "events", Usage: "print the events sent to the page"},
				},
				Action: runPreview,
			},
		},
	}
}

func main() {
	audit.SetDefaultLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newApp().Run(ctx, os.Args)

	stop()

	if err != nil {
		log.Error().Err(err).Msg("chapterlint failed")
		os.Exit(1)
	}
}

func rootFS(dir string) fs.FS {
	return os.DirFS(dir)
}

func compareNatural(a, b string) int {
	switch {
	case natural.Less(a, b):
		return -1
	case natural.Less(b, a):
		return 1
	default:
		return 0
	}
}
