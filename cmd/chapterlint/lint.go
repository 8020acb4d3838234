// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"codeberg.org/synthoma/reader/core/chapter"
	"codeberg.org/synthoma/reader/core/manifest"
	"codeberg.org/synthoma/reader/core/markup"
	"codeberg.org/synthoma/reader/core/requests"
	"codeberg.org/synthoma/reader/core/sequencer"
)

// maxPasses bounds the passes followed through one chapter.
const maxPasses = 256

var errProblemsFound = errors.New("problems found")

// problem is one finding about a chapter file.
type problem struct {
	File string
	Msg  string
}

func (p *problem) Error() string {
	return p.File + ": " + p.Msg
}

// linter checks chapters of one content root.
type linter struct {
	fsys    fs.FS
	prefix  string
	fetcher *requests.Fetcher
	seg     chapter.Segmenter
}

func newLinter(fsys fs.FS, prefix string, policy chapter.GroupingPolicy) *linter {
	return &linter{
		fsys:    fsys,
		prefix:  prefix,
		fetcher: requests.NewFetcher(requests.DirSource{FS: fsys}, prefix, nil),
		seg:     chapter.Segmenter{Policy: policy},
	}
}

func runLint(ctx context.Context, cmd *cli.Command) error {
	policy, err := chapter.ParseGroupingPolicy(cmd.String("grouping"))
	if err != nil {
		return err
	}

	root := cmd.String("root")
	l := newLinter(rootFS(root), cmd.String("prefix"), policy)

	files := cmd.Args().Slice()
	if len(files) == 0 {
		if files, err = chapterFiles(l.fsys); err != nil {
			return err
		}
	}

	errs := l.lintFiles(ctx, files, cmd.Int("jobs"))
	errs = multierr.Append(errs, l.lintManifest(ctx, cmd.String("manifest")))

	problems := multierr.Errors(errs)
	for _, p := range problems {
		fmt.Fprintln(cmd.Root().Writer, p)
	}

	log.Info().Int("files", len(files)).Int("problems", len(problems)).Msg("Lint finished")

	if len(problems) > 0 {
		return fmt.Errorf("%w: %d", errProblemsFound, len(problems))
	}

	return nil
}

// chapterFiles lists every .html file under fsys in natural order.
func chapterFiles(fsys fs.FS) ([]string, error) {
	var files []string

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() && p != "." && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}

		if !d.IsDir() && strings.EqualFold(path.Ext(p), ".html") {
			files = append(files, p)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}

	slices.SortFunc(files, compareNatural)

	return files, nil
}

// lintFiles checks files concurrently and combines every problem found.
func (l *linter) lintFiles(ctx context.Context, files []string, jobs int) error {
	var (
		mu   sync.Mutex
		errs error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))

	for _, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			found := l.lintFile(gctx, file)

			mu.Lock()
			errs = multierr.Append(errs, found)
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return multierr.Append(errs, err)
	}

	return errs
}

// lintFile checks one chapter the way the reader would load it: every pass
// is segmented in turn and the targets of its options are resolved.
func (l *linter) lintFile(ctx context.Context, file string) error {
	var errs error

	report := func(format string, args ...any) {
		errs = multierr.Append(errs, &problem{File: file, Msg: fmt.Sprintf(format, args...)})
	}

	raw, err := fs.ReadFile(l.fsys, file)
	if err != nil {
		report("%v", err)

		return errs
	}

	doc, err := chapter.ParseDocument(string(raw))
	if err != nil {
		report("%v", err)

		return errs
	}

	if doc.Title == "" {
		report("no <title> or <h1>")
	}

	authored := markup.Parse(doc.Markup)
	for _, href := range droppedControlHrefs(authored) {
		report("choice link href %q is removed by the sanitizer; use a rooted path or data-next", href)
	}

	chapterPath := strings.TrimSuffix(l.prefix, "/") + "/" + file
	nodes := markup.SanitizeNodes(authored)
	ids := map[string]struct{}{}

	for range maxPasses {
		pass := l.seg.Segment(nodes)
		if pass.Ambiguity != nil {
			report("%v", pass.Ambiguity)
		}

		collectIDs(pass.Pre, ids)
		collectIDs(pass.Group, ids)

		if !pass.HasGroup() {
			break
		}

		for i, m := range pass.Markers {
			if msg := l.checkTarget(ctx, chapterPath, m.NavigationTarget, ids); msg != "" {
				report("option %d %q: %s", i, m.Label, msg)
			}
		}

		nodes = pass.Remainder
	}

	return errs
}

// checkTarget describes what is wrong with a navigation target, if anything.
func (l *linter) checkTarget(ctx context.Context, current, target string, ids map[string]struct{}) string {
	switch {
	case target == "", requests.IsAbsoluteURL(target):
		return ""
	case strings.HasPrefix(target, "#"):
		if _, ok := ids[strings.TrimPrefix(target, "#")]; !ok {
			return fmt.Sprintf("%s is not shown before the choice", target)
		}

		return ""
	}

	resolved := sequencer.ResolveTarget(current, target)
	if !strings.HasPrefix(resolved, l.prefix) {
		return fmt.Sprintf("%s leaves the content prefix %s", resolved, l.prefix)
	}

	if _, err := l.fetcher.Fetch(ctx, resolved); err != nil {
		if requests.NotFound(err) {
			return fmt.Sprintf("%s does not exist", resolved)
		}

		return err.Error()
	}

	return ""
}

// lintManifest checks that every chapter the manifest lists exists. A
// missing manifest is not a problem.
func (l *linter) lintManifest(ctx context.Context, name string) error {
	raw, err := fs.ReadFile(l.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return &problem{File: name, Msg: err.Error()}
	}

	m, err := manifest.Parse(string(raw))
	if err != nil {
		return &problem{File: name, Msg: err.Error()}
	}

	var errs error

	for _, c := range m.Flat() {
		if requests.IsAbsoluteURL(c.Path) {
			continue
		}

		if _, err := l.fetcher.Fetch(ctx, c.Path); err != nil {
			errs = multierr.Append(errs, &problem{File: name, Msg: fmt.Sprintf("chapter %q: %v", c.Path, err)})
		}
	}

	return errs
}

// droppedControlHrefs returns the hrefs of authored choice links that the
// sanitizer would strip.
func droppedControlHrefs(nodes []markup.Node) []string {
	var out []string

	markup.Walk(nodes, func(n markup.Node) bool {
		e, ok := n.(*markup.Element)
		if !ok || e.Tag != "a" || !e.HasClass(chapter.ChoiceLinkClass) {
			return true
		}

		href, ok := e.Attr("href")
		if !ok {
			return true
		}

		clean, _ := markup.SanitizeNodes([]markup.Node{e.ShallowClone()})[0].(*markup.Element)
		if _, kept := clean.Attr("href"); !kept {
			out = append(out, href)
		}

		return true
	})

	return out
}

func collectIDs(nodes []markup.Node, ids map[string]struct{}) {
	markup.Walk(nodes, func(n markup.Node) bool {
		if e, ok := n.(*markup.Element); ok && e.ID() != "" {
			ids[e.ID()] = struct{}{}
		}

		return true
	})
}

func defaultJobs() int {
	return runtime.NumCPU()
}
