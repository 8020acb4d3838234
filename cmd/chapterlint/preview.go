// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/urfave/cli/v3"

	"codeberg.org/synthoma/reader/core/chapter"
	"codeberg.org/synthoma/reader/core/manifest"
	"codeberg.org/synthoma/reader/core/requests"
	"codeberg.org/synthoma/reader/core/session"
	"codeberg.org/synthoma/reader/core/sequencer"
)

const (
	settleTimeout = 10 * time.Second
	pollInterval  = 5 * time.Millisecond
)

var (
	errNeedsFile     = errors.New("preview needs exactly one FILE")
	errNoChoice      = errors.New("no choice is waiting")
	errNotSettled    = errors.New("chapter did not settle")
	errChapterFailed = errors.New("chapter failed to load")
)

// option is a choice control as the page shows it.
type option struct {
	Group    string
	Label    string
	Enabled  bool
	Selected bool
}

func runPreview(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return errNeedsFile
	}

	policy, err := chapter.ParseGroupingPolicy(cmd.String("grouping"))
	if err != nil {
		return err
	}

	prefix := cmd.String("prefix")
	fetcher := requests.NewFetcher(requests.DirSource{FS: rootFS(cmd.String("root"))}, prefix, nil)

	rd, err := session.NewReader(ctx, "preview", session.Deps{
		Fetcher: fetcher,
		Next:    manifest.NewResolver(fetcher, "manifest.json", "", time.Minute),
		Options: sequencer.Options{Policy: policy, ReduceMotion: true},
	})
	if err != nil {
		return err
	}
	defer rd.Close()

	w := cmd.Root().Writer

	if cmd.Bool("events") {
		sub := rd.Subscribe()
		defer sub.Close()

		go printEvents(w, sub)
	}

	path := cmd.Args().First()
	if !strings.HasPrefix(path, prefix) {
		path = strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(path, "/")
	}

	rd.Open(path, true)

	snap, err := settle(ctx, rd, sequencer.Snapshot{})
	if err != nil {
		return err
	}

	for _, pick := range cmd.IntSlice("choose") {
		group, ok := waitingGroup(snap.Committed)
		if !ok {
			printSnapshot(w, snap)

			return errNoChoice
		}

		if err := rd.Choose(group, pick); err != nil {
			return fmt.Errorf("option %d: %w", pick, err)
		}

		if snap, err = settle(ctx, rd, snap); err != nil {
			return err
		}
	}

	printSnapshot(w, snap)

	if snap.Phase == sequencer.Error {
		return fmt.Errorf("%w: %w", errChapterFailed, snap.Err)
	}

	return nil
}

// settle waits until the reader rests in a phase that waits for the reader,
// showing something other than prev.
func settle(ctx context.Context, rd *session.Reader, prev sequencer.Snapshot) (sequencer.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		snap, err := rd.Snapshot()
		if err != nil {
			return snap, err
		}

		resting := snap.Phase == sequencer.Revealed || snap.Phase.Terminal()
		changed := snap.Path != prev.Path || snap.Committed != prev.Committed || snap.Phase != prev.Phase

		if resting && changed {
			return snap, nil
		}

		select {
		case <-ctx.Done():
			return snap, fmt.Errorf("%w: %s", errNotSettled, snap.Phase)
		case <-ticker.C:
		}
	}
}

// options lists the choice controls of committed markup in order.
func options(committed string) []option {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(committed))
	if err != nil {
		return nil
	}

	var out []option

	doc.Find("button." + chapter.ChoiceLinkClass).Each(func(_ int, s *goquery.Selection) {
		_, disabled := s.Attr("disabled")

		out = append(out, option{
			Group:    s.AttrOr("data-group", ""),
			Label:    strings.Join(strings.Fields(s.Text()), " "),
			Enabled:  !disabled,
			Selected: s.HasClass("selected"),
		})
	})

	return out
}

func waitingGroup(committed string) (string, bool) {
	for _, o := range options(committed) {
		if o.Enabled && !o.Selected {
			return o.Group, true
		}
	}

	return "", false
}

func printSnapshot(w io.Writer, snap sequencer.Snapshot) {
	fmt.Fprintf(w, "# %s (%s)\n\n", snap.Title, snap.Path)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.Committed))
	if err == nil {
		doc.Find("button." + chapter.ChoiceLinkClass).Remove()
		doc.Find("p, h1, h2, h3, h4, li, blockquote").Each(func(_ int, s *goquery.Selection) {
			if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
				fmt.Fprintln(w, text)
			}
		})
	}

	index := map[string]int{}

	for _, o := range options(snap.Committed) {
		mark := " "

		switch {
		case o.Selected:
			mark = "x"
		case !o.Enabled:
			mark = "-"
		}

		fmt.Fprintf(w, "  [%s] %d. %s\n", mark, index[o.Group], o.Label)
		index[o.Group]++
	}

	if snap.Next != "" {
		fmt.Fprintf(w, "\nnext: %s\n", snap.Next)
	}

	if snap.Err != nil {
		fmt.Fprintf(w, "\nerror: %v\n", snap.Err)
	}
}

func printEvents(w io.Writer, sub *session.Subscription) {
	for {
		select {
		case <-sub.Done:
			return
		case <-sub.Frames:
		case ev := <-sub.Events:
			fmt.Fprintf(w, "~ %s %v\n", ev.Name, ev.Data)
		}
	}
}
