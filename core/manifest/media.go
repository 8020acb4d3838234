// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package manifest

import (
	"github.com/tidwall/gjson"
)

// MediaEntry is the decorative media bound to a chapter.
type MediaEntry struct {
	Video string
	Audio string
}

// Media maps normalised chapter paths to their media.
type Media map[string]MediaEntry

// ParseMedia reads a {"<path>": {"video": "...", "audio": "..."}} document.
// Invalid input yields an empty table.
func ParseMedia(raw string) Media {
	media := Media{}

	if !gjson.Valid(raw) {
		return media
	}

	gjson.Parse(raw).ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			return true
		}

		entry := MediaEntry{
			Video: value.Get("video").String(),
			Audio: value.Get("audio").String(),
		}

		if entry != (MediaEntry{}) {
			media[Normalize(key.String())] = entry
		}

		return true
	})

	return media
}

// Lookup returns the media for chapter path p.
func (m Media) Lookup(p string) (MediaEntry, bool) {
	entry, ok := m[Normalize(p)]

	return entry, ok
}
