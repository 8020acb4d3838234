// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package lrucache

import (
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = f.now.Add(d)
}

func newCache(t *testing.T, size int, ttl time.Duration, compress bool) (*Cache, *fakeClock) {
	t.Helper()

	c, err := New(size, ttl, compress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.now = clock.Now

	return c, clock
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("ValidSize", func(t *testing.T) {
		t.Parallel()

		for _, compress := range []bool{false, true} {
			c, err := New(3, time.Minute, compress)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if c.Len() != 0 {
				t.Errorf("expected empty cache, got %d entries", c.Len())
			}
		}
	})

	t.Run("InvalidSize", func(t *testing.T) {
		t.Parallel()

		c, err := New(0, time.Minute, false)
		if err == nil {
			t.Fatal("expected error when creating cache of size 0")
		}

		if c != nil {
			t.Error("expected no cache to be returned on error")
		}
	})
}

func TestCache_Eviction(t *testing.T) {
	t.Parallel()

	c, _ := newCache(t, 2, 0, false)

	if c.Add("/a.html", "A") {
		t.Error("unexpected eviction on first add")
	}

	c.Add("/b.html", "B")

	// Touch a so that b becomes the oldest entry.
	if v, ok := c.Get("/a.html"); !ok || v != "A" {
		t.Fatalf("expected A, got %q (found=%v)", v, ok)
	}

	if !c.Add("/c.html", "C") {
		t.Error("expected an eviction when exceeding capacity")
	}

	if _, ok := c.Get("/b.html"); ok {
		t.Error("expected /b.html to be evicted")
	}

	if got, want := c.Keys(), []string{"/a.html", "/c.html"}; !slices.Equal(got, want) {
		t.Errorf("expected keys %v, got %v", want, got)
	}
}

func TestCache_UpdateExisting(t *testing.T) {
	t.Parallel()

	c, _ := newCache(t, 2, 0, false)

	c.Add("k", "old")

	if c.Add("k", "new") {
		t.Error("updating a key should not evict")
	}

	if v, _ := c.Get("k"); v != "new" {
		t.Errorf("expected updated value, got %q", v)
	}

	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
}

func TestCache_TTL(t *testing.T) {
	t.Parallel()

	c, clock := newCache(t, 4, time.Minute, false)

	c.Add("/ch1.html", "<p>one</p>")
	clock.Advance(59 * time.Second)

	if _, ok := c.Get("/ch1.html"); !ok {
		t.Fatal("expected entry to be fresh before its TTL")
	}

	clock.Advance(time.Second)

	if _, ok := c.Get("/ch1.html"); ok {
		t.Error("expected entry to expire after its TTL")
	}

	if c.Len() != 0 {
		t.Errorf("expected expired entry to be removed, got %d entries", c.Len())
	}
}

func TestCache_Compression(t *testing.T) {
	t.Parallel()

	c, _ := newCache(t, 4, 0, true)

	long := strings.Repeat("<p class=\"line\">Neon rain on chrome.</p>\n", 200)

	c.Add("long", long)
	c.Add("short", "x")
	c.Add("empty", "")

	ent := c.items["long"].Value.(*entry)
	if !ent.compressed || len(ent.data) >= len(long) {
		t.Errorf("expected repetitive markup to be stored compressed (%d bytes)", len(ent.data))
	}

	for key, want := range map[string]string{"long": long, "short": "x", "empty": ""} {
		got, ok := c.Get(key)
		if !ok {
			t.Errorf("expected %q to be found", key)
		}

		if got != want {
			t.Errorf("value mismatch for %q", key)
		}
	}
}

func TestCache_Purge(t *testing.T) {
	t.Parallel()

	c, _ := newCache(t, 8, 0, false)

	c.Add("/books/a/1.html", "1")
	c.Add("/books/a/2.html", "2")
	c.Add("/books/b/1.html", "3")

	removed := c.Purge("/books/a/")
	slices.Sort(removed)

	if want := []string{"/books/a/1.html", "/books/a/2.html"}; !slices.Equal(removed, want) {
		t.Errorf("expected %v removed, got %v", want, removed)
	}

	if !c.Remove("/books/b/1.html") {
		t.Error("expected remaining key to be removable")
	}

	if c.Remove("/books/b/1.html") {
		t.Error("expected second removal to report absence")
	}
}

func TestCache_Concurrent(t *testing.T) {
	t.Parallel()

	c, _ := newCache(t, 16, time.Hour, true)

	var wg sync.WaitGroup

	for i := range 8 {
		wg.Add(1)

		go func(worker int) {
			defer wg.Done()

			for j := range 200 {
				key := strconv.Itoa((worker + j) % 32)
				c.Add(key, strings.Repeat(key, 64))

				if v, ok := c.Get(key); ok && v != strings.Repeat(key, 64) {
					t.Errorf("corrupted value for key %s", key)
				}
			}
		}(i)
	}

	wg.Wait()

	if c.Len() > 16 {
		t.Errorf("cache exceeded its capacity: %d", c.Len())
	}
}
