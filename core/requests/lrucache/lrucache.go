// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package lrucache provides a thread-safe, fixed-capacity least-recently-used cache
of chapter markup.

Entries expire after a fixed time to live. When created with compression, markup
is stored zstd-compressed whenever that saves space and is decompressed
transparently by [Cache.Get].
*/
package lrucache

import (
	"container/list"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

var ErrInvalidSize = errors.New("must provide a positive size")

// Cache is a fixed-capacity, least-recently-used markup cache that is safe
// for concurrent use. Instances must be constructed with [New].
type Cache struct {
	size int
	ttl  time.Duration

	lock      sync.Mutex
	evictList *list.List
	items     map[string]*list.Element

	enc *zstd.Encoder
	dec *zstd.Decoder

	now func() time.Time
}

type entry struct {
	key        string
	data       []byte
	compressed bool
	expiresAt  time.Time
}

// New creates a cache holding at most size entries.
//
// A non-positive ttl keeps entries until they are evicted or removed.
func New(size int, ttl time.Duration, compress bool) (*Cache, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	c := &Cache{
		size:      size,
		ttl:       ttl,
		evictList: list.New(),
		items:     make(map[string]*list.Element),
		now:       time.Now,
	}

	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}

		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}

		c.enc = enc
		c.dec = dec
	}

	return c, nil
}

// Add stores value under key, making it the most recently used entry.
// It reports whether another entry had to be evicted.
func (c *Cache) Add(key, value string) bool {
	data, compressed := c.encode(value)

	c.lock.Lock()
	defer c.lock.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if el, ok := c.items[key]; ok {
		c.evictList.MoveToFront(el)

		ent := el.Value.(*entry)
		ent.data, ent.compressed, ent.expiresAt = data, compressed, expiresAt

		return false
	}

	c.items[key] = c.evictList.PushFront(&entry{
		key:        key,
		data:       data,
		compressed: compressed,
		expiresAt:  expiresAt,
	})

	if c.evictList.Len() <= c.size {
		return false
	}

	if oldest := c.evictList.Back(); oldest != nil {
		c.removeElement(oldest)
	}

	return true
}

// Get returns the markup stored under key and marks it as most recently used.
// Expired entries are removed and reported as missing.
func (c *Cache) Get(key string) (string, bool) {
	c.lock.Lock()

	el, ok := c.items[key]
	if !ok {
		c.lock.Unlock()

		return "", false
	}

	ent := el.Value.(*entry)

	if !ent.expiresAt.IsZero() && !c.now().Before(ent.expiresAt) {
		c.removeElement(el)
		c.lock.Unlock()

		return "", false
	}

	c.evictList.MoveToFront(el)
	data, compressed := ent.data, ent.compressed

	c.lock.Unlock()

	return c.decode(data, compressed)
}

// Remove deletes key and reports whether it was present.
func (c *Cache) Remove(key string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)

		return true
	}

	return false
}

// Purge removes every entry whose key starts with prefix and returns the
// removed keys. An empty prefix clears the cache.
func (c *Cache) Purge(prefix string) []string {
	c.lock.Lock()
	defer c.lock.Unlock()

	var removed []string

	for el := c.evictList.Back(); el != nil; {
		prev := el.Prev()

		if key := el.Value.(*entry).key; strings.HasPrefix(key, prefix) {
			c.removeElement(el)

			removed = append(removed, key)
		}

		el = prev
	}

	return removed
}

// Keys returns all keys from the oldest to the newest.
func (c *Cache) Keys() []string {
	c.lock.Lock()
	defer c.lock.Unlock()

	keys := make([]string, 0, len(c.items))

	for el := c.evictList.Back(); el != nil; el = el.Prev() {
		keys = append(keys, el.Value.(*entry).key)
	}

	return keys
}

// Len returns the number of entries, including expired ones not yet removed.
func (c *Cache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.evictList.Len()
}

func (c *Cache) removeElement(el *list.Element) {
	c.evictList.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}

// encode compresses value when enabled and worthwhile.
// It is safe to call without holding the lock.
func (c *Cache) encode(value string) ([]byte, bool) {
	raw := []byte(value)

	if c.enc == nil || len(raw) == 0 {
		return raw, false
	}

	if packed := c.enc.EncodeAll(raw, nil); len(packed) < len(raw) {
		return packed, true
	}

	return raw, false
}

func (c *Cache) decode(data []byte, compressed bool) (string, bool) {
	if !compressed {
		return string(data), true
	}

	raw, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return "", false
	}

	return string(raw), true
}
