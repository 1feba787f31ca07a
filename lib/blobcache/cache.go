// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package blobcache keeps repository blobs in memory as compressed
// frames. Change inference reads the same template blob several times
// per run (the from/to loads, then rename content checks), and every
// uncached read forks a git process. Frames are compressed by size:
// tiny blobs stay raw, template-sized blobs take LZ4, large blobs
// take zstd.
package blobcache

import (
	"slices"
	"sync"
)

// DefaultBudget is the cache's compressed-frame budget when New is
// given a non-positive one.
const DefaultBudget int64 = 64 << 20

const (
	// Blobs below this size are stored raw: the frame bookkeeping
	// and the extra allocation on every Get cost more than the
	// compression saves.
	noCompressBelow = 256

	// Blobs at or above this size take zstd's better ratio over
	// LZ4's cheaper encode. Template files are almost always
	// smaller.
	zstdAbove = 64 << 10
)

func selectTag(size int) CompressionTag {
	switch {
	case size < noCompressBelow:
		return CompressionNone
	case size < zstdAbove:
		return CompressionLZ4
	default:
		return CompressionZstd
	}
}

type frame struct {
	tag              CompressionTag
	uncompressedSize int
	data             []byte
}

// Cache is a bounded in-memory blob cache. When the compressed size
// of all frames would exceed the budget, the oldest entries are
// evicted first. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	budget  int64
	size    int64
	entries map[string]frame
	order   []string

	hits   int64
	misses int64
}

// New returns a cache holding at most budget bytes of compressed
// frames. A budget <= 0 selects DefaultBudget.
func New(budget int64) *Cache {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Cache{
		budget:  budget,
		entries: make(map[string]frame),
	}
}

// Get returns the blob stored under key. The returned slice is the
// caller's to keep: it never aliases cache memory.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	var data []byte
	if entry.tag == CompressionNone {
		data = slices.Clone(entry.data)
	} else {
		var err error
		data, err = DecompressFrame(entry.data, entry.tag, entry.uncompressedSize)
		if err != nil {
			// A frame that no longer decompresses is unusable.
			c.remove(key)
			c.misses++
			return nil, false
		}
	}
	c.hits++
	return data, true
}

// Put stores a blob under key. Keys name blobs at fixed revisions, so
// their content is immutable: a second Put of the same key is a
// no-op. Blobs whose frame alone exceeds the budget are not cached.
func (c *Cache) Put(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		return
	}

	entry := compressEntry(data)
	cost := int64(len(entry.data))
	if cost > c.budget {
		return
	}
	for c.size+cost > c.budget && len(c.order) > 0 {
		c.remove(c.order[0])
	}

	c.entries[key] = entry
	c.order = append(c.order, key)
	c.size += cost
}

// compressEntry builds the frame for a blob, falling back to a raw
// copy when the chosen algorithm cannot shrink it.
func compressEntry(data []byte) frame {
	tag := selectTag(len(data))
	if tag != CompressionNone {
		if compressed, err := CompressFrame(data, tag); err == nil {
			return frame{tag: tag, uncompressedSize: len(data), data: compressed}
		}
	}
	return frame{tag: CompressionNone, uncompressedSize: len(data), data: slices.Clone(data)}
}

// remove deletes key's frame and order slot. Caller holds c.mu.
func (c *Cache) remove(key string) {
	entry, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	c.size -= int64(len(entry.data))
	if i := slices.Index(c.order, key); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Entries    int
	FrameBytes int64
	Hits       int64
	Misses     int64
}

// Stats returns the cache's current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:    len(c.entries),
		FrameBytes: c.size,
		Hits:       c.hits,
		Misses:     c.misses,
	}
}
