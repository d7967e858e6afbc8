/* SPDX-License-Identifier: GPL-3.0-or-later
 *
 * VortexCut engine
 *
 * This file is part of VortexCut.
 *
 * VortexCut is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * VortexCut is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with VortexCut.  If not, see <https://www.gnu.org/licenses/>.
 */

// Package framecache implements the decoded-frame LRU shared by the
// preview and export renderers. There is no third-party LRU in the
// example pack (see DESIGN.md); container/list gives the intrusive
// doubly-linked list an LRU needs without writing pointer arithmetic by
// hand, and is the idiomatic stdlib choice for this structural need.
package framecache

import (
	"container/list"
	"fmt"

	"github.com/vortexcut/engine/internal/videoframe"
)

// Key identifies a decoded frame by its source file and source-relative
// timestamp — two different clips referencing the same file at the same
// source time share a cache entry.
type Key struct {
	Path     string
	SourceMs int64
}

func (k Key) String() string { return fmt.Sprintf("%s@%dms", k.Path, k.SourceMs) }

type entry struct {
	key   Key
	frame *videoframe.RenderedFrame
}

// Stats tracks cumulative hit/miss counters for diagnostics.
type Stats struct {
	Hits   int64
	Misses int64
}

// Cache is an LRU bounded by both entry count and aggregate byte size.
// Neither cap alone is sufficient: a stream of small thumbnails could
// blow the entry cap long before the byte cap matters, and a handful of
// 4K frames could blow the byte cap while barely touching the entry cap.
type Cache struct {
	maxEntries int
	maxBytes   int64

	bytes int64
	ll    *list.List // most-recent at Back
	items map[Key]*list.Element

	stats Stats
}

func New(maxEntries int, maxBytes int64) *Cache {
	return &Cache{
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		ll:         list.New(),
		items:      make(map[Key]*list.Element),
	}
}

// Get returns the cached frame for key, promoting it to most-recently-used.
// The caller receives the cached reference, not a clone — callers that
// may mutate (color effects) must clone before cache.Put, not after Get.
func (c *Cache) Get(key Key) (*videoframe.RenderedFrame, bool) {
	el, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.ll.MoveToBack(el)
	c.stats.Hits++
	return el.Value.(*entry).frame, true
}

// Put inserts or updates key's frame, evicting from the least-recently
// used end until both caps admit the new entry.
func (c *Cache) Put(key Key, frame *videoframe.RenderedFrame) {
	size := frame.Bytes()

	if el, ok := c.items[key]; ok {
		old := el.Value.(*entry)
		c.bytes += size - old.frame.Bytes()
		old.frame = frame
		c.ll.MoveToBack(el)
		c.evictUntilWithinCaps()
		return
	}

	el := c.ll.PushBack(&entry{key: key, frame: frame})
	c.items[key] = el
	c.bytes += size
	c.evictUntilWithinCaps()
}

func (c *Cache) evictUntilWithinCaps() {
	for (c.maxEntries > 0 && c.ll.Len() > c.maxEntries) || (c.maxBytes > 0 && c.bytes > c.maxBytes) {
		front := c.ll.Front()
		if front == nil {
			return
		}
		e := front.Value.(*entry)
		c.bytes -= e.frame.Bytes()
		c.ll.Remove(front)
		delete(c.items, e.key)
	}
}

func (c *Cache) Clear() {
	c.ll.Init()
	c.items = make(map[Key]*list.Element)
	c.bytes = 0
}

func (c *Cache) Stats() Stats { return c.stats }

func (c *Cache) Len() int { return c.ll.Len() }
