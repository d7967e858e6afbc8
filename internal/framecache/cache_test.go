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

package framecache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vortexcut/engine/internal/videoframe"
)

func frame(n int) *videoframe.RenderedFrame {
	return &videoframe.RenderedFrame{Frame: videoframe.Frame{
		Width: 1, Height: 1, Format: videoframe.RGBA, Data: make([]byte, n),
	}}
}

func TestGetMissThenHit(t *testing.T) {
	c := New(10, 0)
	k := Key{Path: "a.mp4", SourceMs: 100}

	_, ok := c.Get(k)
	require.False(t, ok)

	c.Put(k, frame(4))
	got, ok := c.Get(k)
	require.True(t, ok)
	require.Equal(t, 4, len(got.Data))
	require.Equal(t, int64(1), c.Stats().Hits)
	require.Equal(t, int64(1), c.Stats().Misses)
}

func TestEvictsOldestOnEntryCap(t *testing.T) {
	c := New(2, 0)
	c.Put(Key{Path: "a", SourceMs: 0}, frame(1))
	c.Put(Key{Path: "b", SourceMs: 0}, frame(1))
	c.Put(Key{Path: "c", SourceMs: 0}, frame(1))

	_, ok := c.Get(Key{Path: "a", SourceMs: 0})
	require.False(t, ok, "oldest entry should have been evicted")

	_, ok = c.Get(Key{Path: "b", SourceMs: 0})
	require.True(t, ok)
	_, ok = c.Get(Key{Path: "c", SourceMs: 0})
	require.True(t, ok)
}

func TestEvictsOnByteCap(t *testing.T) {
	c := New(100, 10)
	c.Put(Key{Path: "a", SourceMs: 0}, frame(6))
	c.Put(Key{Path: "b", SourceMs: 0}, frame(6))

	require.LessOrEqual(t, c.Len(), 1)
}

func TestGetPromotesToMostRecentlyUsed(t *testing.T) {
	c := New(2, 0)
	ka := Key{Path: "a", SourceMs: 0}
	kb := Key{Path: "b", SourceMs: 0}
	c.Put(ka, frame(1))
	c.Put(kb, frame(1))

	// Touch a so b becomes the least-recently-used entry.
	_, _ = c.Get(ka)
	c.Put(Key{Path: "c", SourceMs: 0}, frame(1))

	_, ok := c.Get(kb)
	require.False(t, ok, "b should have been evicted, not a")
	_, ok = c.Get(ka)
	require.True(t, ok)
}

func TestClear(t *testing.T) {
	c := New(10, 0)
	c.Put(Key{Path: "a", SourceMs: 0}, frame(4))
	c.Clear()
	require.Equal(t, 0, c.Len())
	_, ok := c.Get(Key{Path: "a", SourceMs: 0})
	require.False(t, ok)
}
