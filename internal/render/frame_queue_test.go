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

package render

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vortexcut/engine/internal/videoframe"
)

func rf(ts int64) *videoframe.RenderedFrame {
	return &videoframe.RenderedFrame{Frame: videoframe.Frame{
		Width: 1, Height: 1, Format: videoframe.RGBA, Data: []byte{1, 2, 3, 4}, TimestampMs: ts,
	}}
}

func TestFrameQueueEvictsOldestOnOverflow(t *testing.T) {
	q := NewFrameQueue(16)
	for i := 0; i < 20; i++ {
		q.Push(rf(int64(i * 33)))
	}
	require.Equal(t, 16, q.Len())
	// oldest 4 (0,33,66,99) should have been evicted
	require.Nil(t, q.PeekNearest(0, 10))
}

func TestFrameQueuePeekNearestWithinTolerance(t *testing.T) {
	q := NewFrameQueue(16)
	q.Push(rf(1000))
	q.Push(rf(1033))

	got := q.PeekNearest(1010, 50)
	require.NotNil(t, got)
	require.Equal(t, int64(1000), got.TimestampMs)
}

func TestFrameQueuePeekNearestOutsideToleranceReturnsNil(t *testing.T) {
	q := NewFrameQueue(16)
	q.Push(rf(1000))
	require.Nil(t, q.PeekNearest(2000, 50))
}

func TestFrameQueuePeekDoesNotConsume(t *testing.T) {
	q := NewFrameQueue(16)
	q.Push(rf(1000))
	_ = q.PeekNearest(1000, 10)
	require.Equal(t, 1, q.Len())
}

func TestFrameQueuePopRemovesOldest(t *testing.T) {
	q := NewFrameQueue(16)
	q.Push(rf(1000))
	q.Push(rf(1033))

	f := q.Pop()
	require.Equal(t, int64(1000), f.TimestampMs)
	require.Equal(t, 1, q.Len())
}
