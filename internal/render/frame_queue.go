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
	"sync"

	"github.com/vortexcut/engine/internal/videoframe"
)

// FrameQueue is a bounded prefetch buffer for playback: the fill thread
// pushes rendered frames ahead of the playhead, and try_get_frame peeks
// the nearest one without consuming, so a slightly-early or slightly-late
// fill still serves the exact requested timestamp.
type FrameQueue struct {
	mu     sync.Mutex
	buffer []*videoframe.RenderedFrame
	maxLen int
}

const defaultQueueCapacity = 16

// NewFrameQueue builds a queue bounded at capacity entries. A non-positive
// capacity falls back to defaultQueueCapacity.
func NewFrameQueue(capacity int) *FrameQueue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	return &FrameQueue{maxLen: capacity}
}

// Push appends frame, evicting from the front until capacity admits it.
func (q *FrameQueue) Push(frame *videoframe.RenderedFrame) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.buffer) >= q.maxLen {
		q.buffer = q.buffer[1:]
	}
	q.buffer = append(q.buffer, frame)
}

// PeekNearest returns a clone of the buffered frame closest to timestampMs
// within toleranceMs, without consuming it.
func (q *FrameQueue) PeekNearest(timestampMs, toleranceMs int64) *videoframe.RenderedFrame {
	q.mu.Lock()
	defer q.mu.Unlock()

	bestDiff := int64(-1)
	bestIdx := -1
	for i, f := range q.buffer {
		diff := f.TimestampMs - timestampMs
		if diff < 0 {
			diff = -diff
		}
		if diff <= toleranceMs && (bestIdx == -1 || diff < bestDiff) {
			bestDiff = diff
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return nil
	}
	return q.buffer[bestIdx].Clone()
}

// Pop removes and returns the oldest frame.
func (q *FrameQueue) Pop() *videoframe.RenderedFrame {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buffer) == 0 {
		return nil
	}
	f := q.buffer[0]
	q.buffer = q.buffer[1:]
	return f
}

func (q *FrameQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buffer = nil
}

func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buffer)
}
