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

// Package audioplay implements real-time audio output: a single-producer/
// single-consumer ring buffer feeding oto/v2's pull-based player, and an
// AudioPlayback driver that keeps it filled from the timeline's AudioMixer.
// The buffer is sized so the real-time callback can always read from it
// without ever blocking or allocating.
package audioplay

import "sync"

// capacitySamples is 1 second of stereo f32 @ 48kHz (interleaved sample
// count, not frame count): 48000 frames/s * 2 channels.
const capacitySamples = 96000

// RingBuffer is a fixed-capacity FIFO of interleaved stereo f32 samples.
// Write drops the oldest samples on overflow; Read fills any shortfall
// with silence so a starved consumer never reads garbage or blocks.
type RingBuffer struct {
	mu   sync.Mutex
	buf  [capacitySamples]float32
	head int // next read position
	tail int // next write position
	size int // samples currently held
}

func NewRingBuffer() *RingBuffer { return &RingBuffer{} }

// Write appends samples, dropping the oldest data if they would overflow
// capacity — favors fresh audio over buffered-but-stale audio.
func (r *RingBuffer) Write(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(samples) > capacitySamples {
		samples = samples[len(samples)-capacitySamples:]
	}

	overflow := r.size + len(samples) - capacitySamples
	if overflow > 0 {
		r.head = (r.head + overflow) % capacitySamples
		r.size -= overflow
	}

	for _, s := range samples {
		r.buf[r.tail] = s
		r.tail = (r.tail + 1) % capacitySamples
	}
	r.size += len(samples)
}

// Read copies up to len(dst) samples into dst in two contiguous views
// (no extra allocation), padding any shortfall with silence on underrun.
func (r *RingBuffer) Read(dst []float32) (n int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	avail := r.size
	want := len(dst)
	take := avail
	if take > want {
		take = want
	}

	if take > 0 {
		firstLen := capacitySamples - r.head
		if firstLen > take {
			firstLen = take
		}
		copy(dst[:firstLen], r.buf[r.head:r.head+firstLen])
		remaining := take - firstLen
		if remaining > 0 {
			copy(dst[firstLen:firstLen+remaining], r.buf[:remaining])
		}
		r.head = (r.head + take) % capacitySamples
		r.size -= take
	}

	for i := take; i < want; i++ {
		dst[i] = 0
	}
	return take
}

// TryRead is Read's non-blocking counterpart for the real-time output
// callback: on lock contention it never waits, filling dst entirely with
// silence instead. The producer (fillLoop) only ever holds the lock for a
// bounded copy, so contention is rare and brief, but the callback must
// never be the one to wait it out.
func (r *RingBuffer) TryRead(dst []float32) (n int) {
	if !r.mu.TryLock() {
		for i := range dst {
			dst[i] = 0
		}
		return 0
	}
	defer r.mu.Unlock()

	avail := r.size
	want := len(dst)
	take := avail
	if take > want {
		take = want
	}

	if take > 0 {
		firstLen := capacitySamples - r.head
		if firstLen > take {
			firstLen = take
		}
		copy(dst[:firstLen], r.buf[r.head:r.head+firstLen])
		remaining := take - firstLen
		if remaining > 0 {
			copy(dst[firstLen:firstLen+remaining], r.buf[:remaining])
		}
		r.head = (r.head + take) % capacitySamples
		r.size -= take
	}

	for i := take; i < want; i++ {
		dst[i] = 0
	}
	return take
}

// FillLevel returns the fraction of capacity currently buffered, used by
// AudioPlayback to throttle its fill thread.
func (r *RingBuffer) FillLevel() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return float64(r.size) / float64(capacitySamples)
}

func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
