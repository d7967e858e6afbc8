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

package audioplay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingBufferWriteThenReadRoundTrip(t *testing.T) {
	rb := NewRingBuffer()
	samples := []float32{1, 2, 3, 4, 5, 6}
	rb.Write(samples)

	out := make([]float32, 6)
	n := rb.Read(out)
	require.Equal(t, 6, n)
	require.Equal(t, samples, out)
}

func TestRingBufferUnderrunPadsSilence(t *testing.T) {
	rb := NewRingBuffer()
	rb.Write([]float32{1, 2})

	out := make([]float32, 4)
	rb.Read(out)
	require.Equal(t, []float32{1, 2, 0, 0}, out)
}

func TestRingBufferOverflowDropsOldestRetainingLastN(t *testing.T) {
	rb := NewRingBuffer()
	big := make([]float32, capacitySamples)
	for i := range big {
		big[i] = float32(i)
	}
	rb.Write(big)
	rb.Write([]float32{-1, -2, -3})

	require.Equal(t, capacitySamples, rb.Len())

	out := make([]float32, 3)
	// skip to the tail: read everything but the last 3, then check the last 3.
	skip := make([]float32, capacitySamples-3)
	rb.Read(skip)
	rb.Read(out)
	require.Equal(t, []float32{-1, -2, -3}, out)
}

func TestRingBufferWrapAroundContiguousCopy(t *testing.T) {
	rb := NewRingBuffer()
	// Prime head/tail near the end of the backing array so Read wraps.
	filler := make([]float32, capacitySamples-2)
	rb.Write(filler)
	drained := make([]float32, capacitySamples-2)
	rb.Read(drained)

	rb.Write([]float32{10, 20, 30, 40}) // wraps past the end of the array

	out := make([]float32, 4)
	n := rb.Read(out)
	require.Equal(t, 4, n)
	require.Equal(t, []float32{10, 20, 30, 40}, out)
}

func TestRingBufferFillLevel(t *testing.T) {
	rb := NewRingBuffer()
	require.Equal(t, 0.0, rb.FillLevel())
	rb.Write(make([]float32, capacitySamples/2))
	require.InDelta(t, 0.5, rb.FillLevel(), 1e-9)
}

func TestRingBufferTryReadRoundTripWhenUncontended(t *testing.T) {
	rb := NewRingBuffer()
	rb.Write([]float32{1, 2, 3, 4})

	out := make([]float32, 4)
	n := rb.TryRead(out)
	require.Equal(t, 4, n)
	require.Equal(t, []float32{1, 2, 3, 4}, out)
}

func TestRingBufferTryReadReturnsSilenceOnContention(t *testing.T) {
	rb := NewRingBuffer()
	rb.Write([]float32{1, 2, 3, 4})

	rb.mu.Lock()
	defer rb.mu.Unlock()

	out := []float32{9, 9, 9, 9}
	n := rb.TryRead(out)
	require.Equal(t, 0, n)
	require.Equal(t, []float32{0, 0, 0, 0}, out)
}
