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

package export

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeinterleaveSplitsChannels(t *testing.T) {
	interleaved := []float32{1, 2, 3, 4, 5, 6}
	planes := deinterleave(interleaved, 2)
	require.Equal(t, []float32{1, 3, 5}, planes[0])
	require.Equal(t, []float32{2, 4, 6}, planes[1])
}

func TestFloatsToBytesLERoundTrip(t *testing.T) {
	samples := []float32{1.5, -2.25}
	dst := make([]byte, 8)
	floatsToBytesLE(samples, dst)

	bits := uint32(dst[0]) | uint32(dst[1])<<8 | uint32(dst[2])<<16 | uint32(dst[3])<<24
	require.Equal(t, float32(1.5), math.Float32frombits(bits))
}
