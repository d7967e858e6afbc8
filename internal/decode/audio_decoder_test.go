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

package decode

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBytesToFloat32RoundTrip(t *testing.T) {
	want := []float32{0, 1, -1, 0.5, -0.25, 123.456}
	b := make([]byte, 0, len(want)*4)
	for _, v := range want {
		bits := math.Float32bits(v)
		b = append(b, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
	}

	got := bytesToFloat32(b)
	require.Equal(t, want, got)
}

func TestBytesToFloat32EmptyInput(t *testing.T) {
	require.Empty(t, bytesToFloat32(nil))
}
