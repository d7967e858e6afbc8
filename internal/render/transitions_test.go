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

	"github.com/vortexcut/engine/internal/mediatimeline"
)

func solidRGBA(w, h int, r, g, b, a byte) []byte {
	buf := make([]byte, w*h*4)
	for i := 0; i+3 < len(buf); i += 4 {
		buf[i], buf[i+1], buf[i+2], buf[i+3] = r, g, b, a
	}
	return buf
}

func TestBlendCrossfadeHalfway(t *testing.T) {
	out := solidRGBA(2, 2, 0, 0, 0, 255)
	in := solidRGBA(2, 2, 200, 200, 200, 255)

	ApplyTransition(out, in, 2, 2, 0.5, mediatimeline.TransitionCrossfade)

	for i := 0; i+3 < len(out); i += 4 {
		require.InDelta(t, 100, int(out[i]), 1)
		require.Equal(t, byte(255), out[i+3])
	}
}

func TestBlendFadeBlackHalves(t *testing.T) {
	out := solidRGBA(2, 2, 200, 200, 200, 255)
	in := solidRGBA(2, 2, 100, 100, 100, 255)

	low := append([]byte{}, out...)
	ApplyTransition(low, in, 2, 2, 0.25, mediatimeline.TransitionFadeBlack)
	require.Less(t, int(low[0]), 200)

	high := append([]byte{}, out...)
	ApplyTransition(high, in, 2, 2, 0.75, mediatimeline.TransitionFadeBlack)
	require.Greater(t, int(high[0]), 0)
	require.Less(t, int(high[0]), 100)
}

func TestWipeLeftBoundary(t *testing.T) {
	width, height := 4, 1
	out := solidRGBA(width, height, 255, 0, 0, 255)
	in := solidRGBA(width, height, 0, 255, 0, 255)

	ApplyTransition(out, in, width, height, 0.5, mediatimeline.TransitionWipeLeft)

	// first 2 columns (floor(4*0.5)=2) should be incoming (green)
	require.Equal(t, byte(0), out[0])
	require.Equal(t, byte(255), out[1])
	require.Equal(t, byte(0), out[4])
	require.Equal(t, byte(255), out[5])
	// last 2 columns remain outgoing (red)
	require.Equal(t, byte(255), out[8])
	require.Equal(t, byte(0), out[9])
	require.Equal(t, byte(255), out[12])
}

func TestColorEffectsNoopWhenDefault(t *testing.T) {
	buf := solidRGBA(1, 1, 100, 150, 200, 255)
	orig := append([]byte{}, buf...)
	ApplyColorEffects(buf, ColorEffects{})
	require.Equal(t, orig, buf)
}

func TestColorEffectsBrightnessIncreasesValue(t *testing.T) {
	buf := solidRGBA(1, 1, 100, 100, 100, 255)
	ApplyColorEffects(buf, ColorEffects{Brightness: 0.2})
	require.Greater(t, int(buf[0]), 100)
}
