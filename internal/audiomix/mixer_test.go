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

package audiomix

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vortexcut/engine/internal/mediatimeline"
)

func TestSoftClipLeavesInRangeUntouched(t *testing.T) {
	buf := []float32{0.0, 0.5, -0.9, 1.0, -1.0}
	orig := append([]float32{}, buf...)
	softClip(buf)
	require.Equal(t, orig, buf)
}

func TestSoftClipAttenuatesOutOfRange(t *testing.T) {
	buf := []float32{1.5, -1.5}
	softClip(buf)
	require.InDelta(t, math.Tanh(1.5), float64(buf[0]), 1e-6)
	require.InDelta(t, math.Tanh(-1.5), float64(buf[1]), 1e-6)
	require.InDelta(t, 0.9051, float64(buf[0]), 1e-4)
}

func TestAddDirectSumsWithVolume(t *testing.T) {
	out := make([]float32, 4) // 2 frames stereo
	samples := []float32{0.1, 0.2, 0.3, 0.4}
	clip, err := mediatimeline.NewAudioClip("c", "x.mp3", 0, 1000)
	require.NoError(t, err)
	clip.Volume = 0.5

	addDirect(out, samples, clip, 0)

	require.InDelta(t, 0.05, out[0], 1e-6)
	require.InDelta(t, 0.10, out[1], 1e-6)
	require.InDelta(t, 0.15, out[2], 1e-6)
	require.InDelta(t, 0.20, out[3], 1e-6)
}

func TestAddResampledDoublesSpeedHalvesLength(t *testing.T) {
	out := make([]float32, 4) // 2 output frames stereo
	// 4 source frames, constant value so interpolation is trivial to verify.
	samples := []float32{1, 1, 1, 1, 1, 1, 1, 1}
	clip, err := mediatimeline.NewAudioClip("c", "x.mp3", 0, 1000)
	require.NoError(t, err)

	addResampled(out, samples, 4, clip, 0, 2, 2.0)

	require.InDelta(t, 1.0, out[0], 1e-6)
	require.InDelta(t, 1.0, out[1], 1e-6)
}

func TestMixRangeEmptyClipsReturnsSilence(t *testing.T) {
	m := New()
	out := m.MixRange(nil, 0, 1000)
	require.Len(t, out, sampleRate*channels)
	for _, v := range out {
		require.Equal(t, float32(0), v)
	}
}
