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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQualityCRF(t *testing.T) {
	require.Equal(t, 18, QualityHigh.crf())
	require.Equal(t, 23, QualityMedium.crf())
	require.Equal(t, 28, QualityLow.crf())
}

func TestBitrateForScalesWithResolutionAndQuality(t *testing.T) {
	hd := bitrateFor(1920, 1080, QualityMedium)
	sd := bitrateFor(640, 360, QualityMedium)
	require.Greater(t, hd, sd)

	high := bitrateFor(1920, 1080, QualityHigh)
	low := bitrateFor(1920, 1080, QualityLow)
	require.Greater(t, high, low)
}
