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

import "math"

// ColorEffects holds the four clip-level color adjustments, each in
// [-1.0, 1.0] with 0.0 meaning identity. IsDefault lets the renderer skip
// the pass entirely for the common case of an untouched clip.
type ColorEffects struct {
	Brightness  float64
	Contrast    float64
	Saturation  float64
	Temperature float64
}

func (c ColorEffects) IsDefault() bool {
	return c.Brightness == 0 && c.Contrast == 0 && c.Saturation == 0 && c.Temperature == 0
}

// ApplyColorEffects mutates a packed RGBA buffer in place, pixel by pixel:
// brightness as an additive offset, contrast as a pivot-at-mid-gray scale,
// saturation as a lerp toward/away from luma, and temperature as an
// opposing red/blue channel shift.
func ApplyColorEffects(rgba []byte, fx ColorEffects) {
	if fx.IsDefault() {
		return
	}

	brightness := fx.Brightness * 255.0
	contrastScale := 1.0 + fx.Contrast
	satScale := 1.0 + fx.Saturation
	warmShift := fx.Temperature * 40.0

	for i := 0; i+3 < len(rgba); i += 4 {
		r := float64(rgba[i])
		g := float64(rgba[i+1])
		b := float64(rgba[i+2])

		r += warmShift
		b -= warmShift

		r = (r-128)*contrastScale + 128 + brightness
		g = (g-128)*contrastScale + 128 + brightness
		b = (b-128)*contrastScale + 128 + brightness

		luma := 0.299*r + 0.587*g + 0.114*b
		r = luma + (r-luma)*satScale
		g = luma + (g-luma)*satScale
		b = luma + (b-luma)*satScale

		rgba[i] = clamp8(r)
		rgba[i+1] = clamp8(g)
		rgba[i+2] = clamp8(b)
	}
}

func clamp8(v float64) byte {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
