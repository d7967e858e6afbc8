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

// Transition blending functions on packed RGBA buffers: outgoing is
// blended against incoming at progress p in [0,1].
package render

import "github.com/vortexcut/engine/internal/mediatimeline"

// ApplyTransition dispatches to the blend matching transitionType.
func ApplyTransition(outgoing, incoming []byte, width, height int, progress float64, transitionType mediatimeline.TransitionType) {
	switch transitionType {
	case mediatimeline.TransitionFadeBlack:
		blendFadeBlack(outgoing, incoming, progress)
	case mediatimeline.TransitionWipeLeft:
		blendWipeHorizontal(outgoing, incoming, width, height, progress, false)
	case mediatimeline.TransitionWipeRight:
		blendWipeHorizontal(outgoing, incoming, width, height, progress, true)
	case mediatimeline.TransitionWipeUp:
		blendWipeVertical(outgoing, incoming, width, height, progress, false)
	case mediatimeline.TransitionWipeDown:
		blendWipeVertical(outgoing, incoming, width, height, progress, true)
	default: // None, Crossfade
		blendCrossfade(outgoing, incoming, progress)
	}
}

// blendCrossfade: pixel = A*(1-p) + B*p, alpha forced opaque.
func blendCrossfade(outgoing, incoming []byte, progress float64) {
	p := float32(progress)
	invP := 1.0 - p
	n := len(outgoing)
	if len(incoming) < n {
		n = len(incoming)
	}
	for i := 0; i+3 < n; i += 4 {
		outgoing[i] = byte(float32(outgoing[i])*invP + float32(incoming[i])*p)
		outgoing[i+1] = byte(float32(outgoing[i+1])*invP + float32(incoming[i+1])*p)
		outgoing[i+2] = byte(float32(outgoing[i+2])*invP + float32(incoming[i+2])*p)
		outgoing[i+3] = 255
	}
}

// blendFadeBlack: outgoing fades to black for p<=0.5, then black fades
// into incoming for p>0.5.
func blendFadeBlack(outgoing, incoming []byte, progress float64) {
	if progress <= 0.5 {
		alpha := float32(1.0 - progress*2.0)
		for i := 0; i+3 < len(outgoing); i += 4 {
			outgoing[i] = byte(float32(outgoing[i]) * alpha)
			outgoing[i+1] = byte(float32(outgoing[i+1]) * alpha)
			outgoing[i+2] = byte(float32(outgoing[i+2]) * alpha)
			outgoing[i+3] = 255
		}
		return
	}
	alpha := float32((progress - 0.5) * 2.0)
	n := len(outgoing)
	if len(incoming) < n {
		n = len(incoming)
	}
	for i := 0; i+3 < n; i += 4 {
		outgoing[i] = byte(float32(incoming[i]) * alpha)
		outgoing[i+1] = byte(float32(incoming[i+1]) * alpha)
		outgoing[i+2] = byte(float32(incoming[i+2]) * alpha)
		outgoing[i+3] = 255
	}
}

// blendWipeHorizontal: the first floor(w*p) columns (or last, when
// reverse) come from incoming.
func blendWipeHorizontal(outgoing, incoming []byte, width, height int, progress float64, reverse bool) {
	boundary := int(float64(width) * progress)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			var useIncoming bool
			if reverse {
				useIncoming = col >= saturatingSub(width, boundary)
			} else {
				useIncoming = col < boundary
			}
			if !useIncoming {
				continue
			}
			idx := (row*width + col) * 4
			if idx+3 >= len(outgoing) || idx+3 >= len(incoming) {
				continue
			}
			outgoing[idx] = incoming[idx]
			outgoing[idx+1] = incoming[idx+1]
			outgoing[idx+2] = incoming[idx+2]
			outgoing[idx+3] = 255
		}
	}
}

// blendWipeVertical: the first floor(h*p) rows (or last, when reverse)
// come from incoming.
func blendWipeVertical(outgoing, incoming []byte, width, height int, progress float64, reverse bool) {
	boundary := int(float64(height) * progress)
	for row := 0; row < height; row++ {
		var useIncoming bool
		if reverse {
			useIncoming = row >= saturatingSub(height, boundary)
		} else {
			useIncoming = row < boundary
		}
		if !useIncoming {
			continue
		}
		for col := 0; col < width; col++ {
			idx := (row*width + col) * 4
			if idx+3 >= len(outgoing) || idx+3 >= len(incoming) {
				continue
			}
			outgoing[idx] = incoming[idx]
			outgoing[idx+1] = incoming[idx+1]
			outgoing[idx+2] = incoming[idx+2]
			outgoing[idx+3] = 255
		}
	}
}

func saturatingSub(a, b int) int {
	if b >= a {
		return 0
	}
	return a - b
}
