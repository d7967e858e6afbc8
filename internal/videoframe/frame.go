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

// Package videoframe defines the frame types shared across the decode,
// cache, render and export packages.
package videoframe

// PixelFormat identifies the packed byte layout of a Frame's Data.
type PixelFormat int

const (
	// RGBA is 4 interleaved bytes per pixel, used by the preview path.
	RGBA PixelFormat = iota
	// YUV420P is Y full-res followed by U and V at half width/height each,
	// used by the export path to feed the video encoder directly.
	YUV420P
)

func (f PixelFormat) String() string {
	switch f {
	case RGBA:
		return "rgba"
	case YUV420P:
		return "yuv420p"
	default:
		return "unknown"
	}
}

// Frame is a decoded video frame. As the decoder returns it, TimestampMs is
// the frame's source PTS in milliseconds; the renderer restamps its
// RenderedFrame output with the timeline timestamp it was requested at.
type Frame struct {
	Width       int
	Height      int
	Format      PixelFormat
	Data        []byte
	TimestampMs int64
}

// Bytes reports the frame's memory footprint, used by FrameCache's byte cap.
func (f *Frame) Bytes() int64 {
	return int64(len(f.Data))
}

// Clone returns a deep copy so that callers can hand out a frame without a
// reader mutating shared backing storage (FrameQueue.PeekNearest never
// consumes; it may be asked twice).
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	return &Frame{
		Width:       f.Width,
		Height:      f.Height,
		Format:      f.Format,
		Data:        data,
		TimestampMs: f.TimestampMs,
	}
}

// RenderedFrame is a renderer's output: a Frame plus a flag distinguishing
// preview output (RGBA) from export output (YUV420P direct).
type RenderedFrame struct {
	Frame
	IsYUV bool
}

// Clone deep-copies the frame.
func (r *RenderedFrame) Clone() *RenderedFrame {
	if r == nil {
		return nil
	}
	f := r.Frame.Clone()
	return &RenderedFrame{Frame: *f, IsYUV: r.IsYUV}
}

// Black returns a size-matched, all-zero frame — the fallback the renderer
// returns when no clip or transition is active at a timestamp.
func Black(width, height int, yuv bool) *RenderedFrame {
	format := RGBA
	var size int
	if yuv {
		format = YUV420P
		size = width*height + 2*((width+1)/2)*((height+1)/2)
	} else {
		size = width * height * 4
	}
	return &RenderedFrame{
		Frame: Frame{
			Width:  width,
			Height: height,
			Format: format,
			Data:   make([]byte, size),
		},
		IsYUV: yuv,
	}
}
