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
	"fmt"

	astiav "github.com/asticode/go-astiav"

	"github.com/vortexcut/engine/internal/videoframe"
)

// scaler wraps a software scale context that always targets a fixed
// output size and pixel format, supporting both the RGBA preview path
// and the YUV420P export path at an arbitrary target size.
type scaler struct {
	ssc *astiav.SoftwareScaleContext
	dst *astiav.Frame

	dstW, dstH int
	dstFormat  videoframe.PixelFormat
	avFormat   astiav.PixelFormat

	srcW, srcH int
	srcFormat  astiav.PixelFormat
}

func newScaler(w, h int, format videoframe.PixelFormat) *scaler {
	av := astiav.PixelFormatRgba
	if format == videoframe.YUV420P {
		av = astiav.PixelFormatYuv420P
	}
	return &scaler{dstW: w, dstH: h, dstFormat: format, avFormat: av}
}

func (s *scaler) close() {
	if s.dst != nil {
		s.dst.Free()
		s.dst = nil
	}
	if s.ssc != nil {
		s.ssc.Free()
		s.ssc = nil
	}
}

func (s *scaler) ensure(src *astiav.Frame) error {
	sw, sh := src.Width(), src.Height()
	sp := src.PixelFormat()

	if s.ssc != nil && sw == s.srcW && sh == s.srcH && sp == s.srcFormat {
		return nil
	}
	s.close()

	flags := astiav.NewSoftwareScaleContextFlags()
	ssc, err := astiav.CreateSoftwareScaleContext(sw, sh, sp, s.dstW, s.dstH, s.avFormat, flags)
	if err != nil {
		return fmt.Errorf("decode: CreateSoftwareScaleContext(%dx%d %v -> %v): %w", sw, sh, sp, s.avFormat, err)
	}

	dst := astiav.AllocFrame()
	dst.SetWidth(s.dstW)
	dst.SetHeight(s.dstH)
	dst.SetPixelFormat(s.avFormat)
	if err := dst.AllocBuffer(1); err != nil {
		dst.Free()
		ssc.Free()
		return fmt.Errorf("decode: dst.AllocBuffer: %w", err)
	}

	s.ssc = ssc
	s.dst = dst
	s.srcW, s.srcH, s.srcFormat = sw, sh, sp
	return nil
}

// convert scales src into a freshly allocated, tightly packed Frame.
func (s *scaler) convert(src *astiav.Frame) (*videoframe.Frame, error) {
	if err := s.ensure(src); err != nil {
		return nil, err
	}
	if err := s.ssc.ScaleFrame(src, s.dst); err != nil {
		return nil, fmt.Errorf("decode: ScaleFrame: %w", err)
	}

	n, err := s.dst.ImageBufferSize(1)
	if err != nil {
		return nil, fmt.Errorf("decode: ImageBufferSize: %w", err)
	}
	buf := make([]byte, n)
	if _, err := s.dst.ImageCopyToBuffer(buf, 1); err != nil {
		return nil, fmt.Errorf("decode: ImageCopyToBuffer: %w", err)
	}

	return &videoframe.Frame{
		Width:  s.dstW,
		Height: s.dstH,
		Format: s.dstFormat,
		Data:   buf,
	}, nil
}
