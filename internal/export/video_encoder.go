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

// Package export implements the H.264+AAC/MP4 pipeline that turns a
// rendered Timeline into a finished file: a video encoder with a
// hardware-first fallback chain (NVENC, QSV, AMF, then libx264), an AAC
// audio encoder, and the Exporter job that drives both from an
// export-mode PreviewRenderer.
package export

import (
	"errors"
	"fmt"

	astiav "github.com/asticode/go-astiav"
)

// videoEncoderCandidates lists H.264 encoders in preference order: three
// hardware families, then the universally-available software encoder.
var videoEncoderCandidates = []string{"h264_nvenc", "h264_qsv", "h264_amf", "libx264"}

// VideoEncoder wraps an astiav codec context opened against the first
// available candidate in videoEncoderCandidates, with CRF used natively
// for libx264 and an approximated bitrate for the hardware families
// (which don't expose CRF the same way).
type VideoEncoder struct {
	ctx    *astiav.CodecContext
	stream *astiav.Stream

	width, height int
	timeBase      astiav.Rational
	frameCount    int64

	codecName string
}

// Quality selects the CRF class used for libx264 and derives an
// approximate target bitrate for hardware encoders from it.
type Quality int

const (
	QualityHigh   Quality = iota // crf 18
	QualityMedium                // crf 23 (default)
	QualityLow                   // crf 28
)

func (q Quality) crf() int {
	switch q {
	case QualityHigh:
		return 18
	case QualityLow:
		return 28
	default:
		return 23
	}
}

// bitrateFor approximates a constant bitrate for hardware encoders (which
// don't share libx264's CRF semantics) from resolution and CRF class:
// roughly 0.1 bit/pixel/frame at 30fps, scaled by quality.
func bitrateFor(width, height int, q Quality) int64 {
	base := int64(width) * int64(height) * 30 / 10
	switch q {
	case QualityHigh:
		return base * 3 / 2
	case QualityLow:
		return base * 2 / 3
	default:
		return base
	}
}

// NewVideoEncoder adds a video stream to oc and opens the first working
// encoder in the preference chain.
func NewVideoEncoder(oc *astiav.FormatContext, width, height int, fps float64, quality Quality) (*VideoEncoder, error) {
	fpsNum := int(fps*1000.0 + 0.5)
	fpsDen := 1000
	timeBase := astiav.NewRational(fpsDen, fpsNum)

	var lastErr error
	for _, name := range videoEncoderCandidates {
		codec := astiav.FindEncoderByName(name)
		if codec == nil {
			lastErr = fmt.Errorf("encoder %s not registered", name)
			continue
		}

		ctx := astiav.AllocCodecContext(codec)
		if ctx == nil {
			lastErr = fmt.Errorf("AllocCodecContext(%s) failed", name)
			continue
		}
		ctx.SetWidth(width)
		ctx.SetHeight(height)
		ctx.SetPixelFormat(astiav.PixelFormatYuv420P)
		ctx.SetTimeBase(timeBase)
		ctx.SetFramerate(astiav.NewRational(fpsNum, fpsDen))

		opts := astiav.NewDictionary()
		if name == "libx264" {
			_ = opts.Set("crf", fmt.Sprintf("%d", quality.crf()), 0)
			_ = opts.Set("preset", "medium", 0)
		} else {
			ctx.SetBitRate(bitrateFor(width, height, quality))
		}

		if oc.OutputFormat().Flags()&astiav.IOFormatFlagGlobalHeader != 0 {
			ctx.SetFlags(ctx.Flags() | astiav.CodecContextFlagGlobalHeader)
		}

		if err := ctx.Open(codec, opts); err != nil {
			opts.Free()
			ctx.Free()
			lastErr = fmt.Errorf("open %s: %w", name, err)
			continue
		}
		opts.Free()

		stream := oc.NewStream(nil)
		if stream == nil {
			ctx.Free()
			return nil, errors.New("export: NewStream(video) failed")
		}
		if err := stream.SetCodecParameters(ctx); err != nil {
			ctx.Free()
			return nil, fmt.Errorf("export: SetCodecParameters(video): %w", err)
		}
		stream.SetTimeBase(timeBase)

		return &VideoEncoder{
			ctx: ctx, stream: stream,
			width: width, height: height,
			timeBase: timeBase, codecName: name,
		}, nil
	}

	return nil, fmt.Errorf("export: no usable H.264 encoder found, last error: %w", lastErr)
}

func (e *VideoEncoder) Stream() *astiav.Stream { return e.stream }
func (e *VideoEncoder) Name() string            { return e.codecName }

// EncodeFrame sends a YUV420P frame (already produced by the export
// renderer) to the encoder, stamping the next sequential PTS.
func (e *VideoEncoder) EncodeFrame(yuv *astiav.Frame, emit func(*astiav.Packet) error) error {
	yuv.SetPts(e.frameCount)
	e.frameCount++

	if err := e.ctx.SendFrame(yuv); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return fmt.Errorf("export: video SendFrame: %w", err)
	}
	return e.drain(emit)
}

// Finish flushes buffered frames (send nil = EOF).
func (e *VideoEncoder) Finish(emit func(*astiav.Packet) error) error {
	if err := e.ctx.SendFrame(nil); err != nil && !errors.Is(err, astiav.ErrEagain) && !errors.Is(err, astiav.ErrEof) {
		return fmt.Errorf("export: video flush SendFrame: %w", err)
	}
	return e.drain(emit)
}

func (e *VideoEncoder) drain(emit func(*astiav.Packet) error) error {
	for {
		pkt := astiav.AllocPacket()
		err := e.ctx.ReceivePacket(pkt)
		if err != nil {
			pkt.Free()
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("export: video ReceivePacket: %w", err)
		}
		pkt.RescaleTs(e.timeBase, e.stream.TimeBase())
		pkt.SetStreamIndex(e.stream.Index())
		if err := emit(pkt); err != nil {
			pkt.Free()
			return err
		}
		pkt.Unref()
		pkt.Free()
	}
}

func (e *VideoEncoder) Close() {
	if e.ctx != nil {
		e.ctx.Free()
	}
}
