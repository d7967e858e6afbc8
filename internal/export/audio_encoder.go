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
	"errors"
	"fmt"
	"math"

	astiav "github.com/asticode/go-astiav"

	"github.com/vortexcut/engine/internal/engineconfig"
)

const aacSampleRate = 48000
const aacChannels = 2

// AudioEncoder wraps an AAC encoder + mux stream. It accumulates
// interleaved f32 samples from the mixer until it has a full encoder
// frame (frame_size samples per channel, typically 1024), deinterleaves
// into planar float, and encodes.
type AudioEncoder struct {
	ctx    *astiav.CodecContext
	stream *astiav.Stream
	frame  *astiav.Frame

	timeBase   astiav.Rational
	frameSize  int
	samplesPTS int64

	pending []float32 // interleaved stereo f32 carry buffer
}

func NewAudioEncoder(oc *astiav.FormatContext, tuning engineconfig.Config) (*AudioEncoder, error) {
	codec := astiav.FindEncoder(astiav.CodecIDAac)
	if codec == nil {
		return nil, errors.New("export: AAC encoder not found")
	}
	ctx := astiav.AllocCodecContext(codec)
	if ctx == nil {
		return nil, errors.New("export: AllocCodecContext(aac) nil")
	}

	ctx.SetSampleRate(aacSampleRate)
	ctx.SetChannelLayout(astiav.ChannelLayoutStereo)
	ctx.SetSampleFormat(astiav.SampleFormatFltp)
	ctx.SetBitRate(int64(tuning.AACBitrate))
	timeBase := astiav.NewRational(1, aacSampleRate)
	ctx.SetTimeBase(timeBase)

	if oc.OutputFormat().Flags()&astiav.IOFormatFlagGlobalHeader != 0 {
		ctx.SetFlags(ctx.Flags() | astiav.CodecContextFlagGlobalHeader)
	}

	if err := ctx.Open(codec, nil); err != nil {
		ctx.Free()
		return nil, fmt.Errorf("export: open aac: %w", err)
	}

	stream := oc.NewStream(nil)
	if stream == nil {
		ctx.Free()
		return nil, errors.New("export: NewStream(audio) failed")
	}
	if err := stream.SetCodecParameters(ctx); err != nil {
		ctx.Free()
		return nil, fmt.Errorf("export: SetCodecParameters(audio): %w", err)
	}
	stream.SetTimeBase(timeBase)

	frameSize := ctx.FrameSize()
	if frameSize <= 0 {
		frameSize = tuning.AACFrameSize
	}

	frame := astiav.AllocFrame()
	frame.SetSampleFormat(astiav.SampleFormatFltp)
	frame.SetChannelLayout(astiav.ChannelLayoutStereo)
	frame.SetSampleRate(aacSampleRate)
	frame.SetNbSamples(frameSize)
	if err := frame.AllocBuffer(0); err != nil {
		frame.Free()
		ctx.Free()
		return nil, fmt.Errorf("export: aac frame AllocBuffer: %w", err)
	}

	return &AudioEncoder{
		ctx: ctx, stream: stream, frame: frame,
		timeBase: timeBase, frameSize: frameSize,
	}, nil
}

func (e *AudioEncoder) Stream() *astiav.Stream { return e.stream }

// Append queues interleaved stereo f32 samples and encodes every full
// frame it can assemble, emitting packets via emit.
func (e *AudioEncoder) Append(samples []float32, emit func(*astiav.Packet) error) error {
	e.pending = append(e.pending, samples...)

	for len(e.pending)/aacChannels >= e.frameSize {
		chunk := e.pending[:e.frameSize*aacChannels]
		e.pending = e.pending[e.frameSize*aacChannels:]
		if err := e.encodeChunk(chunk, emit); err != nil {
			return err
		}
	}
	return nil
}

func (e *AudioEncoder) encodeChunk(interleaved []float32, emit func(*astiav.Packet) error) error {
	planar := deinterleave(interleaved, aacChannels)

	for ch := 0; ch < aacChannels; ch++ {
		buf, err := e.frame.Data().Bytes(ch)
		if err != nil {
			return fmt.Errorf("export: aac frame plane %d: %w", ch, err)
		}
		floatsToBytesLE(planar[ch], buf)
	}

	e.frame.SetPts(e.samplesPTS)
	e.samplesPTS += int64(e.frameSize)

	if err := e.ctx.SendFrame(e.frame); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return fmt.Errorf("export: audio SendFrame: %w", err)
	}
	return e.drain(emit)
}

// Finish pads any trailing partial frame with silence and flushes.
func (e *AudioEncoder) Finish(emit func(*astiav.Packet) error) error {
	if len(e.pending) > 0 {
		need := e.frameSize*aacChannels - len(e.pending)
		if need > 0 {
			e.pending = append(e.pending, make([]float32, need)...)
		}
		chunk := e.pending
		e.pending = nil
		if err := e.encodeChunk(chunk, emit); err != nil {
			return err
		}
	}

	if err := e.ctx.SendFrame(nil); err != nil && !errors.Is(err, astiav.ErrEagain) && !errors.Is(err, astiav.ErrEof) {
		return fmt.Errorf("export: audio flush SendFrame: %w", err)
	}
	return e.drain(emit)
}

func (e *AudioEncoder) drain(emit func(*astiav.Packet) error) error {
	for {
		pkt := astiav.AllocPacket()
		err := e.ctx.ReceivePacket(pkt)
		if err != nil {
			pkt.Free()
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("export: audio ReceivePacket: %w", err)
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

func (e *AudioEncoder) Close() {
	if e.frame != nil {
		e.frame.Free()
	}
	if e.ctx != nil {
		e.ctx.Free()
	}
}

func deinterleave(samples []float32, channels int) [][]float32 {
	frames := len(samples) / channels
	planes := make([][]float32, channels)
	for ch := range planes {
		planes[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			planes[ch][i] = samples[i*channels+ch]
		}
	}
	return planes
}

func floatsToBytesLE(samples []float32, dst []byte) {
	for i, s := range samples {
		bits := math.Float32bits(s)
		o := i * 4
		if o+3 >= len(dst) {
			break
		}
		dst[o] = byte(bits)
		dst[o+1] = byte(bits >> 8)
		dst[o+2] = byte(bits >> 16)
		dst[o+3] = byte(bits >> 24)
	}
}
