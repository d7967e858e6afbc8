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
	"errors"
	"fmt"
	"math"

	astiav "github.com/asticode/go-astiav"
)

// AudioDecoder demuxes and decodes a single audio (or video-with-embedded-
// audio) source into interleaved f32 stereo samples at 48kHz, supporting
// random-access range reads rather than push-forward streaming.
type AudioDecoder struct {
	path string

	fc   *astiav.FormatContext
	ast  *astiav.Stream
	actx *astiav.CodecContext
	pkt  *astiav.Packet
	raw  *astiav.Frame
	swr  *astiav.SoftwareResampleContext
	out  *astiav.Frame

	tbNum, tbDen int

	leftover      []float32
	leftoverAtMs  int64 // timeline position the first leftover sample represents
	lastRangeEnd  int64
	haveLastRange bool

	sampleRate int
	channels   int
}

const audioTargetSampleRate = 48000
const audioTargetChannels = 2

// OpenAudio demuxes path and opens its first audio stream (which may
// belong to a video container) for resampled f32 stereo decode.
func OpenAudio(path string) (*AudioDecoder, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, errors.New("decode: AllocFormatContext failed")
	}
	if err := fc.OpenInput(path, nil, nil); err != nil {
		fc.Free()
		return nil, fmt.Errorf("decode: OpenInput(%s): %w", path, err)
	}
	if err := fc.FindStreamInfo(nil); err != nil {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("decode: FindStreamInfo(%s): %w", path, err)
	}

	aIdx := -1
	for i, s := range fc.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeAudio {
			aIdx = i
			break
		}
	}
	if aIdx < 0 {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("decode: %s has no audio stream", path)
	}
	ast := fc.Streams()[aIdx]
	apar := ast.CodecParameters()

	adec := astiav.FindDecoder(apar.CodecID())
	if adec == nil {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("decode: FindDecoder(audio) failed for %s", path)
	}
	actx := astiav.AllocCodecContext(adec)
	if actx == nil {
		fc.CloseInput()
		fc.Free()
		return nil, errors.New("decode: AllocCodecContext(audio) nil")
	}
	if err := apar.ToCodecContext(actx); err != nil {
		actx.Free()
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("decode: ToCodecContext(audio): %w", err)
	}
	if err := actx.Open(adec, nil); err != nil {
		actx.Free()
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("decode: open audio codec: %w", err)
	}

	dstLayout := astiav.ChannelLayoutStereo
	swr, err := astiav.CreateSoftwareResampleContext(
		dstLayout, astiav.SampleFormatFlt, audioTargetSampleRate,
		actx.ChannelLayout(), actx.SampleFormat(), actx.SampleRate(),
	)
	if err != nil {
		actx.Free()
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("decode: CreateSoftwareResampleContext: %w", err)
	}

	tb := ast.TimeBase()

	return &AudioDecoder{
		path:       path,
		fc:         fc,
		ast:        ast,
		actx:       actx,
		pkt:        astiav.AllocPacket(),
		raw:        astiav.AllocFrame(),
		swr:        swr,
		out:        astiav.AllocFrame(),
		tbNum:      tb.Num(),
		tbDen:      tb.Den(),
		sampleRate: audioTargetSampleRate,
		channels:   audioTargetChannels,
	}, nil
}

// DecodeRange returns exactly floor(durationMs * 48000 / 1000) stereo
// frames (twice that many interleaved f32 samples) covering
// [startMs, startMs+durationMs).
// Leftover samples from the previous call are consumed first to avoid
// chunk-boundary crackle; a short final chunk is padded with silence.
func (d *AudioDecoder) DecodeRange(startMs int64, durationMs float64) ([]float32, error) {
	wantFrames := int(durationMs * float64(d.sampleRate) / 1000.0)
	if wantFrames <= 0 {
		return nil, nil
	}
	wantSamples := wantFrames * d.channels

	nonSequential := !d.haveLastRange || startMs < d.lastRangeEnd || startMs-d.lastRangeEnd > 1000
	if nonSequential {
		if err := d.seekAndSkip(startMs); err != nil {
			return nil, err
		}
	}

	out := make([]float32, 0, wantSamples)

	if len(d.leftover) > 0 {
		take := len(d.leftover)
		if take > wantSamples {
			take = wantSamples
		}
		out = append(out, d.leftover[:take]...)
		d.leftover = d.leftover[take:]
	}

	for len(out) < wantSamples {
		samples, eof, err := d.decodeNextFrameSamples()
		if err != nil {
			return nil, err
		}
		if eof {
			break
		}
		need := wantSamples - len(out)
		if len(samples) > need {
			out = append(out, samples[:need]...)
			d.leftover = append(d.leftover, samples[need:]...)
		} else {
			out = append(out, samples...)
		}
	}

	if len(out) < wantSamples {
		padding := make([]float32, wantSamples-len(out))
		out = append(out, padding...)
	}

	d.lastRangeEnd = startMs + int64(durationMs)
	d.haveLastRange = true
	return out, nil
}

// seekAndSkip seeks to (at or before) startMs and discards any decoded
// audio that falls before it, so the first sample returned by the
// following decode loop lands exactly on startMs.
func (d *AudioDecoder) seekAndSkip(startMs int64) error {
	ts := astiav.RescaleQ(startMs, astiav.NewRational(1, 1000), astiav.TimeBaseQ)
	flags := astiav.NewSeekFlags(astiav.SeekFlagBackward)
	if err := d.fc.SeekFrame(-1, ts, flags); err != nil {
		d.actx.FlushBuffers()
		if err := d.fc.SeekFrame(-1, ts, flags); err != nil {
			return fmt.Errorf("decode: audio seek(%s, %dms) failed twice: %w", d.path, startMs, err)
		}
	}
	d.actx.FlushBuffers()
	d.leftover = nil
	d.haveLastRange = false

	for {
		samples, eof, frameStartMs, err := d.decodeNextFrameSamplesWithTs()
		if err != nil {
			return err
		}
		if eof {
			return nil
		}
		if frameStartMs >= startMs {
			// NoSkip: nothing to discard, keep every sample.
			d.leftover = samples
			return nil
		}
		frameDurationMs := int64(float64(len(samples)/d.channels) * 1000.0 / float64(d.sampleRate))
		if frameStartMs+frameDurationMs <= startMs {
			// SkipEntire: this frame ends before startMs.
			continue
		}
		// Partial: keep the tail of this frame that lands at/after startMs.
		skipFrames := int(float64(startMs-frameStartMs) * float64(d.sampleRate) / 1000.0)
		skipSamples := skipFrames * d.channels
		if skipSamples < len(samples) {
			d.leftover = samples[skipSamples:]
		}
		return nil
	}
}

func (d *AudioDecoder) decodeNextFrameSamples() ([]float32, bool, error) {
	s, eof, _, err := d.decodeNextFrameSamplesWithTs()
	return s, eof, err
}

// decodeNextFrameSamplesWithTs pulls packets until one audio frame
// decodes, resamples it to 48kHz stereo f32, and returns its samples
// along with the timeline position (ms) of its first sample.
func (d *AudioDecoder) decodeNextFrameSamplesWithTs() ([]float32, bool, int64, error) {
	for {
		err := d.fc.ReadFrame(d.pkt)
		if err != nil {
			if errors.Is(err, astiav.ErrEof) {
				return nil, true, 0, nil
			}
			return nil, false, 0, fmt.Errorf("decode: audio ReadFrame: %w", err)
		}

		if d.pkt.StreamIndex() != d.ast.Index() {
			d.pkt.Unref()
			continue
		}

		if err := d.actx.SendPacket(d.pkt); err != nil && !errors.Is(err, astiav.ErrEagain) {
			d.pkt.Unref()
			continue
		}
		d.pkt.Unref()

		err = d.actx.ReceiveFrame(d.raw)
		if err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				continue
			}
			return nil, false, 0, fmt.Errorf("decode: audio ReceiveFrame: %w", err)
		}

		ptsMs := astiav.RescaleQ(d.raw.Pts(), astiav.NewRational(d.tbNum, d.tbDen), astiav.NewRational(1, 1000))

		if err := d.swr.ConvertFrame(d.raw, d.out); err != nil {
			d.raw.Unref()
			return nil, false, 0, fmt.Errorf("decode: swr.ConvertFrame: %w", err)
		}
		d.raw.Unref()

		n, err := d.out.SamplesBufferSize(1)
		if err != nil {
			return nil, false, 0, fmt.Errorf("decode: SamplesBufferSize: %w", err)
		}
		buf := make([]byte, n)
		if _, err := d.out.SamplesCopyToBuffer(buf, 1); err != nil {
			return nil, false, 0, fmt.Errorf("decode: SamplesCopyToBuffer: %w", err)
		}
		samples := bytesToFloat32(buf)
		return samples, false, ptsMs, nil
	}
}

// bytesToFloat32 reinterprets little-endian packed f32 samples (the
// layout go-astiav's SampleFormatFlt buffers use) without an unsafe cast.
func bytesToFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		bits := uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}

func (d *AudioDecoder) Close() {
	if d.out != nil {
		d.out.Free()
	}
	if d.raw != nil {
		d.raw.Free()
	}
	if d.pkt != nil {
		d.pkt.Free()
	}
	if d.swr != nil {
		d.swr.Free()
	}
	if d.actx != nil {
		d.actx.Free()
	}
	if d.fc != nil {
		d.fc.CloseInput()
		d.fc.Free()
	}
}
