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

// Package decode wraps go-astiav to provide stateful, seek-aware frame
// decoding for the engine: a StatefulDecoder per video source that stays
// positioned near the playhead rather than reopening the file on every
// query, plus an AudioDecoder for sample-accurate range reads feeding the
// mixer.
package decode

import (
	"errors"
	"fmt"
	"log"

	astiav "github.com/asticode/go-astiav"

	"github.com/vortexcut/engine/internal/engineconfig"
	"github.com/vortexcut/engine/internal/videoframe"
)

// DecoderState tags the health of a StatefulDecoder.
type DecoderState int

const (
	StateReady DecoderState = iota
	StateEndOfStream
	StateError
)

// Outcome classifies what DecodeFrame produced for a requested timestamp.
type Outcome int

const (
	OutcomeFrame Outcome = iota
	OutcomeSkipped
	OutcomeEndOfStream
	OutcomeEndOfStreamEmpty
)

// DecodeOutcome is the result of a single DecodeFrame call.
type DecodeOutcome struct {
	Kind  Outcome
	Frame *videoframe.Frame // set for OutcomeFrame and OutcomeEndOfStream
}

// StatefulDecoder keeps a demuxer+decoder positioned near the last
// requested timestamp so repeated nearby queries (scrub, playback) avoid
// reopening or reseeking the source on every call.
type StatefulDecoder struct {
	path string

	fc   *astiav.FormatContext
	vst  *astiav.Stream
	vctx *astiav.CodecContext
	pkt  *astiav.Packet
	raw  *astiav.Frame

	scaler *scaler

	targetW, targetH int
	targetFormat     videoframe.PixelFormat

	tbNum, tbDen int // video stream time base

	state            DecoderState
	lastErr          error
	lastDecodedMs    int64
	haveLastDecoded  bool
	forwardThreshold int64 // ms; configurable via SetForwardThreshold

	forwardScanCap int
}

// Open demuxes path and prepares a software decoder for its first video
// stream, scaled to targetW x targetH in targetFormat. cfg supplies the
// initial forward-decode threshold and scan cap; threads <= 0 falls back
// to cfg.MaxDecodeThreads.
func Open(path string, targetW, targetH int, targetFormat videoframe.PixelFormat, threads int, cfg engineconfig.Config) (*StatefulDecoder, error) {
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

	vIdx := -1
	for i, s := range fc.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			vIdx = i
			break
		}
	}
	if vIdx < 0 {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("decode: %s has no video stream", path)
	}
	vst := fc.Streams()[vIdx]
	vpar := vst.CodecParameters()

	vdec := astiav.FindDecoder(vpar.CodecID())
	if vdec == nil {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("decode: FindDecoder failed for %s", path)
	}
	vctx := astiav.AllocCodecContext(vdec)
	if vctx == nil {
		fc.CloseInput()
		fc.Free()
		return nil, errors.New("decode: AllocCodecContext(video) nil")
	}
	if err := vpar.ToCodecContext(vctx); err != nil {
		vctx.Free()
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("decode: ToCodecContext(video): %w", err)
	}

	if threads <= 0 {
		threads = cfg.MaxDecodeThreads
	}
	if threads > 4 {
		threads = 4
	}
	vctx.SetThreadCount(threads)

	if err := vctx.Open(vdec, nil); err != nil {
		vctx.Free()
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("decode: open video codec: %w", err)
	}

	tb := vst.TimeBase()

	d := &StatefulDecoder{
		path:             path,
		fc:               fc,
		vst:              vst,
		vctx:             vctx,
		pkt:              astiav.AllocPacket(),
		raw:              astiav.AllocFrame(),
		scaler:           newScaler(targetW, targetH, targetFormat),
		targetW:          targetW,
		targetH:          targetH,
		targetFormat:     targetFormat,
		tbNum:            tb.Num(),
		tbDen:            tb.Den(),
		state:            StateReady,
		forwardThreshold: cfg.ForwardThresholdScrubMs,
		forwardScanCap:   cfg.ForwardScanPacketCap,
	}
	return d, nil
}

// SetForwardThreshold configures how far ahead of the last decoded
// timestamp a request may be served by pure forward decoding before a
// seek is issued. Playback uses a generous window (so 33ms steps never
// seek); scrubbing uses a tight one (so big jumps seek promptly).
func (d *StatefulDecoder) SetForwardThreshold(ms int64) { d.forwardThreshold = ms }

// SetForwardScanCap bounds how many packets a forward pull will consume
// while searching for a target timestamp; when the cap trips, the pull
// returns the latest frame it decoded (or OutcomeSkipped if none).
func (d *StatefulDecoder) SetForwardScanCap(n int) {
	if n > 0 {
		d.forwardScanCap = n
	}
}

func (d *StatefulDecoder) State() DecoderState { return d.state }

// DecodeFrame returns the frame visible at timestampMs, following the
// decision table: a prior Error short-circuits; a cached EndOfStream for
// a timestamp at or beyond where the stream ended short-circuits too
// (reported as OutcomeEndOfStreamEmpty, so the caller keeps its last frame);
// small forward steps decode in place; larger forward steps within the
// threshold pull packets until the target is reached or overshoot;
// anything else (backward, or forward beyond threshold) seeks first.
func (d *StatefulDecoder) DecodeFrame(timestampMs int64) (DecodeOutcome, error) {
	if d.state == StateError {
		return DecodeOutcome{Kind: OutcomeEndOfStreamEmpty}, d.lastErr
	}
	if d.state == StateEndOfStream && d.haveLastDecoded && timestampMs >= d.lastDecodedMs {
		return DecodeOutcome{Kind: OutcomeEndOfStreamEmpty}, nil
	}

	frameDurationMs := int64(1000.0 / d.frameRate())
	if frameDurationMs <= 0 {
		frameDurationMs = 33
	}

	needSeek := true
	immediate := false
	if d.haveLastDecoded {
		delta := timestampMs - d.lastDecodedMs
		if delta >= 0 && delta <= 2*frameDurationMs {
			// immediate: the next packet already gets us there, within one
			// frame's tolerance — accept it without an exact PTS match.
			needSeek = false
			immediate = true
		} else if delta > 0 && delta <= d.forwardThreshold {
			needSeek = false
		}
	}

	if needSeek {
		if err := d.seek(timestampMs); err != nil {
			d.state = StateError
			d.lastErr = err
			return DecodeOutcome{Kind: OutcomeEndOfStreamEmpty}, err
		}
		d.state = StateReady
	}

	return d.pullUntil(timestampMs, immediate)
}

// seek repositions the demuxer to the nearest keyframe at or before
// timestampMs, expressed in the container's time base (in microseconds
// relative to AV_TIME_BASE, per go-astiav's SeekFrame contract). A first
// failure is retried once after a flush; a second failure is fatal.
func (d *StatefulDecoder) seek(timestampMs int64) error {
	ts := astiav.RescaleQ(timestampMs, astiav.NewRational(1, 1000), astiav.TimeBaseQ)
	flags := astiav.NewSeekFlags(astiav.SeekFlagBackward)

	err := d.fc.SeekFrame(-1, ts, flags)
	if err != nil {
		d.vctx.FlushBuffers()
		err = d.fc.SeekFrame(-1, ts, flags)
		if err != nil {
			return fmt.Errorf("decode: seek(%s, %dms) failed twice: %w", d.path, timestampMs, err)
		}
	}
	d.vctx.FlushBuffers()
	d.haveLastDecoded = false
	return nil
}

// pullUntil reads packets forward until a frame at or after targetMs
// decodes, the forward-scan safety cap trips, or end of stream is hit.
// It keeps the latest decoded frame as a fallback if the target is
// never exactly reached (e.g. sparse keyframe-only streams). When
// immediate is set (the request landed at most two frame durations ahead
// of the last decode), the very first frame decoded is accepted unconditionally
// instead of waiting for its PTS to reach targetMs.
func (d *StatefulDecoder) pullUntil(targetMs int64, immediate bool) (DecodeOutcome, error) {
	var latest *videoframe.Frame
	scanned := 0

	for {
		if scanned >= d.forwardScanCap {
			if latest != nil {
				d.lastDecodedMs = latest.TimestampMs
				d.haveLastDecoded = true
				return DecodeOutcome{Kind: OutcomeFrame, Frame: latest}, nil
			}
			return DecodeOutcome{Kind: OutcomeSkipped}, nil
		}

		err := d.fc.ReadFrame(d.pkt)
		if err != nil {
			if errors.Is(err, astiav.ErrEof) {
				d.state = StateEndOfStream
				if latest != nil {
					d.lastDecodedMs = latest.TimestampMs
					d.haveLastDecoded = true
					return DecodeOutcome{Kind: OutcomeEndOfStream, Frame: latest}, nil
				}
				return DecodeOutcome{Kind: OutcomeEndOfStreamEmpty}, nil
			}
			return DecodeOutcome{Kind: OutcomeSkipped}, fmt.Errorf("decode: ReadFrame: %w", err)
		}
		scanned++

		if d.pkt.StreamIndex() != d.vst.Index() {
			d.pkt.Unref()
			continue
		}

		if err := d.vctx.SendPacket(d.pkt); err != nil && !errors.Is(err, astiav.ErrEagain) {
			d.pkt.Unref()
			continue
		}
		d.pkt.Unref()

		for {
			err := d.vctx.ReceiveFrame(d.raw)
			if err != nil {
				if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
					break
				}
				return DecodeOutcome{Kind: OutcomeSkipped}, fmt.Errorf("decode: ReceiveFrame: %w", err)
			}

			ptsMs := astiav.RescaleQ(d.raw.Pts(), astiav.NewRational(d.tbNum, d.tbDen), astiav.NewRational(1, 1000))

			f, convErr := d.scaler.convert(d.raw)
			d.raw.Unref()
			if convErr != nil {
				return DecodeOutcome{Kind: OutcomeSkipped}, convErr
			}
			f.TimestampMs = ptsMs
			latest = f

			if immediate || ptsMs >= targetMs {
				d.lastDecodedMs = ptsMs
				d.haveLastDecoded = true
				return DecodeOutcome{Kind: OutcomeFrame, Frame: f}, nil
			}
		}
	}
}

func (d *StatefulDecoder) frameRate() float64 {
	r := d.vst.AvgFrameRate()
	if r.Num() > 0 && r.Den() > 0 {
		return float64(r.Num()) / float64(r.Den())
	}
	r = d.vctx.Framerate()
	if r.Num() > 0 && r.Den() > 0 {
		return float64(r.Num()) / float64(r.Den())
	}
	return 30.0
}

func (d *StatefulDecoder) Close() {
	if d.raw != nil {
		d.raw.Free()
	}
	if d.pkt != nil {
		d.pkt.Free()
	}
	if d.scaler != nil {
		d.scaler.close()
	}
	if d.vctx != nil {
		d.vctx.Free()
	}
	if d.fc != nil {
		d.fc.CloseInput()
		d.fc.Free()
	}
	log.Printf("[decode] closed %s", d.path)
}
