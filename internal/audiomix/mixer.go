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

// Package audiomix implements the stereo f32 mixdown that feeds both the
// live audio playback path and the export encoder. It keeps one long-lived
// AudioDecoder per source path rather than reopening a file per mix call.
package audiomix

import (
	"math"
	"sync"

	"github.com/vortexcut/engine/internal/decode"
	"github.com/vortexcut/engine/internal/mediatimeline"
)

const sampleRate = 48000
const channels = 2

// AudioMixer sums active audio sources into a single stereo buffer,
// caching one AudioDecoder per source path so repeated mix calls during
// playback or export don't reopen files.
type AudioMixer struct {
	mu       sync.Mutex
	decoders map[string]*decode.AudioDecoder
}

func New() *AudioMixer {
	return &AudioMixer{decoders: make(map[string]*decode.AudioDecoder)}
}

// MixRange sums every clip active across [timelineMs, timelineMs+durationMs)
// into a stereo f32 buffer of length floor(durationMs/1000*48000)*2.
func (m *AudioMixer) MixRange(clips []*mediatimeline.AudioClip, timelineMs int64, durationMs float64) []float32 {
	frames := int(durationMs / 1000.0 * float64(sampleRate))
	out := make([]float32, frames*channels)
	if frames == 0 {
		return out
	}

	rangeEnd := timelineMs + int64(durationMs)

	for _, clip := range clips {
		if clip.EndTimeMs() <= timelineMs || clip.StartTimeMs >= rangeEnd {
			continue // no overlap
		}

		sourceStartMs := float64(clip.TrimStartMs) + float64(timelineMs-clip.StartTimeMs)*clip.Speed
		sourceDurationMs := durationMs * clip.Speed

		dec, err := m.decoderFor(clip.SourcePath)
		if err != nil {
			continue
		}
		samples, err := dec.DecodeRange(int64(sourceStartMs), sourceDurationMs)
		if err != nil || len(samples) == 0 {
			continue
		}
		sourceFrames := len(samples) / channels

		if clip.Speed == 1.0 {
			addDirect(out, samples, clip, timelineMs)
		} else {
			addResampled(out, samples, sourceFrames, clip, timelineMs, frames, clip.Speed)
		}
	}

	softClip(out)
	return out
}

func addDirect(out []float32, samples []float32, clip *mediatimeline.AudioClip, timelineMs int64) {
	frames := len(out) / channels
	srcFrames := len(samples) / channels
	n := frames
	if srcFrames < n {
		n = srcFrames
	}
	for i := 0; i < n; i++ {
		gain := clip.Volume * clip.FadeGain(timelineMs+int64(float64(i)*1000.0/float64(sampleRate)))
		for ch := 0; ch < channels; ch++ {
			out[i*channels+ch] += samples[i*channels+ch] * float32(gain)
		}
	}
}

// addResampled linearly interpolates source samples at fractional
// positions i*speed, so pitch follows speed (intentional — this is not
// time-stretch).
func addResampled(out []float32, samples []float32, sourceFrames int, clip *mediatimeline.AudioClip, timelineMs int64, frames int, speed float64) {
	for i := 0; i < frames; i++ {
		pos := float64(i) * speed
		i0 := int(math.Floor(pos))
		if i0 >= sourceFrames {
			break
		}
		frac := pos - float64(i0)
		i1 := i0 + 1
		if i1 >= sourceFrames {
			i1 = i0
		}

		gain := clip.Volume * clip.FadeGain(timelineMs+int64(float64(i)*1000.0/float64(sampleRate)))
		for ch := 0; ch < channels; ch++ {
			s0 := samples[i0*channels+ch]
			s1 := samples[i1*channels+ch]
			v := float64(s0) + (float64(s1)-float64(s0))*frac
			out[i*channels+ch] += float32(v * gain)
		}
	}
}

// softClip applies tanh only to samples that actually exceed [-1, 1],
// leaving in-range samples untouched.
func softClip(buf []float32) {
	for i, v := range buf {
		if v > 1.0 || v < -1.0 {
			buf[i] = float32(math.Tanh(float64(v)))
		}
	}
}

func (m *AudioMixer) decoderFor(path string) (*decode.AudioDecoder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.decoders[path]; ok {
		return d, nil
	}
	d, err := decode.OpenAudio(path)
	if err != nil {
		return nil, err
	}
	m.decoders[path] = d
	return d, nil
}

// Close releases every cached decoder.
func (m *AudioMixer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.decoders {
		d.Close()
	}
	m.decoders = make(map[string]*decode.AudioDecoder)
}
