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

package audioplay

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/oto/v2"

	"github.com/vortexcut/engine/internal/audiomix"
	"github.com/vortexcut/engine/internal/engineconfig"
	"github.com/vortexcut/engine/internal/mediatimeline"
)

// ringReader adapts a RingBuffer to the io.Reader oto's Player pulls
// from. Its scratch buffer is allocated on the first Read and reused
// across calls; it is reallocated only when a Read asks for more samples
// than it holds, so later callbacks of the same size do not allocate. It
// reads via TryRead, which never
// blocks and fills with silence on contention, so oto never sees a short
// read and the audio thread never waits on the fill-thread's lock.
type ringReader struct {
	rb      *RingBuffer
	scratch []float32
}

func (rr *ringReader) Read(p []byte) (int, error) {
	n := len(p) / 4
	if cap(rr.scratch) < n {
		rr.scratch = make([]float32, n)
	}
	samples := rr.scratch[:n]
	rr.rb.TryRead(samples)
	floatsToBytes(samples, p)
	return n * 4, nil
}

// AudioPlayback drives a RingBuffer from the timeline's AudioMixer and
// exposes it to oto/v2 as a live stream, prefilling before starting
// output so the callback never starves on the very first pull.
type AudioPlayback struct {
	timeline *mediatimeline.Timeline
	mixer    *audiomix.AudioMixer
	cfg      engineconfig.Config

	rb     *RingBuffer
	ctx    *oto.Context
	player oto.Player

	mu      sync.Mutex
	cancel  chan struct{}
	done    chan struct{}
	running bool
	paused  int32 // atomic bool

	positionMs int64 // atomic: last timeline_ms submitted to the ring buffer
}

func New(timeline *mediatimeline.Timeline, mixer *audiomix.AudioMixer, cfg engineconfig.Config) (*AudioPlayback, error) {
	ctx, ready, err := oto.NewContext(cfg.AudioSampleRate, cfg.AudioChannels, oto.FormatFloat32LE)
	if err != nil {
		return nil, err
	}
	go func() { <-ready }()

	return &AudioPlayback{
		timeline: timeline,
		mixer:    mixer,
		cfg:      cfg,
		rb:       NewRingBuffer(),
		ctx:      ctx,
	}, nil
}

// Start prefills AudioPrefillChunks chunks before opening the output
// stream, so the very first real-time Read has data; then spawns the
// steady-state fill thread.
func (p *AudioPlayback) Start(startMs int64) {
	p.Stop()

	p.mu.Lock()
	atomic.StoreInt64(&p.positionMs, startMs)
	atomic.StoreInt32(&p.paused, 0)
	p.rb = NewRingBuffer()
	p.cancel = make(chan struct{})
	p.done = make(chan struct{})
	p.running = true
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	next := startMs
	for i := 0; i < p.cfg.AudioPrefillChunks; i++ {
		samples := p.mixSafe(next, p.cfg.AudioDecodeChunkMs)
		p.rb.Write(samples)
		next += int64(p.cfg.AudioDecodeChunkMs)
	}

	p.player = p.ctx.NewPlayer(&ringReader{rb: p.rb})
	p.player.Play()

	go p.fillLoop(next, cancel, done)
}

func (p *AudioPlayback) mixSafe(fromMs int64, durationMs float64) []float32 {
	if !p.timeline.TryLock() {
		frames := int(durationMs / 1000.0 * float64(p.cfg.AudioSampleRate))
		return make([]float32, frames*p.cfg.AudioChannels)
	}
	clips := p.timeline.AllAudioSourcesAt(fromMs)
	p.timeline.Unlock()
	return p.mixer.MixRange(clips, fromMs, durationMs)
}

// fillLoop keeps the ring buffer topped up, throttled by its fill level
// so the mixer isn't run far ahead of what playback actually needs.
func (p *AudioPlayback) fillLoop(startMs int64, cancel, done chan struct{}) {
	defer close(done)

	retryWait := time.Duration(p.cfg.AudioFillRetryMs) * time.Millisecond
	next := startMs
	for {
		select {
		case <-cancel:
			return
		default:
		}

		if atomic.LoadInt32(&p.paused) != 0 {
			time.Sleep(retryWait)
			continue
		}

		if p.rb.FillLevel() > 0.5 {
			time.Sleep(retryWait)
			continue
		}

		samples := p.mixSafe(next, p.cfg.AudioDecodeChunkMs)
		p.rb.Write(samples)
		atomic.StoreInt64(&p.positionMs, next)
		next += int64(p.cfg.AudioDecodeChunkMs)
	}
}

func (p *AudioPlayback) Pause()  { atomic.StoreInt32(&p.paused, 1) }
func (p *AudioPlayback) Resume() { atomic.StoreInt32(&p.paused, 0) }

func (p *AudioPlayback) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.running = false
	p.mu.Unlock()

	close(cancel)
	<-done

	if p.player != nil {
		_ = p.player.Close()
		p.player = nil
	}
}

// PositionMs reports the timeline position of audio most recently
// submitted to the ring buffer — the master clock PlaybackEngine paces
// video against.
func (p *AudioPlayback) PositionMs() int64 { return atomic.LoadInt64(&p.positionMs) }

func floatsToBytes(samples []float32, dst []byte) {
	for i, s := range samples {
		bits := math.Float32bits(s)
		dst[i*4] = byte(bits)
		dst[i*4+1] = byte(bits >> 8)
		dst[i*4+2] = byte(bits >> 16)
		dst[i*4+3] = byte(bits >> 24)
	}
}
