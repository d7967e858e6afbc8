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

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vortexcut/engine/internal/engineconfig"
	"github.com/vortexcut/engine/internal/framecache"
	"github.com/vortexcut/engine/internal/mediatimeline"
	"github.com/vortexcut/engine/internal/videoframe"
)

// PlaybackEngine prefetches frames ahead of the playhead on a background
// thread using its own PreviewRenderer (isolated from the scrub-time
// renderer), so the UI/audio consumer never waits on a decode.
type PlaybackEngine struct {
	timeline *mediatimeline.Timeline
	effects  ClipEffects
	cfg      engineconfig.Config

	queue *FrameQueue

	mu         sync.Mutex
	cancel     chan struct{}
	done       chan struct{}
	running    bool

	lastRequestedMs int64 // atomic

	warmupTimeout time.Duration
}

func NewPlaybackEngine(timeline *mediatimeline.Timeline, effects ClipEffects, cfg engineconfig.Config) *PlaybackEngine {
	return &PlaybackEngine{
		timeline:      timeline,
		effects:       effects,
		cfg:           cfg,
		queue:         NewFrameQueue(cfg.FrameQueueCapacity),
		warmupTimeout: time.Duration(cfg.WarmupTimeoutMs) * time.Millisecond,
	}
}

// Start resets and spawns the fill thread from startMs, then blocks up
// to warmupTimeout waiting for at least one queued frame so the caller
// can immediately pull a frame on return.
func (p *PlaybackEngine) Start(startMs int64) {
	p.Stop()

	p.mu.Lock()
	p.queue.Clear()
	atomic.StoreInt64(&p.lastRequestedMs, startMs)
	p.cancel = make(chan struct{})
	p.done = make(chan struct{})
	p.running = true
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	go p.fillLoop(startMs, cancel, done)

	deadline := time.Now().Add(p.warmupTimeout)
	for time.Now().Before(deadline) {
		if p.queue.Len() > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	log.Printf("[playback] warmup timed out after %s, queue still empty", p.warmupTimeout)
}

func (p *PlaybackEngine) Stop() {
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
	p.queue.Clear()
}

// TryGetFrame feeds the audio-master-clock pacing signal and returns the
// nearest buffered frame, never blocking on a decode.
func (p *PlaybackEngine) TryGetFrame(timestampMs int64) *videoframe.RenderedFrame {
	atomic.StoreInt64(&p.lastRequestedMs, timestampMs)
	return p.queue.PeekNearest(timestampMs, p.cfg.PeekToleranceMs)
}

func (p *PlaybackEngine) fillLoop(startMs int64, cancel, done chan struct{}) {
	defer close(done)

	cache := framecache.New(p.cfg.FrameCacheMaxEntries, p.cfg.FrameCacheMaxBytes)
	renderer := New(p.timeline, cache, p.effects, p.cfg)
	renderer.SetPlaybackMode(true)
	defer renderer.Close()

	frameStepMs := p.cfg.FrameIntervalMs
	fillPace := time.Duration(p.cfg.FillPaceSleepMs) * time.Millisecond

	nextMs := startMs

	for {
		select {
		case <-cancel:
			return
		default:
		}

		requested := atomic.LoadInt64(&p.lastRequestedMs)
		ahead := nextMs - requested
		if ahead > p.cfg.FillAheadBudgetMs {
			time.Sleep(fillPace)
			continue
		}

		frame, err := renderer.RenderFrame(nextMs)
		if err != nil {
			nextMs += frameStepMs
			continue
		}

		if isBlackFrameArtifact(frame) {
			retried := p.retryBlackFrame(renderer, nextMs)
			if retried != nil {
				p.queue.Push(retried)
				nextMs = retried.TimestampMs + frameStepMs
			} else {
				nextMs += p.cfg.BlackFrameSkipMs
			}
			continue
		}

		p.queue.Push(frame)
		nextMs += frameStepMs
	}
}

// isBlackFrameArtifact detects the keyframe-seek artifact where the
// first post-seek decode surfaces an empty alpha-0 frame.
func isBlackFrameArtifact(f *videoframe.RenderedFrame) bool {
	return len(f.Data) >= 4 && f.Data[3] == 0x00
}

// retryBlackFrame steps forward up to BlackFrameMaxRetries frames
// (BlackFrameRetryStepMs apart) looking for a clean (non-alpha-0) frame
// before giving up.
func (p *PlaybackEngine) retryBlackFrame(renderer *PreviewRenderer, fromMs int64) *videoframe.RenderedFrame {
	for i := int64(1); i <= int64(p.cfg.BlackFrameMaxRetries); i++ {
		retryMs := fromMs + i*p.cfg.BlackFrameRetryStepMs
		frame, err := renderer.RenderFrame(retryMs)
		if err != nil {
			continue
		}
		if !isBlackFrameArtifact(frame) {
			return frame
		}
	}
	return nil
}

func (p *PlaybackEngine) QueueLen() int { return p.queue.Len() }
