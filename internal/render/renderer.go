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

// Package render implements frame composition: a PreviewRenderer that
// walks the Timeline to produce one composited RGBA/YUV420P frame per
// call, transition blending and color effects on top of it, a bounded
// FrameQueue for playback prefetch, and a PlaybackEngine driving that
// queue from a background fill thread.
package render

import (
	"fmt"
	"time"

	"github.com/vortexcut/engine/internal/decode"
	"github.com/vortexcut/engine/internal/engineconfig"
	"github.com/vortexcut/engine/internal/framecache"
	"github.com/vortexcut/engine/internal/mediatimeline"
	"github.com/vortexcut/engine/internal/videoframe"
)

// ClipEffects resolves the color effects configured for a clip ID. The
// renderer doesn't own clip metadata beyond what Timeline exposes, so
// this is supplied by the host.
type ClipEffects func(clipID string) ColorEffects

// PreviewRenderer renders one composited frame per call against a shared
// Timeline, decoding and caching per-source frames as needed.
type PreviewRenderer struct {
	timeline *mediatimeline.Timeline
	cache    *framecache.Cache
	effects  ClipEffects
	cfg      engineconfig.Config

	decoders map[string]*decode.StatefulDecoder

	exportMode   bool
	playbackMode bool

	lastRendered *videoframe.RenderedFrame
	lastRenderMs time.Duration

	adaptiveSkipBudget time.Duration
}

// New constructs a preview-mode renderer (RGBA output, proxy-preferring),
// tuned by cfg.
func New(timeline *mediatimeline.Timeline, cache *framecache.Cache, effects ClipEffects, cfg engineconfig.Config) *PreviewRenderer {
	if effects == nil {
		effects = func(string) ColorEffects { return ColorEffects{} }
	}
	return &PreviewRenderer{
		timeline:           timeline,
		cache:              cache,
		effects:            effects,
		cfg:                cfg,
		decoders:           make(map[string]*decode.StatefulDecoder),
		adaptiveSkipBudget: time.Duration(cfg.AdaptiveSkipBudgetMs) * time.Millisecond,
	}
}

// SetExportMode switches output to YUV420P and always decodes the
// original source (never a proxy).
func (r *PreviewRenderer) SetExportMode(on bool) { r.exportMode = on }

// SetPlaybackMode toggles every live decoder's forward threshold between
// the tight scrub window and the generous sequential-playback window, and
// drops any decoder left in an Error state so playback gets a clean retry
// rather than inheriting a stuck decoder.
func (r *PreviewRenderer) SetPlaybackMode(on bool) {
	r.playbackMode = on
	threshold := r.cfg.ForwardThresholdScrubMs
	if on {
		threshold = r.cfg.ForwardThresholdPlayMs
	}
	for path, d := range r.decoders {
		if on && d.State() == decode.StateError {
			d.Close()
			delete(r.decoders, path)
			continue
		}
		d.SetForwardThreshold(threshold)
	}
}

func (r *PreviewRenderer) outputFormat() videoframe.PixelFormat {
	if r.exportMode {
		return videoframe.YUV420P
	}
	return videoframe.RGBA
}

// RenderFrame composites one frame at timelineMs: adaptive skip under load,
// a non-blocking timeline read with graceful fallback, then dispatch to a
// transition blend, a single clip render, or black.
func (r *PreviewRenderer) RenderFrame(timelineMs int64) (*videoframe.RenderedFrame, error) {
	if !r.exportMode && r.playbackMode && r.lastRenderMs > r.adaptiveSkipBudget {
		if r.lastRendered != nil {
			// skip for this tick only; the next call renders again
			r.lastRenderMs = 0
			return r.lastRendered, nil
		}
	}

	start := time.Now()

	if !r.timeline.TryLock() {
		if r.lastRendered != nil {
			return r.lastRendered, nil
		}
		return r.blackFrame(), nil
	}
	transition, clip := r.timeline.ActiveVideo(timelineMs)
	width, height := r.timeline.Width, r.timeline.Height
	r.timeline.Unlock()

	var out *videoframe.RenderedFrame
	var err error

	switch {
	case transition != nil:
		out, err = r.renderTransition(transition, timelineMs, width, height)
	case clip != nil:
		out, err = r.renderClip(clip, timelineMs)
	default:
		out = videoframe.Black(width, height, r.exportMode)
	}

	r.lastRenderMs = time.Since(start)
	if err == nil && out != nil {
		out.TimestampMs = timelineMs
		r.lastRendered = out
	}
	return out, err
}

func (r *PreviewRenderer) blackFrame() *videoframe.RenderedFrame {
	return videoframe.Black(r.timeline.Width, r.timeline.Height, r.exportMode)
}

func (r *PreviewRenderer) renderTransition(ti *mediatimeline.TransitionInfo, timelineMs int64, width, height int) (*videoframe.RenderedFrame, error) {
	outgoing, err := r.renderClip(ti.Outgoing, timelineMs)
	if err != nil {
		return nil, err
	}
	incoming, err := r.renderClip(ti.Incoming, timelineMs)
	if err != nil {
		return nil, err
	}

	blended := outgoing.Clone()
	ApplyTransition(blended.Data, incoming.Data, width, height, ti.Progress, ti.Transition)

	if r.exportMode && !blended.IsYUV {
		return toYUV420P(blended), nil
	}
	return blended, nil
}

// renderClip implements the single-clip path: source selection, time
// mapping, cache lookup, decode, color effects, and "last rendered"
// bookkeeping.
func (r *PreviewRenderer) renderClip(clip *mediatimeline.VideoClip, timelineMs int64) (*videoframe.RenderedFrame, error) {
	preferProxy := !r.exportMode
	sourcePath := clip.DecodeSourcePath(preferProxy)
	sourceMs := clip.SourceTimeMs(timelineMs)

	key := framecache.Key{Path: sourcePath, SourceMs: sourceMs}
	if frame, ok := r.cache.Get(key); ok {
		frame.TimestampMs = timelineMs
		return frame, nil
	}

	dec, err := r.decoderFor(sourcePath)
	if err != nil {
		if r.lastRendered != nil {
			return r.lastRendered, nil
		}
		return r.blackFrame(), nil
	}

	outcome, err := dec.DecodeFrame(sourceMs)
	if err != nil {
		// one recreate-and-retry before giving up on this source
		delete(r.decoders, sourcePath)
		dec2, openErr := r.decoderFor(sourcePath)
		if openErr != nil {
			return r.fallbackFrame(), nil
		}
		outcome, err = dec2.DecodeFrame(sourceMs)
		if err != nil {
			return r.fallbackFrame(), nil
		}
	}

	switch outcome.Kind {
	case decode.OutcomeFrame, decode.OutcomeEndOfStream:
		rendered := &videoframe.RenderedFrame{Frame: *outcome.Frame, IsYUV: outcome.Frame.Format == videoframe.YUV420P}
		if !rendered.IsYUV {
			fx := r.effects(clip.ID)
			if !fx.IsDefault() {
				ApplyColorEffects(rendered.Data, fx)
			}
		}
		if !r.playbackMode {
			r.cache.Put(key, rendered.Clone())
		}
		rendered.TimestampMs = timelineMs
		return rendered, nil
	default: // Skipped, EndOfStreamEmpty
		return r.fallbackFrame(), nil
	}
}

func (r *PreviewRenderer) fallbackFrame() *videoframe.RenderedFrame {
	if r.lastRendered != nil {
		return r.lastRendered
	}
	return r.blackFrame()
}

func (r *PreviewRenderer) decoderFor(path string) (*decode.StatefulDecoder, error) {
	if d, ok := r.decoders[path]; ok {
		return d, nil
	}
	threshold := r.cfg.ForwardThresholdScrubMs
	if r.playbackMode {
		threshold = r.cfg.ForwardThresholdPlayMs
	}
	targetW, targetH := r.timeline.Width, r.timeline.Height
	d, err := decode.Open(path, targetW, targetH, r.outputFormat(), r.cfg.MaxDecodeThreads, r.cfg)
	if err != nil {
		return nil, fmt.Errorf("render: open %s: %w", path, err)
	}
	d.SetForwardThreshold(threshold)
	r.decoders[path] = d
	return d, nil
}

func toYUV420P(f *videoframe.RenderedFrame) *videoframe.RenderedFrame {
	// The decoder already emits export-mode frames directly in YUV420P;
	// a blended transition frame composited in RGBA needs conversion
	// before muxing. Plain BT.601 full-range forward transform, matching
	// the decode package's scaler target format rather than adding a
	// second swscale dependency for a single in-memory conversion.
	w, h := f.Width, f.Height
	ySize := w * h
	cw, ch := (w+1)/2, (h+1)/2
	out := make([]byte, ySize+2*cw*ch)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			r, g, b := float64(f.Data[i]), float64(f.Data[i+1]), float64(f.Data[i+2])
			yy := 0.299*r + 0.587*g + 0.114*b
			out[y*w+x] = clamp8(yy)
		}
	}
	for cy := 0; cy < ch; cy++ {
		for cx := 0; cx < cw; cx++ {
			x, y := cx*2, cy*2
			if x >= w {
				x = w - 1
			}
			if y >= h {
				y = h - 1
			}
			i := (y*w + x) * 4
			r, g, b := float64(f.Data[i]), float64(f.Data[i+1]), float64(f.Data[i+2])
			u := -0.168736*r - 0.331264*g + 0.5*b + 128
			v := 0.5*r - 0.418688*g - 0.081312*b + 128
			out[ySize+cy*cw+cx] = clamp8(u)
			out[ySize+cw*ch+cy*cw+cx] = clamp8(v)
		}
	}

	return &videoframe.RenderedFrame{
		Frame: videoframe.Frame{Width: w, Height: h, Format: videoframe.YUV420P, Data: out, TimestampMs: f.TimestampMs},
		IsYUV: true,
	}
}

// Close releases every live decoder.
func (r *PreviewRenderer) Close() {
	for path, d := range r.decoders {
		d.Close()
		delete(r.decoders, path)
	}
}
