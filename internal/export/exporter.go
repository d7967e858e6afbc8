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
	"sync"
	"sync/atomic"

	astiav "github.com/asticode/go-astiav"

	"github.com/vortexcut/engine/internal/audiomix"
	"github.com/vortexcut/engine/internal/engineconfig"
	"github.com/vortexcut/engine/internal/framecache"
	"github.com/vortexcut/engine/internal/mediatimeline"
	"github.com/vortexcut/engine/internal/render"
)

// Config describes one export run's target format.
type Config struct {
	OutputPath string
	Width      int
	Height     int
	FPS        float64
	Quality    Quality
}

// Job tracks a running (or finished) export: progress, cancellation and
// the final error, all safe to read from another goroutine.
type Job struct {
	progress  int32 // atomic, 0..100
	cancelled int32 // atomic bool
	finished  int32 // atomic bool

	mu       sync.Mutex
	finalErr error
}

func (j *Job) Progress() int { return int(atomic.LoadInt32(&j.progress)) }
func (j *Job) Cancel()       { atomic.StoreInt32(&j.cancelled, 1) }
func (j *Job) IsCancelled() bool { return atomic.LoadInt32(&j.cancelled) != 0 }
func (j *Job) Finished() bool    { return atomic.LoadInt32(&j.finished) != 0 }

func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finalErr
}

func (j *Job) setErr(err error) {
	j.mu.Lock()
	j.finalErr = err
	j.mu.Unlock()
}

// Start runs cfg against timeline on a dedicated goroutine and returns
// immediately with a handle the caller polls for progress/completion.
// tuning supplies the engine-wide knobs (cache sizing, AAC frame size,
// decode thresholds) this run's renderer and encoders are built from.
func Start(timeline *mediatimeline.Timeline, cfg Config, tuning engineconfig.Config) *Job {
	job := &Job{}
	go func() {
		err := run(timeline, cfg, tuning, job)
		job.setErr(err)
		atomic.StoreInt32(&job.finished, 1)
	}()
	return job
}

func run(timeline *mediatimeline.Timeline, cfg Config, tuning engineconfig.Config, job *Job) error {
	timeline.Lock()
	durationMs := timeline.DurationMs()
	timeline.Unlock()
	if durationMs <= 0 {
		return errors.New("export: timeline duration is zero")
	}

	cache := framecache.New(tuning.ExportCacheMaxEntries, tuning.FrameCacheMaxBytes)
	renderer := render.New(timeline, cache, nil, tuning)
	renderer.SetExportMode(true)
	defer renderer.Close()

	mixer := audiomix.New()
	defer mixer.Close()

	oc, err := astiav.AllocOutputFormatContext(nil, "mp4", cfg.OutputPath)
	if err != nil || oc == nil {
		return fmt.Errorf("export: AllocOutputFormatContext: %w", err)
	}
	defer oc.Free()

	videoEnc, err := NewVideoEncoder(oc, cfg.Width, cfg.Height, cfg.FPS, cfg.Quality)
	if err != nil {
		return err
	}
	defer videoEnc.Close()

	audioEnc, err := NewAudioEncoder(oc, tuning)
	if err != nil {
		return err
	}
	defer audioEnc.Close()

	ioFlags := astiav.NewIOContextFlags(astiav.IOContextFlagWrite)
	pb, err := astiav.OpenIOContext(cfg.OutputPath, ioFlags, nil, nil)
	if err != nil {
		return fmt.Errorf("export: OpenIOContext: %w", err)
	}
	oc.SetPb(pb)
	defer func() {
		_ = pb.Close()
		pb.Free()
	}()

	if err := oc.WriteHeader(nil); err != nil {
		return fmt.Errorf("export: WriteHeader: %w", err)
	}

	emit := func(pkt *astiav.Packet) error {
		return oc.WriteInterleavedFrame(pkt)
	}

	frameIntervalMs := 1000.0 / cfg.FPS
	totalFrames := int64(float64(durationMs) / frameIntervalMs)

	for i := int64(0); float64(i)*frameIntervalMs < float64(durationMs); i++ {
		if job.IsCancelled() {
			break
		}

		timelineMs := int64(float64(i) * frameIntervalMs)

		rendered, err := renderer.RenderFrame(timelineMs)
		if err != nil {
			return fmt.Errorf("export: render frame %d: %w", i, err)
		}

		yuv := astiav.AllocFrame()
		yuv.SetWidth(cfg.Width)
		yuv.SetHeight(cfg.Height)
		yuv.SetPixelFormat(astiav.PixelFormatYuv420P)
		if err := yuv.AllocBuffer(1); err != nil {
			yuv.Free()
			return fmt.Errorf("export: yuv AllocBuffer: %w", err)
		}
		if _, err := yuv.ImageCopyFromBuffer(rendered.Data, 1); err != nil {
			yuv.Free()
			return fmt.Errorf("export: yuv ImageCopyFromBuffer: %w", err)
		}

		if err := videoEnc.EncodeFrame(yuv, emit); err != nil {
			yuv.Free()
			return err
		}
		yuv.Free()

		timeline.Lock()
		clips := timeline.AllAudioSourcesAt(timelineMs)
		timeline.Unlock()
		samples := mixer.MixRange(clips, timelineMs, frameIntervalMs)
		if err := audioEnc.Append(samples, emit); err != nil {
			return err
		}

		progress := int32(0)
		if totalFrames > 0 {
			progress = int32(float64(i) / float64(totalFrames) * 100.0)
		}
		if progress > 99 {
			progress = 99
		}
		atomic.StoreInt32(&job.progress, progress)
	}

	if err := videoEnc.Finish(emit); err != nil {
		return err
	}
	if err := audioEnc.Finish(emit); err != nil {
		return err
	}
	if err := oc.WriteTrailer(); err != nil {
		return fmt.Errorf("export: WriteTrailer: %w", err)
	}

	atomic.StoreInt32(&job.progress, 100)
	return nil
}
