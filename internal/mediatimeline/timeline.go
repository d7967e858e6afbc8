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

// Package mediatimeline implements the Timeline data model consumed by the
// rest of the engine. It is the narrow interface the renderer, mixer and
// playback paths query by time; ownership and mutation live with the host,
// access is always mediated by the non-blocking Lock discipline below.
package mediatimeline

import "sync"

// Timeline is the shared, mutex-guarded project model. It is never owned
// by the engines built on top of it (PreviewRenderer, PlaybackEngine,
// AudioPlayback, Exporter) — only referenced and locked.
type Timeline struct {
	mu sync.Mutex

	Width  int
	Height int
	FPS    float64

	VideoTracks []*VideoTrack
	AudioTracks []*AudioTrack
}

func New(width, height int, fps float64) *Timeline {
	return &Timeline{Width: width, Height: height, FPS: fps}
}

// TryLock attempts a non-blocking acquire: every hot-path reader must fall
// back to a held frame or silence rather than block, to avoid priority
// inversion against real-time-adjacent threads.
func (tl *Timeline) TryLock() bool { return tl.mu.TryLock() }

// Lock blocks. Reserved for operations that must take effect immediately
// (mode changes, cache clears, playback start/stop).
func (tl *Timeline) Lock() { tl.mu.Lock() }

func (tl *Timeline) Unlock() { tl.mu.Unlock() }

func (tl *Timeline) AddVideoTrack(id string) *VideoTrack {
	track := NewVideoTrack(id, len(tl.VideoTracks))
	tl.VideoTracks = append(tl.VideoTracks, track)
	return track
}

func (tl *Timeline) AddAudioTrack(id string) *AudioTrack {
	track := NewAudioTrack(id, len(tl.AudioTracks))
	tl.AudioTracks = append(tl.AudioTracks, track)
	return track
}

// DurationMs is the max end-time across all clips on all tracks.
func (tl *Timeline) DurationMs() int64 {
	var maxEnd int64
	for _, tr := range tl.VideoTracks {
		for _, c := range tr.Clips {
			if e := c.EndTimeMs(); e > maxEnd {
				maxEnd = e
			}
		}
	}
	for _, tr := range tl.AudioTracks {
		for _, c := range tr.Clips {
			if e := c.EndTimeMs(); e > maxEnd {
				maxEnd = e
			}
		}
	}
	return maxEnd
}

// SetTrackMuted searches both video and audio tracks by id.
func (tl *Timeline) SetTrackMuted(trackID string, muted bool) bool {
	for _, tr := range tl.VideoTracks {
		if tr.ID == trackID {
			tr.Muted = muted
			return true
		}
	}
	for _, tr := range tl.AudioTracks {
		if tr.ID == trackID {
			tr.Muted = muted
			return true
		}
	}
	return false
}

// ActiveVideo walks tracks top-to-bottom (highest Index first) and returns
// the first enabled track carrying either a transition or a single clip at
// time_ms. Only one output layer is ever composited; deeper multi-track
// compositing is out of scope.
func (tl *Timeline) ActiveVideo(timeMs int64) (transition *TransitionInfo, clip *VideoClip) {
	ordered := make([]*VideoTrack, len(tl.VideoTracks))
	copy(ordered, tl.VideoTracks)
	for i := range ordered {
		for j := i + 1; j < len(ordered); j++ {
			if ordered[j].Index > ordered[i].Index {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}
	for _, tr := range ordered {
		if !tr.Enabled {
			continue
		}
		if ti := tr.TransitionAt(timeMs); ti != nil {
			return ti, nil
		}
		if c := tr.ClipAt(timeMs); c != nil {
			return nil, c
		}
	}
	return nil, nil
}

// AudioClipsAt returns audio clips active at time_ms from audio tracks only.
func (tl *Timeline) AudioClipsAt(timeMs int64) []*AudioClip {
	var out []*AudioClip
	for _, tr := range tl.AudioTracks {
		out = append(out, tr.ClipsAt(timeMs)...)
	}
	return out
}

// AllAudioSourcesAt returns audio clips from audio tracks plus pseudo-audio
// clips synthesized from video tracks, so a video file's embedded audio
// mixes in too.
func (tl *Timeline) AllAudioSourcesAt(timeMs int64) []*AudioClip {
	sources := append([]*AudioClip{}, tl.AudioClipsAt(timeMs)...)
	for _, tr := range tl.VideoTracks {
		if !tr.Enabled || tr.Muted {
			continue
		}
		for _, c := range tr.Clips {
			if !c.ContainsTime(timeMs) {
				continue
			}
			sources = append(sources, &AudioClip{
				ID:          c.ID,
				SourcePath:  c.SourcePath,
				StartTimeMs: c.StartTimeMs,
				DurationMs:  c.DurationMs,
				TrimStartMs: c.TrimStartMs,
				TrimEndMs:   c.TrimEndMs,
				Speed:       c.Speed,
				Volume:      c.Volume,
			})
		}
	}
	return sources
}
