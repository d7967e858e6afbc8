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

package mediatimeline

import "fmt"

// TransitionType tags how a clip blends with the one it overlaps on the
// same track. None is treated as Crossfade once two clips actually overlap
// (see VideoTrack.TransitionAt).
type TransitionType int

const (
	TransitionNone TransitionType = iota
	TransitionCrossfade
	TransitionFadeBlack
	TransitionWipeLeft
	TransitionWipeRight
	TransitionWipeUp
	TransitionWipeDown
)

func (t TransitionType) String() string {
	switch t {
	case TransitionNone:
		return "none"
	case TransitionCrossfade:
		return "crossfade"
	case TransitionFadeBlack:
		return "fade_black"
	case TransitionWipeLeft:
		return "wipe_left"
	case TransitionWipeRight:
		return "wipe_right"
	case TransitionWipeUp:
		return "wipe_up"
	case TransitionWipeDown:
		return "wipe_down"
	default:
		return "unknown"
	}
}

// VideoClip is a time-placed reference into a video file.
type VideoClip struct {
	ID          string
	SourcePath  string
	ProxyPath   string // optional low-resolution preview encode
	StartTimeMs int64
	DurationMs  int64
	TrimStartMs int64
	TrimEndMs   int64
	Speed       float64 // 0.25..4.0
	Volume      float64 // embedded audio volume
	Transition  TransitionType
}

// NewVideoClip validates and constructs a clip. DurationMs must be > 0.
func NewVideoClip(id, sourcePath string, startMs, durationMs int64) (*VideoClip, error) {
	if durationMs <= 0 {
		return nil, fmt.Errorf("mediatimeline: clip %q duration_ms must be > 0, got %d", id, durationMs)
	}
	return &VideoClip{
		ID:          id,
		SourcePath:  sourcePath,
		StartTimeMs: startMs,
		DurationMs:  durationMs,
		TrimEndMs:   durationMs,
		Speed:       1.0,
		Volume:      1.0,
	}, nil
}

// EndTimeMs is the exclusive end of the clip's placement range.
func (c *VideoClip) EndTimeMs() int64 { return c.StartTimeMs + c.DurationMs }

// ContainsTime reports whether t falls in [start, start+duration).
func (c *VideoClip) ContainsTime(t int64) bool {
	return t >= c.StartTimeMs && t < c.EndTimeMs()
}

// SourceTimeMs maps a timeline timestamp to the coordinate inside the
// source media file: trim_start + (t - start) * speed.
func (c *VideoClip) SourceTimeMs(timelineMs int64) int64 {
	offset := float64(timelineMs-c.StartTimeMs) * c.Speed
	return c.TrimStartMs + int64(offset)
}

// DecodeSourcePath picks the proxy when requested and present.
func (c *VideoClip) DecodeSourcePath(preferProxy bool) string {
	if preferProxy && c.ProxyPath != "" {
		return c.ProxyPath
	}
	return c.SourcePath
}

// AudioClip carries the same placement/trim/volume/speed as VideoClip plus
// fade in/out windows.
type AudioClip struct {
	ID          string
	SourcePath  string
	StartTimeMs int64
	DurationMs  int64
	TrimStartMs int64
	TrimEndMs   int64
	Speed       float64
	Volume      float64
	FadeInMs    int64
	FadeOutMs   int64
}

func NewAudioClip(id, sourcePath string, startMs, durationMs int64) (*AudioClip, error) {
	if durationMs <= 0 {
		return nil, fmt.Errorf("mediatimeline: clip %q duration_ms must be > 0, got %d", id, durationMs)
	}
	return &AudioClip{
		ID:          id,
		SourcePath:  sourcePath,
		StartTimeMs: startMs,
		DurationMs:  durationMs,
		TrimEndMs:   durationMs,
		Speed:       1.0,
		Volume:      1.0,
	}, nil
}

func (c *AudioClip) EndTimeMs() int64 { return c.StartTimeMs + c.DurationMs }

func (c *AudioClip) ContainsTime(t int64) bool {
	return t >= c.StartTimeMs && t < c.EndTimeMs()
}

func (c *AudioClip) SourceTimeMs(timelineMs int64) int64 {
	offset := float64(timelineMs-c.StartTimeMs) * c.Speed
	return c.TrimStartMs + int64(offset)
}

// FadeGain returns the 1.0-clamped linear fade multiplier in effect at t.
func (c *AudioClip) FadeGain(t int64) float64 {
	gain := 1.0
	if c.FadeInMs > 0 {
		sinceStart := t - c.StartTimeMs
		if sinceStart < c.FadeInMs {
			g := float64(sinceStart) / float64(c.FadeInMs)
			if g < 0 {
				g = 0
			}
			if g < gain {
				gain = g
			}
		}
	}
	if c.FadeOutMs > 0 {
		untilEnd := c.EndTimeMs() - t
		if untilEnd < c.FadeOutMs {
			g := float64(untilEnd) / float64(c.FadeOutMs)
			if g < 0 {
				g = 0
			}
			if g < gain {
				gain = g
			}
		}
	}
	return gain
}
