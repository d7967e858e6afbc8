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

import "sort"

// TransitionInfo describes two overlapping clips on the same video track.
type TransitionInfo struct {
	Outgoing   *VideoClip // started first
	Incoming   *VideoClip // started second
	Progress   float64    // 0.0 = outgoing only, 1.0 = incoming only
	Transition TransitionType
}

// VideoTrack is an ordered, non-overlapping-by-default sequence of clips;
// two overlapping clips form a transition.
type VideoTrack struct {
	ID      string
	Index   int // track order; 0 = bottom
	Enabled bool
	Muted   bool
	Clips   []*VideoClip
}

func NewVideoTrack(id string, index int) *VideoTrack {
	return &VideoTrack{ID: id, Index: index, Enabled: true}
}

// AddClip inserts a clip and keeps Clips sorted by start time.
func (t *VideoTrack) AddClip(c *VideoClip) {
	t.Clips = append(t.Clips, c)
	sort.Slice(t.Clips, func(i, j int) bool { return t.Clips[i].StartTimeMs < t.Clips[j].StartTimeMs })
}

func (t *VideoTrack) RemoveClip(id string) *VideoClip {
	for i, c := range t.Clips {
		if c.ID == id {
			t.Clips = append(t.Clips[:i], t.Clips[i+1:]...)
			return c
		}
	}
	return nil
}

// ClipAt returns the single active clip at time_ms, if any.
func (t *VideoTrack) ClipAt(timeMs int64) *VideoClip {
	if !t.Enabled || t.Muted {
		return nil
	}
	for _, c := range t.Clips {
		if c.ContainsTime(timeMs) {
			return c
		}
	}
	return nil
}

// TransitionAt returns transition info when two clips overlap at time_ms.
func (t *VideoTrack) TransitionAt(timeMs int64) *TransitionInfo {
	if !t.Enabled {
		return nil
	}
	var active []*VideoClip
	for _, c := range t.Clips {
		if c.ContainsTime(timeMs) {
			active = append(active, c)
			if len(active) == 2 {
				break
			}
		}
	}
	if len(active) < 2 {
		return nil
	}
	outgoing, incoming := active[0], active[1]
	overlapStart := incoming.StartTimeMs
	overlapEnd := outgoing.EndTimeMs()
	overlapDuration := overlapEnd - overlapStart
	if overlapDuration <= 0 {
		return nil
	}
	progress := float64(timeMs-overlapStart) / float64(overlapDuration)
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	tt := incoming.Transition
	if tt == TransitionNone {
		tt = TransitionCrossfade
	}
	return &TransitionInfo{
		Outgoing:   outgoing,
		Incoming:   incoming,
		Progress:   progress,
		Transition: tt,
	}
}

// AudioTrack holds audio clips; unlike video, many can sound concurrently.
type AudioTrack struct {
	ID      string
	Index   int
	Enabled bool
	Muted   bool
	Clips   []*AudioClip
}

func NewAudioTrack(id string, index int) *AudioTrack {
	return &AudioTrack{ID: id, Index: index, Enabled: true}
}

func (t *AudioTrack) AddClip(c *AudioClip) {
	t.Clips = append(t.Clips, c)
	sort.Slice(t.Clips, func(i, j int) bool { return t.Clips[i].StartTimeMs < t.Clips[j].StartTimeMs })
}

func (t *AudioTrack) RemoveClip(id string) *AudioClip {
	for i, c := range t.Clips {
		if c.ID == id {
			t.Clips = append(t.Clips[:i], t.Clips[i+1:]...)
			return c
		}
	}
	return nil
}

func (t *AudioTrack) ClipsAt(timeMs int64) []*AudioClip {
	if !t.Enabled || t.Muted {
		return nil
	}
	var out []*AudioClip
	for _, c := range t.Clips {
		if c.ContainsTime(timeMs) {
			out = append(out, c)
		}
	}
	return out
}
