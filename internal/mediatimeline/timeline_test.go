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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClipSourceTimeRoundTrip(t *testing.T) {
	c, err := NewVideoClip("c1", "a.mp4", 1000, 4000)
	require.NoError(t, err)
	c.TrimStartMs = 500
	c.Speed = 2.0

	for tm := c.StartTimeMs; tm < c.EndTimeMs(); tm += 250 {
		want := c.TrimStartMs + int64(float64(tm-c.StartTimeMs)*c.Speed)
		require.Equal(t, want, c.SourceTimeMs(tm))
	}
}

func TestNewClipRejectsZeroDuration(t *testing.T) {
	_, err := NewVideoClip("c1", "a.mp4", 0, 0)
	require.Error(t, err)
}

func TestTimelineDuration(t *testing.T) {
	tl := New(1920, 1080, 30)
	vt := tl.AddVideoTrack("v1")
	at := tl.AddAudioTrack("a1")

	c1, _ := NewVideoClip("c1", "v1.mp4", 0, 5000)
	c2, _ := NewVideoClip("c2", "v2.mp4", 5000, 3000)
	vt.AddClip(c1)
	vt.AddClip(c2)

	a1, _ := NewAudioClip("a1", "a1.mp3", 0, 10000)
	at.AddClip(a1)

	require.Equal(t, int64(10000), tl.DurationMs())
}

func TestActiveVideoPicksTopmostTrack(t *testing.T) {
	tl := New(1920, 1080, 30)
	bottom := tl.AddVideoTrack("bottom")
	top := tl.AddVideoTrack("top")

	cb, _ := NewVideoClip("b", "bottom.mp4", 0, 5000)
	ct, _ := NewVideoClip("t", "top.mp4", 0, 5000)
	bottom.AddClip(cb)
	top.AddClip(ct)

	transition, clip := tl.ActiveVideo(2000)
	require.Nil(t, transition)
	require.NotNil(t, clip)
	require.Equal(t, "t", clip.ID)
}

func TestTransitionAtOverlap(t *testing.T) {
	tl := New(1920, 1080, 30)
	vt := tl.AddVideoTrack("v1")

	out, _ := NewVideoClip("out", "a.mp4", 0, 6000)
	in, _ := NewVideoClip("in", "b.mp4", 4000, 4000)
	in.Transition = TransitionCrossfade
	vt.AddClip(out)
	vt.AddClip(in)

	ti := vt.TransitionAt(5000)
	require.NotNil(t, ti)
	require.Equal(t, "out", ti.Outgoing.ID)
	require.Equal(t, "in", ti.Incoming.ID)
	require.InDelta(t, 0.5, ti.Progress, 1e-9)
	require.Equal(t, TransitionCrossfade, ti.Transition)
}

func TestAllAudioSourcesIncludesVideoEmbeddedAudio(t *testing.T) {
	tl := New(1920, 1080, 30)
	vt := tl.AddVideoTrack("v1")
	c, _ := NewVideoClip("c1", "a.mp4", 0, 5000)
	c.Volume = 0.8
	vt.AddClip(c)

	sources := tl.AllAudioSourcesAt(1000)
	require.Len(t, sources, 1)
	require.Equal(t, "c1", sources[0].ID)
	require.Equal(t, 0.8, sources[0].Volume)
}
