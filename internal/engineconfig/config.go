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

// Package engineconfig holds the engine's tunable constants (forward
// thresholds, queue capacity, retry counts, warm-up caps) as a struct with
// defaults, loadable from YAML. It is not project/timeline persistence —
// the engine carries none of that — only performance knobs a deployment
// may want to override without a rebuild, saved with an atomic
// tmp-file-then-rename write.
package engineconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config collects every tunable constant the engine needs a concrete
// default for.
type Config struct {
	// Decoder
	MaxDecodeThreads       int   `yaml:"max_decode_threads"`
	ForwardThresholdScrubMs int64 `yaml:"forward_threshold_scrub_ms"`
	ForwardThresholdPlayMs  int64 `yaml:"forward_threshold_play_ms"`
	ForwardScanPacketCap    int   `yaml:"forward_scan_packet_cap"`
	ForwardScanPacketCapThumb int `yaml:"forward_scan_packet_cap_thumbnail"`

	// FrameCache
	FrameCacheMaxEntries int   `yaml:"frame_cache_max_entries"`
	FrameCacheMaxBytes   int64 `yaml:"frame_cache_max_bytes"`
	ExportCacheMaxEntries int  `yaml:"export_cache_max_entries"`

	// FrameQueue / PlaybackEngine
	FrameQueueCapacity     int   `yaml:"frame_queue_capacity"`
	PeekToleranceMs        int64 `yaml:"peek_tolerance_ms"`
	WarmupTimeoutMs        int64 `yaml:"warmup_timeout_ms"`
	FillAheadBudgetMs      int64 `yaml:"fill_ahead_budget_ms"`
	FillPaceSleepMs        int64 `yaml:"fill_pace_sleep_ms"`
	BlackFrameMaxRetries   int   `yaml:"black_frame_max_retries"`
	BlackFrameRetryStepMs  int64 `yaml:"black_frame_retry_step_ms"`
	BlackFrameSkipMs       int64 `yaml:"black_frame_skip_ms"`
	FrameIntervalMs        int64 `yaml:"frame_interval_ms"`
	AdaptiveSkipBudgetMs   int64 `yaml:"adaptive_skip_budget_ms"`

	// AudioRingBuffer / AudioPlayback
	AudioSampleRate      int `yaml:"audio_sample_rate"`
	AudioChannels        int `yaml:"audio_channels"`
	AudioDecodeChunkMs   float64 `yaml:"audio_decode_chunk_ms"`
	AudioPrefillChunks   int `yaml:"audio_prefill_chunks"`
	AudioPrefillWaitMs   int64 `yaml:"audio_prefill_wait_ms"`
	AudioFillRetryMs     int64 `yaml:"audio_fill_retry_ms"`

	// Export
	AACFrameSize   int `yaml:"aac_frame_size"`
	AACBitrate     int `yaml:"aac_bitrate"`
	DefaultABitrateKbps int `yaml:"default_audio_bitrate_kbps"`
}

// Default returns the engine's out-of-the-box tuning.
func Default() Config {
	return Config{
		MaxDecodeThreads:          4,
		ForwardThresholdScrubMs:   100,
		ForwardThresholdPlayMs:    5000,
		ForwardScanPacketCap:      3000,
		ForwardScanPacketCapThumb: 500,

		FrameCacheMaxEntries:  256,
		FrameCacheMaxBytes:    256 * 1024 * 1024,
		ExportCacheMaxEntries: 4,

		FrameQueueCapacity:    16,
		PeekToleranceMs:       50,
		WarmupTimeoutMs:       5000,
		FillAheadBudgetMs:     500,
		FillPaceSleepMs:       10,
		BlackFrameMaxRetries:  5,
		BlackFrameRetryStepMs: 33,
		BlackFrameSkipMs:      200,
		FrameIntervalMs:       33,
		AdaptiveSkipBudgetMs:  28,

		AudioSampleRate:    48000,
		AudioChannels:      2,
		AudioDecodeChunkMs: 100.0,
		AudioPrefillChunks: 3,
		AudioPrefillWaitMs: 500,
		AudioFillRetryMs:   5,

		AACFrameSize:        1024,
		AACBitrate:           192000,
		DefaultABitrateKbps: 192,
	}
}

// Load reads a YAML file and overlays it onto Default(), so a deployment
// may override only the knobs it cares about.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("engineconfig: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("engineconfig: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg atomically: encode to a tmp file, then rename over
// path, so a crash mid-write never leaves a truncated config behind.
func Save(path string, cfg Config) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(f)
	if err := enc.Encode(&cfg); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
