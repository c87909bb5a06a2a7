// SPDX-License-Identifier: MIT
package dsp

import (
	"github.com/cwbudde/algo-dsp/dsp/core"

	"timegrapher/internal/config"
)

// AGC tracks signal dynamics and adapts detection sensitivity without
// manual retuning. It maintains three estimates, each updated once per
// block:
//
//   - gain: steers the raw block peak toward TargetPeak. Attack (gain
//     reduction on a loud transient) is fast, recovery (gain increase
//     toward a quiet signal) is slow, so one loud click cannot
//     desensitize the rest of the session and the gain does not hunt
//     between beats.
//   - noiseFloor: slow decay toward the block's minimum envelope value.
//   - peak: tracks recent envelope maxima with a fast rise and a slow
//     release.
//
// The effective detection threshold places the user's 0..1 setting
// across the noiseFloor→peak span.
type AGC struct {
	cfg     config.AGCConfig
	setting float64 // user threshold setting, 0..1

	gain       float64
	noiseFloor float64
	peak       float64
}

// NewAGC creates a controller with gain pinned inside [GainMin, GainMax].
func NewAGC(cfg config.AGCConfig, thresholdSetting float64) *AGC {
	return &AGC{
		cfg:     cfg,
		setting: thresholdSetting,
		gain:    core.Clamp(1, cfg.GainMin, cfg.GainMax),
	}
}

// Observe updates all estimates from one block. rawPeak is the absolute
// peak of the pre-gain block; envMin and envMax are the extrema of the
// post-envelope block.
func (a *AGC) Observe(rawPeak, envMin, envMax float64) {
	if rawPeak > 0 {
		instant := a.cfg.TargetPeak / rawPeak
		coeff := a.cfg.Recovery
		if instant < a.gain {
			coeff = a.cfg.Attack
		}
		a.gain += coeff * (instant - a.gain)
		a.gain = core.Clamp(a.gain, a.cfg.GainMin, a.cfg.GainMax)
	}

	a.noiseFloor += a.cfg.FloorDecay * (envMin - a.noiseFloor)

	if envMax > a.peak {
		a.peak = envMax
	} else {
		a.peak += a.cfg.PeakDecay * (envMax - a.peak)
	}
}

// Gain returns the current input gain. Always within configured bounds.
func (a *AGC) Gain() float64 {
	return a.gain
}

// Threshold returns the effective detection threshold for the current
// signal dynamics. Before the floor estimate has converged (span not
// yet positive) the setting scales the peak directly.
func (a *AGC) Threshold() float64 {
	span := a.peak - a.noiseFloor
	if span <= 0 {
		return a.setting * a.peak
	}
	return a.noiseFloor + a.setting*span
}

// SetThresholdSetting updates the user's 0..1 sensitivity setting,
// clamped to the valid range.
func (a *AGC) SetThresholdSetting(setting float64) {
	a.setting = core.Clamp(setting, config.MinThreshold, config.MaxThreshold)
}

// NoiseFloor returns the current noise floor estimate.
func (a *AGC) NoiseFloor() float64 {
	return a.noiseFloor
}

// Peak returns the current peak estimate.
func (a *AGC) Peak() float64 {
	return a.peak
}
