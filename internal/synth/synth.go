// SPDX-License-Identifier: MIT

// Package synth generates escapement-like test signals: short decaying
// tone bursts spaced at a mechanical watch's beat interval, with
// controllable rate deviation, beat error and noise.
package synth

import (
	"math"
	"math/rand"
)

// Escapement describes a synthetic watch signal. Zero-valued optional
// fields pick sensible defaults in Generate.
type Escapement struct {
	SampleRate    float64
	BPH           int
	RateDeviation float64 // fractional beat stretch; positive runs slow
	BeatErrorMs   float64 // tick/tock half-period asymmetry
	BurstFreq     float64 // burst carrier, default 5000 Hz
	BurstDecayMs  float64 // burst decay time constant, default 2 ms
	Amplitude     float64 // burst peak as fraction of full scale, default 0.25
	Noise         float64 // uniform background noise amplitude
	Jitter        float64 // per-beat timing jitter stddev in seconds
	Seed          int64
}

// Generate renders the signal as mono int32 samples covering the given
// duration in seconds.
func (e Escapement) Generate(duration float64) []int32 {
	burstFreq := e.BurstFreq
	if burstFreq == 0 {
		burstFreq = 5000
	}
	decay := e.BurstDecayMs
	if decay == 0 {
		decay = 2
	}
	amp := e.Amplitude
	if amp == 0 {
		amp = 0.25
	}

	n := int(duration * e.SampleRate)
	out := make([]float64, n)
	rng := rand.New(rand.NewSource(e.Seed))

	if e.Noise > 0 {
		for i := range out {
			out[i] = (rng.Float64()*2 - 1) * e.Noise
		}
	}

	beat := 3600.0 / float64(e.BPH) * (1 + e.RateDeviation)
	// The shift lands on every second burst only, so the two
	// half-periods differ by exactly BeatErrorMs.
	shift := e.BeatErrorMs / 2000.0

	tau := decay / 1000.0
	burstLen := int(8 * tau * e.SampleRate)

	for k := 0; ; k++ {
		t := float64(k) * beat
		if k%2 == 1 {
			t += shift
		}
		if e.Jitter > 0 {
			t += rng.NormFloat64() * e.Jitter
		}
		start := int(t * e.SampleRate)
		if start >= n {
			break
		}
		for i := 0; i < burstLen && start+i < n; i++ {
			bt := float64(i) / e.SampleRate
			out[start+i] += amp * math.Exp(-bt/tau) * math.Sin(2*math.Pi*burstFreq*bt)
		}
	}

	samples := make([]int32, n)
	for i, v := range out {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		samples[i] = int32(v * math.MaxInt32 * 0.999)
	}
	return samples
}

// Blocks splits mono samples into fixed-size blocks, replicating each
// sample across the requested channel count the way an interleaved
// capture stream would arrive. The trailing partial block is dropped.
func Blocks(samples []int32, frames, channels int) [][]int32 {
	var blocks [][]int32
	for off := 0; off+frames <= len(samples); off += frames {
		block := make([]int32, frames*channels)
		for i := 0; i < frames; i++ {
			for c := 0; c < channels; c++ {
				block[i*channels+c] = samples[off+i]
			}
		}
		blocks = append(blocks, block)
	}
	return blocks
}
