// SPDX-License-Identifier: MIT
package synth

import (
	"math"
	"testing"
)

// countBursts walks the signal looking for onsets above half the burst
// amplitude, skipping a refractory window after each.
func countBursts(samples []int32, sampleRate float64) int {
	frac := 0.1
	threshold := int32(frac * math.MaxInt32)
	refractory := int(0.05 * sampleRate)
	count := 0
	for i := 0; i < len(samples); i++ {
		v := samples[i]
		if v < 0 {
			v = -v
		}
		if v > threshold {
			count++
			i += refractory
		}
	}
	return count
}

func TestEscapementBurstSpacing(t *testing.T) {
	sig := Escapement{SampleRate: 44100, BPH: 18000}
	samples := sig.Generate(10)

	// 18000 bph is 5 beats per second.
	got := countBursts(samples, 44100)
	if got < 48 || got > 52 {
		t.Errorf("burst count = %d over 10s at 18000 bph, want ~50", got)
	}
}

func TestEscapementAmplitudeBounded(t *testing.T) {
	sig := Escapement{SampleRate: 44100, BPH: 28800, Noise: 0.5, Amplitude: 0.9, Seed: 1}
	for i, v := range sig.Generate(2) {
		if v == math.MinInt32 {
			t.Fatalf("sample %d overflowed", i)
		}
	}
}

func TestBlocksInterleaving(t *testing.T) {
	samples := []int32{1, 2, 3, 4, 5}
	blocks := Blocks(samples, 2, 2)

	if len(blocks) != 2 {
		t.Fatalf("len(blocks) = %d, want 2 (trailing partial dropped)", len(blocks))
	}
	want := [][]int32{{1, 1, 2, 2}, {3, 3, 4, 4}}
	for i, b := range blocks {
		if len(b) != len(want[i]) {
			t.Fatalf("block %d length = %d, want %d", i, len(b), len(want[i]))
		}
		for j, v := range b {
			if v != want[i][j] {
				t.Errorf("block %d sample %d = %d, want %d", i, j, v, want[i][j])
			}
		}
	}
}
