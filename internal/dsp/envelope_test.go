// SPDX-License-Identifier: MIT
package dsp

import (
	"math"
	"testing"
)

func TestEnvelopeIsNonNegative(t *testing.T) {
	e := NewEnvelope(5, testSampleRate)
	block := sineBlock(5000, 2048)
	e.Process(block)

	for i, x := range block {
		if x < 0 {
			t.Fatalf("envelope sample %d = %g, want >= 0", i, x)
		}
	}
}

func TestEnvelopeRiseAndDecay(t *testing.T) {
	e := NewEnvelope(5, testSampleRate)

	// Step input: envelope must approach 1 within a few time constants.
	step := make([]float64, 2048) // ~46 ms at 44.1 kHz, tau is 5 ms
	for i := range step {
		step[i] = 1
	}
	e.Process(step)
	if got := step[len(step)-1]; got < 0.99 {
		t.Errorf("envelope after 9 time constants = %.3f, want > 0.99", got)
	}

	// Silence: envelope must decay well below any usable threshold
	// before an 80 ms lockout expires.
	silence := make([]float64, int(0.08*testSampleRate))
	e.Process(silence)
	if got := silence[len(silence)-1]; got > 0.01 {
		t.Errorf("envelope after 80 ms of silence = %.4f, want < 0.01", got)
	}
}

func TestEnvelopeTracksRectifiedSignal(t *testing.T) {
	e := NewEnvelope(5, testSampleRate)
	block := sineBlock(5000, 4096)
	e.Process(block)

	// A full-scale 5 kHz sine has mean |x| = 2/pi ≈ 0.637. The settled
	// envelope should sit near that.
	settled := block[len(block)/2:]
	var mean float64
	for _, x := range settled {
		mean += x
	}
	mean /= float64(len(settled))

	if math.Abs(mean-2/math.Pi) > 0.05 {
		t.Errorf("settled envelope mean = %.3f, want ≈ %.3f", mean, 2/math.Pi)
	}
}

func TestEnvelopeReset(t *testing.T) {
	e := NewEnvelope(5, testSampleRate)
	block := sineBlock(5000, 512)
	e.Process(block)
	e.Reset()

	silence := make([]float64, 4)
	e.Process(silence)
	if silence[0] != 0 {
		t.Errorf("first sample after Reset = %g, want 0", silence[0])
	}
}

func BenchmarkEnvelopeProcess(b *testing.B) {
	e := NewEnvelope(5, testSampleRate)
	block := sineBlock(5000, 2048)

	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		e.Process(block)
	}
}
