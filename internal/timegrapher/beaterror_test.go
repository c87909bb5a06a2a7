// SPDX-License-Identifier: MIT
package timegrapher

import (
	"math"
	"testing"
)

// feedBeats drives the estimator with alternating ticks where the
// TICK→TOCK half lasts tickHalf seconds and the TOCK→TICK half
// tockHalf seconds.
func feedBeats(b *BeatError, beats int, tickHalf, tockHalf float64) (float64, bool, float64) {
	var (
		now   float64
		value float64
		ok    bool
	)
	for i := 0; i < beats; i++ {
		value, ok = b.Update(ClassifiedTick{TickEvent: tickAt(now), Role: RoleTick})
		now += tickHalf
		value, ok = b.Update(ClassifiedTick{TickEvent: tickAt(now), Role: RoleTock})
		now += tockHalf
	}
	return value, ok, now
}

func TestBeatErrorZeroForSymmetricBeat(t *testing.T) {
	b := NewBeatError(0.2)
	value, ok, _ := feedBeats(b, 50, 0.1, 0.1)
	if !ok {
		t.Fatal("no estimate after 50 beats")
	}
	if math.Abs(value) > 1e-9 {
		t.Errorf("beat error = %g ms for symmetric beat, want 0", value)
	}
}

func TestBeatErrorConvergesToOffset(t *testing.T) {
	tests := []struct {
		name     string
		tickHalf float64
		tockHalf float64
		wantMs   float64
	}{
		{"2 ms asymmetry", 0.101, 0.099, 2},
		{"5 ms asymmetry", 0.105, 0.100, 5},
		{"sign invariant", 0.099, 0.101, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBeatError(0.2)
			// 50 beats is well past the EMA settling window at α=0.2.
			value, ok, _ := feedBeats(b, 50, tt.tickHalf, tt.tockHalf)
			if !ok {
				t.Fatal("no estimate")
			}
			if math.Abs(value-tt.wantMs) > 0.05 {
				t.Errorf("beat error = %.3f ms, want %.3f ± 0.05", value, tt.wantMs)
			}
		})
	}
}

func TestBeatErrorInsufficientData(t *testing.T) {
	b := NewBeatError(0.2)

	if _, ok := b.Update(ClassifiedTick{TickEvent: tickAt(0), Role: RoleTick}); ok {
		t.Error("estimate after one tick")
	}
	if _, ok := b.Update(ClassifiedTick{TickEvent: tickAt(0.1), Role: RoleTock}); ok {
		t.Error("estimate after one half-period")
	}
	if _, ok := b.Update(ClassifiedTick{TickEvent: tickAt(0.2), Role: RoleTick}); !ok {
		t.Error("no estimate after both half-periods")
	}
}

func TestBeatErrorSmoothsSingleOutlier(t *testing.T) {
	b := NewBeatError(0.2)
	_, _, now := feedBeats(b, 50, 0.1, 0.1)

	// One strongly asymmetric beat (20 ms raw): the smoothed value
	// must move by only about alpha of the raw jump.
	b.Update(ClassifiedTick{TickEvent: tickAt(now), Role: RoleTick})
	b.Update(ClassifiedTick{TickEvent: tickAt(now + 0.12), Role: RoleTock})
	value, _ := b.Update(ClassifiedTick{TickEvent: tickAt(now + 0.22), Role: RoleTick})

	if value > 9 {
		t.Errorf("single outlier beat moved estimate to %.2f ms, want < alpha * raw", value)
	}
	if value <= 0 {
		t.Errorf("estimate should move toward the outlier, got %.2f ms", value)
	}
}

func TestBeatErrorReset(t *testing.T) {
	b := NewBeatError(0.2)
	feedBeats(b, 10, 0.105, 0.1)
	b.Reset()

	if _, ok := b.Value(); ok {
		t.Error("value available after Reset")
	}
	if _, ok := b.Update(ClassifiedTick{TickEvent: tickAt(0), Role: RoleTick}); ok {
		t.Error("estimate immediately after Reset")
	}
}
