// SPDX-License-Identifier: MIT
package timegrapher

import (
	"fmt"
	"testing"
)

func TestNearestBPH(t *testing.T) {
	tests := []struct {
		beatSeconds float64
		want        int
	}{
		{3600.0 / 28800, 28800}, // exact
		{3600.0 / 28750, 28800}, // slightly fast movement
		{3600.0 / 29000, 28800},
		{3600.0 / 36000, 36000},
		{3600.0 / 35000, 36000},
		{3600.0 / 3600, 3600},  // one-second clock beat
		{1.5, 3600},            // slower than anything standard
		{0.05, 36000},          // faster than anything standard
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.4fs", tt.beatSeconds), func(t *testing.T) {
			if got := NearestBPH(tt.beatSeconds); got != tt.want {
				t.Errorf("NearestBPH(%g) = %d, want %d", tt.beatSeconds, got, tt.want)
			}
		})
	}
}

func TestNearestBPHInvalidInput(t *testing.T) {
	if got := NearestBPH(0); got != 0 {
		t.Errorf("NearestBPH(0) = %d, want 0", got)
	}
	if got := NearestBPH(-1); got != 0 {
		t.Errorf("NearestBPH(-1) = %d, want 0", got)
	}
}
