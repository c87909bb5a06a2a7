// SPDX-License-Identifier: MIT
package timegrapher

// StandardBPH lists the common watch and clock escapement rates, in
// beats per hour.
var StandardBPH = []int{3600, 7200, 14400, 18000, 19800, 21600, 25200, 28800, 36000}

// MinBeatsForDetect is the number of accumulated beats required before
// BPH auto-detection snaps to the table; earlier estimates are too
// jittery to trust.
const MinBeatsForDetect = 8

// NearestBPH returns the standard rate closest to the measured beat
// duration. Returns 0 for a non-positive input.
func NearestBPH(beatSeconds float64) int {
	if beatSeconds <= 0 {
		return 0
	}

	measured := 3600.0 / beatSeconds
	best := 0
	bestDist := 0.0
	for _, bph := range StandardBPH {
		dist := measured - float64(bph)
		if dist < 0 {
			dist = -dist
		}
		if best == 0 || dist < bestDist {
			best = bph
			bestDist = dist
		}
	}
	return best
}
