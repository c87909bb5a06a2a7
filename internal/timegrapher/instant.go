// SPDX-License-Identifier: MIT
package timegrapher

const secondsPerDay = 86400.0

// Instant computes the per-beat rate deviation from one full period,
// measured TICK to next TICK (two half-beats). It is deliberately
// unsmoothed: this channel exposes raw beat-to-beat jitter for
// diagnostic feedback, while the session regression provides the
// stable long-run figure.
type Instant struct {
	lastTickTime float64
	haveTick     bool

	value     float64
	haveValue bool
}

// Update consumes one classified tick. It returns the deviation in
// seconds per day and true when a full period is available; the first
// TICK after start or resync has no prior same-role tick and reports
// false (insufficient data) rather than a spurious value.
func (in *Instant) Update(ct ClassifiedTick, nominalFullPeriod float64) (float64, bool) {
	if ct.Role != RoleTick {
		return 0, false
	}

	if !in.haveTick {
		in.lastTickTime = ct.Time
		in.haveTick = true
		return 0, false
	}

	measured := ct.Time - in.lastTickTime
	in.lastTickTime = ct.Time

	if nominalFullPeriod <= 0 {
		return 0, false
	}

	deviation := (measured - nominalFullPeriod) / nominalFullPeriod
	in.value = deviation * secondsPerDay
	in.haveValue = true
	return in.value, true
}

// Value returns the last computed deviation, false if none yet.
func (in *Instant) Value() (float64, bool) {
	return in.value, in.haveValue
}

// Reset clears the period anchor and the last value. The next TICK
// reports insufficient data again.
func (in *Instant) Reset() {
	*in = Instant{}
}
