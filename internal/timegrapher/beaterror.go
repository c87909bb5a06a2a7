// SPDX-License-Identifier: MIT
package timegrapher

// BeatError estimates the asymmetry between the two half-periods of a
// full beat: the TICK→TOCK interval against the TOCK→TICK interval,
// in milliseconds. Zero means a perfectly centered pallet fork.
//
// The raw per-beat difference is smoothed with an exponential moving
// average so a single noisy beat does not jump the reading, while real
// regulation changes still show within a few seconds.
type BeatError struct {
	alpha float64

	lastTime float64
	lastRole Role
	haveLast bool

	tickHalf float64 // TICK→TOCK interval
	tockHalf float64 // TOCK→TICK interval
	haveTick bool
	haveTock bool

	value     float64
	haveValue bool
}

// NewBeatError creates an estimator with the given EMA factor (0..1].
func NewBeatError(alpha float64) *BeatError {
	return &BeatError{alpha: alpha}
}

// Update consumes one classified tick and returns the smoothed beat
// error in milliseconds, with false while both half-periods of a beat
// have not yet been observed.
func (b *BeatError) Update(ct ClassifiedTick) (float64, bool) {
	if b.haveLast {
		interval := ct.Time - b.lastTime
		// The interval belongs to the role it started from.
		if b.lastRole == RoleTick {
			b.tickHalf = interval
			b.haveTick = true
		} else {
			b.tockHalf = interval
			b.haveTock = true
		}

		if b.haveTick && b.haveTock {
			raw := (b.tickHalf - b.tockHalf) * 1000
			if raw < 0 {
				raw = -raw
			}
			if !b.haveValue {
				b.value = raw
				b.haveValue = true
			} else {
				b.value += b.alpha * (raw - b.value)
			}
		}
	}

	b.lastTime = ct.Time
	b.lastRole = ct.Role
	b.haveLast = true

	return b.value, b.haveValue
}

// Value returns the current smoothed estimate, false if none yet.
func (b *BeatError) Value() (float64, bool) {
	return b.value, b.haveValue
}

// Rebase clears the interval anchors but keeps the smoothed value, for
// use after a sample-stream break where beat phase is lost but the
// estimate itself remains meaningful.
func (b *BeatError) Rebase() {
	b.haveLast = false
	b.haveTick = false
	b.haveTock = false
}

// Reset discards all interval history and the smoothed value.
func (b *BeatError) Reset() {
	*b = BeatError{alpha: b.alpha}
}
