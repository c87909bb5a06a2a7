// SPDX-License-Identifier: MIT
package timegrapher

// Session fits a line to (beat index, cumulative elapsed time) pairs
// with incrementally maintained sufficient statistics, so adding a
// beat is O(1) in time and memory regardless of session length.
//
// The slope of that line is the session's seconds-per-beat. It is a
// minimum-variance estimator of long-run drift: a single noisy
// interval shifts a naive average linearly but barely moves the
// regression slope.
type Session struct {
	n     float64
	sumX  float64
	sumY  float64
	sumXY float64
	sumXX float64

	startTime float64
	haveStart bool
}

// Add records one beat at the given absolute event time (seconds since
// stream start). The first beat anchors the session origin.
func (s *Session) Add(eventTime float64) {
	if !s.haveStart {
		s.startTime = eventTime
		s.haveStart = true
	}

	x := s.n
	y := eventTime - s.startTime

	s.n++
	s.sumX += x
	s.sumY += y
	s.sumXY += x * y
	s.sumXX += x * x
}

// Count returns the number of recorded beats.
func (s *Session) Count() int {
	return int(s.n)
}

// Slope returns the least-squares seconds-per-beat and true, or false
// while fewer than two beats have been recorded (insufficient data).
func (s *Session) Slope() (float64, bool) {
	if s.n < 2 {
		return 0, false
	}
	denom := s.n*s.sumXX - s.sumX*s.sumX
	if denom == 0 {
		return 0, false
	}
	return (s.n*s.sumXY - s.sumX*s.sumY) / denom, true
}

// Rate converts the regression slope into a deviation from the nominal
// seconds-per-beat, expressed in seconds per day. Returns false while
// the slope is unavailable or no nominal rate is configured.
func (s *Session) Rate(nominalBeatSeconds float64) (float64, bool) {
	slope, ok := s.Slope()
	if !ok || nominalBeatSeconds <= 0 {
		return 0, false
	}
	return (slope - nominalBeatSeconds) / nominalBeatSeconds * secondsPerDay, true
}

// MeanBeatSeconds returns the average observed beat duration. Used for
// BPH auto-detection. Returns false below two beats.
func (s *Session) MeanBeatSeconds() (float64, bool) {
	return s.Slope()
}

// Reset clears all accumulators. This is the explicit user-facing
// session reset; a mere stream stop/restart does not call it, so a
// resumed capture continues the same session.
func (s *Session) Reset() {
	*s = Session{}
}
