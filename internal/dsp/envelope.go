// SPDX-License-Identifier: MIT
package dsp

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
)

// Envelope rectifies the filtered signal and smooths it with a one-pole
// lowpass. The time constant is short enough to preserve the fast rise
// of a tick but long enough that post-tick ringing decays below the
// detection threshold before the lockout window ends.
type Envelope struct {
	coeff float64
	state float64
}

var _ BlockProcessor = (*Envelope)(nil)

// NewEnvelope creates the smoother. timeConstantMs is the one-pole
// time constant in milliseconds.
func NewEnvelope(timeConstantMs, sampleRate float64) *Envelope {
	tau := timeConstantMs / 1000.0 * sampleRate
	coeff := 1.0
	if tau > 0 {
		coeff = 1 - math.Exp(-1/tau)
	}
	return &Envelope{coeff: coeff}
}

// Process replaces block with its detection envelope in place.
func (e *Envelope) Process(block []float64) {
	state := e.state
	coeff := e.coeff
	for i, x := range block {
		state += coeff * (math.Abs(x) - state)
		block[i] = state
	}
	e.state = core.FlushDenormals(state)
}

// Reset clears the smoothing accumulator. Stream restart only.
func (e *Envelope) Reset() {
	e.state = 0
}
