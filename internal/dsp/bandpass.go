// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design/pass"
)

// maxSample bounds the post-gain input range. Values beyond it are
// clamped before filtering so a single corrupt sample cannot poison
// the recursive filter state.
const maxSample = 4.0

// Bandpass isolates the escapement snap band (2–10 kHz by default)
// from the raw signal using cascaded Butterworth highpass and lowpass
// biquad chains. Filter state persists across blocks; Reset is only
// for stream restart.
type Bandpass struct {
	hp *biquad.Chain
	lp *biquad.Chain

	anomalies uint64
}

var _ BlockProcessor = (*Bandpass)(nil)

// NewBandpass designs the two Butterworth cascades. order is the order
// of each edge (the original design used 4th-order edges).
func NewBandpass(lowHz, highHz float64, order int, sampleRate float64) (*Bandpass, error) {
	if lowHz <= 0 || highHz <= lowHz || highHz >= sampleRate/2 {
		return nil, fmt.Errorf("invalid passband %g–%g Hz at %g Hz sample rate", lowHz, highHz, sampleRate)
	}

	hpCoeffs := pass.ButterworthHP(lowHz, order, sampleRate)
	lpCoeffs := pass.ButterworthLP(highHz, order, sampleRate)
	if len(hpCoeffs) == 0 || len(lpCoeffs) == 0 {
		return nil, fmt.Errorf("bandpass design failed for %g–%g Hz, order %d", lowHz, highHz, order)
	}

	return &Bandpass{
		hp: biquad.NewChain(hpCoeffs),
		lp: biquad.NewChain(lpCoeffs),
	}, nil
}

// Process filters block in place. NaN and Inf samples are substituted
// with zero and out-of-range samples clamped before they reach the
// recursive sections; each substitution increments the anomaly counter.
func (f *Bandpass) Process(block []float64) {
	for i, x := range block {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			block[i] = 0
			f.anomalies++
			continue
		}
		if x > maxSample || x < -maxSample {
			block[i] = core.Clamp(x, -maxSample, maxSample)
			f.anomalies++
		}
	}

	f.hp.ProcessBlock(block)
	f.lp.ProcessBlock(block)
}

// Reset clears the recursive filter state. Used on stream restart only;
// resetting between blocks would cause edge artifacts.
func (f *Bandpass) Reset() {
	f.hp.Reset()
	f.lp.Reset()
}

// Anomalies returns the number of sanitized input samples.
func (f *Bandpass) Anomalies() uint64 {
	return f.anomalies
}
