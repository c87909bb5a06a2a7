// SPDX-License-Identifier: MIT
package dsp

// detectorState is the two-state machine of the tick detector.
type detectorState int

const (
	stateIdle detectorState = iota
	stateLockout
)

// Detector turns the detection envelope into discrete TickEvents.
//
// In IDLE, an upward crossing of the effective threshold emits an event
// with a sub-sample interpolated timestamp and enters LOCKOUT. LOCKOUT
// is a full dead time: no crossing fires until the lockout duration has
// elapsed since the last event, regardless of envelope value. Echoes
// and ringing from a loud escapement decay within tens of milliseconds,
// so a flat time-based lockout is sufficient and predictable given that
// beat periods always exceed it.
type Detector struct {
	state          detectorState
	lockoutSamples float64
	sampleRate     float64

	processed   uint64  // samples consumed before the current block
	lastTrigger float64 // global sample offset of the last event
	prev        float64 // last envelope sample of the previous block
	haveTick    bool
}

// NewDetector creates a detector in IDLE with the given lockout.
func NewDetector(lockoutMs, sampleRate float64) *Detector {
	return &Detector{
		state:          stateIdle,
		lockoutSamples: lockoutMs / 1000.0 * sampleRate,
		sampleRate:     sampleRate,
	}
}

// Process scans one envelope block against threshold and appends any
// detected events to out, returning the extended slice. The caller
// reuses out across blocks so the hot path stays allocation-free.
func (d *Detector) Process(envelope []float64, threshold float64, out []TickEvent) []TickEvent {
	prev := d.prev
	for i, sample := range envelope {
		globalIdx := float64(d.processed + uint64(i))

		switch d.state {
		case stateLockout:
			if globalIdx-d.lastTrigger >= d.lockoutSamples {
				d.state = stateIdle
			} else {
				prev = sample
				continue
			}
			fallthrough

		case stateIdle:
			if prev < threshold && sample >= threshold {
				// Linear interpolation between the last sample below
				// threshold and the first at-or-above it.
				frac := 1.0
				if denom := sample - prev; denom > 0 {
					frac = (threshold - prev) / denom
				}
				offset := globalIdx - 1 + frac
				if offset < 0 {
					offset = 0
				}

				d.lastTrigger = globalIdx
				d.haveTick = true
				d.state = stateLockout

				out = append(out, TickEvent{
					Offset:    offset,
					Time:      offset / d.sampleRate,
					Amplitude: sample,
				})
			}
		}
		prev = sample
	}

	d.prev = prev
	d.processed += uint64(len(envelope))
	return out
}

// SamplesSinceLastTick returns the gap between the current stream
// position and the last emitted event. Used by the lock supervisor to
// declare signal loss. Returns false until a first tick exists.
func (d *Detector) SamplesSinceLastTick() (float64, bool) {
	if !d.haveTick {
		return 0, false
	}
	return float64(d.processed) - d.lastTrigger, true
}

// Idle reports whether the state machine is in IDLE.
func (d *Detector) Idle() bool {
	return d.state == stateIdle
}

// Reset forces the machine back to IDLE and clears the sample counter
// and crossing history. Used on stream stop/restart.
func (d *Detector) Reset() {
	d.state = stateIdle
	d.processed = 0
	d.lastTrigger = 0
	d.prev = 0
	d.haveTick = false
}
