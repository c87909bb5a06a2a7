// SPDX-License-Identifier: MIT
/*
Package dsp contains the per-block signal chain that turns raw audio
into discrete tick events: bandpass filter, envelope extractor, gain
control and the edge/lockout tick detector.

All stages process pre-allocated float64 blocks in place and carry
their state across blocks, so the chain is phase-continuous and
allocation-free on the hot path.
*/
package dsp

// TickEvent is one detected escapement impact. Events are immutable
// once emitted and strictly increasing in Offset.
type TickEvent struct {
	Offset    float64 // Sample offset since stream start, sub-sample interpolated
	Time      float64 // Seconds since stream start
	Amplitude float64 // Envelope value at the trigger crossing
}

// BlockProcessor is the interface for in-place block stages.
// Implementations must be real-time safe: no allocation, no blocking.
type BlockProcessor interface {
	Process(block []float64)
	Reset()
}

var (
	_ BlockProcessor = (*Bandpass)(nil)
	_ BlockProcessor = (*Envelope)(nil)
)
