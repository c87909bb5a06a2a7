// SPDX-License-Identifier: MIT
/*
Package timegrapher contains the estimators that consume the tick
stream: tick/tock classification, instantaneous rate, the incremental
session regression and beat error. All of them are O(1) per tick in
both time and memory.
*/
package timegrapher

import "timegrapher/internal/dsp"

// Role labels a tick as one of the two alternating half-beats.
type Role uint8

const (
	RoleTick Role = iota
	RoleTock
)

// String returns "TICK" or "TOCK".
func (r Role) String() string {
	if r == RoleTick {
		return "TICK"
	}
	return "TOCK"
}

// ClassifiedTick is a TickEvent with its assigned role.
type ClassifiedTick struct {
	dsp.TickEvent
	Role Role
}

// Classifier assigns roles by strict alternation: parity of the tick
// count since the last resynchronization. The first tick after a
// resync is always TICK; a dropout leaves the phase unknown, so it is
// re-anchored rather than guessed.
type Classifier struct {
	count uint64
}

// Classify labels one event and advances the alternation counter.
func (c *Classifier) Classify(event dsp.TickEvent) ClassifiedTick {
	role := RoleTick
	if c.count%2 == 1 {
		role = RoleTock
	}
	c.count++
	return ClassifiedTick{TickEvent: event, Role: role}
}

// Count returns the number of ticks classified since the last resync.
func (c *Classifier) Count() uint64 {
	return c.count
}

// Resync resets the alternation anchor: the next tick is TICK.
func (c *Classifier) Resync() {
	c.count = 0
}
