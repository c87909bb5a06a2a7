// SPDX-License-Identifier: MIT
/*
Package buffer implements the bounded handoff between the audio capture
callback (producer) and the analysis pipeline goroutine (consumer).

The ring is single-producer/single-consumer with a fixed, pre-allocated
set of block slots. The producer never blocks and never allocates: when
the ring is full it advances the read cursor over the oldest unconsumed
block and records an overrun. The audio driver can always deliver its
next block on time; dropping a stale block costs one missed beat at
worst, stalling the callback corrupts the whole stream.
*/
package buffer

import (
	"sync/atomic"

	"timegrapher/pkg/bitint"
)

// Ring is a bounded block queue. Capacity is rounded up to a power of 2
// so slot indexing is a mask, not a modulo.
type Ring struct {
	slots    [][]int32
	lens     []int
	mask     uint64
	writeSeq atomic.Uint64
	readSeq  atomic.Uint64
	overruns atomic.Uint64
}

// NewRing creates a ring with at least capacity slots, each able to hold
// blockSize samples. All slot memory is allocated up front.
func NewRing(capacity, blockSize int) *Ring {
	capacity = bitint.NextPowerOfTwo(capacity)
	r := &Ring{
		slots: make([][]int32, capacity),
		lens:  make([]int, capacity),
		mask:  uint64(capacity - 1),
	}
	for i := range r.slots {
		r.slots[i] = make([]int32, blockSize)
	}
	return r
}

// Push copies block into the next slot. Called from the producer only.
// When the ring is full the oldest unconsumed block is sacrificed and
// the overrun counter incremented; Push itself never blocks.
func (r *Ring) Push(block []int32) {
	w := r.writeSeq.Load()
	if w-r.readSeq.Load() > r.mask {
		// Full. Steal the oldest slot from the consumer; a CAS failure
		// means the consumer just took it, which also frees a slot.
		old := r.readSeq.Load()
		if r.readSeq.CompareAndSwap(old, old+1) {
			r.overruns.Add(1)
		}
	}

	slot := r.slots[w&r.mask]
	n := copy(slot, block)
	r.lens[w&r.mask] = n
	r.writeSeq.Store(w + 1)
}

// Pop copies the oldest block into dst and returns the sample count.
// Called from the consumer only. Returns 0, false when the ring is
// empty. A concurrent producer overwrite of the slot being read is
// detected by the CAS and the torn copy is discarded.
func (r *Ring) Pop(dst []int32) (int, bool) {
	for {
		rd := r.readSeq.Load()
		if rd == r.writeSeq.Load() {
			return 0, false
		}

		n := r.lens[rd&r.mask]
		copy(dst[:n], r.slots[rd&r.mask][:n])

		if r.readSeq.CompareAndSwap(rd, rd+1) {
			return n, true
		}
		// Producer reclaimed the slot mid-copy; retry with the next one.
	}
}

// Len returns the number of queued blocks. Approximate under concurrency.
func (r *Ring) Len() int {
	w := r.writeSeq.Load()
	rd := r.readSeq.Load()
	if w < rd {
		return 0
	}
	return int(w - rd)
}

// Cap returns the slot capacity of the ring.
func (r *Ring) Cap() int {
	return int(r.mask + 1)
}

// Overruns returns the number of blocks dropped because the consumer
// fell behind.
func (r *Ring) Overruns() uint64 {
	return r.overruns.Load()
}

// Reset discards all queued blocks. Consumer-side only; used on stream
// stop to drain without processing.
func (r *Ring) Reset() {
	r.readSeq.Store(r.writeSeq.Load())
}
