// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package turnq

import "runtime"

// cacheLineSize approximates hardware_destructive_interference_size per
// spec.md §9: 128 bytes on amd64 (modern Intel/AMD prefetch two lines
// together), 64 bytes elsewhere. The teacher hard-codes 64 for every
// architecture; spec.md calls out the amd64 special case explicitly, so
// this module picks the constant from runtime.GOARCH instead.
var cacheLineSize = func() int {
	if runtime.GOARCH == "amd64" {
		return 128
	}
	return 64
}()

// pad is tail/lead padding sized to isolate a hot field or struct from
// false sharing with its neighbors, mirroring the teacher's pad arrays
// in options.go but sized per architecture instead of fixed at 64.
type pad [128]byte // sized for the worst case (amd64); see padLen.

// padLen returns how much of pad is actually meaningful on this
// architecture. Declaring pad as a fixed [128]byte keeps struct layout
// independent of build constants; the bytes beyond padLen on non-amd64
// builds are harmless slack, not undefined behavior.
func padLen() int { return cacheLineSize }

// strideCandidates are the small primes spec.md §4.4 names as the fixed
// stride table requiring no runtime tuning.
var strideCandidates = [...]uint64{1, 2, 3, 5, 7, 11, 13, 17, 19, 23}

// computeStride picks the candidate stride that maximizes separation
// between consecutive tickets' slots, per spec.md §3/§4.4: coprime with
// capacity, discarding any candidate where stride%capacity==0 or
// capacity%stride==0, maximizing min(stride%capacity, capacity-stride%capacity).
func computeStride(capacity uint64) uint64 {
	if capacity <= 1 {
		return 1
	}
	best := uint64(1)
	bestScore := int64(-1)
	for _, s := range strideCandidates {
		if s >= capacity {
			continue
		}
		if s == 0 || capacity%s == 0 || s%capacity == 0 {
			continue
		}
		r := s % capacity
		score := r
		if capacity-r < score {
			score = capacity - r
		}
		if int64(score) > bestScore {
			bestScore = int64(score)
			best = s
		}
	}
	if bestScore < 0 {
		// No candidate is coprime-and-nontrivial for this capacity
		// (capacity==2, or a capacity divisible by every candidate prime);
		// stride 1 is always safe, just without the cache-separation
		// benefit the larger strides provide.
		return 1
	}
	return best
}

// padSlotCount returns how many extra Slot[T]-sized entries to allocate
// on each end of the ring so the first and last real slots never share
// a cache line with an adjacent heap allocation, per spec.md §4.4:
// padding = ceil((cacheLineSize-1)/slotSize) + 1.
func padSlotCount(slotSize int) int {
	if slotSize <= 0 {
		slotSize = 1
	}
	return (cacheLineSize-1+slotSize-1)/slotSize + 1
}
