// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package turnq

import "testing"

// TestComputeStrideIsCoprime is spec.md §8 invariant 5: stride must be
// coprime with capacity for every capacity the small-prime table can
// serve.
func TestComputeStrideIsCoprime(t *testing.T) {
	for capacity := uint64(1); capacity <= 64; capacity++ {
		stride := computeStride(capacity)
		if gcd(stride, capacity) != 1 {
			t.Fatalf("computeStride(%d) = %d, not coprime (gcd=%d)", capacity, stride, gcd(stride, capacity))
		}
	}
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// TestIdxCoversEverySlotPerTurnCycle is spec.md §8 invariant 5: indexing
// touches every slot modulo capacity over a full turn cycle.
func TestIdxCoversEverySlotPerTurnCycle(t *testing.T) {
	for capacity := uint64(1); capacity <= 32; capacity++ {
		q := &MPMCQueue[int]{capacity: capacity, stride: computeStride(capacity), padCount: 3}
		seen := make(map[uint64]bool, capacity)
		for t0 := uint64(0); t0 < capacity; t0++ {
			idx := q.idx(t0)
			if idx < 3 || idx >= 3+capacity {
				t.Fatalf("capacity=%d ticket=%d: idx %d out of real-slot range [%d,%d)", capacity, t0, idx, 3, 3+capacity)
			}
			seen[idx] = true
		}
		if uint64(len(seen)) != capacity {
			t.Fatalf("capacity=%d: one turn cycle visited %d distinct slots, want %d", capacity, len(seen), capacity)
		}
	}
}

func TestTurnAdvancesEveryCapacityTickets(t *testing.T) {
	q := &MPMCQueue[int]{capacity: 7}
	for i := uint64(0); i < 21; i++ {
		want := i / 7
		if got := q.turn(i); got != want {
			t.Fatalf("turn(%d) with capacity 7: got %d, want %d", i, got, want)
		}
	}
}

func TestPadSlotCountIsPositive(t *testing.T) {
	for _, size := range []int{1, 4, 8, 16, 32, 64, 200} {
		if n := padSlotCount(size); n <= 0 {
			t.Fatalf("padSlotCount(%d) = %d, want > 0", size, n)
		}
	}
}
