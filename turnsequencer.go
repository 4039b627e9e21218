// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package turnq

import (
	"sync/atomic"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
	"code.hybscloud.com/turnq/internal/wait"
)

// kTurnShift reserves the low 6 bits of the packed state word for a
// saturating waiter-count delta; the high 26 bits hold the current turn,
// shifted. See spec.md §3/§4.2.
const kTurnShift = 6

const kDeltaMask = uint32(1)<<kTurnShift - 1 // 0x3F
const kMaxDelta = kDeltaMask                 // saturates at 63

// kMaxSpinLimit bounds the pre-park busy-spin probe used whenever the
// adaptive cutoff is being (re)calibrated. It is a performance knob, not
// a correctness feature — spec.md §4.2/§9 call out that an implementation
// may use zero spin and still be correct.
const kMaxSpinLimit = 1000

// TurnSequencer serializes access to a single slot by assigning
// monotonically increasing "turns": waiters for turn t block until
// CompleteTurn(t-1) has run.
//
// The 32-bit state word is manipulated directly with sync/atomic rather
// than through [atomix.Uint32]: the wait primitive in
// [code.hybscloud.com/turnq/internal/wait] is a kernel futex on Linux and
// needs the literal address of the word to hand to the kernel. atomix's
// wrapper types are opaque across package boundaries with no documented
// memory layout, so casting one to *uint32 via unsafe.Pointer would rest
// on an undocumented ABI assumption; a plain uint32 manipulated through
// sync/atomic carries the same acquire/release guarantees without that
// risk. Every other hot field in this module (ticket counters, spin
// cutoffs) has no such constraint and stays on atomix, matching the
// teacher package's idiom.
type TurnSequencer struct {
	state uint32
}

// NewTurnSequencer returns a TurnSequencer whose first admissible turn is
// firstTurn.
func NewTurnSequencer(firstTurn uint64) TurnSequencer {
	return TurnSequencer{state: encodeTurn(firstTurn)}
}

func encodeTurn(t uint64) uint32 {
	return uint32(t) << kTurnShift
}

// IsTurn reports whether t is the current turn, without blocking.
func (ts *TurnSequencer) IsTurn(t uint64) bool {
	s := atomic.LoadUint32(&ts.state)
	return s&^kDeltaMask == encodeTurn(t)
}

// WaitForTurn blocks until t becomes the current turn. cutoff is the
// adaptive spin-cutoff shared across callers of this sequencer (e.g. a
// queue's pushSpinCutoff); updateCutoff asks this call to recalibrate it.
func (ts *TurnSequencer) WaitForTurn(t uint64, cutoff *atomix.Uint32, updateCutoff bool) error {
	err := ts.TryWaitForTurn(t, cutoff, updateCutoff, wait.NoDeadline)
	if err == ErrTimedOut {
		// No deadline was given; a futex/cond implementation must not
		// report TimedOut in that case. Loop once more defensively
		// rather than surface an impossible error to the caller.
		return ts.WaitForTurn(t, cutoff, updateCutoff)
	}
	return err
}

// TryWaitForTurn blocks until t becomes the current turn, ErrPast is
// returned (t already elapsed), or deadline elapses (ErrTimedOut). A
// zero deadline ([wait.NoDeadline]) blocks indefinitely.
func (ts *TurnSequencer) TryWaitForTurn(t uint64, cutoff *atomix.Uint32, updateCutoff bool, deadline time.Time) error {
	spinLimit := uint32(kMaxSpinLimit)
	if !updateCutoff {
		if c := cutoff.LoadRelaxed(); c != 0 {
			spinLimit = c
		}
	}

	var spins uint32
	sw := spin.Wait{}
	target := encodeTurn(t)

	for {
		s := atomic.LoadUint32(&ts.state)
		cur := s &^ kDeltaMask
		diff := int32(target - cur)

		switch {
		case diff == 0:
			if updateCutoff {
				updateSpinCutoff(cutoff, spins)
			}
			return nil
		case diff < 0:
			return ErrPast
		}

		observed := s
		ourDelta := uint32(diff) >> kTurnShift
		if ourDelta > kMaxDelta {
			ourDelta = kMaxDelta
		}
		if ourDelta > s&kDeltaMask {
			next := cur | ourDelta
			if !atomic.CompareAndSwapUint32(&ts.state, s, next) {
				continue
			}
			observed = next
		}

		if spins < spinLimit {
			spins++
			sw.Once()
			continue
		}

		res := wait.Wait(&ts.state, observed, deadline, wait.Channel(t))
		if res == wait.TimedOut {
			return ErrTimedOut
		}
		// Awoken, Interrupted, and ValueChanged all re-check state.
	}
}

// CompleteTurn advances the current turn past t, waking any parked
// waiters for t+1. Must be called exactly once by whichever caller's
// WaitForTurn(t) most recently succeeded.
func (ts *TurnSequencer) CompleteTurn(t uint64) {
	for {
		s := atomic.LoadUint32(&ts.state)
		delta := s & kDeltaMask
		newDelta := uint32(0)
		if delta > 0 {
			newDelta = delta - 1
		}
		next := encodeTurn(t+1) | newDelta
		if atomic.CompareAndSwapUint32(&ts.state, s, next) {
			if delta > 0 {
				wait.Wake(&ts.state, -1, wait.Channel(t+1))
			}
			return
		}
	}
}

// updateSpinCutoff folds a newly observed spin count into cutoff with an
// exponentially-weighted moving average, saturating at kMaxSpinLimit.
// Purely a performance knob (spec.md §4.2/§9): a no-op implementation
// would not violate correctness.
func updateSpinCutoff(cutoff *atomix.Uint32, spins uint32) {
	if spins > kMaxSpinLimit {
		spins = kMaxSpinLimit
	}
	old := cutoff.LoadRelaxed()
	next := uint32((uint64(old)*7 + uint64(spins)) / 8)
	cutoff.StoreRelaxed(next)
}
