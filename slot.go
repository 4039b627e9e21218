// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package turnq

import (
	"time"

	"code.hybscloud.com/atomix"
)

// slot pairs one turn sequencer with one payload cell, per spec.md §4.3.
// Turn numbering is interleaved even/odd: turn 2k grants the k-th
// producer's enqueue, turn 2k+1 grants the k-th consumer's dequeue.
type slot[T any] struct {
	sequencer TurnSequencer
	value     T
}

func newSlot[T any]() slot[T] {
	return slot[T]{sequencer: NewTurnSequencer(0)}
}

// enqueue waits for enqueue turn 2*turn, stores value, then completes
// the turn so the matching dequeue can proceed.
func (s *slot[T]) enqueue(turn uint64, cutoff *atomix.Uint32, updateCutoff bool, value T) error {
	if err := s.sequencer.WaitForTurn(2*turn, cutoff, updateCutoff); err != nil {
		return err
	}
	s.value = value
	s.sequencer.CompleteTurn(2 * turn)
	return nil
}

// dequeue waits for dequeue turn 2*turn+1, moves the value out, then
// completes the turn so the next producer's enqueue can proceed.
func (s *slot[T]) dequeue(turn uint64, cutoff *atomix.Uint32, updateCutoff bool) (T, error) {
	if err := s.sequencer.WaitForTurn(2*turn+1, cutoff, updateCutoff); err != nil {
		var zero T
		return zero, err
	}
	v := s.value
	var zero T
	s.value = zero
	s.sequencer.CompleteTurn(2*turn + 1)
	return v, nil
}

// mayEnqueue reports whether turn's enqueue phase is currently active,
// without blocking.
func (s *slot[T]) mayEnqueue(turn uint64) bool {
	return s.sequencer.IsTurn(2 * turn)
}

// mayDequeue reports whether turn's dequeue phase is currently active,
// without blocking.
func (s *slot[T]) mayDequeue(turn uint64) bool {
	return s.sequencer.IsTurn(2*turn + 1)
}

// tryWaitForEnqueueTurnUntil blocks until turn's enqueue phase begins,
// ErrPast, or deadline elapses.
func (s *slot[T]) tryWaitForEnqueueTurnUntil(turn uint64, cutoff *atomix.Uint32, updateCutoff bool, deadline time.Time) error {
	return s.sequencer.TryWaitForTurn(2*turn, cutoff, updateCutoff, deadline)
}

// tryWaitForDequeueTurnUntil blocks until turn's dequeue phase begins,
// ErrPast, or deadline elapses.
func (s *slot[T]) tryWaitForDequeueTurnUntil(turn uint64, cutoff *atomix.Uint32, updateCutoff bool, deadline time.Time) error {
	return s.sequencer.TryWaitForTurn(2*turn+1, cutoff, updateCutoff, deadline)
}
