// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package turnq

import (
	"time"
	"unsafe"

	"code.hybscloud.com/atomix"
)

// kAdaptationFreq is how often (in tickets) a producer/consumer probes
// with a full spin budget and folds the result into the shared adaptive
// cutoff, per spec.md §4.2's "occasionally... probe with a larger spin
// budget" guidance.
const kAdaptationFreq = 128

// sizeMaxIterations bounds the two-point Size() sampling loop described
// in spec.md §4.4; under persistent contention the loop falls back to
// the latest observed pair rather than spinning forever (spec.md §4.4:
// "Termination is not guaranteed... implementations may cap iterations").
const sizeMaxIterations = 16

// MPMCQueue is a bounded multi-producer multi-consumer FIFO queue of
// fixed-size elements. Producers and consumers never take a lock;
// coordination is a ticket dispenser (pushTicket/popTicket) layered over
// a ring of per-slot turn sequencers (spec.md §2/§3/§4.4).
//
// All fields that move under contention are cache-line isolated to
// avoid false sharing, mirroring the padding idiom the teacher package
// uses for its own hot fields.
type MPMCQueue[T any] struct {
	_              pad
	pushTicket     atomix.Uint64
	_              pad
	popTicket      atomix.Uint64
	_              pad
	pushSpinCutoff atomix.Uint32
	_              pad
	popSpinCutoff  atomix.Uint32
	_              pad
	capacity       uint64
	stride         uint64
	padCount       int
	slots          []slot[T]
}

// NewMPMCQueue creates a queue with the given fixed capacity (>= 1).
// Capacity is never rounded: unlike a masked ring buffer, this queue's
// indexing goes through a coprime stride (spec.md §3/§4.4), so any
// capacity is as valid as any other.
func NewMPMCQueue[T any](capacity int) *MPMCQueue[T] {
	if capacity < 1 {
		panic("turnq: capacity must be >= 1")
	}

	c := uint64(capacity)
	var zero slot[T]
	padCount := padSlotCount(int(unsafe.Sizeof(zero)))
	total := c + 2*uint64(padCount)

	slots := make([]slot[T], total)
	for i := range slots {
		slots[i] = newSlot[T]()
	}

	return &MPMCQueue[T]{
		capacity: c,
		stride:   computeStride(c),
		padCount: padCount,
		slots:    slots,
	}
}

func (q *MPMCQueue[T]) idx(ticket uint64) uint64 {
	return (ticket*q.stride)%q.capacity + uint64(q.padCount)
}

func (q *MPMCQueue[T]) turn(ticket uint64) uint64 {
	return ticket / q.capacity
}

func shouldUpdateCutoff(ticket uint64) bool {
	return ticket%kAdaptationFreq == 0
}

// Cap returns the queue's fixed capacity.
func (q *MPMCQueue[T]) Cap() int {
	return int(q.capacity)
}

// Size returns a linearizable snapshot of the number of elements
// currently enqueued. It may be transiently negative (pending pops
// outstripping completed pushes) — see spec.md §4.4 and §8 invariant 4.
func (q *MPMCQueue[T]) Size() int64 {
	for i := 0; i < sizeMaxIterations; i++ {
		p1 := q.pushTicket.LoadAcquire()
		pop := q.popTicket.LoadAcquire()
		p2 := q.pushTicket.LoadAcquire()
		if p1 == p2 {
			return int64(p1) - int64(pop)
		}
		pop2 := q.popTicket.LoadAcquire()
		if pop == pop2 {
			return int64(p2) - int64(pop2)
		}
	}
	// Persistent contention: fall back to the latest observed pair.
	// Not guaranteed linearizable, but bounded (spec.md §4.4).
	p := q.pushTicket.LoadAcquire()
	pop := q.popTicket.LoadAcquire()
	return int64(p) - int64(pop)
}

// IsEmpty reports whether Size() <= 0.
func (q *MPMCQueue[T]) IsEmpty() bool { return q.Size() <= 0 }

// IsFull reports whether Size() >= Cap().
func (q *MPMCQueue[T]) IsFull() bool { return q.Size() >= int64(q.capacity) }

// tryObtainReadyPushTicket grants a push ticket only if its slot is
// immediately ready to enqueue, so a failed attempt never consumes a
// ticket and is unobservable to other threads (spec.md §4.4, §5).
func (q *MPMCQueue[T]) tryObtainReadyPushTicket() (ticket uint64, ok bool) {
	t := q.pushTicket.LoadAcquire()
	for {
		if !q.slots[q.idx(t)].mayEnqueue(q.turn(t)) {
			t2 := q.pushTicket.LoadAcquire()
			if t2 == t {
				return 0, false
			}
			t = t2
			continue
		}
		if q.pushTicket.CompareAndSwapAcqRel(t, t+1) {
			return t, true
		}
		t = q.pushTicket.LoadAcquire()
	}
}

// tryObtainReadyPopTicket is the dequeue symmetric of
// tryObtainReadyPushTicket.
func (q *MPMCQueue[T]) tryObtainReadyPopTicket() (ticket uint64, ok bool) {
	t := q.popTicket.LoadAcquire()
	for {
		if !q.slots[q.idx(t)].mayDequeue(q.turn(t)) {
			t2 := q.popTicket.LoadAcquire()
			if t2 == t {
				return 0, false
			}
			t = t2
			continue
		}
		if q.popTicket.CompareAndSwapAcqRel(t, t+1) {
			return t, true
		}
		t = q.popTicket.LoadAcquire()
	}
}

// tryObtainPromisedPushTicket hands out a ticket as long as the
// push/pop difference stays within capacity, ignoring per-slot
// readiness; the slot's own sequencer blocks the caller briefly if the
// matching pop hasn't completed yet. On failure it returns the ticket
// that would have been issued, so the caller can park on that exact
// slot's turn (spec.md §4.4).
func (q *MPMCQueue[T]) tryObtainPromisedPushTicket() (ticket uint64, full bool) {
	for {
		t := q.pushTicket.LoadAcquire()
		pop := q.popTicket.LoadAcquire()
		// Signed: the independent acquire-loads above can observe
		// pop > t transiently (spec.md §3: popTicket <= pushTicket is
		// not a required invariant at all instants), which would make
		// an unsigned t-pop wrap and spuriously read as full.
		diff := int64(t) - int64(pop)
		if diff >= int64(q.capacity) {
			return t, true
		}
		if q.pushTicket.CompareAndSwapAcqRel(t, t+1) {
			return t, false
		}
	}
}

// tryObtainPromisedPopTicket is the dequeue symmetric of
// tryObtainPromisedPushTicket.
func (q *MPMCQueue[T]) tryObtainPromisedPopTicket() (ticket uint64, empty bool) {
	for {
		pop := q.popTicket.LoadAcquire()
		push := q.pushTicket.LoadAcquire()
		if pop >= push {
			return pop, true
		}
		if q.popTicket.CompareAndSwapAcqRel(pop, pop+1) {
			return pop, false
		}
	}
}

// Write enqueues value without blocking. Returns ErrWouldBlock if no
// slot is immediately ready (the queue is full).
func (q *MPMCQueue[T]) Write(value *T) error {
	ticket, ok := q.tryObtainReadyPushTicket()
	if !ok {
		return ErrWouldBlock
	}
	return q.slots[q.idx(ticket)].enqueue(q.turn(ticket), &q.pushSpinCutoff, shouldUpdateCutoff(ticket), *value)
}

// Read dequeues a value without blocking. Returns ErrWouldBlock if no
// item is immediately available (the queue is empty).
func (q *MPMCQueue[T]) Read() (T, error) {
	ticket, ok := q.tryObtainReadyPopTicket()
	if !ok {
		var zero T
		return zero, ErrWouldBlock
	}
	return q.slots[q.idx(ticket)].dequeue(q.turn(ticket), &q.popSpinCutoff, shouldUpdateCutoff(ticket))
}

// BlockingWrite enqueues value, parking the caller until its ticket's
// slot reaches the enqueue turn. Never fails; cancellation is only via
// the TryWriteUntil deadline variant.
func (q *MPMCQueue[T]) BlockingWrite(value *T) {
	ticket := q.pushTicket.AddAcqRel(1) - 1
	_ = q.slots[q.idx(ticket)].enqueue(q.turn(ticket), &q.pushSpinCutoff, shouldUpdateCutoff(ticket), *value)
}

// BlockingRead dequeues a value, parking the caller until its ticket's
// slot reaches the dequeue turn.
func (q *MPMCQueue[T]) BlockingRead() T {
	ticket := q.popTicket.AddAcqRel(1) - 1
	v, _ := q.slots[q.idx(ticket)].dequeue(q.turn(ticket), &q.popSpinCutoff, shouldUpdateCutoff(ticket))
	return v
}

// TryWriteUntil enqueues value, blocking at most until deadline. Returns
// ErrWouldBlock on timeout or persistent fullness (spec.md §4.4, §6).
func (q *MPMCQueue[T]) TryWriteUntil(deadline time.Time, value *T) error {
	for {
		ticket, full := q.tryObtainPromisedPushTicket()
		if !full {
			return q.finishEnqueue(ticket, *value)
		}
		err := q.slots[q.idx(ticket)].tryWaitForEnqueueTurnUntil(q.turn(ticket), &q.pushSpinCutoff, false, deadline)
		if err == ErrTimedOut {
			return ErrWouldBlock
		}
		// Otherwise retry: we did not reserve a ticket on this pass.
	}
}

// TryReadUntil dequeues a value, blocking at most until deadline.
// Returns ErrWouldBlock on timeout or persistent emptiness.
func (q *MPMCQueue[T]) TryReadUntil(deadline time.Time) (T, error) {
	for {
		ticket, empty := q.tryObtainPromisedPopTicket()
		if !empty {
			return q.finishDequeue(ticket)
		}
		err := q.slots[q.idx(ticket)].tryWaitForDequeueTurnUntil(q.turn(ticket), &q.popSpinCutoff, false, deadline)
		if err == ErrTimedOut {
			var zero T
			return zero, ErrWouldBlock
		}
	}
}

// finishEnqueue completes an already-reserved push ticket. A ticket is
// irrevocable once issued (spec.md §3: "Tickets are never retracted"),
// so — mirroring the source's enqueueWithTicketBase — this waits for the
// slot's turn unconditionally rather than threading the caller's
// deadline through: the deadline only governs whether a ticket is
// obtained at all (tryObtainPromisedPushTicket), not what happens once
// one has been handed out.
func (q *MPMCQueue[T]) finishEnqueue(ticket uint64, value T) error {
	idx := q.idx(ticket)
	turn := q.turn(ticket)
	return q.slots[idx].enqueue(turn, &q.pushSpinCutoff, shouldUpdateCutoff(ticket), value)
}

// finishDequeue is the dequeue symmetric of finishEnqueue.
func (q *MPMCQueue[T]) finishDequeue(ticket uint64) (T, error) {
	idx := q.idx(ticket)
	turn := q.turn(ticket)
	return q.slots[idx].dequeue(turn, &q.popSpinCutoff, shouldUpdateCutoff(ticket))
}
