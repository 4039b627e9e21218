// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package turnq

import (
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// SPSC is a single-producer single-consumer bounded queue.
//
// Based on Lamport's ring buffer with cached index optimization: the
// producer caches the consumer's dequeue index and vice versa, reducing
// cross-core cache line traffic. Exposed per spec.md §6's note that the
// sequencer surface is available for layered reuse outside the full
// ticket-based MPMCQueue — a single producer and single consumer never
// need turn sequencers or tickets at all.
//
// Memory: O(capacity) with minimal per-slot overhead.
type SPSC[T any] struct {
	_          pad
	head       atomix.Uint64 // Consumer reads from here.
	_          pad
	cachedTail uint64 // Consumer's cached view of tail.
	_          pad
	tail       atomix.Uint64 // Producer writes here.
	_          pad
	cachedHead uint64 // Producer's cached view of head.
	_          pad
	buffer     []lamportCell[T]
	mask       uint64
}

// lamportCell holds one ring element. Splitting store/take into their own
// methods mirrors how slot.go's enqueue/dequeue own their value's
// lifecycle rather than indexing a bare []T inline — the cell clears
// itself on take so a stale reference can't keep an element's memory
// reachable once it's been consumed.
type lamportCell[T any] struct {
	value T
}

func (c *lamportCell[T]) store(v T) {
	c.value = v
}

func (c *lamportCell[T]) take() T {
	v := c.value
	var zero T
	c.value = zero
	return v
}

// NewSPSC creates a new SPSC queue. Capacity rounds up to the next
// power of 2, since Lamport's ring indexes by mask rather than the
// coprime stride [MPMCQueue] uses.
func NewSPSC[T any](capacity int) *SPSC[T] {
	if capacity < 2 {
		panic("turnq: capacity must be >= 2")
	}

	n := uint64(roundToPow2(capacity))
	return &SPSC[T]{
		buffer: make([]lamportCell[T], n),
		mask:   n - 1,
	}
}

// Write adds an element to the queue (producer only, non-blocking).
// Returns ErrWouldBlock if the queue is full.
func (q *SPSC[T]) Write(elem *T) error {
	tail := q.tail.LoadRelaxed()
	hasRoom := tail-q.cachedHead <= q.mask
	if !hasRoom {
		q.cachedHead = q.head.LoadAcquire()
		hasRoom = tail-q.cachedHead <= q.mask
	}
	if !hasRoom {
		return ErrWouldBlock
	}

	q.buffer[tail&q.mask].store(*elem)
	q.tail.StoreRelease(tail + 1)
	return nil
}

// Read removes and returns an element (consumer only, non-blocking).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *SPSC[T]) Read() (T, error) {
	head := q.head.LoadRelaxed()
	hasElem := head < q.cachedTail
	if !hasElem {
		q.cachedTail = q.tail.LoadAcquire()
		hasElem = head < q.cachedTail
	}
	if !hasElem {
		var zero T
		return zero, ErrWouldBlock
	}

	elem := q.buffer[head&q.mask].take()
	q.head.StoreRelease(head + 1)
	return elem, nil
}

// BlockingWrite enqueues elem, parking the caller until a slot opens.
//
// SPSC has no per-index turn sequencer to park on (unlike MPMCQueue's
// slots), so this spins with the same adaptive backoff primitive the
// teacher package uses everywhere else rather than a kernel wait.
func (q *SPSC[T]) BlockingWrite(elem *T) {
	sw := spin.Wait{}
	for {
		if err := q.Write(elem); err == nil {
			return
		}
		sw.Once()
	}
}

// BlockingRead dequeues an element, parking the caller until one is
// available.
func (q *SPSC[T]) BlockingRead() T {
	sw := spin.Wait{}
	for {
		if v, err := q.Read(); err == nil {
			return v
		}
		sw.Once()
	}
}

// TryWriteUntil enqueues elem, blocking at most until deadline. Returns
// ErrWouldBlock on timeout. A zero deadline ([NoDeadline]) blocks
// indefinitely.
func (q *SPSC[T]) TryWriteUntil(deadline time.Time, elem *T) error {
	sw := spin.Wait{}
	for {
		if err := q.Write(elem); err == nil {
			return nil
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return ErrWouldBlock
		}
		sw.Once()
	}
}

// TryReadUntil dequeues an element, blocking at most until deadline.
// Returns (zero-value, ErrWouldBlock) on timeout.
func (q *SPSC[T]) TryReadUntil(deadline time.Time) (T, error) {
	sw := spin.Wait{}
	for {
		if v, err := q.Read(); err == nil {
			return v, nil
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			var zero T
			return zero, ErrWouldBlock
		}
		sw.Once()
	}
}

// Cap returns the queue capacity.
func (q *SPSC[T]) Cap() int {
	return int(q.mask + 1)
}

// Size returns a best-effort snapshot of the number of queued elements.
// Unlike MPMCQueue.Size, it takes a single pair of loads (tail, then
// head) with no re-check, so under concurrent producer and consumer
// activity the result may not match the size at any single instant.
func (q *SPSC[T]) Size() int64 {
	return int64(q.tail.LoadAcquire()) - int64(q.head.LoadAcquire())
}

// IsEmpty reports whether Size() <= 0.
func (q *SPSC[T]) IsEmpty() bool { return q.Size() <= 0 }

// IsFull reports whether Size() >= Cap().
func (q *SPSC[T]) IsFull() bool { return q.Size() >= int64(q.mask+1) }
