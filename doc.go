// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package turnq provides a bounded multi-producer multi-consumer queue
// for fixed-size elements, shared across a known set of goroutines
// within one process.
//
// Producers and consumers never take a lock. Coordination is a ticket
// dispenser ([MPMCQueue.Write]/[MPMCQueue.Read] and their blocking and
// deadline-bound variants) layered over a ring of per-slot
// [TurnSequencer]s, which serialize access to each slot and park
// waiters through a kernel-assisted address-wait primitive
// (internal/wait) when spinning stops paying off.
//
// # Quick Start
//
//	q := turnq.NewMPMCQueue[Event](4096)
//
//	// Non-blocking
//	ev := Event{}
//	if err := q.Write(&ev); turnq.IsWouldBlock(err) {
//	    // queue is full
//	}
//	got, err := q.Read()
//	if turnq.IsWouldBlock(err) {
//	    // queue is empty
//	}
//
//	// Blocking (parks until a slot is available)
//	q.BlockingWrite(&ev)
//	got = q.BlockingRead()
//
//	// Deadline-bound
//	err = q.TryWriteUntil(time.Now().Add(50*time.Millisecond), &ev)
//	got, err = q.TryReadUntil(time.Now().Add(50 * time.Millisecond))
//
// A single-producer/single-consumer pipeline stage should use [SPSC]
// instead: it is a Lamport ring with cached head/tail indices and never
// needs the ticket/turn-sequencer machinery [MPMCQueue] requires to
// support many producers and consumers safely.
//
//	q := turnq.NewSPSC[Event](1024)
//
// [Builder] picks between the two for callers who want to express
// producer/consumer cardinality declaratively instead of choosing a
// constructor directly:
//
//	q := turnq.Build[Event](turnq.New(1024).SingleProducer().SingleConsumer()) // → SPSC
//	q := turnq.Build[Event](turnq.New(4096))                                   // → MPMCQueue
//
// # How the queue works
//
// [MPMCQueue] hands out tickets from two monotonic counters, pushTicket
// and popTicket. A ticket t maps to a slot index via a coprime stride
// (spreading consecutive tickets across cache lines) and a turn
// (t / capacity). Each slot's [TurnSequencer] alternates even turns
// (enqueue rights) and odd turns (dequeue rights), so the k-th producer
// and k-th consumer to touch a given slot are strictly ordered without
// either one ever blocking the other slots in the ring.
//
// Write/Read attempt to obtain a ticket only if the target slot is
// immediately ready, so a failed non-blocking call never consumes a
// ticket and is invisible to every other caller. BlockingWrite/
// BlockingRead unconditionally claim the next ticket and then park on
// the slot's sequencer until their turn arrives. TryWriteUntil/
// TryReadUntil split the difference: they claim a ticket as long as the
// push/pop difference stays within capacity and then finish on that slot
// without a deadline; when no ticket can be claimed they wait on the
// next ticket's slot with the deadline and retry ticket acquisition.
//
// # Error Handling
//
// Non-blocking and deadline-bound operations return [ErrWouldBlock]
// when they cannot proceed immediately (queue full, empty, or deadline
// elapsed). This is an alias for [code.hybscloud.com/iox.ErrWouldBlock]
// for ecosystem consistency with error classification helpers:
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Write(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if !turnq.IsWouldBlock(err) {
//	        return err // unexpected error
//	    }
//	    backoff.Wait()
//	}
//
// [TurnSequencer], exposed for layered reuse independent of
// [MPMCQueue], additionally reports [ErrPast] (the caller's turn had
// already elapsed before it arrived) and [ErrTimedOut] (a deadline
// elapsed while parked). Neither escapes [MPMCQueue]'s own API: ticket
// monotonicity guarantees a ticket's turn can never be PAST by the time
// its holder waits for it, and MPMCQueue's own timeout handling maps
// ErrTimedOut to ErrWouldBlock at its public boundary.
//
//	turnq.IsWouldBlock(err)  // true if queue full/empty/deadline elapsed
//	turnq.IsSemantic(err)    // true if control flow signal, not failure
//	turnq.IsNonFailure(err)  // true if nil, ErrWouldBlock, ErrPast, or ErrTimedOut
//
// # Capacity
//
// [NewMPMCQueue]'s capacity is never rounded: indexing goes through a
// coprime stride rather than a power-of-2 mask, so any capacity >= 1 is
// valid. [NewSPSC], by contrast, rounds up to the next power of 2 —
// it indexes with a mask, matching the Lamport ring buffer's usual
// layout.
//
//	turnq.NewMPMCQueue[int](1000) // capacity exactly 1000
//	turnq.NewSPSC[int](1000)      // capacity rounds to 1024
//
// Capacity 1 is legal for [MPMCQueue] and behaves as a rendezvous: at
// most one element may be in flight at a time.
//
// # Thread Safety
//
//   - [MPMCQueue]: any number of producer and consumer goroutines.
//   - [SPSC]: exactly one producer goroutine, exactly one consumer
//     goroutine. Violating this causes undefined behavior.
//
// # Size
//
// [MPMCQueue.Size] is a linearizable snapshot obtained by re-reading
// the push and pop ticket counters until they agree, falling back to
// the latest observed pair under persistent contention. It may be
// transiently negative (a pop ticket claimed before its matching push
// completes) or exceed capacity by a bounded amount under contention;
// [MPMCQueue.IsEmpty]/[MPMCQueue.IsFull] are derived from it.
//
// # Destruction
//
// Neither queue type guards against destruction while a goroutine is
// parked in BlockingWrite/BlockingRead/TryWriteUntil/TryReadUntil.
// Callers must quiesce all producers and consumers before letting a
// queue value become unreachable.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, [code.hybscloud.com/spin] for adaptive backoff
// before parking, and golang.org/x/sys/unix for the Linux bitset-futex
// wait primitive (internal/wait), with a sync.Cond-based fallback on
// platforms without one.
package turnq
