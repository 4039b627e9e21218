// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package turnq

import "code.hybscloud.com/iox"

// ErrWouldBlock indicates a non-blocking or deadline-bound operation
// could not proceed immediately: the queue is full (Write) or empty
// (Read), or a deadline elapsed (TryWriteUntil/TryReadUntil).
//
// ErrWouldBlock is a control flow signal, not a failure. The caller
// should retry (with backoff) rather than propagating the error.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
//
// Example:
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Write(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if turnq.IsWouldBlock(err) {
//	        backoff.Wait()
//	        continue
//	    }
//	    return err
//	}
var ErrWouldBlock = iox.ErrWouldBlock

// ErrPast is returned by TurnSequencer.TryWaitForTurn when the caller's
// turn has already fully elapsed before the caller arrived (spec.md §7,
// "PAST"). In normal MPMCQueue use this never escapes Write/Read/
// BlockingWrite/BlockingRead/TryWriteUntil/TryReadUntil — tickets are
// monotonic, so a ticket's turn cannot complete before the ticket was
// issued. It is kept on the exported sequencer surface because
// TurnSequencer is reusable independent of MPMCQueue (spec.md §6).
var ErrPast = errPast{}

// ErrTimedOut is returned by deadline-bound sequencer and slot calls
// when the deadline elapses before the caller's turn arrives.
var ErrTimedOut = errTimedOut{}

type errPast struct{}

func (errPast) Error() string { return "turnq: turn already past" }

type errTimedOut struct{}

func (errTimedOut) Error() string { return "turnq: deadline exceeded" }

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a
// failure). Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition:
// nil, ErrWouldBlock, ErrPast, or ErrTimedOut.
// Delegates to [iox.IsNonFailure] for everything else.
func IsNonFailure(err error) bool {
	if err == nil || err == ErrPast || err == ErrTimedOut {
		return true
	}
	return iox.IsNonFailure(err)
}
