// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wait provides a thin, address-keyed park/wake primitive.
//
// It is a bitset-capable futex wrapper on Linux and a condition-variable
// emulation everywhere else. Callers treat a 32-bit word at some address
// as a rendezvous point: Wait blocks while the word still holds an
// expected value and the caller's channel mask is not woken; Wake rouses
// waiters on that address whose mask intersects the one given.
//
// No allocation occurs on the Linux fast path. The portable fallback
// allocates a sync.Cond per distinct address under contention and reaps
// it once no waiter remains.
package wait

import "time"

// Result reports why Wait returned.
type Result int

const (
	// Awoken means a matching Wake roused the caller.
	Awoken Result = iota
	// TimedOut means the deadline elapsed before a matching Wake.
	TimedOut
	// Interrupted means a signal or spurious wakeup interrupted the
	// park; callers treat this identically to Awoken and re-check.
	Interrupted
	// ValueChanged means *addr != expected at the point Wait checked,
	// so the caller never blocked. Conservative: the caller re-reads
	// state and re-decides rather than treating this as a failure.
	ValueChanged
)

// AllChannels wakes or waits on every channel, equivalent to a mask of
// all 32 bits set.
const AllChannels uint32 = 0xFFFFFFFF

// NoDeadline signals Wait should block indefinitely.
var NoDeadline = time.Time{}

// Channel returns the wake-mask bit for turn t, partitioning turns into
// 32 broadcast channels so a wake for t+1 does not spuriously rouse
// waiters parked on an unrelated turn.
func Channel(t uint64) uint32 {
	return 1 << (uint32(t) % 32)
}
