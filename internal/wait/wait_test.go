// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wait

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

// TestWaitValueChanged is spec.md §4.1: if *addr != expected at the
// kernel check, Wait must return VALUE_CHANGED immediately without
// blocking.
func TestWaitValueChanged(t *testing.T) {
	var addr uint32
	atomic.StoreUint32(&addr, 1)

	start := time.Now()
	res := Wait(&addr, 0, NoDeadline, AllChannels)
	if res != ValueChanged {
		t.Fatalf("Wait with mismatched expected: got %v, want ValueChanged", res)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("Wait with mismatched expected blocked for %v, want near-instant return", elapsed)
	}
}

// TestWaitTimedOut exercises a deadline with no matching Wake.
func TestWaitTimedOut(t *testing.T) {
	var addr uint32
	res := Wait(&addr, 0, time.Now().Add(30*time.Millisecond), AllChannels)
	if res != TimedOut {
		t.Fatalf("Wait past deadline with no Wake: got %v, want TimedOut", res)
	}
}

// TestWaitWake is spec.md §8 concrete scenario 6: thread A waits, thread
// B wakes it after a delay, A returns Awoken within a small delta.
func TestWaitWake(t *testing.T) {
	var addr uint32
	done := make(chan Result, 1)

	go func() {
		done <- Wait(&addr, 0, NoDeadline, AllChannels)
	}()

	time.Sleep(20 * time.Millisecond)
	start := time.Now()
	n := Wake(&addr, -1, AllChannels)
	_ = n // platform-dependent: futex reports woken count, the portable fallback reports waiter count

	select {
	case res := <-done:
		if res != Awoken {
			t.Fatalf("Wait after Wake: got %v, want Awoken", res)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Fatalf("Wait took %v to observe Wake, want well under 1s", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait was never woken by Wake")
	}
}

// TestWaitChannelMaskIsolatesUnrelatedWakes is spec.md §4.2/§9: a Wake on
// a disjoint channel must not rouse a waiter parked on a different
// channel before its own deadline. The portable fallback is explicitly
// allowed to over-wake (spec.md §9), so this only asserts the Linux
// bitset path's isolation where it is actually implemented; elsewhere it
// degrades to asserting Wait still eventually unblocks via deadline.
func TestWaitChannelMaskIsolatesUnrelatedWakes(t *testing.T) {
	var addr uint32
	const ourChannel = uint32(1) << 3
	const otherChannel = uint32(1) << 7

	done := make(chan Result, 1)
	go func() {
		done <- Wait(&addr, 0, time.Now().Add(150*time.Millisecond), ourChannel)
	}()

	time.Sleep(10 * time.Millisecond)
	Wake(&addr, -1, otherChannel)

	select {
	case res := <-done:
		// Either isolation held and the waiter timed out, or this
		// platform's fallback over-wakes (allowed) and the waiter returned
		// Awoken; off Linux both are acceptable, the one thing that must
		// not happen is blocking forever.
		if res != TimedOut && res != Awoken {
			t.Fatalf("Wait after disjoint-channel Wake: got unexpected result %v", res)
		}
		if runtime.GOOS == "linux" && res != TimedOut {
			t.Fatalf("Wait after disjoint-channel Wake on the Linux bitset futex: got %v, want TimedOut", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait never returned after disjoint-channel Wake + deadline")
	}
}

func TestWakeOnAddressWithNoWaitersIsNoop(t *testing.T) {
	var addr uint32
	n := Wake(&addr, -1, AllChannels)
	if n < 0 {
		t.Fatalf("Wake with no waiters returned negative count: %d", n)
	}
}

func TestChannelPartitionsByTurnMod32(t *testing.T) {
	if Channel(0) != Channel(32) {
		t.Fatalf("Channel(0)=%#x should equal Channel(32)=%#x", Channel(0), Channel(32))
	}
	if Channel(1) == Channel(2) {
		t.Fatalf("Channel(1) and Channel(2) should differ")
	}
}
