// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package wait

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"
)

// Non-Linux platforms have no bitset-capable futex, so the channel mask
// from spec.md §4.1/§9 is emulated with per-address condition variables
// instead of being honored bit-for-bit: every Wake broadcasts to every
// waiter on that address regardless of mask, which spec.md §9 explicitly
// allows ("accept extra spurious wakeups"). Callers already loop and
// re-check their own turn after every wakeup, so the extra wakeups cost
// a spin, never correctness.

type condEntry struct {
	mu      sync.Mutex
	cond    *sync.Cond
	gen     uint64
	waiters int
	retired bool
}

var registry sync.Map // uintptr(addr) -> *condEntry

// entryFor returns the condEntry for addr, already locked and guaranteed
// not retired. Looping past a retired entry closes a TOCTOU race where a
// waiter loads an entry just as its last occupant is deleting it from
// the registry, which would otherwise park the waiter on an entry no
// future Wake can ever reach again.
func entryFor(addr *uint32) *condEntry {
	key := uintptr(unsafe.Pointer(addr))
	for {
		var e *condEntry
		if v, ok := registry.Load(key); ok {
			e = v.(*condEntry)
		} else {
			e = &condEntry{}
			e.cond = sync.NewCond(&e.mu)
			actual, _ := registry.LoadOrStore(key, e)
			e = actual.(*condEntry)
		}
		e.mu.Lock()
		if e.retired {
			e.mu.Unlock()
			continue
		}
		return e
	}
}

func release(addr *uint32, e *condEntry) {
	e.waiters--
	if e.waiters == 0 {
		e.retired = true
		registry.Delete(uintptr(unsafe.Pointer(addr)))
	}
	e.mu.Unlock()
}

// Wait parks the caller on addr while *addr == expected. wakeMask is
// accepted for interface parity but not honored precisely; see the
// package-level note above.
func Wait(addr *uint32, expected uint32, deadline time.Time, _ uint32) Result {
	if atomic.LoadUint32(addr) != expected {
		return ValueChanged
	}

	e := entryFor(addr) // returns locked
	e.waiters++
	startGen := e.gen

	var timer *time.Timer
	if !deadline.IsZero() {
		timer = time.AfterFunc(time.Until(deadline), func() {
			e.mu.Lock()
			e.gen++
			e.cond.Broadcast()
			e.mu.Unlock()
		})
	}

	// Re-check in ValueChanged > TimedOut > Awoken priority order every
	// time cond.Wait returns, rather than trusting the reason gen
	// changed: the deadline timer bumps gen the same way a real Wake
	// does, so a bare "did gen change" test would misreport a timeout
	// as Awoken if it raced a genuine wakeup at the same instant.
	for {
		if atomic.LoadUint32(addr) != expected {
			release(addr, e)
			if timer != nil {
				timer.Stop()
			}
			return ValueChanged
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			release(addr, e)
			timer.Stop()
			return TimedOut
		}
		if e.gen != startGen {
			release(addr, e)
			if timer != nil {
				timer.Stop()
			}
			return Awoken
		}
		e.cond.Wait()
	}
}

// Wake rouses waiters parked on addr. count and wakeMask are accepted for
// interface parity; every waiter on addr is broadcast to (see above).
func Wake(addr *uint32, _ int, _ uint32) int {
	key := uintptr(unsafe.Pointer(addr))
	v, ok := registry.Load(key)
	if !ok {
		return 0
	}
	e := v.(*condEntry)
	e.mu.Lock()
	n := e.waiters
	e.gen++
	e.cond.Broadcast()
	e.mu.Unlock()
	return n
}
