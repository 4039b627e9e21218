// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package wait

import (
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	futexWaitBitset = 9
	futexWakeBitset = 10
	futexPrivate    = 128
)

// Wait parks the caller on addr while *addr == expected, until a Wake
// with an intersecting mask, deadline expiry, or a spurious/interrupting
// signal. If deadline is the zero time.Time, Wait may block indefinitely.
func Wait(addr *uint32, expected uint32, deadline time.Time, mask uint32) Result {
	var ts *unix.Timespec
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d <= 0 {
			if atomic.LoadUint32(addr) != expected {
				return ValueChanged
			}
			return TimedOut
		}
		var mono unix.Timespec
		if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &mono); err != nil {
			return ValueChanged
		}
		abs := mono.Nano() + d.Nanoseconds()
		spec := unix.NsecToTimespec(abs)
		ts = &spec
	}

	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWaitBitset|futexPrivate),
		uintptr(expected),
		uintptr(unsafe.Pointer(ts)),
		0,
		uintptr(mask),
	)
	switch errno {
	case 0:
		return Awoken
	case unix.ETIMEDOUT:
		return TimedOut
	case unix.EAGAIN:
		return ValueChanged
	case unix.EINTR:
		return Interrupted
	default:
		// Invalid arguments or a fault are mapped to ValueChanged: the
		// caller re-reads the address and re-decides rather than
		// treating a futex quirk as fatal.
		return ValueChanged
	}
}

// Wake rouses up to count waiters parked on addr whose mask intersects
// wakeMask. Errors are swallowed — a wake guarding self-destruction must
// not propagate failure.
func Wake(addr *uint32, count int, wakeMask uint32) int {
	if count <= 0 {
		count = int(^uint32(0) >> 1)
	}
	n, _, _ := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWakeBitset|futexPrivate),
		uintptr(count),
		0,
		0,
		uintptr(wakeMask),
	)
	return int(n)
}
