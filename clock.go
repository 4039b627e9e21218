// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package turnq

import (
	"time"

	"code.hybscloud.com/turnq/internal/wait"
)

// NoDeadline is the sentinel meaning "block indefinitely" for
// TryWriteUntil/TryReadUntil and the sequencer's TryWaitForTurn,
// matching spec.md §9's "preserve a sentinel no-deadline" guidance.
var NoDeadline = wait.NoDeadline

// Deadline converts a relative timeout into an absolute deadline in the
// caller's preferred timebase, per spec.md §4.1/§9: callers may reason
// in either a wall-clock or steady (monotonic) timebase, so long as the
// same time.Time is handed to TryWriteUntil/TryReadUntil. time.Now()
// already carries both a wall and a monotonic reading, and time.Time
// subtraction prefers the monotonic one when present, so no explicit
// clock-selection parameter is needed — unlike the source language,
// which must pick a kernel clock (CLOCK_REALTIME vs CLOCK_MONOTONIC)
// explicitly. The wait primitive (internal/wait) always converts the
// deadline to a duration via time.Until and re-anchors it to
// CLOCK_MONOTONIC immediately before the futex syscall.
func Deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Now()
	}
	return time.Now().Add(timeout)
}
