// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package turnq

// RaceEnabled is true when the race detector is active.
// Used by tests to skip concurrent tests that rely on acquire/release
// ordering alone, which the race detector cannot see through and flags
// as false positives.
const RaceEnabled = true
