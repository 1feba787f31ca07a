// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The engine's time-sensitive paths (expiry resolution, retry backoff,
// run timestamps) never call the time package directly; they hold a
// [Clock] and tests substitute [Fake] to make those paths
// deterministic. [Fake] supports explicit advancement and
// [FakeClock.BlockUntil] for synchronizing with goroutines that are
// about to block on the clock.
package clock
