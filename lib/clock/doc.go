// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock interface parameter instead of calling
// time.Now, time.After, time.NewTicker, time.AfterFunc, or time.Sleep
// directly. In production, Real() provides the standard library
// behavior. In tests, Fake() provides a deterministic clock that
// advances only when Advance is called.
//
// # Wiring Pattern
//
// enginesup.Supervisor holds the one production timer in this repo
// worth controlling from a test: the handshake deadline that fires if
// a spawned engine process never dials back with its token.
//
//	type Supervisor struct {
//	    clk clock.Clock
//	    // ...
//	}
//
// In production, New defaults clk to clock.Real(); SetClock overrides
// it before the first StartGame:
//
//	sup := enginesup.New(logger, sess, engineBinary, writeDirRoot, socketDir, shared)
//
// In tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	sup.SetClock(c)
//	// ... StartGame spawns a process and arms the handshake timer ...
//	c.WaitForTimers(1)          // wait for the deadline timer to register
//	c.Advance(enginesup.HandshakeDeadline) // fire it deterministically
//
// # FakeClock Synchronization
//
// When a goroutine calls Sleep, After, NewTicker, or AfterFunc on a
// FakeClock, it registers a pending timer. Use WaitForTimers to block
// until a specific number of timers are registered before calling
// Advance. This eliminates the race between timer registration and
// time advancement that plagues tests using time.Sleep for
// synchronization.
package clock
