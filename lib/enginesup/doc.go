// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

// Package enginesup implements the Engine Supervisor: write-directory
// preparation, start-script generation, and process spawn/reap for
// Recoil/Spring-family engine instances running the Skirmish AI
// Bridge.
//
// The Supervisor is a single-goroutine owner in the same shape as
// lib/session.Session: all instance-table mutation happens inside its
// own run loop, driven by ops submitted from tool handlers, reap
// goroutines, and (once bound) the IPC Router. Callers never touch
// the instance table directly — every interaction is either a
// synchronous call that submits an op and waits for its result, or a
// one-way notification (handshake completion, process exit).
//
// A started instance is exposed to the multiplexer as a
// session.Resource (and, for the game feature set, a
// session.RollbackCapable) through gameResource, which addresses the
// Supervisor only by instance id.
package enginesup
