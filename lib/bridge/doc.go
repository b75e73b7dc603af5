// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge implements the in-engine half of the Bridge: the
// component a Skirmish AI host loads into the engine process and that
// talks to the GameManager's IPC Router over a Unix socket.
//
// The engine's AI callback ABI is single-threaded — every call into
// this package from HandleEvent happens on the engine's sim thread,
// one call at a time, never concurrently with itself. Bridge splits
// that sim thread from IPC: the sim thread only ever touches the two
// queues (push outbound, drain inbound); a separate goroutine pair
// owns the socket and never blocks the sim thread on I/O.
//
// This package holds the decoupled domain logic — queues, command
// dispatch, event shaping, the IPC wire protocol — behind the
// EngineControl interface. Translating that interface to the actual
// C callback vtable the engine hands an AI at load time is a cgo
// concern and lives outside this package, in the thin shared-library
// entry point that calls Init, HandleEvent, and Release.
package bridge
