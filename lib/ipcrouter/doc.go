// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

// Package ipcrouter implements the IPC Router: it listens on the
// per-instance Unix domain sockets the Engine Supervisor assigns,
// completes the Bridge's hello/welcome handshake by delegating token
// verification to the Supervisor, and thereafter shuttles framed
// lib/ipc messages between the Bridge and the session's channel
// table — Command frames outbound (via the Supervisor's gameResource
// Publish path) and Event frames inbound (via session.Incoming).
//
// One Router serves every instance; each instance gets its own
// listener, opened synchronously by Listen before the Supervisor
// spawns the engine process so the Bridge never races the Router to
// be first on the socket.
package ipcrouter
