// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

// Package toolsurface registers the lobby.* and game.* tools against
// a session.Session: parameter validation, translation to
// lib/lobby.Client and lib/enginesup.Supervisor calls, and the
// normalized {success, data|error} result envelope.
//
// Registration happens once at startup (cmd/gamemanager wires a
// Registry together with a Client and a Supervisor and calls
// Register). Each tool's handler runs on the goroutine tools/call
// spawns per invocation — handlers never touch session, client, or
// supervisor state directly; they call the exported methods those
// packages already serialize through their own owning goroutines.
package toolsurface
