// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "github.com/skirmish-net/gamemanager/lib/ipc"

// EngineControl is the narrow slice of the engine's AI callback vtable
// that Bridge actually needs: dispatching a decoded command, and
// resolving a unit instance id to its human-readable definition name
// for event enrichment. A cgo shim implements this by indexing into
// the real SSkirmishAICallback function-pointer table; tests implement
// it with a plain fake.
//
// Every method is called only from the sim thread, synchronously,
// matching the engine's own calling convention.
type EngineControl interface {
	// HandleCommand dispatches a single decoded command to the engine.
	// kind disambiguates which optional fields of cmd are meaningful.
	// A non-nil error means the engine's callback rejected the
	// command (bad unit id, wrong team, unknown build def, ...); it
	// becomes a command_error event, never a dropped connection.
	HandleCommand(kind ipc.CommandKind, cmd ipc.Command) error

	// UnitDefName resolves a live unit instance id to the
	// human-readable name of its definition. ok is false for
	// unknown or sentinel ids (0, -1 for "no attacker") — callers
	// treat that as "name unavailable", not an error.
	UnitDefName(unitID int32) (name string, ok bool)

	// Log writes a diagnostic line through the engine's own logging
	// callback, so Bridge messages appear in the same log the engine
	// writes its own to.
	Log(msg string)
}
