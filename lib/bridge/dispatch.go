// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"fmt"

	"github.com/skirmish-net/gamemanager/lib/ipc"
)

// requiredFields lists which ipc.Command pointer fields must be
// present for a given kind, named the way they appear in the wire
// struct's doc comment. Checked before the command ever reaches
// EngineControl so a malformed command yields command_error instead
// of an engine callback call with a nil-dereferencing shim.
func requiredFields(kind ipc.CommandKind, cmd ipc.Command) error {
	missing := func(kind, name string) error {
		return fmt.Errorf("%s command missing required field %q", kind, name)
	}

	switch kind {
	case ipc.CommandMove, ipc.CommandPatrol, ipc.CommandFight:
		if cmd.UnitID == nil {
			return missing(string(kind), "unit_id")
		}
		if cmd.X == nil || cmd.Y == nil || cmd.Z == nil {
			return missing(string(kind), "x/y/z")
		}
	case ipc.CommandStop:
		if cmd.UnitID == nil {
			return missing(string(kind), "unit_id")
		}
	case ipc.CommandAttack:
		if cmd.UnitID == nil {
			return missing(string(kind), "unit_id")
		}
		if cmd.TargetID == nil {
			return missing(string(kind), "target_id")
		}
	case ipc.CommandBuild:
		if cmd.UnitID == nil {
			return missing(string(kind), "unit_id")
		}
		if cmd.BuildDefID == nil {
			return missing(string(kind), "build_def_id")
		}
		if cmd.X == nil || cmd.Y == nil || cmd.Z == nil {
			return missing(string(kind), "x/y/z")
		}
	case ipc.CommandGuard:
		if cmd.UnitID == nil {
			return missing(string(kind), "unit_id")
		}
		if cmd.GuardID == nil {
			return missing(string(kind), "guard_id")
		}
	case ipc.CommandRepair:
		if cmd.UnitID == nil {
			return missing(string(kind), "unit_id")
		}
		if cmd.RepairID == nil {
			return missing(string(kind), "repair_id")
		}
	case ipc.CommandSetFireState, ipc.CommandSetMoveState:
		if cmd.UnitID == nil {
			return missing(string(kind), "unit_id")
		}
		if cmd.State == nil {
			return missing(string(kind), "state")
		}
	case ipc.CommandSendChat:
		if cmd.Text == "" {
			return missing(string(kind), "text")
		}
	case ipc.CommandSetSpeed:
		if cmd.Speed == nil {
			return missing(string(kind), "speed")
		}
	case ipc.CommandPause, ipc.CommandUnpause:
		// no required fields
	default:
		return fmt.Errorf("unknown command kind %q", kind)
	}
	return nil
}
