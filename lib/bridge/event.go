// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"encoding/json"

	"github.com/skirmish-net/gamemanager/lib/ipc"
)

// RawEvent carries the engine-reported fields for a single event,
// flattened across every event kind the same way ipc.Command flattens
// every command kind: a shim decodes whichever engine struct the
// topic ID names and fills in only the fields that kind defines.
// RawEvent carries no name fields; buildPayload resolves unit,
// builder, attacker and enemy names through EngineControl before the
// event reaches the outbound queue.
type RawEvent struct {
	Frame     int32
	SavedGame bool
	Reason    int32

	Player int32
	Text   string

	Unit    int32
	Builder int32

	Attacker int32
	Enemy    int32

	Damage      float32
	WeaponDefID int32
	Paralyzer   bool

	OldTeam int32
	NewTeam int32

	CommandID    int32
	CommandTopic int32

	LuaData string

	CommandErrorText string
}

// eventPayload mirrors the wire shape of each event kind's payload,
// one struct field set per kind (see buildPayload), with name fields
// present so buildPayload can assign the names it resolves through
// EngineControl.UnitDefName. json omitempty keeps each kind's wire object limited
// to the fields it actually defines, matching the original's
// skip_serializing_if behavior for optional names.
type eventPayload struct {
	Frame     int32  `json:"frame,omitempty"`
	SavedGame bool   `json:"saved_game,omitempty"`
	Reason    int32  `json:"reason,omitempty"`
	Player    int32  `json:"player,omitempty"`
	Text      string `json:"text,omitempty"`

	Unit    int32  `json:"unit,omitempty"`
	UnitName string `json:"unit_name,omitempty"`

	Builder     int32  `json:"builder,omitempty"`
	BuilderName string `json:"builder_name,omitempty"`

	Attacker     int32  `json:"attacker,omitempty"`
	AttackerName string `json:"attacker_name,omitempty"`

	Enemy     int32  `json:"enemy,omitempty"`
	EnemyName string `json:"enemy_name,omitempty"`

	Damage      float32 `json:"damage,omitempty"`
	WeaponDefID int32   `json:"weapon_def_id,omitempty"`
	Paralyzer   bool    `json:"paralyzer,omitempty"`

	OldTeam int32 `json:"old_team,omitempty"`
	NewTeam int32 `json:"new_team,omitempty"`

	CommandID    int32 `json:"command_id,omitempty"`
	CommandTopic int32 `json:"command_topic,omitempty"`

	Data string `json:"data,omitempty"`

	Error   string `json:"error,omitempty"`
	Command string `json:"command,omitempty"`
}

// buildPayload shapes raw into the fields ev's kind defines on the
// wire, resolving unit/attacker/enemy names through control where the
// original engine exposes only the kind's numeric ids.
func buildPayload(control EngineControl, kind ipc.EventKind, raw RawEvent) eventPayload {
	p := eventPayload{}

	resolve := func(id int32) string {
		if id <= 0 {
			return ""
		}
		name, ok := control.UnitDefName(id)
		if !ok {
			return ""
		}
		return name
	}

	switch kind {
	case ipc.EventInit:
		p.Frame, p.SavedGame = raw.Frame, raw.SavedGame
	case ipc.EventRelease:
		p.Reason = raw.Reason
	case ipc.EventUpdate:
		p.Frame = raw.Frame
	case ipc.EventMessage, ipc.EventChatMessage:
		p.Player, p.Text = raw.Player, raw.Text
	case ipc.EventUnitCreated:
		p.Unit, p.UnitName = raw.Unit, resolve(raw.Unit)
		p.Builder, p.BuilderName = raw.Builder, resolve(raw.Builder)
	case ipc.EventUnitFinished, ipc.EventUnitIdle, ipc.EventUnitMoveFailed:
		p.Unit, p.UnitName = raw.Unit, resolve(raw.Unit)
	case ipc.EventUnitDamaged:
		p.Unit, p.UnitName = raw.Unit, resolve(raw.Unit)
		p.Attacker, p.AttackerName = raw.Attacker, resolve(raw.Attacker)
		p.Damage, p.WeaponDefID, p.Paralyzer = raw.Damage, raw.WeaponDefID, raw.Paralyzer
	case ipc.EventUnitDestroyed:
		p.Unit, p.UnitName = raw.Unit, resolve(raw.Unit)
		p.Attacker, p.AttackerName = raw.Attacker, resolve(raw.Attacker)
		p.WeaponDefID = raw.WeaponDefID
	case ipc.EventUnitGiven, ipc.EventUnitCaptured:
		p.Unit, p.UnitName = raw.Unit, resolve(raw.Unit)
		p.OldTeam, p.NewTeam = raw.OldTeam, raw.NewTeam
	case ipc.EventEnemyEnterLOS, ipc.EventEnemyLeaveLOS, ipc.EventEnemyEnterRadar,
		ipc.EventEnemyLeaveRadar, ipc.EventEnemyCreated, ipc.EventEnemyFinished:
		p.Enemy, p.EnemyName = raw.Enemy, resolve(raw.Enemy)
	case ipc.EventEnemyDamaged:
		p.Enemy, p.EnemyName = raw.Enemy, resolve(raw.Enemy)
		p.Attacker, p.AttackerName = raw.Attacker, resolve(raw.Attacker)
		p.Damage, p.WeaponDefID, p.Paralyzer = raw.Damage, raw.WeaponDefID, raw.Paralyzer
	case ipc.EventEnemyDestroyed:
		p.Enemy, p.EnemyName = raw.Enemy, resolve(raw.Enemy)
		p.Attacker, p.AttackerName = raw.Attacker, resolve(raw.Attacker)
	case ipc.EventWeaponFired:
		p.Unit, p.UnitName = raw.Unit, resolve(raw.Unit)
		p.WeaponDefID = raw.WeaponDefID
	case ipc.EventCommandFinished:
		p.Unit, p.UnitName = raw.Unit, resolve(raw.Unit)
		p.CommandID, p.CommandTopic = raw.CommandID, raw.CommandTopic
	case ipc.EventLuaMessage:
		p.Data = raw.LuaData
	case ipc.EventCommandError:
		p.Error, p.Command = raw.CommandErrorText, raw.Text
	}

	return p
}

func marshalPayload(control EngineControl, kind ipc.EventKind, raw RawEvent) json.RawMessage {
	data, err := json.Marshal(buildPayload(control, kind, raw))
	if err != nil {
		// eventPayload has no types json.Marshal can fail on; this
		// would indicate a programming error, not a runtime fault.
		return json.RawMessage("{}")
	}
	return data
}

// lowPriority reports whether events of kind only ever matter in
// their latest form, so the outbound queue may coalesce repeated
// pushes into one pending entry rather than growing without bound.
func lowPriority(kind ipc.EventKind) bool {
	return kind == ipc.EventUpdate
}
