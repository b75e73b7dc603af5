// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import "encoding/json"

// FrameType identifies the kind of JSON object sent over the Bridge
// socket. It is the "type" field present on every frame.
type FrameType string

const (
	FrameHello   FrameType = "hello"
	FrameWelcome FrameType = "welcome"
	FrameCommand FrameType = "command"
	FrameEvent   FrameType = "event"
)

// Hello is the first frame sent by the Bridge after it connects to the
// IPC Router's local socket. The Router matches Token against a
// pending engine instance and binds the socket to it.
type Hello struct {
	Type    FrameType `json:"type"` // always "hello"
	Token   string    `json:"token"`
	Version string    `json:"version"`
}

// Welcome is the Router's reply to a matched Hello. No further
// handshake frames are exchanged after this; subsequent frames are
// Command (Router to Bridge) or Event (Bridge to Router).
type Welcome struct {
	Type FrameType `json:"type"` // always "welcome"
}

// CommandKind enumerates the command taxonomy accepted from the
// Multiplexer and forwarded to the Bridge.
type CommandKind string

const (
	CommandMove         CommandKind = "move"
	CommandStop         CommandKind = "stop"
	CommandAttack       CommandKind = "attack"
	CommandBuild        CommandKind = "build"
	CommandPatrol       CommandKind = "patrol"
	CommandFight        CommandKind = "fight"
	CommandGuard        CommandKind = "guard"
	CommandRepair       CommandKind = "repair"
	CommandSetFireState CommandKind = "set_fire_state"
	CommandSetMoveState CommandKind = "set_move_state"
	CommandSendChat     CommandKind = "send_chat"
	CommandPause        CommandKind = "pause"
	CommandUnpause      CommandKind = "unpause"
	CommandSetSpeed     CommandKind = "set_speed"
)

// Command is a single frame sent from the Router to the Bridge. Kind
// selects which fields of the payload are meaningful; unused fields
// are omitted on the wire rather than sent as zero values. The pointer
// fields let the Bridge's decoder distinguish "absent" from
// "explicitly zero"; Queue and Text are plain values, so absent and
// false/empty decode the same.
type Command struct {
	Type FrameType   `json:"type"` // always "command"
	Kind CommandKind `json:"kind"`

	UnitID   *int64 `json:"unit_id,omitempty"`
	TargetID *int64 `json:"target_id,omitempty"`
	GuardID  *int64 `json:"guard_id,omitempty"`
	RepairID *int64 `json:"repair_id,omitempty"`

	BuildDefID *int64 `json:"build_def_id,omitempty"`

	X       *float64 `json:"x,omitempty"`
	Y       *float64 `json:"y,omitempty"`
	Z       *float64 `json:"z,omitempty"`
	Facing  *int     `json:"facing,omitempty"`
	Queue   bool     `json:"queue,omitempty"`
	State   *int     `json:"state,omitempty"` // fire state / move state enum value
	Speed   *float64 `json:"speed,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// EventKind enumerates the event taxonomy reported by the Bridge: the
// baseline taxonomy plus the additional events the engine's sim thread
// reports under "at least" wording (unit-given/captured, weapon fire,
// and the per-instance lifecycle marker the Engine Supervisor itself
// synthesizes).
type EventKind string

const (
	EventInit             EventKind = "init"
	EventUpdate           EventKind = "update" // throttled on the sim thread before reaching the IPC queue
	EventUnitCreated      EventKind = "unit_created"
	EventUnitFinished     EventKind = "unit_finished"
	EventUnitDestroyed    EventKind = "unit_destroyed"
	EventUnitDamaged      EventKind = "unit_damaged"
	EventUnitIdle         EventKind = "unit_idle"
	EventUnitMoveFailed   EventKind = "unit_move_failed"
	EventUnitGiven        EventKind = "unit_given"
	EventUnitCaptured     EventKind = "unit_captured"
	EventEnemyEnterLOS    EventKind = "enemy_enter_los"
	EventEnemyLeaveLOS    EventKind = "enemy_leave_los"
	EventEnemyEnterRadar  EventKind = "enemy_enter_radar"
	EventEnemyLeaveRadar  EventKind = "enemy_leave_radar"
	EventEnemyDamaged     EventKind = "enemy_damaged"
	EventEnemyCreated     EventKind = "enemy_created"
	EventEnemyFinished    EventKind = "enemy_finished"
	EventEnemyDestroyed   EventKind = "enemy_destroyed"
	EventWeaponFired      EventKind = "weapon_fired"
	EventCommandFinished  EventKind = "command_finished"
	EventCommandError     EventKind = "command_error"
	EventMessage          EventKind = "message"
	EventChatMessage      EventKind = "chat_message"
	EventLuaMessage       EventKind = "lua_message"
	EventGameStarted      EventKind = "game_started"
	EventGameEnded        EventKind = "game_ended"
	EventRelease          EventKind = "release"
	EventEngineEnded      EventKind = "engine_ended" // Supervisor-synthesized on process exit, not sent by the Bridge itself
)

// Event is a single frame sent from the Bridge to the Router. Payload
// carries the event-kind-specific fields as raw JSON so the Router
// can forward it to the Multiplexer as an opaque channel message
// without needing to know every field shape for every event kind.
type Event struct {
	Type    FrameType       `json:"type"` // always "event"
	Kind    EventKind       `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
