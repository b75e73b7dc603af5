// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package main

/*
#include "engine_types.h"
*/
import "C"

import (
	"unsafe"

	"github.com/skirmish-net/gamemanager/lib/bridge"
	"github.com/skirmish-net/gamemanager/lib/ipc"
)

// Engine event topic ids, matching the engine's own AICallback event
// ordering (EVENT_NULL itself is never dispatched and is omitted).
const (
	eventInit            = 1
	eventRelease         = 2
	eventUpdate          = 3
	eventMessage         = 4
	eventUnitCreated     = 5
	eventUnitFinished    = 6
	eventUnitIdle        = 7
	eventUnitMoveFailed  = 8
	eventUnitDamaged     = 9
	eventUnitDestroyed   = 10
	eventUnitGiven       = 11
	eventUnitCaptured    = 12
	eventEnemyEnterLOS   = 13
	eventEnemyLeaveLOS   = 14
	eventEnemyEnterRadar = 15
	eventEnemyLeaveRadar = 16
	eventEnemyDamaged    = 17
	eventEnemyDestroyed  = 18
	eventWeaponFired     = 19
	eventCommandFinished = 22
	eventEnemyCreated    = 25
	eventEnemyFinished   = 26
	eventLuaMessage      = 27
)

// parseEvent decodes the engine's topic-tagged event struct at data
// into the kind/RawEvent pair bridge.Bridge expects. ok is false for a
// topic this Bridge does not forward (EVENT_NULL, EVENT_PLAYER_COMMAND,
// EVENT_SEISMIC_PING, EVENT_LOAD, EVENT_SAVE — none carry information
// any currently wired tool surface consumes).
func parseEvent(topic int, data unsafe.Pointer) (kind ipc.EventKind, raw bridge.RawEvent, ok bool) {
	switch topic {
	case eventInit:
		e := (*C.init_event)(data)
		return ipc.EventInit, bridge.RawEvent{SavedGame: bool(e.saved_game)}, true

	case eventRelease:
		e := (*C.release_event)(data)
		return ipc.EventRelease, bridge.RawEvent{Reason: int32(e.reason)}, true

	case eventUpdate:
		e := (*C.update_event)(data)
		return ipc.EventUpdate, bridge.RawEvent{Frame: int32(e.frame)}, true

	case eventMessage:
		e := (*C.message_event)(data)
		return ipc.EventMessage, bridge.RawEvent{Player: int32(e.player), Text: goStringOrEmpty(e.message)}, true

	case eventUnitCreated:
		e := (*C.unit_created_event)(data)
		return ipc.EventUnitCreated, bridge.RawEvent{Unit: int32(e.unit), Builder: int32(e.builder)}, true

	case eventUnitFinished:
		e := (*C.unit_simple_event)(data)
		return ipc.EventUnitFinished, bridge.RawEvent{Unit: int32(e.unit)}, true

	case eventUnitIdle:
		e := (*C.unit_simple_event)(data)
		return ipc.EventUnitIdle, bridge.RawEvent{Unit: int32(e.unit)}, true

	case eventUnitMoveFailed:
		e := (*C.unit_simple_event)(data)
		return ipc.EventUnitMoveFailed, bridge.RawEvent{Unit: int32(e.unit)}, true

	case eventUnitDamaged:
		e := (*C.unit_damaged_event)(data)
		return ipc.EventUnitDamaged, bridge.RawEvent{
			Unit: int32(e.unit), Attacker: int32(e.attacker),
			Damage: float32(e.damage), WeaponDefID: int32(e.weapon_def_id),
			Paralyzer: bool(e.paralyzer != 0),
		}, true

	case eventUnitDestroyed:
		e := (*C.unit_destroyed_event)(data)
		return ipc.EventUnitDestroyed, bridge.RawEvent{
			Unit: int32(e.unit), Attacker: int32(e.attacker), WeaponDefID: int32(e.weapon_def_id),
		}, true

	case eventUnitGiven:
		e := (*C.unit_team_change_event)(data)
		return ipc.EventUnitGiven, bridge.RawEvent{
			Unit: int32(e.unit_id), OldTeam: int32(e.old_team_id), NewTeam: int32(e.new_team_id),
		}, true

	case eventUnitCaptured:
		e := (*C.unit_team_change_event)(data)
		return ipc.EventUnitCaptured, bridge.RawEvent{
			Unit: int32(e.unit_id), OldTeam: int32(e.old_team_id), NewTeam: int32(e.new_team_id),
		}, true

	case eventEnemyEnterLOS:
		e := (*C.enemy_simple_event)(data)
		return ipc.EventEnemyEnterLOS, bridge.RawEvent{Enemy: int32(e.enemy)}, true

	case eventEnemyLeaveLOS:
		e := (*C.enemy_simple_event)(data)
		return ipc.EventEnemyLeaveLOS, bridge.RawEvent{Enemy: int32(e.enemy)}, true

	case eventEnemyEnterRadar:
		e := (*C.enemy_simple_event)(data)
		return ipc.EventEnemyEnterRadar, bridge.RawEvent{Enemy: int32(e.enemy)}, true

	case eventEnemyLeaveRadar:
		e := (*C.enemy_simple_event)(data)
		return ipc.EventEnemyLeaveRadar, bridge.RawEvent{Enemy: int32(e.enemy)}, true

	case eventEnemyDamaged:
		e := (*C.enemy_damaged_event)(data)
		return ipc.EventEnemyDamaged, bridge.RawEvent{
			Enemy: int32(e.enemy), Attacker: int32(e.attacker),
			Damage: float32(e.damage), WeaponDefID: int32(e.weapon_def_id),
			Paralyzer: bool(e.paralyzer != 0),
		}, true

	case eventEnemyDestroyed:
		e := (*C.enemy_destroyed_event)(data)
		return ipc.EventEnemyDestroyed, bridge.RawEvent{Enemy: int32(e.enemy), Attacker: int32(e.attacker)}, true

	case eventEnemyCreated:
		e := (*C.enemy_simple_event)(data)
		return ipc.EventEnemyCreated, bridge.RawEvent{Enemy: int32(e.enemy)}, true

	case eventEnemyFinished:
		e := (*C.enemy_simple_event)(data)
		return ipc.EventEnemyFinished, bridge.RawEvent{Enemy: int32(e.enemy)}, true

	case eventWeaponFired:
		e := (*C.weapon_fired_event)(data)
		return ipc.EventWeaponFired, bridge.RawEvent{Unit: int32(e.unit_id), WeaponDefID: int32(e.weapon_def_id)}, true

	case eventCommandFinished:
		e := (*C.command_finished_event)(data)
		return ipc.EventCommandFinished, bridge.RawEvent{
			Unit: int32(e.unit_id), CommandID: int32(e.command_id), CommandTopic: int32(e.command_topic_id),
		}, true

	case eventLuaMessage:
		e := (*C.lua_message_event)(data)
		return ipc.EventLuaMessage, bridge.RawEvent{LuaData: goStringOrEmpty(e.in_data)}, true

	default:
		return "", bridge.RawEvent{}, false
	}
}

func goStringOrEmpty(s *C.char) string {
	if s == nil {
		return ""
	}
	return C.GoString(s)
}

// decodeInitEvent reads the callback pointer and saved_game flag out
// of an EVENT_INIT payload. init_event comes from engine_types.h,
// which this file's cgo preamble includes and main.go's does not, so
// handleEvent_ in main.go goes through this helper rather than naming
// C.init_event itself.
func decodeInitEvent(data unsafe.Pointer) (callback unsafe.Pointer, savedGame bool) {
	e := (*C.init_event)(data)
	return e.callback, bool(e.saved_game)
}
