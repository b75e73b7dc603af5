// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

//go:build sai_bridge_testfixtures

// The go tool rejects "import C" inside a _test.go file outright (see
// go/build's isTest check), so the handful of C struct literals and
// field reads commands_test.go and events_test.go need live here
// instead, gated behind a build tag so they never reach the real
// c-shared build.
package main

/*
#include <stdlib.h>
#include "engine_types.h"
*/
import "C"

import "unsafe"

func fixtureMoveUnitCommand(data unsafe.Pointer) (unitID int, options int, pos [3]float32) {
	c := (*C.move_unit_command)(data)
	p := (*[3]C.float)(unsafe.Pointer(c.to_pos))
	return int(c.unit_id), int(c.options), [3]float32{float32(p[0]), float32(p[1]), float32(p[2])}
}

func fixtureAttackUnitCommand(data unsafe.Pointer) (toAttackUnitID int, options int) {
	c := (*C.attack_unit_command)(data)
	return int(c.to_attack_unit_id), int(c.options)
}

func fixtureUpdateEvent(frame int32) unsafe.Pointer {
	e := &C.update_event{frame: C.int(frame)}
	return unsafe.Pointer(e)
}

func fixtureUnitDamagedEvent(unit, attacker int32, damage float32, weaponDefID int32, paralyzer bool) unsafe.Pointer {
	var p C.uchar
	if paralyzer {
		p = 1
	}
	e := &C.unit_damaged_event{
		unit: C.int(unit), attacker: C.int(attacker), damage: C.float(damage),
		weapon_def_id: C.int(weaponDefID), paralyzer: p,
	}
	return unsafe.Pointer(e)
}

func fixtureLuaMessageEventNilText() unsafe.Pointer {
	e := &C.lua_message_event{in_data: nil}
	return unsafe.Pointer(e)
}

func fixtureInitEvent(savedGame bool) unsafe.Pointer {
	e := &C.init_event{saved_game: C.bool(savedGame)}
	return unsafe.Pointer(e)
}
