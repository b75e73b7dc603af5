// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package main

/*
#include <stdlib.h>
#include <string.h>
#include "engine_types.h"

static float *make_pos(float x, float y, float z) {
    float *p = (float *)malloc(3 * sizeof(float));
    p[0] = x; p[1] = y; p[2] = z;
    return p;
}

static void *make_move_command(int unit_id, short options, float *pos) {
    move_unit_command *c = (move_unit_command *)malloc(sizeof(move_unit_command));
    c->unit_id = unit_id;
    c->group_id = -1;
    c->options = options;
    c->time_out = 0x7fffffff;
    c->to_pos = pos;
    return c;
}

static void *make_stop_command(int unit_id) {
    stop_unit_command *c = (stop_unit_command *)malloc(sizeof(stop_unit_command));
    c->unit_id = unit_id;
    c->group_id = -1;
    c->options = 0;
    c->time_out = 0x7fffffff;
    return c;
}

static void *make_attack_command(int unit_id, short options, int target_id) {
    attack_unit_command *c = (attack_unit_command *)malloc(sizeof(attack_unit_command));
    c->unit_id = unit_id;
    c->group_id = -1;
    c->options = options;
    c->time_out = 0x7fffffff;
    c->to_attack_unit_id = target_id;
    return c;
}

static void *make_build_command(int unit_id, short options, int build_def_id, float *pos, int facing) {
    build_unit_command *c = (build_unit_command *)malloc(sizeof(build_unit_command));
    c->unit_id = unit_id;
    c->group_id = -1;
    c->options = options;
    c->time_out = 0x7fffffff;
    c->to_build_unit_def_id = build_def_id;
    c->build_pos = pos;
    c->facing = facing;
    return c;
}

static void *make_guard_command(int unit_id, short options, int guard_id) {
    guard_unit_command *c = (guard_unit_command *)malloc(sizeof(guard_unit_command));
    c->unit_id = unit_id;
    c->group_id = -1;
    c->options = options;
    c->time_out = 0x7fffffff;
    c->to_guard_unit_id = guard_id;
    return c;
}

static void *make_repair_command(int unit_id, short options, int repair_id) {
    repair_unit_command *c = (repair_unit_command *)malloc(sizeof(repair_unit_command));
    c->unit_id = unit_id;
    c->group_id = -1;
    c->options = options;
    c->time_out = 0x7fffffff;
    c->to_repair_unit_id = repair_id;
    return c;
}

static void *make_send_text_message_command(const char *text) {
    send_text_message_command *c = (send_text_message_command *)malloc(sizeof(send_text_message_command));
    c->text = strdup(text);
    c->zone = 0;
    return c;
}

static void *make_set_fire_state_command(int unit_id, int state) {
    set_fire_state_unit_command *c = (set_fire_state_unit_command *)malloc(sizeof(set_fire_state_unit_command));
    c->unit_id = unit_id;
    c->group_id = -1;
    c->options = 0;
    c->time_out = 0x7fffffff;
    c->fire_state = state;
    return c;
}

static void *make_set_move_state_command(int unit_id, int state) {
    set_move_state_unit_command *c = (set_move_state_unit_command *)malloc(sizeof(set_move_state_unit_command));
    c->unit_id = unit_id;
    c->group_id = -1;
    c->options = 0;
    c->time_out = 0x7fffffff;
    c->move_state = state;
    return c;
}

static void *make_pause_command(unsigned char enable) {
    pause_command *c = (pause_command *)malloc(sizeof(pause_command));
    c->enable = enable;
    c->is_message = 0;
    return c;
}

static void *make_set_game_speed_command(float speed) {
    set_game_speed_command *c = (set_game_speed_command *)malloc(sizeof(set_game_speed_command));
    c->speed = speed;
    return c;
}

static void free_move_like_command(void *c, void *pos) {
    free(pos);
    free(c);
}

static void free_text_command(void *c, void *text) {
    free(text);
    free(c);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/skirmish-net/gamemanager/lib/ipc"
)

// Engine command topic ids, matching the engine's own AICommand.h
// ordering. Only the subset Bridge actually issues is named.
const (
	topicPause           = 5
	topicSendTextMessage = 6
	topicSetGameSpeed    = 7
	topicUnitBuild       = 35
	topicUnitStop        = 36
	topicUnitMove        = 42
	topicUnitPatrol      = 43
	topicUnitFight       = 44
	topicUnitAttack      = 45
	topicUnitGuard       = 47
	topicUnitRepair      = 51
	topicUnitSetFireState = 52
	topicUnitSetMoveState = 53
)

// unitCommandOptionShiftKey is the option bit meaning "queue this
// order after the unit's current one" rather than replacing it.
const unitCommandOptionShiftKey = 1 << 5

// encodeCommand builds the C command-data struct kind's topic expects
// out of cmd's fields, malloc'ing any memory the struct itself points
// to. The caller must invoke the returned free func after the engine
// call returns; the engine never retains the pointer past the call.
//
// requiredFields in the sim-thread dispatcher guarantees every pointer
// field this function dereferences is non-nil by the time it runs.
func encodeCommand(kind ipc.CommandKind, cmd ipc.Command) (topic int, data unsafe.Pointer, free func(), err error) {
	options := C.short(0)
	if cmd.Queue {
		options = C.short(unitCommandOptionShiftKey)
	}

	switch kind {
	case ipc.CommandMove:
		pos := C.make_pos(C.float(*cmd.X), C.float(*cmd.Y), C.float(*cmd.Z))
		c := C.make_move_command(C.int(*cmd.UnitID), options, pos)
		return topicUnitMove, c, freeWithPos(c, pos), nil

	case ipc.CommandStop:
		c := C.make_stop_command(C.int(*cmd.UnitID))
		return topicUnitStop, c, freeSimple(c), nil

	case ipc.CommandAttack:
		c := C.make_attack_command(C.int(*cmd.UnitID), options, C.int(*cmd.TargetID))
		return topicUnitAttack, c, freeSimple(c), nil

	case ipc.CommandBuild:
		facing := 0
		if cmd.Facing != nil {
			facing = *cmd.Facing
		}
		pos := C.make_pos(C.float(*cmd.X), C.float(*cmd.Y), C.float(*cmd.Z))
		c := C.make_build_command(C.int(*cmd.UnitID), options, C.int(*cmd.BuildDefID), pos, C.int(facing))
		return topicUnitBuild, c, freeWithPos(c, pos), nil

	case ipc.CommandPatrol:
		pos := C.make_pos(C.float(*cmd.X), C.float(*cmd.Y), C.float(*cmd.Z))
		c := C.make_move_command(C.int(*cmd.UnitID), options, pos)
		return topicUnitPatrol, c, freeWithPos(c, pos), nil

	case ipc.CommandFight:
		pos := C.make_pos(C.float(*cmd.X), C.float(*cmd.Y), C.float(*cmd.Z))
		c := C.make_move_command(C.int(*cmd.UnitID), options, pos)
		return topicUnitFight, c, freeWithPos(c, pos), nil

	case ipc.CommandGuard:
		c := C.make_guard_command(C.int(*cmd.UnitID), options, C.int(*cmd.GuardID))
		return topicUnitGuard, c, freeSimple(c), nil

	case ipc.CommandRepair:
		c := C.make_repair_command(C.int(*cmd.UnitID), options, C.int(*cmd.RepairID))
		return topicUnitRepair, c, freeSimple(c), nil

	case ipc.CommandSetFireState:
		c := C.make_set_fire_state_command(C.int(*cmd.UnitID), C.int(*cmd.State))
		return topicUnitSetFireState, c, freeSimple(c), nil

	case ipc.CommandSetMoveState:
		c := C.make_set_move_state_command(C.int(*cmd.UnitID), C.int(*cmd.State))
		return topicUnitSetMoveState, c, freeSimple(c), nil

	case ipc.CommandSendChat:
		cText := C.CString(cmd.Text)
		defer C.free(unsafe.Pointer(cText))
		c := C.make_send_text_message_command(cText)
		return topicSendTextMessage, c, freeText(c), nil

	case ipc.CommandPause:
		c := C.make_pause_command(1)
		return topicPause, c, freeSimple(c), nil

	case ipc.CommandUnpause:
		c := C.make_pause_command(0)
		return topicPause, c, freeSimple(c), nil

	case ipc.CommandSetSpeed:
		c := C.make_set_game_speed_command(C.float(*cmd.Speed))
		return topicSetGameSpeed, c, freeSimple(c), nil

	default:
		return 0, nil, func() {}, fmt.Errorf("unsupported command kind %q", kind)
	}
}

// freeSimple releases a command struct that owns no separately
// allocated memory of its own.
func freeSimple(c unsafe.Pointer) func() {
	return func() { C.free(c) }
}

// freeWithPos releases a move/patrol/fight/build command struct
// together with the malloc'd position vector pos, which make_pos
// allocated separately from c and whose pointer is captured here
// rather than read back out of c — build_unit_command and
// move_unit_command do not share a field layout beyond their common
// prefix, so reinterpreting one as the other to recover to_pos would
// read the wrong offset.
func freeWithPos(c unsafe.Pointer, pos *C.float) func() {
	return func() { C.free_move_like_command(c, unsafe.Pointer(pos)) }
}

// freeText releases a send_text_message_command along with its
// strdup'd text buffer.
func freeText(c unsafe.Pointer) func() {
	text := (*C.send_text_message_command)(c).text
	return func() { C.free_text_command(c, unsafe.Pointer(text)) }
}
