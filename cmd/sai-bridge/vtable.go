// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package main

/*
#include <stdlib.h>

typedef int (*handle_command_fn)(int ai_id, int to_id, int command_id, int command_topic, void *command_data);
typedef void (*log_fn)(int ai_id, const char *msg);
typedef int (*unit_get_def_fn)(int ai_id, int unit_id);
typedef const char *(*unit_def_get_human_name_fn)(int ai_id, int unit_def_id);

static void *vtable_at(void *raw, int idx) {
    return ((void **)raw)[idx];
}

static int call_handle_command(void *fn, int ai_id, int to_id, int command_id, int command_topic, void *command_data) {
    return ((handle_command_fn)fn)(ai_id, to_id, command_id, command_topic, command_data);
}

static void call_log(void *fn, int ai_id, const char *msg) {
    ((log_fn)fn)(ai_id, msg);
}

static int call_unit_get_def(void *fn, int ai_id, int unit_id) {
    return ((unit_get_def_fn)fn)(ai_id, unit_id);
}

static const char *call_unit_def_get_human_name(void *fn, int ai_id, int unit_def_id) {
    return ((unit_def_get_human_name_fn)fn)(ai_id, unit_def_id);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/skirmish-net/gamemanager/lib/ipc"
)

// The engine hands the AI a single opaque SSkirmishAICallback struct:
// a flat table of ~600 function pointers, one per engine query or
// action. There is no public Go binding for it, so it is treated here
// exactly as the reference AI implementation treats it in its own
// FFI layer: an array of function pointers addressed by a known
// offset, with only the handful of slots Bridge actually needs given
// a name and a signature.
const (
	idxEngineHandleCommand = 0
	idxLogLog              = 27
	idxUnitGetDef          = 293
	idxUnitDefGetHumanName = 92
)

// commandToIDEngine is Engine_handleCommand's "to" argument meaning
// "the engine itself" rather than routing the command to a teammate
// AI's own command queue.
const commandToIDEngine = -1

// engineVTable implements bridge.EngineControl by calling straight
// into the engine's callback table for one AI instance. raw points at
// the engine-owned callback struct; it is valid from init() until the
// matching release() and must never be retained past that call.
type engineVTable struct {
	aiID C.int
	raw  unsafe.Pointer
}

func newEngineVTable(aiID C.int, raw unsafe.Pointer) *engineVTable {
	return &engineVTable{aiID: aiID, raw: raw}
}

func (v *engineVTable) fnAt(idx int) unsafe.Pointer {
	return C.vtable_at(v.raw, C.int(idx))
}

// HandleCommand marshals cmd into the C struct kind's topic expects
// and calls Engine_handleCommand through the vtable. The returned
// error wraps a non-zero engine return code; it never panics on a
// malformed cmd because bridge.Bridge validates required fields
// before ever calling this method.
func (v *engineVTable) HandleCommand(kind ipc.CommandKind, cmd ipc.Command) error {
	topic, data, free, err := encodeCommand(kind, cmd)
	if err != nil {
		return err
	}
	defer free()

	fn := v.fnAt(idxEngineHandleCommand)
	result := C.call_handle_command(fn, v.aiID, C.int(commandToIDEngine), 0, C.int(topic), data)
	if result != 0 {
		return fmt.Errorf("engine rejected %s command: Engine_handleCommand returned %d", kind, int32(result))
	}
	return nil
}

// UnitDefName resolves a live unit instance id to its definition's
// human-readable name via two vtable calls: instance -> def id, then
// def id -> name. ok is false for ids the engine doesn't recognize,
// which callers treat as "name unavailable" rather than an error.
func (v *engineVTable) UnitDefName(unitID int32) (string, bool) {
	if unitID <= 0 {
		return "", false
	}
	defFn := v.fnAt(idxUnitGetDef)
	defID := C.call_unit_get_def(defFn, v.aiID, C.int(unitID))
	if defID < 0 {
		return "", false
	}
	nameFn := v.fnAt(idxUnitDefGetHumanName)
	cName := C.call_unit_def_get_human_name(nameFn, v.aiID, defID)
	if cName == nil {
		return "", false
	}
	return C.GoString(cName), true
}

// Log writes msg through the engine's own logging callback so Bridge
// diagnostics land in the same log file the engine writes its own to.
func (v *engineVTable) Log(msg string) {
	cMsg := C.CString(msg)
	defer C.free(unsafe.Pointer(cMsg))
	fn := v.fnAt(idxLogLog)
	C.call_log(fn, v.aiID, cMsg)
}
