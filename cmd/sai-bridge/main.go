// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

// Command sai-bridge is the in-engine half of the Bridge: compiled
// with -buildmode=c-shared, it is the skirmish AI shared library the
// engine loads directly, exporting init/release/handleEvent as its
// three required C entry points. Everything past the vtable shim in
// this package is lib/bridge, unaware it is running inside the
// engine's own process rather than as a standalone Go program.
package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
	"unsafe"

	"github.com/skirmish-net/gamemanager/lib/bridge"
	"github.com/skirmish-net/gamemanager/lib/ipc"
)

// connectTimeout bounds the handshake dial against the IPC Router
// started at init(); the engine blocks on init()'s return, so this
// must stay well under any reasonable engine startup watchdog.
const connectTimeout = 10 * time.Second

// defaultSocketPath mirrors the reference AI's own fallback: used
// only if the environment Supervisor.spawn sets is somehow absent.
const defaultSocketPath = "/tmp/game-manager.sock"

type instance struct {
	br     *bridge.Bridge
	vtable *engineVTable
}

var (
	instancesMu sync.Mutex
	instances   = map[int32]*instance{}
)

func instanceLogger(aiID int32) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, nil)).With("ai_id", aiID)
}

func socketPathFromEnv() string {
	if path := os.Getenv("GAMEMANAGER_SOCKET_PATH"); path != "" {
		return path
	}
	return defaultSocketPath
}

//export init
func init_(aiID C.int, callback unsafe.Pointer) C.int {
	id := int32(aiID)
	logger := instanceLogger(id)

	vt := newEngineVTable(aiID, callback)
	br := bridge.New(vt, logger)

	socketPath := socketPathFromEnv()
	token := os.Getenv("GAMEMANAGER_HANDSHAKE_TOKEN")

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := br.Init(ctx, socketPath, token, false); err != nil {
		vt.Log(fmt.Sprintf("sai-bridge: failed to connect to %s: %v", socketPath, err))
		// The AI still loads without a live Router connection so the
		// engine doesn't treat a missing GameManager as a fatal load
		// error; every subsequent event is queued but never sent for
		// this instance because br.client stays nil and nothing drains
		// the outbound queue.
	}

	instancesMu.Lock()
	instances[id] = &instance{br: br, vtable: vt}
	instancesMu.Unlock()
	return 0
}

//export release
func release_(aiID C.int) C.int {
	id := int32(aiID)

	instancesMu.Lock()
	inst, ok := instances[id]
	delete(instances, id)
	instancesMu.Unlock()

	if !ok {
		return 0
	}
	if err := inst.br.Release(0); err != nil {
		inst.vtable.Log(fmt.Sprintf("sai-bridge: error during release: %v", err))
	}
	return 0
}

//export handleEvent
func handleEvent_(aiID C.int, topic C.int, data unsafe.Pointer) C.int {
	id := int32(aiID)

	instancesMu.Lock()
	inst, ok := instances[id]
	instancesMu.Unlock()
	if !ok {
		return -1
	}

	// EVENT_INIT carries a fresh callback pointer alongside the
	// saved_game flag; some engine builds deliver it here instead of
	// (or in addition to) the init() export, so the vtable this
	// instance calls through is rebound from whichever arrives last.
	if int(topic) == eventInit {
		callback, savedGame := decodeInitEvent(data)
		inst.vtable.raw = callback
		inst.br.HandleEvent(ipc.EventInit, bridge.RawEvent{SavedGame: savedGame})
		return 0
	}

	if kind, raw, ok := parseEvent(int(topic), data); ok {
		inst.br.HandleEvent(kind, raw)
	}
	return 0
}

func main() {}
