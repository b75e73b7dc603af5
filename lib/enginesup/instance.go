// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package enginesup

import (
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"github.com/skirmish-net/gamemanager/lib/checkpoint"
	"github.com/skirmish-net/gamemanager/lib/clock"
	"github.com/skirmish-net/gamemanager/lib/codec"
)

// Status is an instance's lifecycle state.
type Status string

const (
	StatusLoading Status = "loading" // process spawned, Bridge has not yet handshaken
	StatusRunning Status = "running" // Bridge bound and accepting commands
	StatusPaused  Status = "paused"
	StatusEnded   Status = "ended"
)

// bridgeTransport is implemented by whatever binds a Bridge's IPC
// connection to an instance (the IPC Router, once built). The
// Supervisor depends only on this narrow interface so enginesup does
// not need to import the router package.
type bridgeTransport interface {
	Send(ctx context.Context, payload json.RawMessage) error
	Terminate() error
}

// instance is the Supervisor's record of one engine process. All
// fields are mutated only from the Supervisor's own goroutine — there
// is no mutex here by design, matching the "one goroutine per
// long-lived owner" rule the rest of the GameManager follows.
type instance struct {
	id        string
	channelID string
	writeDir  string
	config    GameConfig

	status Status

	// generation increments each time spawn starts a process for this
	// instance. A reap goroutine captures the generation it was
	// started under and reports it back with the exit, so onExit can
	// discard a stale report from a process a rollback already
	// superseded with a fresh spawn under the same instance id.
	generation int

	cmd            *exec.Cmd
	socketPath     string
	handshakeToken string

	bridge bridgeTransport

	startedAt time.Time
	endedAt   time.Time
	exitCode  int
	exitErr   error

	// loadedScripts and activeMacros are the opaque-to-the-session
	// bookkeeping a checkpoint captures alongside the engine
	// savestate path, per the multiplexer's checkpoint-storage design
	// note: enough to reapply what was active after a rollback
	// restarts the process.
	loadedScripts []string
	activeMacros  []string

	handshakeDeadline *clock.Timer
}

// checkpointPayload is the opaque state a game-instance checkpoint
// carries. It is serialized with lib/codec (CBOR) since the
// multiplexer never parses it — only enginesup does, on rollback.
type checkpointPayload struct {
	WriteDir      string   `cbor:"write_dir"`
	SavestatePath string   `cbor:"savestate_path"`
	ScriptPath    string   `cbor:"script_path"`
	LoadedScripts []string `cbor:"loaded_scripts"`
	ActiveMacros  []string `cbor:"active_macros"`
}

// gameResource adapts one instance to session.Resource and
// session.RollbackCapable, addressing the Supervisor only by instance
// id so every actual mutation happens on the Supervisor's owning
// goroutine rather than here.
type gameResource struct {
	sup        *Supervisor
	instanceID string
}

func (r *gameResource) Publish(ctx context.Context, payload json.RawMessage) error {
	return r.sup.publish(ctx, r.instanceID, payload)
}

func (r *gameResource) Close(ctx context.Context) error {
	return r.sup.stopInstance(ctx, r.instanceID)
}

func (r *gameResource) Checkpoint(ctx context.Context) (checkpoint.ID, error) {
	return r.sup.checkpointInstance(ctx, r.instanceID)
}

func (r *gameResource) Rollback(ctx context.Context, id checkpoint.ID) error {
	return r.sup.rollbackInstance(ctx, r.instanceID, id)
}

func marshalCheckpoint(p checkpointPayload) (checkpoint.ID, error) {
	data, err := codec.Marshal(p)
	if err != nil {
		return "", err
	}
	return checkpoint.ID(data), nil
}

func unmarshalCheckpoint(id checkpoint.ID) (checkpointPayload, error) {
	var p checkpointPayload
	err := codec.Unmarshal([]byte(id), &p)
	return p, err
}
