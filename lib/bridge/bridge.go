// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"log/slog"

	"github.com/skirmish-net/gamemanager/lib/ipc"
)

// UpdateThrottleFrames is how many engine frames pass between two
// "update" events actually reaching the IPC Router. Inbound commands
// are still drained and dispatched on every frame regardless of this
// throttle — only the outbound tick is rate-limited.
const UpdateThrottleFrames = 30

// Bridge is the sim-thread-facing half of the in-engine Bridge: one
// Bridge exists per AI instance, created once at engine load and
// driven by a sequence of Init, HandleEvent, and Release calls that
// the engine itself guarantees never overlap.
type Bridge struct {
	control EngineControl
	logger  *slog.Logger

	outbound *outboundQueue
	inbound  *inboundQueue
	client   *ipcClient

	frameCounter uint32
}

// New creates a Bridge bound to control. Call Init before any
// HandleEvent call once the IPC Router's socket path and handshake
// token are known.
func New(control EngineControl, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		control:  control,
		logger:   logger,
		outbound: newOutboundQueue(),
		inbound:  newInboundQueue(),
	}
}

// Init connects to the IPC Router at socketPath, completes the
// hello/welcome handshake with token, and emits the initial "init"
// event. Called from the sim thread exactly once, at engine load.
func (b *Bridge) Init(ctx context.Context, socketPath, token string, savedGame bool) error {
	client, err := dial(ctx, socketPath, token, b.outbound, b.inbound, b.control, b.logger)
	if err != nil {
		return err
	}
	b.client = client
	b.outbound.push(ipc.Event{
		Type:    ipc.FrameEvent,
		Kind:    ipc.EventInit,
		Payload: marshalPayload(b.control, ipc.EventInit, RawEvent{Frame: 0, SavedGame: savedGame}),
	})
	return nil
}

// HandleEvent is the sim thread's single entry point for every event
// the engine reports after Init. For EventUpdate it first drains and
// dispatches every inbound command queued since the last tick, then
// throttles the outbound "update" tick itself to once every
// UpdateThrottleFrames frames; every other kind is forwarded
// unconditionally.
func (b *Bridge) HandleEvent(kind ipc.EventKind, raw RawEvent) {
	if kind == ipc.EventUpdate {
		b.dispatchPending()
		b.frameCounter++
		if b.frameCounter%UpdateThrottleFrames != 0 {
			return
		}
	}
	b.outbound.push(ipc.Event{Type: ipc.FrameEvent, Kind: kind, Payload: marshalPayload(b.control, kind, raw)})
}

// dispatchPending drains every command queued since the last update
// tick and executes it through EngineControl. A command that fails
// validation or that the engine callback rejects yields a
// command_error event rather than stopping the batch.
func (b *Bridge) dispatchPending() {
	for _, cmd := range b.inbound.drainAll() {
		if err := requiredFields(cmd.Kind, cmd); err != nil {
			b.emitCommandError(cmd, err)
			continue
		}
		if err := b.control.HandleCommand(cmd.Kind, cmd); err != nil {
			b.emitCommandError(cmd, err)
		}
	}
}

func (b *Bridge) emitCommandError(cmd ipc.Command, err error) {
	b.outbound.push(ipc.Event{
		Type: ipc.FrameEvent,
		Kind: ipc.EventCommandError,
		Payload: marshalPayload(b.control, ipc.EventCommandError, RawEvent{
			CommandErrorText: err.Error(),
			Text:             string(cmd.Kind),
		}),
	})
}

// Release emits the final "release" event and tears down the IPC
// connection. Called from the sim thread exactly once, when the
// engine removes this AI instance. Unlike every other event this one
// blocks the caller briefly to flush the queue before closing, since
// there is no later tick for the IPC thread to deliver it on.
func (b *Bridge) Release(reason int32) error {
	b.outbound.push(ipc.Event{
		Type:    ipc.FrameEvent,
		Kind:    ipc.EventRelease,
		Payload: marshalPayload(b.control, ipc.EventRelease, RawEvent{Reason: reason}),
	})
	if b.client == nil {
		return nil
	}
	b.client.flush()
	return b.client.close()
}
