// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

// Package session implements the Channel & Feature-Set Multiplexer:
// one Session per connected agent host, speaking line-delimited
// JSON-RPC-style requests/responses/notifications plus the channels
// extension. The session owns the tool registry, the channel table,
// and the pending-request table; everything else (the lobby client,
// the engine supervisor, the IPC router) is a channel owner that the
// session addresses only by channel id.
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/skirmish-net/gamemanager/lib/checkpoint"
)

// ChannelKind classifies what a channel is attached to.
type ChannelKind string

const (
	ChannelLobbyChat     ChannelKind = "lobby-chat"
	ChannelGameInstance  ChannelKind = "game-instance"
	ChannelReplay        ChannelKind = "replay"
)

// ChannelState is a channel's lifecycle state.
type ChannelState string

const (
	ChannelOpening ChannelState = "opening"
	ChannelOpen    ChannelState = "open"
	ChannelClosing ChannelState = "closing"
	ChannelClosed  ChannelState = "closed"
)

// Resource is the interface a channel's owning component implements
// so the session can address it without knowing its concrete type.
// Publish and Close are each called on a goroutine the session spawns
// for that call, never on the session's owning goroutine, and with a
// context that carries a timeout.
type Resource interface {
	// Publish delivers an outgoing (session-to-resource) message on
	// the channel. Returns an error if the resource has already
	// ended.
	Publish(ctx context.Context, payload json.RawMessage) error

	// Close tears down the resource. Idempotent.
	Close(ctx context.Context) error
}

// RollbackCapable is implemented by resources belonging to a
// rollback-enabled feature set. Checkpoint and Rollback manage the
// resource's own opaque state; the session only tracks the id and
// parent-link bookkeeping via lib/checkpoint.
type RollbackCapable interface {
	Resource
	Checkpoint(ctx context.Context) (checkpoint.ID, error)
	Rollback(ctx context.Context, id checkpoint.ID) error
}

// Channel is one entry in the session's channel table.
type Channel struct {
	ID       string
	Kind     ChannelKind
	State    ChannelState
	Feature  string // name of the owning FeatureSet
	Resource Resource

	// checkpoints is nil for channels whose feature set does not
	// declare Rollback.
	checkpoints *checkpoint.Tree
}

// Tool is a single tool entry: name, input schema, and handler.
// Handlers run on a goroutine spawned per tools/call invocation so
// they may suspend on I/O without blocking the session's frame
// reader.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Feature     string
	Handler     func(ctx context.Context, s *Session, arguments json.RawMessage) (ToolResult, error)
}

// ToolResult is the normalized tools/call result shape, wrapped in
// the content envelope described in §4.1 of the tool surface design.
type ToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ContentBlock is a single block of tool output.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// FeatureSet is a named capability bundle enabled at initialize time.
type FeatureSet struct {
	Name       string
	Tools      bool // adds tools to the registry
	PushEvents bool // may emit server-initiated notifications
	Channels   bool // may open channels
	Rollback   bool // declares checkpoint/restore capability
}

// PendingRequest describes an in-flight request: its id, deadline and
// cancel function. The session allocates a pending table of these but
// adds no entries to it; tools/call handlers are bounded by their own
// context deadline instead, and nothing cancels them by request id.
type PendingRequest struct {
	ID       json.RawMessage
	Deadline time.Time
	Cancel   context.CancelFunc
}
