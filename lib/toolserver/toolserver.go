// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

// Package toolserver defines the interface for GameManager tool
// discovery and execution for callers that run tools without the
// upstream JSON-RPC framing.
//
// The tool surface (lib/toolsurface) provides an implementation
// through Registry.AsServer. The session's own tools/list and
// tools/call handlers (lib/session) do not go through this interface;
// they use the session's tool registry, which Registry.Register fills.
package toolserver

import "encoding/json"

// ToolExport describes a tool for callers that need tool metadata
// without going through the upstream JSON-RPC protocol.
type ToolExport struct {
	// Name is the tool name (e.g., "lobby_connect", "channel_list").
	Name string

	// Description is the human-readable tool description.
	Description string

	// InputSchema is the JSON Schema for the tool's parameters,
	// serialized as JSON.
	InputSchema json.RawMessage

	// Deferrable is true when the tool can be deferred for on-demand
	// discovery via tool search rather than listed unconditionally.
	// Read-only query tools (status, list) are NOT deferrable — they
	// stay in the catalog always. Everything else is deferrable.
	Deferrable bool
}

// MetaToolDefinition describes a progressive disclosure meta-tool,
// used when the tool catalog is too large to send inline in a
// tools/list response.
type MetaToolDefinition struct {
	// Name is the meta-tool name (e.g., "tools_list").
	Name string

	// Description is the human-readable description.
	Description string

	// InputSchema is the JSON Schema for the meta-tool's parameters,
	// serialized as JSON.
	InputSchema json.RawMessage
}

// Server provides tool discovery and execution for a session. The
// tool surface implements this interface for callers outside the
// session's JSON-RPC handlers.
type Server interface {
	// AuthorizedTools returns metadata for the tools the server offers.
	// The toolsurface implementation returns every lobby and game tool,
	// whatever the negotiated feature sets, lobby connection or open
	// channels.
	AuthorizedTools() []ToolExport

	// CallTool executes a tool by name with the given JSON arguments.
	// Returns the captured output text and whether the tool reported
	// an error.
	//
	// A non-nil error return indicates an infrastructure failure
	// (unknown tool name, malformed arguments that failed schema
	// validation) — not a tool execution failure. Tool execution
	// failures (e.g. a lobby command rejected by the server) are
	// indicated by isError=true with the error message included in
	// the output string, matching the {success, data|error} content
	// envelope.
	CallTool(name string, arguments json.RawMessage) (output string, isError bool, err error)

	// MetaToolDefinitions returns tool definitions for the
	// progressive disclosure meta-tools, used when the agent host
	// requests search-based tool discovery instead of a flat list.
	MetaToolDefinitions() []MetaToolDefinition
}
