// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package session

import "encoding/json"

// JSON-RPC 2.0 standard error codes, plus a GameManager-specific
// range for the channels extension.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603

	// codeChannelsRequired is returned when a channel-owning tool is
	// called by a session that did not negotiate the channels
	// extension at initialize (scenario S5).
	codeChannelsRequired = -32001
)

// request is a JSON-RPC 2.0 request or notification. Notifications
// are distinguished by having no ID field.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (r *request) isNotification() bool {
	return len(r.ID) == 0
}

// response is a JSON-RPC 2.0 response. Exactly one of Result or Error
// is set.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// notification is a JSON-RPC 2.0 notification: a method and params
// with no id, used for server-initiated pushes (channels/changed,
// channels/incoming).
type notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// --- initialize ---

type initializeParams struct {
	ProtocolVersion string   `json:"protocolVersion"`
	FeatureSets     []string `json:"featureSets"`
}

type initializeResult struct {
	ProtocolVersion string   `json:"protocolVersion"`
	FeatureSets     []string `json:"featureSets"` // sets the server declares
	Enabled         []string `json:"enabled"`     // sets the client acknowledged
}

// --- tools/list, tools/call ---

type toolDescription struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type toolsListResult struct {
	Tools []toolDescription `json:"tools"`
}

type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// --- channels extension ---

type channelsOpenParams struct {
	Kind ChannelKind     `json:"kind"`
	Spec json.RawMessage `json:"spec,omitempty"`
}

type channelsOpenResult struct {
	ChannelID string `json:"channelId"`
}

type channelsCloseParams struct {
	ChannelID string `json:"channelId"`
}

type channelsPublishParams struct {
	ChannelID string          `json:"channelId"`
	Body      json.RawMessage `json:"body"`
}

// channelsIncomingParams is the notification params for
// channels/incoming, pushed to the client for every message a
// channel's resource produces.
type channelsIncomingParams struct {
	ChannelID string          `json:"channelId"`
	Body      json.RawMessage `json:"body"`
}

// channelsChangedParams is the notification params for
// channels/changed, pushed whenever channels are added or removed.
type channelsChangedParams struct {
	Added   []string        `json:"added,omitempty"`
	Removed []string        `json:"removed,omitempty"`
	Error   *errorPayload   `json:"error,omitempty"`
}

type errorPayload struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// --- checkpoint/rollback ---

type stateCheckpointParams struct {
	ChannelID string `json:"channelId"`
}

type stateCheckpointResult struct {
	CheckpointID string `json:"checkpointId"`
}

type stateRollbackParams struct {
	ChannelID    string `json:"channelId"`
	CheckpointID string `json:"checkpointId"`
}

// writeResult sends a JSON-RPC 2.0 success response.
func writeResult(encoder *json.Encoder, id json.RawMessage, result any) error {
	return encoder.Encode(response{JSONRPC: "2.0", ID: id, Result: result})
}

// writeError sends a JSON-RPC 2.0 error response.
func writeError(encoder *json.Encoder, id json.RawMessage, code int, message string) error {
	return encoder.Encode(response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}})
}

// writeNotification sends a JSON-RPC 2.0 notification.
func writeNotification(encoder *json.Encoder, method string, params any) error {
	return encoder.Encode(notification{JSONRPC: "2.0", Method: method, Params: params})
}
