// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package toolsurface

import (
	"encoding/json"

	"github.com/skirmish-net/gamemanager/lib/session"
)

// envelope is the normalized {success, data|error} tool result shape
// described in the tool surface design, wrapped as a single text
// content block.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(data any) (session.ToolResult, error) {
	body, err := json.Marshal(envelope{Success: true, Data: data})
	if err != nil {
		return session.ToolResult{}, err
	}
	return session.ToolResult{Content: []session.ContentBlock{{Type: "text", Text: string(body)}}}, nil
}

func fail(message string) (session.ToolResult, error) {
	body, err := json.Marshal(envelope{Success: false, Error: message})
	if err != nil {
		return session.ToolResult{}, err
	}
	return session.ToolResult{IsError: true, Content: []session.ContentBlock{{Type: "text", Text: string(body)}}}, nil
}

// schema builds a minimal JSON Schema object literal for a tool's
// InputSchema field: {type: object, properties: {...}, required: [...]}.
func schema(properties map[string]any, required ...string) json.RawMessage {
	obj := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		obj["required"] = required
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		// properties is always a literal built by callers in this
		// package; a marshal failure here would be a programming error.
		panic(err)
	}
	return raw
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func intProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func boolProp(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}
