// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package toolsurface

import (
	"github.com/skirmish-net/gamemanager/lib/enginesup"
	"github.com/skirmish-net/gamemanager/lib/lobby"
	"github.com/skirmish-net/gamemanager/lib/session"
	"github.com/skirmish-net/gamemanager/lib/toolserver"
)

// FeatureLobby and FeatureGame name the feature sets the registered
// tools are scoped under. cmd/gamemanager declares matching
// session.FeatureSet entries with Tools: true.
const (
	FeatureLobby = "lobby.chat"
	FeatureGame  = "game.state"
)

// defaultGameArchive is the game archive lobby_start_game launches
// when the caller does not need to pick a non-default ruleset; the
// lower-level channel_open tool lets a caller name one explicitly.
const defaultGameArchive = "Skirmish 1.0"

// Registry wires lobby.* and game.* tool handlers against one
// lobby.Client and one enginesup.Supervisor. Register adds every tool
// to a session's registry; call it once per session, before Run.
type Registry struct {
	client *lobby.Client
	sup    *enginesup.Supervisor
}

// New creates a Registry. client and sup must already be constructed
// against the same session that Register will be called on.
func New(client *lobby.Client, sup *enginesup.Supervisor) *Registry {
	return &Registry{client: client, sup: sup}
}

// Register adds every lobby.* and game.* tool to sess.
func (r *Registry) Register(sess *session.Session) {
	for _, t := range r.lobbyTools() {
		sess.RegisterTool(t)
	}
	for _, t := range r.gameTools() {
		sess.RegisterTool(t)
	}
}

// allTools returns every tool this Registry registers, independent of
// feature-set negotiation.
func (r *Registry) allTools() []*session.Tool {
	tools := r.lobbyTools()
	tools = append(tools, r.gameTools()...)
	return tools
}

// ToolExports lists every tool this Registry will register, in the
// toolserver.ToolExport shape. Read-only list/query tools are marked
// non-deferrable; everything with a side effect defers to on-demand
// discovery.
func (r *Registry) ToolExports() []toolserver.ToolExport {
	deferrable := map[string]bool{
		"lobby_list_battles": false,
		"lobby_list_users":   false,
		"channel_list":       false,
	}
	exports := make([]toolserver.ToolExport, 0, len(r.allTools()))
	for _, t := range r.allTools() {
		defer_, known := deferrable[t.Name]
		if !known {
			defer_ = true
		}
		exports = append(exports, toolserver.ToolExport{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
			Deferrable:  defer_,
		})
	}
	return exports
}

// AsServer returns a toolserver.Server that calls this Registry's
// handlers directly against sess, bypassing the JSON-RPC tools/call
// framing, for callers that want to run a tool without speaking the
// upstream protocol end to end. cmd/gamemanager does not call it; this
// package's tests do.
func (r *Registry) AsServer(sess *session.Session) toolserver.Server {
	return &server{registry: r, sess: sess}
}
