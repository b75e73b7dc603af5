// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package toolsurface

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skirmish-net/gamemanager/lib/enginesup"
	"github.com/skirmish-net/gamemanager/lib/lobby"
	"github.com/skirmish-net/gamemanager/lib/session"
)

func newTestRegistry(t *testing.T) (*Registry, *session.Session) {
	t.Helper()
	sess := session.New(nil, []*session.FeatureSet{
		{Name: FeatureLobby, Tools: true, PushEvents: true, Channels: true},
		{Name: FeatureGame, Tools: true, PushEvents: true, Channels: true, Rollback: true},
	})

	client := lobby.New(nil, sess, FeatureLobby)

	enginePath := filepath.Join(t.TempDir(), "fake-engine")
	require.NoError(t, os.WriteFile(enginePath, []byte("#!/bin/sh\nsleep 0.1\nexit 0\n"), 0755))
	sup := enginesup.New(nil, sess, enginePath, t.TempDir(), t.TempDir(), enginesup.SharedContent{Root: t.TempDir()})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sup.Run(ctx)

	return New(client, sup), sess
}

func TestRegisterAddsEveryToolName(t *testing.T) {
	registry, sess := newTestRegistry(t)
	registry.Register(sess)

	want := []string{
		"lobby_connect", "lobby_disconnect", "lobby_login", "lobby_register",
		"lobby_say", "lobby_join_channel", "lobby_leave_channel",
		"lobby_list_battles", "lobby_list_users", "lobby_join_battle",
		"lobby_leave_battle", "lobby_matchmaker_join", "lobby_start_game",
		"channel_list", "channel_close", "channel_open",
	}
	exports := registry.ToolExports()
	got := make(map[string]bool, len(exports))
	for _, e := range exports {
		got[e.Name] = true
	}
	for _, name := range want {
		require.True(t, got[name], "missing tool %s", name)
	}
	require.Len(t, exports, len(want))
}

func TestToolExportsMarksQueriesNonDeferrable(t *testing.T) {
	registry, _ := newTestRegistry(t)
	byName := make(map[string]bool)
	for _, e := range registry.ToolExports() {
		byName[e.Name] = e.Deferrable
	}
	require.False(t, byName["lobby_list_battles"])
	require.False(t, byName["lobby_list_users"])
	require.False(t, byName["channel_list"])
	require.True(t, byName["lobby_connect"])
	require.True(t, byName["lobby_start_game"])
}

func TestCallToolListBattlesViaServer(t *testing.T) {
	registry, sess := newTestRegistry(t)
	registry.Register(sess)

	text, isError, err := registry.AsServer(sess).CallTool("lobby_list_battles", nil)
	require.NoError(t, err)
	require.False(t, isError)

	var envelopeBody struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &envelopeBody))
	require.True(t, envelopeBody.Success)
}

func TestCallToolUnknownNameErrors(t *testing.T) {
	registry, sess := newTestRegistry(t)
	registry.Register(sess)

	_, _, err := registry.AsServer(sess).CallTool("not_a_tool", nil)
	require.Error(t, err)
}

func TestLobbySayRejectsInvalidPlace(t *testing.T) {
	registry, sess := newTestRegistry(t)
	registry.Register(sess)

	args, err := json.Marshal(map[string]any{"target": "main", "text": "hi", "place": 99})
	require.NoError(t, err)

	_, _, err = registry.AsServer(sess).CallTool("lobby_say", args)
	require.Error(t, err, "an out-of-range place must fail validation before reaching the lobby client")
}

func TestChannelCloseOnUnknownChannelIsANoOp(t *testing.T) {
	registry, sess := newTestRegistry(t)
	registry.Register(sess)

	args, err := json.Marshal(map[string]any{"channel_id": "does-not-exist"})
	require.NoError(t, err)

	text, isError, err := registry.AsServer(sess).CallTool("channel_close", args)
	require.NoError(t, err)
	require.False(t, isError)
	require.Contains(t, text, `"success":true`)
}

func TestSchemaHelperBuildsObjectWithRequired(t *testing.T) {
	raw := schema(map[string]any{"name": stringProp("a name")}, "name")
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "object", decoded["type"])
	require.Equal(t, []any{"name"}, decoded["required"])
}
