// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package toolsurface

import (
	"context"
	"encoding/json"

	"github.com/skirmish-net/gamemanager/lib/enginesup"
	"github.com/skirmish-net/gamemanager/lib/session"
)

func startGameConfig(mapName, game, opponent string, headless bool) enginesup.GameConfig {
	return enginesup.GameConfig{Map: mapName, Game: game, Opponent: opponent, Headless: headless}
}

func (r *Registry) gameTools() []*session.Tool {
	return []*session.Tool{
		{
			Name:        "channel_list",
			Description: "List active game-instance channels and their status.",
			Feature:     FeatureGame,
			InputSchema: schema(map[string]any{}),
			Handler: func(ctx context.Context, s *session.Session, arguments json.RawMessage) (session.ToolResult, error) {
				instances, err := r.sup.ListInstances(ctx)
				if err != nil {
					return fail(err.Error())
				}
				type entry struct {
					ChannelID string `json:"channel_id"`
					Status    string `json:"status"`
				}
				entries := make([]entry, 0, len(instances))
				for channelID, status := range instances {
					entries = append(entries, entry{ChannelID: channelID, Status: string(status)})
				}
				return ok(entries)
			},
		},
		{
			Name:        "channel_close",
			Description: "Stop a running game instance and close its channel.",
			Feature:     FeatureGame,
			InputSchema: schema(map[string]any{
				"channel_id": stringProp("channel id returned by lobby_start_game or channel_open"),
			}, "channel_id"),
			Handler: func(ctx context.Context, s *session.Session, arguments json.RawMessage) (session.ToolResult, error) {
				var args struct {
					ChannelID string `json:"channel_id"`
				}
				if err := decodeArgs(arguments, &args); err != nil {
					return session.ToolResult{}, err
				}
				s.CloseChannel(ctx, args.ChannelID, nil)
				return ok(nil)
			},
		},
		{
			Name:        "channel_open",
			Description: "Start a local game on map and game archive, returning its channel id. A lower-level alternative to lobby_start_game that names the game archive explicitly.",
			Feature:     FeatureGame,
			InputSchema: schema(map[string]any{
				"map":  stringProp("map archive name"),
				"game": stringProp("game archive name"),
			}, "map", "game"),
			Handler: func(ctx context.Context, s *session.Session, arguments json.RawMessage) (session.ToolResult, error) {
				var args struct {
					Map  string `json:"map"`
					Game string `json:"game"`
				}
				if err := decodeArgs(arguments, &args); err != nil {
					return session.ToolResult{}, err
				}
				channelID, err := r.sup.StartGame(ctx, startGameConfig(args.Map, args.Game, "", false))
				if err != nil {
					return fail(err.Error())
				}
				return ok(map[string]string{"channel_id": channelID})
			},
		},
	}
}
