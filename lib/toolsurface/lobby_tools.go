// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package toolsurface

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/skirmish-net/gamemanager/lib/gmerr"
	"github.com/skirmish-net/gamemanager/lib/lobby"
	"github.com/skirmish-net/gamemanager/lib/session"
)

func decodeArgs(arguments json.RawMessage, dest any) error {
	if len(arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(arguments, dest); err != nil {
		return gmerr.Wrap(gmerr.Validation, err, "decoding tool arguments")
	}
	return nil
}

func (r *Registry) lobbyTools() []*session.Tool {
	return []*session.Tool{
		{
			Name:        "lobby_connect",
			Description: "Connect to the lobby server at host:port.",
			Feature:     FeatureLobby,
			InputSchema: schema(map[string]any{
				"host": stringProp("lobby server hostname or address"),
				"port": intProp("lobby server TCP port"),
			}, "host", "port"),
			Handler: func(ctx context.Context, s *session.Session, arguments json.RawMessage) (session.ToolResult, error) {
				var args struct {
					Host string `json:"host"`
					Port int    `json:"port"`
				}
				if err := decodeArgs(arguments, &args); err != nil {
					return session.ToolResult{}, err
				}
				if err := r.client.Connect(ctx, fmt.Sprintf("%s:%d", args.Host, args.Port)); err != nil {
					return fail(err.Error())
				}
				return ok(nil)
			},
		},
		{
			Name:        "lobby_disconnect",
			Description: "Disconnect from the lobby server.",
			Feature:     FeatureLobby,
			InputSchema: schema(map[string]any{}),
			Handler: func(ctx context.Context, s *session.Session, arguments json.RawMessage) (session.ToolResult, error) {
				if err := r.client.Close(ctx); err != nil {
					return fail(err.Error())
				}
				return ok(nil)
			},
		},
		{
			Name:        "lobby_login",
			Description: "Authenticate the current lobby connection.",
			Feature:     FeatureLobby,
			InputSchema: schema(map[string]any{
				"username": stringProp("lobby account name"),
				"password": stringProp("lobby account password, sent as an MD5 digest"),
			}, "username", "password"),
			Handler: func(ctx context.Context, s *session.Session, arguments json.RawMessage) (session.ToolResult, error) {
				var args struct {
					Username string `json:"username"`
					Password string `json:"password"`
				}
				if err := decodeArgs(arguments, &args); err != nil {
					return session.ToolResult{}, err
				}
				if err := r.client.Login(ctx, args.Username, args.Password); err != nil {
					return fail(err.Error())
				}
				return ok(nil)
			},
		},
		{
			Name:        "lobby_register",
			Description: "Register a new lobby account.",
			Feature:     FeatureLobby,
			InputSchema: schema(map[string]any{
				"username": stringProp("desired account name"),
				"password": stringProp("desired account password"),
				"email":    stringProp("contact email for the account"),
			}, "username", "password", "email"),
			Handler: func(ctx context.Context, s *session.Session, arguments json.RawMessage) (session.ToolResult, error) {
				var args struct {
					Username string `json:"username"`
					Password string `json:"password"`
					Email    string `json:"email"`
				}
				if err := decodeArgs(arguments, &args); err != nil {
					return session.ToolResult{}, err
				}
				if err := r.client.Register(ctx, args.Username, args.Password, args.Email); err != nil {
					return fail(err.Error())
				}
				return ok(nil)
			},
		},
		{
			Name:        "lobby_say",
			Description: "Send a chat line to a channel or a private user.",
			Feature:     FeatureLobby,
			InputSchema: schema(map[string]any{
				"target": stringProp("channel or user name to address"),
				"text":   stringProp("message text"),
				"place":  intProp("0 for a channel, 4 for a direct user message"),
			}, "target", "text", "place"),
			Handler: func(ctx context.Context, s *session.Session, arguments json.RawMessage) (session.ToolResult, error) {
				var args struct {
					Target string `json:"target"`
					Text   string `json:"text"`
					Place  int    `json:"place"`
				}
				if err := decodeArgs(arguments, &args); err != nil {
					return session.ToolResult{}, err
				}
				if args.Place != lobby.PlaceChannel && args.Place != lobby.PlaceUser {
					return session.ToolResult{}, gmerr.New(gmerr.Validation, "place must be %d (channel) or %d (user)", lobby.PlaceChannel, lobby.PlaceUser)
				}
				if err := r.client.Say(ctx, args.Target, args.Text, args.Place); err != nil {
					return fail(err.Error())
				}
				return ok(nil)
			},
		},
		{
			Name:        "lobby_join_channel",
			Description: "Join a lobby chat channel, opening a dedicated game-manager channel for its push events.",
			Feature:     FeatureLobby,
			InputSchema: schema(map[string]any{
				"name":     stringProp("chat channel name"),
				"password": stringProp("channel password, if required"),
			}, "name"),
			Handler: func(ctx context.Context, s *session.Session, arguments json.RawMessage) (session.ToolResult, error) {
				var args struct {
					Name     string `json:"name"`
					Password string `json:"password"`
				}
				if err := decodeArgs(arguments, &args); err != nil {
					return session.ToolResult{}, err
				}
				if err := r.client.JoinChannel(ctx, args.Name, args.Password); err != nil {
					return fail(err.Error())
				}
				return ok(nil)
			},
		},
		{
			Name:        "lobby_leave_channel",
			Description: "Leave a joined lobby chat channel.",
			Feature:     FeatureLobby,
			InputSchema: schema(map[string]any{
				"name": stringProp("chat channel name"),
			}, "name"),
			Handler: func(ctx context.Context, s *session.Session, arguments json.RawMessage) (session.ToolResult, error) {
				var args struct {
					Name string `json:"name"`
				}
				if err := decodeArgs(arguments, &args); err != nil {
					return session.ToolResult{}, err
				}
				if err := r.client.LeaveChannel(ctx, args.Name); err != nil {
					return fail(err.Error())
				}
				return ok(nil)
			},
		},
		{
			Name:        "lobby_list_battles",
			Description: "List battles seen since connecting.",
			Feature:     FeatureLobby,
			InputSchema: schema(map[string]any{}),
			Handler: func(ctx context.Context, s *session.Session, arguments json.RawMessage) (session.ToolResult, error) {
				return ok(r.client.ListBattles())
			},
		},
		{
			Name:        "lobby_list_users",
			Description: "List users seen since connecting.",
			Feature:     FeatureLobby,
			InputSchema: schema(map[string]any{}),
			Handler: func(ctx context.Context, s *session.Session, arguments json.RawMessage) (session.ToolResult, error) {
				return ok(r.client.ListUsers())
			},
		},
		{
			Name:        "lobby_join_battle",
			Description: "Join an open battle by id.",
			Feature:     FeatureLobby,
			InputSchema: schema(map[string]any{
				"battle_id": intProp("battle id from lobby_list_battles"),
				"password":  stringProp("battle password, if required"),
			}, "battle_id"),
			Handler: func(ctx context.Context, s *session.Session, arguments json.RawMessage) (session.ToolResult, error) {
				var args struct {
					BattleID int64  `json:"battle_id"`
					Password string `json:"password"`
				}
				if err := decodeArgs(arguments, &args); err != nil {
					return session.ToolResult{}, err
				}
				if err := r.client.JoinBattle(ctx, args.BattleID, args.Password); err != nil {
					return fail(err.Error())
				}
				return ok(nil)
			},
		},
		{
			Name:        "lobby_leave_battle",
			Description: "Leave the currently joined battle.",
			Feature:     FeatureLobby,
			InputSchema: schema(map[string]any{}),
			Handler: func(ctx context.Context, s *session.Session, arguments json.RawMessage) (session.ToolResult, error) {
				if err := r.client.LeaveBattle(ctx); err != nil {
					return fail(err.Error())
				}
				return ok(nil)
			},
		},
		{
			Name:        "lobby_matchmaker_join",
			Description: "Join a matchmaker queue, replacing any queues previously joined. An empty queue name leaves all queues.",
			Feature:     FeatureLobby,
			InputSchema: schema(map[string]any{
				"queue": stringProp("matchmaker queue name, or empty to leave all queues"),
			}),
			Handler: func(ctx context.Context, s *session.Session, arguments json.RawMessage) (session.ToolResult, error) {
				var args struct {
					Queue string `json:"queue"`
				}
				if err := decodeArgs(arguments, &args); err != nil {
					return session.ToolResult{}, err
				}
				var queues []string
				if args.Queue != "" {
					queues = []string{args.Queue}
				}
				if err := r.client.MatchmakerJoin(ctx, queues); err != nil {
					return fail(err.Error())
				}
				return ok(nil)
			},
		},
		{
			Name:        "lobby_start_game",
			Description: "Start a local headless game against opponent on map, opening a game-instance channel.",
			Feature:     FeatureGame,
			InputSchema: schema(map[string]any{
				"map":      stringProp("map archive name"),
				"opponent": stringProp("AI short-name for the opposing team, e.g. NullAI"),
				"headless": boolProp("run the engine in headless mode"),
			}, "map", "opponent"),
			Handler: func(ctx context.Context, s *session.Session, arguments json.RawMessage) (session.ToolResult, error) {
				var args struct {
					Map      string `json:"map"`
					Opponent string `json:"opponent"`
					Headless bool   `json:"headless"`
				}
				if err := decodeArgs(arguments, &args); err != nil {
					return session.ToolResult{}, err
				}
				channelID, err := r.sup.StartGame(ctx, startGameConfig(args.Map, defaultGameArchive, args.Opponent, args.Headless))
				if err != nil {
					return fail(err.Error())
				}
				return ok(map[string]string{"channel_id": channelID})
			},
		},
	}
}
