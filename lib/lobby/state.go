// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package lobby

import "encoding/json"

// UserInfo is the tracked view of one lobby user, built up from
// "User" messages and dropped on "UserDisconnected".
type UserInfo struct {
	AccountID   int64
	Name        string
	DisplayName string
	Clan        string
	Country     string
	IsBot       bool
	IsAdmin     bool
	Level       int
	Elo         float64
	BattleID    *int64
}

// BattleInfo is the tracked view of one open battle.
type BattleInfo struct {
	BattleID            int64
	Title               string
	Founder             string
	Map                 string
	Game                string
	Engine              string
	MaxPlayers          int
	PlayerCount         int
	SpectatorCount      int
	IsRunning           bool
	IsPasswordProtected bool
	Mode                *string
}

// ChannelInfo is the tracked view of one joined chat room.
type ChannelInfo struct {
	Name  string
	Topic string
	Users []string
}

// model is the in-memory lobby state built from incoming messages.
// The Client's read loop applies every incoming line to it; the only
// other mutation is Client.LeaveChannel dropping a room. Both hold the
// Client's mu while doing so.
type model struct {
	connected    bool
	loggedIn     bool
	myUsername   string
	serverEngine string
	serverGame   string
	userCount    int

	users    map[string]*UserInfo
	battles  map[int64]*BattleInfo
	channels map[string]*ChannelInfo
}

func newModel() *model {
	return &model{
		users:    make(map[string]*UserInfo),
		battles:  make(map[int64]*BattleInfo),
		channels: make(map[string]*ChannelInfo),
	}
}

// eventKind mirrors the push-event taxonomy a session can observe on
// the lobby channel; see Event.
type eventKind string

const (
	eventConnected        eventKind = "connected"
	eventDisconnected     eventKind = "disconnected"
	eventLoggedIn         eventKind = "logged_in"
	eventLoginFailed      eventKind = "login_failed"
	eventRegisterSuccess  eventKind = "register_success"
	eventRegisterFailed   eventKind = "register_failed"
	eventUserJoined       eventKind = "user_joined"
	eventUserLeft         eventKind = "user_left"
	eventChatMessage      eventKind = "chat_message"
	eventBattleOpened     eventKind = "battle_opened"
	eventBattleUpdated    eventKind = "battle_updated"
	eventBattleClosed     eventKind = "battle_closed"
	eventChannelJoined    eventKind = "channel_joined"
	eventChannelUserJoin  eventKind = "channel_user_joined"
	eventChannelUserLeave eventKind = "channel_user_left"
	eventConnectSpring    eventKind = "connect_spring"
)

// Event is a change to lobby state worth forwarding to the session as
// a channels/incoming notification. room is empty for events that
// belong on the global lobby channel rather than a per-room one.
type Event struct {
	Kind eventKind
	Room string
	Body json.RawMessage
}

func jsonEvent(kind eventKind, room string, v any) Event {
	body, err := json.Marshal(v)
	if err != nil {
		body = json.RawMessage(`{}`)
	}
	return Event{Kind: kind, Room: room, Body: body}
}

// handle applies one parsed lobby line to the model and returns the
// events it produced. Unrecognized commands and malformed payloads
// are dropped rather than treated as fatal — the wire protocol is not
// versioned and older/newer servers send fields this client does not
// know about.
func (m *model) handle(msg message) []Event {
	switch msg.command {
	case "Welcome":
		var data welcomeData
		if err := json.Unmarshal(msg.data, &data); err != nil {
			return nil
		}
		m.connected = true
		m.serverEngine = data.Engine
		m.serverGame = data.Game
		m.userCount = data.UserCount
		return []Event{jsonEvent(eventConnected, "", map[string]string{"engine": data.Engine, "game": data.Game})}

	case "LoginResponse":
		var data loginResponseData
		if err := json.Unmarshal(msg.data, &data); err != nil {
			return nil
		}
		if data.ResultCode == loginOK {
			m.loggedIn = true
			m.myUsername = data.Name
			return []Event{jsonEvent(eventLoggedIn, "", map[string]string{"username": data.Name})}
		}
		return []Event{jsonEvent(eventLoginFailed, "", map[string]any{"code": data.ResultCode, "message": data.Message})}

	case "RegisterResponse":
		var data registerResponseData
		if err := json.Unmarshal(msg.data, &data); err != nil {
			return nil
		}
		if data.ResultCode == registerOK {
			return []Event{jsonEvent(eventRegisterSuccess, "", map[string]any{})}
		}
		reason := ""
		if data.BanReason != nil {
			reason = *data.BanReason
		}
		return []Event{jsonEvent(eventRegisterFailed, "", map[string]any{"code": data.ResultCode, "reason": reason})}

	case "User":
		var data userData
		if err := json.Unmarshal(msg.data, &data); err != nil {
			return nil
		}
		info := &UserInfo{
			AccountID: data.AccountID, Name: data.Name, DisplayName: data.DisplayName,
			Clan: data.Clan, Country: data.Country, IsBot: data.IsBot, IsAdmin: data.IsAdmin,
			Level: data.Level, Elo: data.EffectiveElo, BattleID: data.BattleID,
		}
		_, existed := m.users[data.Name]
		m.users[data.Name] = info
		if existed {
			return nil
		}
		return []Event{jsonEvent(eventUserJoined, "", info)}

	case "UserDisconnected":
		var data userDisconnectedData
		if err := json.Unmarshal(msg.data, &data); err != nil {
			return nil
		}
		delete(m.users, data.Name)
		return []Event{jsonEvent(eventUserLeft, "", map[string]string{"name": data.Name, "reason": data.Reason})}

	case "Say":
		var data sayData
		if err := json.Unmarshal(msg.data, &data); err != nil {
			return nil
		}
		room := ""
		if data.Place == PlaceChannel {
			room = data.Target
		}
		return []Event{jsonEvent(eventChatMessage, room, data)}

	case "BattleAdded":
		var data battleAddedData
		if err := json.Unmarshal(msg.data, &data); err != nil {
			return nil
		}
		info := battleInfoFromHeader(data.Header)
		m.battles[info.BattleID] = info
		return []Event{jsonEvent(eventBattleOpened, "", info)}

	case "BattleUpdate":
		var data battleUpdateData
		if err := json.Unmarshal(msg.data, &data); err != nil {
			return nil
		}
		// An update for a battle this client never saw opened is
		// tolerated by treating it as a partial open.
		info := battleInfoFromHeader(data.Header)
		m.battles[info.BattleID] = info
		return []Event{jsonEvent(eventBattleUpdated, "", info)}

	case "BattleRemoved":
		var data battleRemovedData
		if err := json.Unmarshal(msg.data, &data); err != nil {
			return nil
		}
		delete(m.battles, data.BattleID)
		return []Event{jsonEvent(eventBattleClosed, "", map[string]int64{"battleId": data.BattleID})}

	case "JoinChannelResponse":
		var data joinChannelResponseData
		if err := json.Unmarshal(msg.data, &data); err != nil || !data.Success {
			return nil
		}
		info := &ChannelInfo{Name: data.ChannelName}
		if data.Channel != nil {
			info.Users = data.Channel.Users
			if data.Channel.Topic != nil {
				info.Topic = data.Channel.Topic.Text
			}
		}
		m.channels[data.ChannelName] = info
		return []Event{jsonEvent(eventChannelJoined, data.ChannelName, info)}

	case "ChannelUserAdded":
		var data channelUserAddedData
		if err := json.Unmarshal(msg.data, &data); err != nil {
			return nil
		}
		if ch, ok := m.channels[data.ChannelName]; ok && !containsString(ch.Users, data.UserName) {
			ch.Users = append(ch.Users, data.UserName)
		}
		return []Event{jsonEvent(eventChannelUserJoin, data.ChannelName, data)}

	case "ChannelUserRemoved":
		var data channelUserRemovedData
		if err := json.Unmarshal(msg.data, &data); err != nil {
			return nil
		}
		if ch, ok := m.channels[data.ChannelName]; ok {
			ch.Users = removeString(ch.Users, data.UserName)
		}
		return []Event{jsonEvent(eventChannelUserLeave, data.ChannelName, data)}

	case "ConnectSpring":
		var data connectSpringData
		if err := json.Unmarshal(msg.data, &data); err != nil {
			return nil
		}
		return []Event{jsonEvent(eventConnectSpring, "", data)}

	case "Ping":
		return nil

	default:
		return nil
	}
}

func battleInfoFromHeader(h battleHeader) *BattleInfo {
	return &BattleInfo{
		BattleID: h.BattleID, Title: h.Title, Founder: h.Founder, Map: h.Map, Game: h.Game,
		Engine: h.Engine, MaxPlayers: h.MaxPlayers, PlayerCount: h.PlayerCount,
		SpectatorCount: h.SpectatorCount, IsRunning: h.IsRunning,
		IsPasswordProtected: h.IsPasswordProtected, Mode: h.Mode,
	}
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(ss []string, s string) []string {
	out := ss[:0]
	for _, v := range ss {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
