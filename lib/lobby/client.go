// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package lobby

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"sync"

	"github.com/skirmish-net/gamemanager/lib/gmerr"
	"github.com/skirmish-net/gamemanager/lib/netutil"
	"github.com/skirmish-net/gamemanager/lib/session"
)

type connState int

const (
	stateDisconnected connState = iota
	stateGreeted
	stateAuthenticated
)

// Client owns one TCP connection to a lobby server: the wire codec,
// the login/register handshake, the tracked model, and the
// multiplexer channels incoming lines are forwarded to. One Client
// per agent host connection; the tool surface calls its methods from
// tools/call handlers, which may run on different goroutines
// concurrently, so all mutable state is guarded by mu.
type Client struct {
	logger  *slog.Logger
	sess    *session.Session
	feature string

	mu       sync.Mutex
	state    connState
	conn     net.Conn
	writer   *bufio.Writer
	writeMu  sync.Mutex
	model    *model
	lobbyCh  string
	roomCh   map[string]string // room name -> multiplexer channel id

	greetCh    chan struct{}
	pendingLI  chan loginOutcome
	pendingReg chan registerOutcome
	pendingJn  map[string]chan joinOutcome

	readDone chan struct{}
}

type loginOutcome struct {
	ok      bool
	code    int
	message string
}

type registerOutcome struct {
	ok     bool
	code   int
	reason string
}

type joinOutcome struct {
	ok     bool
	reason string
}

// New creates a disconnected Client. feature is the name of the
// feature set this client's channels are registered under (normally
// "lobby.chat"); sess may be nil in tests that only exercise the
// protocol and model logic.
func New(logger *slog.Logger, sess *session.Session, feature string) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		logger:  logger.With("component", "lobby"),
		sess:    sess,
		feature: feature,
		state:   stateDisconnected,
		roomCh:  make(map[string]string),
	}
}

// Connect dials the lobby server and blocks until the server's
// greeting (Welcome) arrives or ctx is done. Implements the
// Disconnected → Greeted transition.
func (c *Client) Connect(ctx context.Context, addr string) error {
	c.mu.Lock()
	if c.state != stateDisconnected {
		c.mu.Unlock()
		return gmerr.New(gmerr.Protocol, "lobby client already connected")
	}
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		c.mu.Unlock()
		return gmerr.Wrap(gmerr.Transport, err, "connecting to lobby server at %s", addr)
	}
	c.conn = conn
	c.writer = bufio.NewWriter(conn)
	c.model = newModel()
	c.greetCh = make(chan struct{})
	c.pendingJn = make(map[string]chan joinOutcome)
	c.readDone = make(chan struct{})
	c.mu.Unlock()

	go c.readLoop(conn)

	select {
	case <-c.greetCh:
		c.mu.Lock()
		c.state = stateGreeted
		c.mu.Unlock()
		if c.sess != nil {
			if id, err := c.sess.OpenChannel(ctx, "lobby", session.ChannelLobbyChat, c.feature, c); err != nil {
				c.logger.Warn("opening global lobby channel", "error", err)
			} else {
				c.mu.Lock()
				c.lobbyCh = id
				c.mu.Unlock()
			}
		}
		return nil
	case <-c.readDone:
		return gmerr.New(gmerr.Transport, "lobby connection closed before greeting")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Login sends a Login command and waits for the server's response,
// implementing the Greeted → Authenticated transition.
func (c *Client) Login(ctx context.Context, username, password string) error {
	c.mu.Lock()
	if c.state != stateGreeted {
		c.mu.Unlock()
		return gmerr.New(gmerr.Protocol, "login requires an established but unauthenticated connection")
	}
	result := make(chan loginOutcome, 1)
	c.pendingLI = result
	c.mu.Unlock()

	if err := c.send("Login", loginCommand{Name: username, PasswordHash: hashPassword(password)}); err != nil {
		return err
	}

	select {
	case out := <-result:
		if !out.ok {
			return gmerr.New(gmerr.Auth, "login failed (code %d): %s", out.code, out.message)
		}
		c.mu.Lock()
		c.state = stateAuthenticated
		c.mu.Unlock()
		return nil
	case <-c.readDone:
		return gmerr.New(gmerr.Transport, "lobby connection closed while logging in")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Register sends a Register command and waits for the server's
// response. A successful registration does not authenticate the
// connection; the caller still issues Login afterward.
func (c *Client) Register(ctx context.Context, username, password, email string) error {
	result := make(chan registerOutcome, 1)
	c.mu.Lock()
	c.pendingReg = result
	c.mu.Unlock()

	if err := c.send("Register", registerCommand{Name: username, PasswordHash: hashPassword(password), Email: email}); err != nil {
		return err
	}

	select {
	case out := <-result:
		if !out.ok {
			return gmerr.New(gmerr.Validation, "registration failed (code %d): %s", out.code, out.reason)
		}
		return nil
	case <-c.readDone:
		return gmerr.New(gmerr.Transport, "lobby connection closed while registering")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Say sends a chat line to target at place. Does not wait for an
// acknowledgement; the lobby protocol has none for chat.
func (c *Client) Say(ctx context.Context, target, text string, place int) error {
	return c.send("Say", sayCommand{Place: place, Target: target, Text: text})
}

// JoinChannel joins a chat room and, on success, opens a multiplexer
// channel dedicated to that room's push events.
func (c *Client) JoinChannel(ctx context.Context, name, password string) error {
	result := make(chan joinOutcome, 1)
	c.mu.Lock()
	c.pendingJn[name] = result
	c.mu.Unlock()

	if err := c.send("JoinChannel", joinChannelCommand{ChannelName: name, Password: password}); err != nil {
		return err
	}

	select {
	case out := <-result:
		if !out.ok {
			return gmerr.New(gmerr.CommandError, "joining channel %s: %s", name, out.reason)
		}
		if c.sess != nil {
			id, err := c.sess.OpenChannel(ctx, "lobby:"+name, session.ChannelLobbyChat, c.feature, &roomResource{client: c, room: name})
			if err != nil {
				return gmerr.Wrap(gmerr.Internal, err, "opening channel for room %s", name)
			}
			c.mu.Lock()
			c.roomCh[name] = id
			c.mu.Unlock()
		}
		return nil
	case <-c.readDone:
		return gmerr.New(gmerr.Transport, "lobby connection closed while joining channel")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LeaveChannel leaves a chat room and closes its dedicated channel.
func (c *Client) LeaveChannel(ctx context.Context, name string) error {
	if err := c.send("LeaveChannel", leaveChannelCommand{ChannelName: name}); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.model.channels, name)
	id, ok := c.roomCh[name]
	delete(c.roomCh, name)
	c.mu.Unlock()
	if ok && c.sess != nil {
		c.sess.CloseChannel(ctx, id, nil)
	}
	return nil
}

// JoinBattle requests to join an open battle. The server confirms
// with a ConnectSpring push event rather than a direct response.
func (c *Client) JoinBattle(ctx context.Context, battleID int64, password string) error {
	return c.send("JoinBattle", joinBattleCommand{BattleID: battleID, Password: password})
}

// LeaveBattle leaves whichever battle the connection is currently in.
func (c *Client) LeaveBattle(ctx context.Context) error {
	return c.send("LeaveBattle", leaveBattleCommand{})
}

// MatchmakerJoin replaces the set of matchmaker queues this
// connection is waiting in. An empty slice leaves all queues.
func (c *Client) MatchmakerJoin(ctx context.Context, queues []string) error {
	return c.send("MatchMakerQueueRequest", matchmakerQueueRequestCommand{Queues: queues})
}

// ListBattles returns a snapshot of battles seen since connecting.
func (c *Client) ListBattles() []BattleInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]BattleInfo, 0, len(c.model.battles))
	for _, b := range c.model.battles {
		out = append(out, *b)
	}
	return out
}

// ListUsers returns a snapshot of users seen since connecting.
func (c *Client) ListUsers() []UserInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]UserInfo, 0, len(c.model.users))
	for _, u := range c.model.users {
		out = append(out, *u)
	}
	return out
}

// Publish implements session.Resource for the global "lobby" channel:
// a publish is interpreted as a chat line to send.
func (c *Client) Publish(ctx context.Context, body json.RawMessage) error {
	var req struct {
		Target string `json:"target"`
		Text   string `json:"text"`
		Place  int    `json:"place"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return gmerr.Wrap(gmerr.Validation, err, "decoding lobby channel publish body")
	}
	return c.Say(ctx, req.Target, req.Text, req.Place)
}

// Close implements session.Resource for the global "lobby" channel by
// disconnecting the client entirely.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// stateSnapshot returns the current connection state under lock.
func (c *Client) stateSnapshot() connState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// send writes one command line. Guarded separately from mu so a slow
// reader draining pending-response channels never blocks a write, and
// vice versa.
func (c *Client) send(command string, data any) error {
	c.mu.Lock()
	writer := c.writer
	c.mu.Unlock()
	if writer == nil {
		return gmerr.New(gmerr.Transport, "lobby client is not connected")
	}
	line, err := wire(command, data)
	if err != nil {
		return gmerr.Wrap(gmerr.Internal, err, "encoding lobby command")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := writer.Write(line); err != nil {
		return gmerr.Wrap(gmerr.Transport, err, "writing lobby command")
	}
	return writer.Flush()
}

// readLoop scans lines from the connection, updates the model, and
// forwards resulting events to the session until the connection
// closes. It is the only goroutine that applies incoming lines to
// c.model (LeaveChannel also removes a room from it, under mu).
func (c *Client) readLoop(conn net.Conn) {
	defer close(c.readDone)
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	greeted := false
	for scanner.Scan() {
		msg, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		if msg.command == "Ping" {
			_ = c.send("Pong", struct{}{})
			continue
		}

		c.mu.Lock()
		events := c.model.handle(msg)
		c.mu.Unlock()

		if !greeted && msg.command == "Welcome" {
			greeted = true
			close(c.greetCh)
		}

		c.resolvePending(msg)
		c.forward(events)
	}

	if err := scanner.Err(); err != nil && !netutil.IsExpectedCloseError(err) {
		c.logger.Warn("lobby connection read error", "error", err)
	}

	c.mu.Lock()
	c.state = stateDisconnected
	ids := make([]string, 0, len(c.roomCh)+1)
	if c.lobbyCh != "" {
		ids = append(ids, c.lobbyCh)
	}
	for _, id := range c.roomCh {
		ids = append(ids, id)
	}
	c.lobbyCh = ""
	c.roomCh = make(map[string]string)
	c.mu.Unlock()

	if c.sess != nil {
		failure := gmerr.New(gmerr.Transport, "lobby connection closed")
		for _, id := range ids {
			c.sess.CloseChannel(context.Background(), id, failure)
		}
	}
}

// resolvePending unblocks a Login/Register/JoinChannel call awaiting
// this message's response.
func (c *Client) resolvePending(msg message) {
	switch msg.command {
	case "LoginResponse":
		var data loginResponseData
		if json.Unmarshal(msg.data, &data) != nil {
			return
		}
		c.mu.Lock()
		pending := c.pendingLI
		c.pendingLI = nil
		c.mu.Unlock()
		if pending != nil {
			pending <- loginOutcome{ok: data.ResultCode == loginOK, code: data.ResultCode, message: data.Message}
		}
	case "RegisterResponse":
		var data registerResponseData
		if json.Unmarshal(msg.data, &data) != nil {
			return
		}
		c.mu.Lock()
		pending := c.pendingReg
		c.pendingReg = nil
		c.mu.Unlock()
		if pending != nil {
			reason := ""
			if data.BanReason != nil {
				reason = *data.BanReason
			}
			pending <- registerOutcome{ok: data.ResultCode == registerOK, code: data.ResultCode, reason: reason}
		}
	case "JoinChannelResponse":
		var data joinChannelResponseData
		if json.Unmarshal(msg.data, &data) != nil {
			return
		}
		c.mu.Lock()
		pending := c.pendingJn[data.ChannelName]
		delete(c.pendingJn, data.ChannelName)
		c.mu.Unlock()
		if pending != nil {
			reason := ""
			if data.Reason != nil {
				reason = *data.Reason
			}
			pending <- joinOutcome{ok: data.Success, reason: reason}
		}
	}
}

// forward pushes model events to the session as channels/incoming
// notifications, routing room-scoped events to their room's channel
// and everything else to the global lobby channel.
func (c *Client) forward(events []Event) {
	if c.sess == nil {
		return
	}
	for _, ev := range events {
		c.mu.Lock()
		id := c.lobbyCh
		if ev.Room != "" {
			if roomID, ok := c.roomCh[ev.Room]; ok {
				id = roomID
			}
		}
		c.mu.Unlock()
		if id == "" {
			continue
		}
		envelope, err := json.Marshal(struct {
			Kind eventKind       `json:"kind"`
			Body json.RawMessage `json:"body"`
		}{Kind: ev.Kind, Body: ev.Body})
		if err != nil {
			continue
		}
		c.sess.Incoming(id, envelope)
	}
}

// roomResource adapts a joined chat room to session.Resource, so each
// room-scoped channel's Publish/Close delegate to the shared Client
// connection rather than needing one socket per room.
type roomResource struct {
	client *Client
	room   string
}

func (r *roomResource) Publish(ctx context.Context, body json.RawMessage) error {
	var req struct {
		Text    string `json:"text"`
		IsEmote bool   `json:"isEmote"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return gmerr.Wrap(gmerr.Validation, err, "decoding room channel publish body")
	}
	return r.client.Say(ctx, r.room, req.Text, PlaceChannel)
}

func (r *roomResource) Close(ctx context.Context) error {
	return r.client.LeaveChannel(ctx, r.room)
}
