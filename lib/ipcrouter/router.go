// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package ipcrouter

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/skirmish-net/gamemanager/lib/enginesup"
	"github.com/skirmish-net/gamemanager/lib/ipc"
	"github.com/skirmish-net/gamemanager/lib/netutil"
	"github.com/skirmish-net/gamemanager/lib/session"
)

// maxFrameSize bounds a single hello/event line read from a Bridge
// connection; events carry bounded per-kind payloads (unit/enemy
// state, chat text) so this is generous rather than tight.
const maxFrameSize = 4 * 1024 * 1024

// Router owns one listener per live engine instance. Wire it into an
// enginesup.Supervisor with SetBridgeListener before the Supervisor's
// first StartGame call.
type Router struct {
	logger *slog.Logger
	sess   *session.Session
	sup    *enginesup.Supervisor

	mu        sync.Mutex
	listeners map[string]net.Listener // socket path -> listener, for Close
}

// New creates a Router that forwards Bridge events to sess and
// verifies handshakes through sup.
func New(logger *slog.Logger, sess *session.Session, sup *enginesup.Supervisor) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		logger:    logger.With("component", "ipcrouter"),
		sess:      sess,
		sup:       sup,
		listeners: make(map[string]net.Listener),
	}
}

// Listen opens a Unix socket at socketPath and accepts exactly one
// Bridge connection for instanceID in the background. It satisfies
// enginesup.BridgeListenFunc; register it with
// sup.SetBridgeListener(router.Listen).
func (r *Router) Listen(ctx context.Context, socketPath, instanceID string) error {
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.listeners[socketPath] = ln
	r.mu.Unlock()

	go r.acceptOnce(ctx, ln, socketPath, instanceID)
	return nil
}

// acceptOnce accepts a single connection on ln (exactly one Bridge
// process ever dials a given instance's socket), handles it to
// completion, then tears the listener down.
func (r *Router) acceptOnce(ctx context.Context, ln net.Listener, socketPath, instanceID string) {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	defer r.removeListener(socketPath)

	conn, err := ln.Accept()
	ln.Close()
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
			r.logger.Error("accepting bridge connection", "instance", instanceID, "error", err)
		}
		return
	}
	r.handleConn(ctx, conn, instanceID)
}

func (r *Router) removeListener(socketPath string) {
	r.mu.Lock()
	delete(r.listeners, socketPath)
	r.mu.Unlock()
	os.Remove(socketPath)
}

// handleConn runs the hello/welcome handshake and, once bound,
// forwards every subsequent Event frame to the session as
// channels/incoming on the instance's channel.
func (r *Router) handleConn(ctx context.Context, conn net.Conn, instanceID string) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	if !scanner.Scan() {
		r.logger.Warn("bridge disconnected before hello", "instance", instanceID)
		return
	}
	var hello ipc.Hello
	if err := json.Unmarshal(scanner.Bytes(), &hello); err != nil || hello.Type != ipc.FrameHello {
		r.logger.Warn("invalid hello frame", "instance", instanceID, "error", err)
		return
	}

	transport := newSocketTransport(conn)
	channelID, err := r.sup.BindBridge(ctx, hello.Token, transport)
	if err != nil {
		r.logger.Warn("bridge handshake rejected", "instance", instanceID, "error", err)
		return
	}

	welcome, err := json.Marshal(ipc.Welcome{Type: ipc.FrameWelcome})
	if err != nil {
		r.logger.Error("marshaling welcome frame", "channel", channelID, "error", err)
		return
	}
	if err := transport.writeLine(welcome); err != nil {
		r.logger.Warn("writing welcome frame", "channel", channelID, "error", err)
		return
	}

	r.logger.Info("bridge connected", "instance", instanceID, "channel", channelID)
	r.readEvents(scanner, channelID, instanceID)
}

// readEvents forwards every well-formed Event frame as an opaque
// channels/incoming body; malformed or unexpected frames are logged
// and skipped rather than ending the connection, since a single bad
// frame from the engine should not tear down a live game.
func (r *Router) readEvents(scanner *bufio.Scanner, channelID, instanceID string) {
	for scanner.Scan() {
		line := scanner.Bytes()
		var frame struct {
			Type ipc.FrameType `json:"type"`
		}
		if err := json.Unmarshal(line, &frame); err != nil {
			r.logger.Warn("malformed frame from bridge", "channel", channelID, "error", err)
			continue
		}
		if frame.Type != ipc.FrameEvent {
			r.logger.Warn("unexpected frame type from bridge", "channel", channelID, "type", frame.Type)
			continue
		}
		body := make(json.RawMessage, len(line))
		copy(body, line)
		r.sess.Incoming(channelID, body)
	}
	if err := scanner.Err(); err != nil && !netutil.IsExpectedCloseError(err) {
		r.logger.Warn("bridge connection read error", "instance", instanceID, "channel", channelID, "error", err)
	}
}

// Close tears down every listener still open, e.g. on process
// shutdown. Instances whose Bridge already connected are unaffected —
// their transport is owned by the Supervisor, not the listener.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for path, ln := range r.listeners {
		ln.Close()
		os.Remove(path)
	}
	r.listeners = make(map[string]net.Listener)
	return nil
}
