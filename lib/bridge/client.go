// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"

	"github.com/skirmish-net/gamemanager/lib/ipc"
	"github.com/skirmish-net/gamemanager/lib/netutil"
	"github.com/skirmish-net/gamemanager/lib/version"
)

const maxFrameSize = 1024 * 1024

// ipcClient owns the Unix socket connection to the IPC Router: one
// goroutine drains the outbound queue and writes frames, another
// reads frames and either completes commands into the inbound queue
// or (once full) turns the overflow into a command_error event pushed
// straight back onto the outbound queue it shares with the writer.
type ipcClient struct {
	conn   net.Conn
	logger *slog.Logger

	outbound *outboundQueue
	inbound  *inboundQueue
	control  EngineControl
}

// dial connects to socketPath and completes the hello/welcome
// handshake with token, the same handshake the IPC Router verifies
// against the Supervisor's pending instance.
func dial(ctx context.Context, socketPath, token string, outbound *outboundQueue, inbound *inboundQueue, control EngineControl, logger *slog.Logger) (*ipcClient, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("dialing bridge socket %s: %w", socketPath, err)
	}

	hello, err := json.Marshal(ipc.Hello{Type: ipc.FrameHello, Token: token, Version: version.Short()})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("marshaling hello frame: %w", err)
	}
	if _, err := conn.Write(append(hello, '\n')); err != nil {
		conn.Close()
		return nil, fmt.Errorf("writing hello frame: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	if !scanner.Scan() {
		conn.Close()
		return nil, fmt.Errorf("router closed connection before welcome: %w", scanner.Err())
	}
	var welcome ipc.Welcome
	if err := json.Unmarshal(scanner.Bytes(), &welcome); err != nil || welcome.Type != ipc.FrameWelcome {
		conn.Close()
		return nil, fmt.Errorf("unexpected frame in place of welcome: %q", scanner.Bytes())
	}

	c := &ipcClient{conn: conn, logger: logger, outbound: outbound, inbound: inbound, control: control}
	go c.writeLoop(ctx)
	go c.readLoop(scanner)
	return c, nil
}

func (c *ipcClient) writeLoop(ctx context.Context) {
	for c.outbound.wait(ctx) {
		for _, ev := range c.outbound.drain() {
			data, err := json.Marshal(ev)
			if err != nil {
				c.logger.Error("marshaling event frame", "kind", ev.Kind, "error", err)
				continue
			}
			if _, err := c.conn.Write(append(data, '\n')); err != nil {
				if !netutil.IsExpectedCloseError(err) {
					c.logger.Warn("writing event frame", "kind", ev.Kind, "error", err)
				}
				return
			}
		}
	}
}

func (c *ipcClient) readLoop(scanner *bufio.Scanner) {
	defer c.conn.Close()
	for scanner.Scan() {
		line := scanner.Bytes()
		var frame struct {
			Type ipc.FrameType `json:"type"`
		}
		if err := json.Unmarshal(line, &frame); err != nil {
			c.logger.Warn("malformed frame from router", "error", err)
			continue
		}
		if frame.Type != ipc.FrameCommand {
			c.logger.Warn("unexpected frame type from router", "type", frame.Type)
			continue
		}
		var cmd ipc.Command
		if err := json.Unmarshal(line, &cmd); err != nil {
			c.logger.Warn("malformed command frame", "error", err)
			continue
		}
		if !c.inbound.tryPush(cmd) {
			c.outbound.push(ipc.Event{
				Type:    ipc.FrameEvent,
				Kind:    ipc.EventCommandError,
				Payload: marshalPayload(c.control, ipc.EventCommandError, RawEvent{CommandErrorText: "backpressure", Text: string(cmd.Kind)}),
			})
		}
	}
	if err := scanner.Err(); err != nil && !netutil.IsExpectedCloseError(err) {
		c.logger.Warn("router connection read error", "error", err)
	}
}

// flush writes every currently queued event synchronously, racing the
// writeLoop goroutine for each item (drain is safe to call from both;
// whichever gets an item writes it, never both). Used only by Release,
// where the engine is tearing the instance down right after and a
// queued-but-undelivered final event would otherwise be lost.
func (c *ipcClient) flush() {
	for _, ev := range c.outbound.drain() {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		c.conn.Write(append(data, '\n'))
	}
}

func (c *ipcClient) close() error {
	return c.conn.Close()
}
