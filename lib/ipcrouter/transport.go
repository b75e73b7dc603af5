// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package ipcrouter

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"
)

// socketTransport adapts one accepted Bridge connection to the
// enginesup.bridgeTransport contract. Writes are serialized with a
// mutex since Send may be called concurrently with the connection's
// own teardown (Terminate) from the Supervisor's ops loop.
type socketTransport struct {
	conn net.Conn

	mu     sync.Mutex
	closed bool
}

func newSocketTransport(conn net.Conn) *socketTransport {
	return &socketTransport{conn: conn}
}

// Send writes one newline-delimited JSON frame to the Bridge. payload
// is already a complete lib/ipc.Command encoded by the caller
// (gameResource.Publish forwards whatever channels/publish was given
// verbatim).
func (t *socketTransport) Send(ctx context.Context, payload json.RawMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return net.ErrClosed
	}
	if dl, ok := ctx.Deadline(); ok {
		t.conn.SetWriteDeadline(dl)
	} else {
		t.conn.SetWriteDeadline(time.Time{})
	}
	return t.writeLineLocked(payload)
}

func (t *socketTransport) writeLine(payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writeLineLocked(payload)
}

func (t *socketTransport) writeLineLocked(payload []byte) error {
	if _, err := t.conn.Write(payload); err != nil {
		return err
	}
	_, err := t.conn.Write([]byte("\n"))
	return err
}

// Terminate closes the underlying connection. Idempotent.
func (t *socketTransport) Terminate() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}
