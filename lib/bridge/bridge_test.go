// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skirmish-net/gamemanager/lib/ipc"
)

// fakeEngineControl stands in for the cgo shim's callback vtable
// binding. handled records every command dispatched to it.
type fakeEngineControl struct {
	names   map[int32]string
	handled []ipc.Command
	reject  ipc.CommandKind // if set, HandleCommand fails for this kind
}

func (f *fakeEngineControl) HandleCommand(kind ipc.CommandKind, cmd ipc.Command) error {
	if kind == f.reject {
		return errCommandRejected
	}
	f.handled = append(f.handled, cmd)
	return nil
}

func (f *fakeEngineControl) UnitDefName(unitID int32) (string, bool) {
	name, ok := f.names[unitID]
	return name, ok
}

func (f *fakeEngineControl) Log(msg string) {}

// fakeRouter accepts exactly one connection on a Unix socket and
// completes the hello/welcome handshake a Bridge dials into, mirroring
// what lib/ipcrouter's Router does for real.
type fakeRouter struct {
	t       *testing.T
	ln      net.Listener
	conn    net.Conn
	scanner *bufio.Scanner
}

func newFakeRouter(t *testing.T) (*fakeRouter, string) {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "bridge.sock")
	ln, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	return &fakeRouter{t: t, ln: ln}, socketPath
}

func (r *fakeRouter) acceptHandshake(wantToken string) {
	r.t.Helper()
	conn, err := r.ln.Accept()
	require.NoError(r.t, err)
	r.conn = conn
	r.scanner = bufio.NewScanner(conn)

	require.True(r.t, r.scanner.Scan())
	var hello ipc.Hello
	require.NoError(r.t, json.Unmarshal(r.scanner.Bytes(), &hello))
	require.Equal(r.t, ipc.FrameHello, hello.Type)
	require.Equal(r.t, wantToken, hello.Token)

	welcome, err := json.Marshal(ipc.Welcome{Type: ipc.FrameWelcome})
	require.NoError(r.t, err)
	_, err = conn.Write(append(welcome, '\n'))
	require.NoError(r.t, err)
}

func (r *fakeRouter) recvEvent() ipc.Event {
	r.t.Helper()
	r.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	require.True(r.t, r.scanner.Scan(), "timed out waiting for event: %v", r.scanner.Err())
	var ev ipc.Event
	require.NoError(r.t, json.Unmarshal(r.scanner.Bytes(), &ev))
	return ev
}

func (r *fakeRouter) sendCommand(cmd ipc.Command) {
	r.t.Helper()
	cmd.Type = ipc.FrameCommand
	data, err := json.Marshal(cmd)
	require.NoError(r.t, err)
	_, err = r.conn.Write(append(data, '\n'))
	require.NoError(r.t, err)
}

var errCommandRejected = &commandRejectedError{}

type commandRejectedError struct{}

func (*commandRejectedError) Error() string { return "engine rejected command" }

func TestInitSendsHandshakeAndInitEvent(t *testing.T) {
	router, socketPath := newFakeRouter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		router.acceptHandshake("tok-123")
		close(done)
	}()

	control := &fakeEngineControl{names: map[int32]string{}}
	b := New(control, nil)
	require.NoError(t, b.Init(ctx, socketPath, "tok-123", false))
	<-done

	ev := router.recvEvent()
	require.Equal(t, ipc.EventInit, ev.Kind)
}

func TestUpdateThrottlesOutboundTicksButDispatchesEveryFrame(t *testing.T) {
	router, socketPath := newFakeRouter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		router.acceptHandshake("tok")
		close(done)
	}()

	control := &fakeEngineControl{names: map[int32]string{}}
	b := New(control, nil)
	require.NoError(t, b.Init(ctx, socketPath, "tok", false))
	<-done
	router.recvEvent() // init

	unitID := int32(7)
	cmd := ipc.Command{Kind: ipc.CommandStop, UnitID: ptr(int64(unitID))}
	router.sendCommand(cmd)
	time.Sleep(50 * time.Millisecond) // let the reader enqueue it

	for frame := int32(1); frame < UpdateThrottleFrames; frame++ {
		b.HandleEvent(ipc.EventUpdate, RawEvent{Frame: frame})
	}
	require.Len(t, control.handled, 1, "command dispatched on the first tick, well before the throttle fires")

	b.HandleEvent(ipc.EventUpdate, RawEvent{Frame: UpdateThrottleFrames})
	ev := router.recvEvent()
	require.Equal(t, ipc.EventUpdate, ev.Kind, "the throttled tick is the only update event the router should see")
}

func TestBackpressureEmitsCommandError(t *testing.T) {
	router, socketPath := newFakeRouter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		router.acceptHandshake("tok")
		close(done)
	}()

	control := &fakeEngineControl{names: map[int32]string{}}
	b := New(control, nil)
	require.NoError(t, b.Init(ctx, socketPath, "tok", false))
	<-done
	router.recvEvent() // init

	for i := 0; i < inboundQueueSize+5; i++ {
		router.sendCommand(ipc.Command{Kind: ipc.CommandStop, UnitID: ptr(int64(i))})
	}
	time.Sleep(100 * time.Millisecond)

	var sawBackpressure bool
	for i := 0; i < 10; i++ {
		ev := router.recvEvent()
		if ev.Kind == ipc.EventCommandError {
			sawBackpressure = true
			break
		}
	}
	require.True(t, sawBackpressure, "a command sent past the bounded queue's capacity should yield command_error")
}

func TestReleaseFlushesBeforeClosing(t *testing.T) {
	router, socketPath := newFakeRouter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		router.acceptHandshake("tok")
		close(done)
	}()

	control := &fakeEngineControl{names: map[int32]string{}}
	b := New(control, nil)
	require.NoError(t, b.Init(ctx, socketPath, "tok", false))
	<-done
	router.recvEvent() // init

	require.NoError(t, b.Release(0))
	ev := router.recvEvent()
	require.Equal(t, ipc.EventRelease, ev.Kind)
}

func TestEngineRejectedCommandEmitsCommandError(t *testing.T) {
	router, socketPath := newFakeRouter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		router.acceptHandshake("tok")
		close(done)
	}()

	control := &fakeEngineControl{names: map[int32]string{}, reject: ipc.CommandMove}
	b := New(control, nil)
	require.NoError(t, b.Init(ctx, socketPath, "tok", false))
	<-done
	router.recvEvent() // init

	router.sendCommand(ipc.Command{Kind: ipc.CommandMove, UnitID: ptr(int64(1)), X: ptr(0.0), Y: ptr(0.0), Z: ptr(0.0)})
	time.Sleep(50 * time.Millisecond)
	b.HandleEvent(ipc.EventUpdate, RawEvent{Frame: UpdateThrottleFrames})

	ev := router.recvEvent()
	require.Equal(t, ipc.EventCommandError, ev.Kind)
	require.Empty(t, control.handled, "a rejected command must not be recorded as handled")
}

func TestMissingRequiredFieldEmitsCommandErrorWithoutCallingEngine(t *testing.T) {
	router, socketPath := newFakeRouter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		router.acceptHandshake("tok")
		close(done)
	}()

	control := &fakeEngineControl{names: map[int32]string{}}
	b := New(control, nil)
	require.NoError(t, b.Init(ctx, socketPath, "tok", false))
	<-done
	router.recvEvent() // init

	router.sendCommand(ipc.Command{Kind: ipc.CommandAttack, UnitID: ptr(int64(1))}) // target_id missing
	time.Sleep(50 * time.Millisecond)
	b.HandleEvent(ipc.EventUpdate, RawEvent{Frame: UpdateThrottleFrames})

	ev := router.recvEvent()
	require.Equal(t, ipc.EventCommandError, ev.Kind)
	require.Empty(t, control.handled)
}

func ptr[T any](v T) *T { return &v }
