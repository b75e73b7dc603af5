// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package ipcrouter

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skirmish-net/gamemanager/lib/enginesup"
	"github.com/skirmish-net/gamemanager/lib/ipc"
	"github.com/skirmish-net/gamemanager/lib/session"
)

// writeFakeEngine stands in for the real engine binary in tests that
// only need a process to exist while a separate goroutine plays the
// Bridge's role by dialing the socket directly.
func writeFakeEngine(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-engine")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nsleep 2\nexit 0\n"), 0755))
	return path
}

// extractScriptValue pulls a key=value; pair out of a generated
// start-script, the same way the real Bridge's Lua widget reads its
// own socket path and handshake token from [AI0]/[Options].
func extractScriptValue(t *testing.T, script, key string) string {
	t.Helper()
	m := regexp.MustCompile(key + `=([^;]+);`).FindStringSubmatch(script)
	require.NotNil(t, m, "script missing %s", key)
	return m[1]
}

// notifyHarness drives a Session's Run loop over in-memory pipes and
// exposes its outbound notifications as parsed frames, mirroring
// lib/session's own test harness.
type notifyHarness struct {
	t       *testing.T
	output  chan map[string]any
	writeCh chan []byte
}

func newNotifyHarness(t *testing.T, ctx context.Context, sess *session.Session) *notifyHarness {
	t.Helper()
	inputReader, inputWriter := io.Pipe()
	outputReader, outputWriter := io.Pipe()

	h := &notifyHarness{t: t, output: make(chan map[string]any, 64), writeCh: make(chan []byte)}
	go func() {
		scanner := bufio.NewScanner(outputReader)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			var frame map[string]any
			if err := json.Unmarshal(scanner.Bytes(), &frame); err != nil {
				continue
			}
			h.output <- frame
		}
	}()
	go sess.Run(ctx, inputReader, outputWriter)
	go func() {
		for line := range h.writeCh {
			inputWriter.Write(append(line, '\n'))
		}
	}()

	return h
}

func (h *notifyHarness) send(obj map[string]any) {
	data, err := json.Marshal(obj)
	require.NoError(h.t, err)
	h.writeCh <- data
}

func (h *notifyHarness) recv() map[string]any {
	h.t.Helper()
	select {
	case frame := <-h.output:
		return frame
	case <-time.After(3 * time.Second):
		h.t.Fatal("timed out waiting for a notification")
		return nil
	}
}

func newTestRouter(t *testing.T) (*Router, *enginesup.Supervisor, *session.Session, string) {
	t.Helper()
	sess := session.New(nil, []*session.FeatureSet{
		{Name: "game.state", Tools: true, PushEvents: true, Channels: true},
	})

	writeDirRoot := t.TempDir()
	sup := enginesup.New(nil, sess, writeFakeEngine(t), writeDirRoot, t.TempDir(), enginesup.SharedContent{Root: t.TempDir()})
	router := New(nil, sess, sup)
	sup.SetBridgeListener(router.Listen)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sup.Run(ctx)

	return router, sup, sess, writeDirRoot
}

// dialBridge connects to socketPath and completes the hello/welcome
// handshake, returning the raw connection for the test to drive
// further.
func dialBridge(t *testing.T, socketPath, token string) net.Conn {
	t.Helper()
	var conn net.Conn
	var err error
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err = net.Dial("unix", socketPath)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err, "dialing bridge socket")

	hello, err := json.Marshal(ipc.Hello{Type: ipc.FrameHello, Token: token, Version: "test"})
	require.NoError(t, err)
	_, err = conn.Write(append(hello, '\n'))
	require.NoError(t, err)

	scanner := bufio.NewScanner(conn)
	require.True(t, scanner.Scan(), "reading welcome frame")
	var welcome ipc.Welcome
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &welcome))
	require.Equal(t, ipc.FrameWelcome, welcome.Type)

	return conn
}

func TestListenCompletesHandshakeAndBindsChannel(t *testing.T) {
	_, sup, _, writeDirRoot := newTestRouter(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channelID, err := sup.StartGame(ctx, enginesup.GameConfig{Map: "m", Game: "g"})
	require.NoError(t, err)

	script, err := os.ReadFile(filepath.Join(writeDirRoot, "inst-1", "script.txt"))
	require.NoError(t, err)
	socketPath := extractScriptValue(t, string(script), "socket_path")
	token := extractScriptValue(t, string(script), "handshake_token")

	conn := dialBridge(t, socketPath, token)
	defer conn.Close()

	instances, err := sup.ListInstances(ctx)
	require.NoError(t, err)
	require.Equal(t, enginesup.StatusRunning, instances[channelID])
}

func TestRouterForwardsEventFramesAsChannelsIncoming(t *testing.T) {
	_, sup, sess, writeDirRoot := newTestRouter(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newNotifyHarness(t, ctx, sess)
	h.send(map[string]any{"jsonrpc": "2.0", "id": 1, "method": "initialize",
		"params": map[string]any{"featureSets": []string{"game.state", "channels"}}})
	h.recv() // initialize result

	channelID, err := sup.StartGame(ctx, enginesup.GameConfig{Map: "m", Game: "g"})
	require.NoError(t, err)
	require.NotEmpty(t, channelID)
	h.recv() // channels/changed (added)

	script, err := os.ReadFile(filepath.Join(writeDirRoot, "inst-1", "script.txt"))
	require.NoError(t, err)
	socketPath := extractScriptValue(t, string(script), "socket_path")
	token := extractScriptValue(t, string(script), "handshake_token")

	conn := dialBridge(t, socketPath, token)
	defer conn.Close()

	payload, err := json.Marshal(ipc.Event{Type: ipc.FrameEvent, Kind: ipc.EventInit, Payload: json.RawMessage(`{"frame":0}`)})
	require.NoError(t, err)
	_, err = conn.Write(append(payload, '\n'))
	require.NoError(t, err)

	incoming := h.recv()
	require.Equal(t, "channels/incoming", incoming["method"])
	params := incoming["params"].(map[string]any)
	require.Equal(t, channelID, params["channelId"])
	body := params["body"].(map[string]any)
	require.Equal(t, string(ipc.EventInit), body["kind"])
}
