// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package enginesup

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeFakeEngine writes a shell script standing in for an engine
// binary: it ignores every argument (so the positional script.txt path
// and --write-dir flag never trip it up) and exits cleanly after the
// given number of seconds.
func writeFakeEngine(t *testing.T, sleepSeconds string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-engine")
	script := "#!/bin/sh\nsleep " + sleepSeconds + "\nexit 0\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func newTestSupervisor(t *testing.T, engineBinary string) *Supervisor {
	t.Helper()
	return New(nil, nil, engineBinary, t.TempDir(), t.TempDir(), SharedContent{Root: t.TempDir()})
}

type instanceSnapshot struct {
	id     string
	status Status
	token  string
	exists bool
}

// snapshotFor reads instance state through a submitted op, never
// touching the Supervisor's maps from the test goroutine directly.
func snapshotFor(sup *Supervisor, channelID string) instanceSnapshot {
	done := make(chan instanceSnapshot, 1)
	sup.submit(func(sup *Supervisor) {
		id, ok := sup.byChannel[channelID]
		if !ok {
			done <- instanceSnapshot{}
			return
		}
		inst, ok := sup.instances[id]
		if !ok {
			done <- instanceSnapshot{}
			return
		}
		done <- instanceSnapshot{id: id, status: inst.status, token: inst.handshakeToken, exists: true}
	})
	return <-done
}

func tokenFor(t *testing.T, sup *Supervisor, channelID string) string {
	t.Helper()
	snap := snapshotFor(sup, channelID)
	require.True(t, snap.exists, "instance for channel %s not found", channelID)
	return snap.token
}

func waitUntilEnded(t *testing.T, sup *Supervisor, channelID string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if !snapshotFor(sup, channelID).exists {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("timed out waiting for instance to end")
}

type fakeTransport struct {
	sent       []json.RawMessage
	terminated bool
}

func (f *fakeTransport) Send(ctx context.Context, payload json.RawMessage) error {
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeTransport) Terminate() error {
	f.terminated = true
	return nil
}

func TestStartGameSpawnsAndReapsProcess(t *testing.T) {
	sup := newTestSupervisor(t, writeFakeEngine(t, "0.1"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	channelID, err := sup.StartGame(ctx, GameConfig{Map: "SimpleChess", Game: "Skirmish 1.0"})
	require.NoError(t, err)
	require.NotEmpty(t, channelID)

	snap := snapshotFor(sup, channelID)
	require.True(t, snap.exists)
	require.Equal(t, StatusLoading, snap.status)

	waitUntilEnded(t, sup, channelID)
}

func TestStartGameDefaultsAgentAndOpponent(t *testing.T) {
	sup := newTestSupervisor(t, writeFakeEngine(t, "0.1"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	channelID, err := sup.StartGame(ctx, GameConfig{Map: "m", Game: "g"})
	require.NoError(t, err)
	require.NotEmpty(t, channelID)
	waitUntilEnded(t, sup, channelID)
}

func TestBindBridgeTransitionsToRunningAndRejectsReuse(t *testing.T) {
	sup := newTestSupervisor(t, writeFakeEngine(t, "1"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	channelID, err := sup.StartGame(ctx, GameConfig{Map: "m", Game: "g"})
	require.NoError(t, err)

	token := tokenFor(t, sup, channelID)
	boundChannelID, err := sup.BindBridge(ctx, token, &fakeTransport{})
	require.NoError(t, err)
	require.Equal(t, channelID, boundChannelID)

	snap := snapshotFor(sup, channelID)
	require.True(t, snap.exists)
	require.Equal(t, StatusRunning, snap.status)

	_, err = sup.BindBridge(ctx, token, &fakeTransport{})
	require.Error(t, err, "a token already consumed must not bind twice")

	require.NoError(t, sup.stopInstance(ctx, snap.id))
	waitUntilEnded(t, sup, channelID)
}

func TestBindBridgeRejectsUnknownToken(t *testing.T) {
	sup := newTestSupervisor(t, writeFakeEngine(t, "1"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	channelID, err := sup.StartGame(ctx, GameConfig{Map: "m", Game: "g"})
	require.NoError(t, err)

	_, err = sup.BindBridge(ctx, "not-a-real-token", &fakeTransport{})
	require.Error(t, err)

	snap := snapshotFor(sup, channelID)
	require.NoError(t, sup.stopInstance(ctx, snap.id))
	waitUntilEnded(t, sup, channelID)
}

func TestPublishRequiresBoundBridge(t *testing.T) {
	sup := newTestSupervisor(t, writeFakeEngine(t, "1"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	channelID, err := sup.StartGame(ctx, GameConfig{Map: "m", Game: "g"})
	require.NoError(t, err)
	snap := snapshotFor(sup, channelID)

	require.Error(t, sup.publish(ctx, snap.id, json.RawMessage(`{}`)))

	token := tokenFor(t, sup, channelID)
	transport := &fakeTransport{}
	_, err = sup.BindBridge(ctx, token, transport)
	require.NoError(t, err)

	require.NoError(t, sup.publish(ctx, snap.id, json.RawMessage(`{"type":"command"}`)))
	require.Len(t, transport.sent, 1)

	require.NoError(t, sup.stopInstance(ctx, snap.id))
	waitUntilEnded(t, sup, channelID)
	require.True(t, transport.terminated)
}

func TestCheckpointAndRollbackPreservesChannelID(t *testing.T) {
	sup := newTestSupervisor(t, writeFakeEngine(t, "2"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	channelID, err := sup.StartGame(ctx, GameConfig{Map: "m", Game: "g"})
	require.NoError(t, err)

	before := snapshotFor(sup, channelID)
	require.True(t, before.exists)

	id, err := sup.checkpointInstance(ctx, before.id)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, sup.rollbackInstance(ctx, before.id, id))

	after := snapshotFor(sup, channelID)
	require.True(t, after.exists, "rollback must keep the instance reachable under the same channel id")
	require.Equal(t, before.id, after.id)
	require.Equal(t, StatusLoading, after.status)
	require.NotEqual(t, before.token, after.token, "rollback must mint a fresh handshake token")

	require.NoError(t, sup.stopInstance(ctx, after.id))
	waitUntilEnded(t, sup, channelID)
}

func TestRollbackSurvivesStaleExitFromKilledProcess(t *testing.T) {
	// The process rollback kills is SIGKILLed and its reap goroutine
	// still reports an exit after the respawn has already replaced the
	// instance's process under the same id; the stale report must not
	// tear the freshly-respawned instance down.
	sup := newTestSupervisor(t, writeFakeEngine(t, "5"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	channelID, err := sup.StartGame(ctx, GameConfig{Map: "m", Game: "g"})
	require.NoError(t, err)
	before := snapshotFor(sup, channelID)

	id, err := sup.checkpointInstance(ctx, before.id)
	require.NoError(t, err)
	require.NoError(t, sup.rollbackInstance(ctx, before.id, id))

	// Give the old process's reap goroutine time to observe the kill
	// and report its (now stale) exit through the ops channel.
	time.Sleep(300 * time.Millisecond)

	after := snapshotFor(sup, channelID)
	require.True(t, after.exists, "a stale exit report must not remove the respawned instance")
	require.Equal(t, StatusLoading, after.status)

	require.NoError(t, sup.stopInstance(ctx, after.id))
	waitUntilEnded(t, sup, channelID)
}

func TestListInstancesReflectsLiveState(t *testing.T) {
	sup := newTestSupervisor(t, writeFakeEngine(t, "1"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	channelID, err := sup.StartGame(ctx, GameConfig{Map: "m", Game: "g"})
	require.NoError(t, err)

	snapshot, err := sup.ListInstances(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusLoading, snapshot[channelID])

	snap := snapshotFor(sup, channelID)
	require.NoError(t, sup.stopInstance(ctx, snap.id))
	waitUntilEnded(t, sup, channelID)

	snapshot, err = sup.ListInstances(ctx)
	require.NoError(t, err)
	require.NotContains(t, snapshot, channelID)
}
