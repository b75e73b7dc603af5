// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package enginesup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/skirmish-net/gamemanager/lib/checkpoint"
	"github.com/skirmish-net/gamemanager/lib/clock"
	"github.com/skirmish-net/gamemanager/lib/gmerr"
	"github.com/skirmish-net/gamemanager/lib/ipc"
	"github.com/skirmish-net/gamemanager/lib/session"
	"github.com/skirmish-net/gamemanager/lib/watchdog"
)

// GameConfig describes one requested local-game start.
type GameConfig struct {
	Map       string
	Game      string
	AgentName string // defaults to "skirmish-agent"
	Opponent  string // defaults to "NullAI"
	Headless  bool
}

// supOp is a closure that mutates Supervisor state, submitted to the
// owning goroutine from Run. Mirrors lib/session's opFunc.
type supOp func(sup *Supervisor)

// HandshakeDeadline bounds how long the Supervisor waits for a Bridge
// to connect and present its token after an engine process spawns.
const HandshakeDeadline = 60 * time.Second

// Supervisor owns every live engine instance. Exactly one per
// GameManager process; create with New and drive the ops loop with
// Run before calling any other method.
type Supervisor struct {
	logger *slog.Logger
	sess   *session.Session // may be nil in tests that only exercise instance bookkeeping
	clk    clock.Clock

	engineBinary string
	writeDirRoot string
	socketDir    string
	shared       SharedContent

	ops       chan supOp
	instances map[string]*instance // instance id -> instance
	byChannel map[string]string    // channel id -> instance id
	pending   map[string]string    // handshake token -> instance id

	nextID atomic.Uint64

	// onListen is called synchronously by StartGame, before the engine
	// process spawns, so the IPC Router has a listener open on
	// socketPath before the Bridge tries to dial it. nil (the default)
	// means no router is wired — tests that only exercise instance
	// bookkeeping never set one.
	onListen BridgeListenFunc
}

// BridgeListenFunc begins listening for a Bridge connection on
// socketPath for the named instance. Implemented by lib/ipcrouter;
// enginesup depends only on this function type so it does not need to
// import the router package.
type BridgeListenFunc func(ctx context.Context, socketPath, instanceID string) error

// SetBridgeListener wires the IPC Router's listen hook into the
// Supervisor. Must be called before the first StartGame.
func (sup *Supervisor) SetBridgeListener(fn BridgeListenFunc) {
	sup.onListen = fn
}

// New creates a Supervisor. logger may be nil (slog.Default() is
// used); sess may be nil for tests that never open a real channel.
func New(logger *slog.Logger, sess *session.Session, engineBinary, writeDirRoot, socketDir string, shared SharedContent) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		logger:       logger.With("component", "enginesup"),
		sess:         sess,
		clk:          clock.Real(),
		engineBinary: engineBinary,
		writeDirRoot: writeDirRoot,
		socketDir:    socketDir,
		shared:       shared,
		ops:          make(chan supOp, 64),
		instances:    make(map[string]*instance),
		byChannel:    make(map[string]string),
		pending:      make(map[string]string),
	}
}

// SetClock overrides the Supervisor's time source. Must be called
// before the first StartGame; intended for tests that need
// deterministic handshake-deadline behavior via clock.Fake.
func (sup *Supervisor) SetClock(clk clock.Clock) {
	sup.clk = clk
}

// Run drives the Supervisor's op loop until ctx is canceled. Exactly
// one goroutine must call Run for the Supervisor's lifetime.
func (sup *Supervisor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-sup.ops:
			op(sup)
		}
	}
}

func (sup *Supervisor) submit(op supOp) {
	sup.ops <- op
}

// StartGame prepares a write-dir, generates a start-script, spawns the
// engine, and (if sess is set) opens a game-instance channel for it.
// Returns the channel id. The channel is opened eagerly, in "loading"
// state — the caller observes the Bridge's init event (once the IPC
// Router delivers it) as the first channels/incoming on the channel.
func (sup *Supervisor) StartGame(ctx context.Context, cfg GameConfig) (string, error) {
	if cfg.AgentName == "" {
		cfg.AgentName = "skirmish-agent"
	}
	if cfg.Opponent == "" {
		cfg.Opponent = "NullAI"
	}

	id := fmt.Sprintf("inst-%d", sup.nextID.Add(1))
	writeDir := filepath.Join(sup.writeDirRoot, id)
	socketPath := filepath.Join(sup.socketDir, "bridge_"+id+".sock")

	token, err := NewHandshakeToken(id)
	if err != nil {
		return "", gmerr.Wrap(gmerr.Internal, err, "generating handshake token")
	}

	if err := PrepareWriteDir(writeDir, sup.shared, cfg.AgentName, token); err != nil {
		return "", gmerr.Wrap(gmerr.Engine, err, "preparing write-dir")
	}

	script := GenerateScript(ScriptConfig{
		Map: cfg.Map, Game: cfg.Game, AgentName: cfg.AgentName, Opponent: cfg.Opponent,
		SocketPath: socketPath, HandshakeToken: token,
	})
	scriptPath := filepath.Join(writeDir, "script.txt")
	if err := os.WriteFile(scriptPath, []byte(script), 0644); err != nil {
		return "", gmerr.Wrap(gmerr.Engine, err, "writing start-script")
	}

	inst := &instance{
		id: id, writeDir: writeDir, config: cfg,
		status: StatusLoading, socketPath: socketPath, handshakeToken: token,
	}

	if sup.onListen != nil {
		if err := sup.onListen(ctx, socketPath, id); err != nil {
			return "", gmerr.Wrap(gmerr.Engine, err, "starting bridge listener")
		}
	}

	if err := sup.spawn(inst, scriptPath); err != nil {
		return "", gmerr.Wrap(gmerr.Engine, err, "spawning engine process")
	}

	channelID := "game:live-" + id
	if sup.sess != nil {
		opened, err := sup.sess.OpenChannel(ctx, channelID, session.ChannelGameInstance, "game.state", &gameResource{sup: sup, instanceID: id})
		if err != nil {
			sup.kill(inst)
			return "", err
		}
		channelID = opened
	}
	inst.channelID = channelID

	inst.handshakeDeadline = sup.clk.AfterFunc(HandshakeDeadline, func() {
		sup.submit(func(sup *Supervisor) { sup.expireHandshake(id) })
	})

	done := make(chan struct{})
	sup.submit(func(sup *Supervisor) {
		sup.instances[id] = inst
		sup.byChannel[channelID] = id
		sup.pending[token] = id
		close(done)
	})
	select {
	case <-done:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return channelID, nil
}

// spawn launches the engine binary against scriptPath, capturing
// stdout/stderr to a log file under the write-dir and putting the
// process in its own process group so a later kill also reaps any
// children it spawns. A background goroutine reaps the process and
// reports the outcome back through the ops channel.
func (sup *Supervisor) spawn(inst *instance, scriptPath string) error {
	logPath := filepath.Join(inst.writeDir, "temp", "log", "engine.log")
	logFile, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating log capture file: %w", err)
	}

	cmd := exec.Command(sup.engineBinary, "--write-dir", inst.writeDir, scriptPath)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(),
		"GAMEMANAGER_HANDSHAKE_TOKEN="+inst.handshakeToken,
		"GAMEMANAGER_SOCKET_PATH="+inst.socketPath,
	)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return fmt.Errorf("starting engine process: %w", err)
	}
	inst.cmd = cmd
	inst.startedAt = sup.clk.Now()
	inst.generation++
	id, gen := inst.id, inst.generation

	go func() {
		waitErr := cmd.Wait()
		logFile.Close()
		exitCode := 0
		if waitErr != nil {
			var exitErr *exec.ExitError
			if errors.As(waitErr, &exitErr) {
				exitCode = exitErr.ExitCode()
			} else {
				exitCode = -1
			}
		}
		sup.submit(func(sup *Supervisor) { sup.onExit(id, gen, exitCode, waitErr) })
	}()

	return nil
}

// kill sends SIGKILL to the instance's entire process group so
// children the engine spawned (e.g. a sub-launcher) die with it.
func (sup *Supervisor) kill(inst *instance) {
	if inst.cmd == nil || inst.cmd.Process == nil {
		return
	}
	if err := unix.Kill(-inst.cmd.Process.Pid, unix.SIGKILL); err != nil {
		sup.logger.Warn("killing engine process group", "instance", inst.id, "error", err)
	}
}

// onExit runs on the Supervisor's own goroutine once a reap goroutine
// observes process exit. It emits an EngineEnded event, compresses the
// capture log, and closes the channel — with an engine-kind error
// payload if the Bridge never handshaked.
//
// gen is the generation the reporting reap goroutine was started
// under. A rollback that kills and respawns an instance bumps its
// generation before this report reaches the ops loop; a mismatch means
// this is a stale report for a process the instance already moved
// past, and must be ignored rather than tearing down the live one.
func (sup *Supervisor) onExit(id string, gen, exitCode int, waitErr error) {
	inst, ok := sup.instances[id]
	if !ok || inst.generation != gen {
		return
	}
	if inst.handshakeDeadline != nil {
		inst.handshakeDeadline.Stop()
	}

	inst.status = StatusEnded
	inst.endedAt = sup.clk.Now()
	inst.exitCode = exitCode
	inst.exitErr = waitErr

	if sup.sess != nil {
		payload, _ := json.Marshal(map[string]any{
			"exit_code":        exitCode,
			"duration_seconds": inst.endedAt.Sub(inst.startedAt).Seconds(),
		})
		event, _ := json.Marshal(ipc.Event{Type: ipc.FrameEvent, Kind: ipc.EventEngineEnded, Payload: payload})
		sup.sess.Incoming(inst.channelID, event)
	}

	logPath := filepath.Join(inst.writeDir, "temp", "log", "engine.log")
	if err := compressLogFile(logPath); err != nil {
		sup.logger.Warn("compressing engine log", "instance", id, "error", err)
	}

	var failure *gmerr.Error
	switch {
	case inst.bridge == nil:
		failure = gmerr.New(gmerr.Engine, "engine exited before Bridge handshake (exit code %d)", exitCode)
	case waitErr != nil:
		failure = gmerr.New(gmerr.Engine, "engine process exited unexpectedly (exit code %d)", exitCode)
	}

	if sup.sess != nil {
		sup.sess.CloseChannel(context.Background(), inst.channelID, failure)
	}

	delete(sup.pending, inst.handshakeToken)
	delete(sup.byChannel, inst.channelID)
	delete(sup.instances, id)
}

// expireHandshake runs when an instance's handshake deadline fires
// with no Bridge ever having bound. Per invariant 6, an unhandshaken
// Bridge must not leave an orphan channel-table entry.
func (sup *Supervisor) expireHandshake(id string) {
	inst, ok := sup.instances[id]
	if !ok || inst.status != StatusLoading {
		return
	}
	sup.logger.Warn("engine instance never handshaked within deadline", "instance", id)
	sup.kill(inst)
	// onExit (from the reap goroutine this kill triggers) performs the
	// rest of the teardown once the process actually exits.
}

// BindBridge completes a Bridge handshake: it verifies token against
// the claimed instance, binds transport for outbound publishes, and
// transitions the instance to running. Called by the IPC Router once
// it decodes a hello frame. Returns the instance's channel id so the
// Router knows where to deliver events it reads off this connection.
func (sup *Supervisor) BindBridge(ctx context.Context, token string, transport bridgeTransport) (string, error) {
	type result struct {
		channelID string
		err       error
	}
	done := make(chan result, 1)
	sup.submit(func(sup *Supervisor) {
		id, ok := sup.pending[token]
		if !ok {
			done <- result{err: gmerr.New(gmerr.Bridge, "handshake token does not match any pending instance")}
			return
		}
		inst, ok := sup.instances[id]
		if !ok || !verifyHandshakeToken(token, id) {
			done <- result{err: gmerr.New(gmerr.Bridge, "handshake token verification failed")}
			return
		}
		if inst.bridge != nil {
			done <- result{err: gmerr.New(gmerr.Bridge, "duplicate handshake for instance %s", id)}
			return
		}
		inst.bridge = transport
		inst.status = StatusRunning
		if inst.handshakeDeadline != nil {
			inst.handshakeDeadline.Stop()
		}
		delete(sup.pending, token)
		if err := clearRestartWatchdog(inst.writeDir); err != nil {
			sup.logger.Warn("clearing restart watchdog", "instance", id, "error", err)
		}
		done <- result{channelID: inst.channelID}
	})
	select {
	case r := <-done:
		return r.channelID, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (sup *Supervisor) publish(ctx context.Context, instanceID string, payload json.RawMessage) error {
	type result struct {
		transport bridgeTransport
		err       error
	}
	done := make(chan result, 1)
	sup.submit(func(sup *Supervisor) {
		inst, ok := sup.instances[instanceID]
		if !ok {
			done <- result{err: gmerr.New(gmerr.ChannelClosed, "instance %s no longer exists", instanceID)}
			return
		}
		if inst.bridge == nil {
			done <- result{err: gmerr.New(gmerr.Engine, "bridge not yet connected for instance %s", instanceID)}
			return
		}
		done <- result{transport: inst.bridge}
	})
	select {
	case r := <-done:
		if r.err != nil {
			return r.err
		}
		return r.transport.Send(ctx, payload)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (sup *Supervisor) stopInstance(ctx context.Context, instanceID string) error {
	done := make(chan struct{})
	sup.submit(func(sup *Supervisor) {
		inst, ok := sup.instances[instanceID]
		if !ok {
			close(done)
			return
		}
		if inst.bridge != nil {
			inst.bridge.Terminate()
		}
		sup.kill(inst)
		close(done)
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// checkpointInstance captures the instance's opaque state — write-dir,
// a savestate path the engine is expected to have produced on
// request, and the loaded-scripts/active-macros bookkeeping described
// in the multiplexer's checkpoint storage design note.
func (sup *Supervisor) checkpointInstance(ctx context.Context, instanceID string) (checkpoint.ID, error) {
	type result struct {
		id  checkpoint.ID
		err error
	}
	done := make(chan result, 1)
	sup.submit(func(sup *Supervisor) {
		inst, ok := sup.instances[instanceID]
		if !ok {
			done <- result{err: gmerr.New(gmerr.ChannelClosed, "instance %s no longer exists", instanceID)}
			return
		}
		payload := checkpointPayload{
			WriteDir:      inst.writeDir,
			SavestatePath: filepath.Join(inst.writeDir, "demos", instanceID+".sd7"),
			ScriptPath:    filepath.Join(inst.writeDir, "script.txt"),
			LoadedScripts: append([]string(nil), inst.loadedScripts...),
			ActiveMacros:  append([]string(nil), inst.activeMacros...),
		}
		id, err := marshalCheckpoint(payload)
		done <- result{id: id, err: err}
	})
	select {
	case r := <-done:
		return r.id, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// rollbackInstance tears the current engine process down and respawns
// it from the recorded checkpoint state, reusing the same write-dir
// and channel id — the channel id is preserved across rollback per
// the multiplexer's checkpoint/rollback design.
func (sup *Supervisor) rollbackInstance(ctx context.Context, instanceID string, id checkpoint.ID) error {
	payload, err := unmarshalCheckpoint(id)
	if err != nil {
		return gmerr.Wrap(gmerr.Internal, err, "decoding checkpoint payload")
	}

	type result struct{ err error }
	done := make(chan result, 1)
	sup.submit(func(sup *Supervisor) {
		inst, ok := sup.instances[instanceID]
		if !ok {
			done <- result{err: gmerr.New(gmerr.ChannelClosed, "instance %s no longer exists", instanceID)}
			return
		}

		sup.kill(inst)
		if inst.handshakeDeadline != nil {
			inst.handshakeDeadline.Stop()
		}
		delete(sup.pending, inst.handshakeToken)

		token, tokenErr := NewHandshakeToken(instanceID)
		if tokenErr != nil {
			done <- result{err: gmerr.Wrap(gmerr.Internal, tokenErr, "generating handshake token for rollback")}
			return
		}

		inst.handshakeToken = token
		inst.bridge = nil
		inst.status = StatusLoading
		inst.loadedScripts = payload.LoadedScripts
		inst.activeMacros = payload.ActiveMacros

		if err := writeBootstrapConfig(payload.WriteDir, inst.config.AgentName, token); err != nil {
			done <- result{err: gmerr.Wrap(gmerr.Engine, err, "rewriting bootstrap config for rollback")}
			return
		}

		if err := recordRestart(sup.clk, payload.WriteDir, sup.engineBinary, sup.engineBinary); err != nil {
			sup.logger.Warn("recording restart watchdog", "instance", instanceID, "error", err)
		}

		if err := sup.spawn(inst, payload.ScriptPath); err != nil {
			done <- result{err: gmerr.Wrap(gmerr.Engine, err, "respawning engine for rollback")}
			return
		}
		sup.pending[token] = instanceID
		inst.handshakeDeadline = sup.clk.AfterFunc(HandshakeDeadline, func() {
			sup.submit(func(sup *Supervisor) { sup.expireHandshake(instanceID) })
		})

		done <- result{}
	})
	select {
	case r := <-done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListInstances returns a snapshot of channel id -> status for the
// tool surface's channel_list.
func (sup *Supervisor) ListInstances(ctx context.Context) (map[string]Status, error) {
	type result struct{ snapshot map[string]Status }
	done := make(chan result, 1)
	sup.submit(func(sup *Supervisor) {
		snap := make(map[string]Status, len(sup.instances))
		for _, inst := range sup.instances {
			snap[inst.channelID] = inst.status
		}
		done <- result{snapshot: snap}
	})
	select {
	case r := <-done:
		return r.snapshot, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// watchdogPath returns the watchdog state file path for an instance's
// write-dir, used when a rollback restart reuses the same directory.
func watchdogPath(writeDir string) string {
	return filepath.Join(writeDir, "temp", "restart.watchdog")
}

// recordRestart writes a watchdog state before a risky in-place
// transition (rollback-driven respawn). The file stays until
// clearRestartWatchdog runs at the handshake; the Supervisor never
// reads it back.
func recordRestart(clk clock.Clock, writeDir, previousBinary, newBinary string) error {
	return watchdog.Write(watchdogPath(writeDir), watchdog.State{
		Component:      "engine",
		PreviousBinary: previousBinary,
		NewBinary:      newBinary,
		Timestamp:      clk.Now(),
	})
}

// clearRestartWatchdog removes the watchdog state once an instance
// reaches running after a restart.
func clearRestartWatchdog(writeDir string) error {
	return watchdog.Clear(watchdogPath(writeDir))
}
