// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

// Command gamemanager is the agent-facing MCP-style server: it owns
// the upstream session, the lobby client, the engine supervisor, and
// the Bridge IPC router, and exposes lobby.* and game.* tools over
// line-delimited JSON-RPC on stdio or a single TCP connection.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/skirmish-net/gamemanager/lib/config"
	"github.com/skirmish-net/gamemanager/lib/enginesup"
	"github.com/skirmish-net/gamemanager/lib/ipcrouter"
	"github.com/skirmish-net/gamemanager/lib/lobby"
	"github.com/skirmish-net/gamemanager/lib/process"
	"github.com/skirmish-net/gamemanager/lib/session"
	"github.com/skirmish-net/gamemanager/lib/toolsurface"
	"github.com/skirmish-net/gamemanager/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.FatalCode(err, exitCodeForError(err))
	}
}

// exitCodeForError maps a fatal run() error to the exit code spec'd
// for the upstream protocol: 0 normal, 1 fatal configuration error, 2
// transport lost without graceful shutdown.
func exitCodeForError(err error) int {
	var te *transportLostError
	if errors.As(err, &te) {
		return 2
	}
	return 1
}

// transportLostError marks a failure as the upstream transport
// disappearing mid-session rather than a startup configuration
// problem, so run()'s caller can pick exit code 2 instead of 1.
type transportLostError struct{ err error }

func (e *transportLostError) Error() string { return e.err.Error() }
func (e *transportLostError) Unwrap() error { return e.err }

func run() error {
	var (
		useStdio      bool
		tcpPort       int
		writeDirRoot  string
		socketDir     string
		contentRoot   string
		bridgeLib     string
		bridgeData    string
		widgetSource  string
		engineBinary  string
		configPath    string
		lobbyHost     string
		lobbyPort     int
		showVersion   bool
	)

	pflag.BoolVar(&useStdio, "stdio", false, "serve the upstream protocol on stdin/stdout")
	pflag.IntVar(&tcpPort, "tcp", 0, "serve the upstream protocol on this TCP port instead of stdio")
	pflag.StringVar(&writeDirRoot, "write-dir", "", "root directory for per-instance engine write-dirs (required)")
	pflag.StringVar(&socketDir, "socket-dir", "", "directory for Bridge IPC sockets (defaults to <write-dir>/sockets)")
	pflag.StringVar(&contentRoot, "content-root", "", "read-only content tree (pool/packages/maps/games/engine/rapid) shared across instances")
	pflag.StringVar(&bridgeLib, "bridge-lib", "", "path to the built Bridge shared library")
	pflag.StringVar(&bridgeData, "bridge-data", "", "directory containing the Bridge's AIInfo.lua and AIOptions.lua")
	pflag.StringVar(&widgetSource, "widget-source", "", "path to the bootstrap widget Lua source installed into every write-dir")
	pflag.StringVar(&engineBinary, "engine-binary", "", "path to the engine binary (auto-detected on PATH if empty)")
	pflag.StringVar(&configPath, "config", "", "path to an optional JSONC config file for persistent settings")
	pflag.StringVar(&lobbyHost, "lobby-host", "", "lobby server host to auto-connect to at startup if lobby credentials are also set")
	pflag.IntVar(&lobbyPort, "lobby-port", 8200, "lobby server TCP port")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.Parse()

	if showVersion {
		fmt.Printf("gamemanager %s\n", version.Info())
		return nil
	}

	if useStdio == (tcpPort != 0) {
		return fmt.Errorf("exactly one of --stdio or --tcp <port> is required")
	}
	if writeDirRoot == "" {
		return fmt.Errorf("--write-dir is required")
	}
	if socketDir == "" {
		socketDir = filepath.Join(writeDirRoot, "sockets")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var fileCfg *config.File
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		fileCfg = loaded
	} else {
		fileCfg = &config.File{}
	}

	if writeDirRoot == "" {
		writeDirRoot = fileCfg.WriteDirRoot
	}
	if writeDirRoot == "" {
		return fmt.Errorf("--write-dir is required")
	}
	if socketDir == "" {
		socketDir = filepath.Join(writeDirRoot, "sockets")
	}

	if engineBinary == "" {
		engineBinary = firstNonEmpty(os.Getenv("GAMEMANAGER_ENGINE_BINARY"), fileCfg.EngineBinary)
	}
	if engineBinary == "" {
		engineBinary = findSiblingBinary("spring-headless", logger)
	}
	if err := validateBinary(engineBinary, "engine binary"); err != nil {
		return fmt.Errorf("%w\n  Set --engine-binary, GAMEMANAGER_ENGINE_BINARY, or place spring-headless on PATH", err)
	}
	logger.Info("engine binary resolved", "path", engineBinary)

	if lobbyHost == "" {
		lobbyHost = firstNonEmpty(os.Getenv("GAMEMANAGER_LOBBY_HOST"), fileCfg.LobbyHost)
	}
	if lobbyPort == 8200 && fileCfg.LobbyPort != 0 {
		lobbyPort = fileCfg.LobbyPort
	}

	if err := os.MkdirAll(writeDirRoot, 0755); err != nil {
		return fmt.Errorf("creating write-dir root %s: %w", writeDirRoot, err)
	}
	if err := os.MkdirAll(socketDir, 0700); err != nil {
		return fmt.Errorf("creating socket directory %s: %w", socketDir, err)
	}

	shared := enginesup.SharedContent{
		Root:         contentRoot,
		BridgeLib:    bridgeLib,
		BridgeData:   bridgeData,
		WidgetSource: widgetSource,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess := session.New(logger, []*session.FeatureSet{
		{Name: toolsurface.FeatureLobby, Tools: true, Channels: true, PushEvents: true},
		{Name: toolsurface.FeatureGame, Tools: true, Channels: true, PushEvents: true, Rollback: true},
	})

	client := lobby.New(logger, sess, toolsurface.FeatureLobby)
	sup := enginesup.New(logger, sess, engineBinary, writeDirRoot, socketDir, shared)
	router := ipcrouter.New(logger, sess, sup)
	sup.SetBridgeListener(router.Listen)

	registry := toolsurface.New(client, sup)
	registry.Register(sess)

	go sup.Run(ctx)

	lobbyUsername := firstNonEmpty(os.Getenv("GAMEMANAGER_LOBBY_USERNAME"), fileCfg.LobbyUsername)
	lobbyPassword := os.Getenv("GAMEMANAGER_LOBBY_PASSWORD")
	if lobbyHost != "" && lobbyUsername != "" && lobbyPassword != "" {
		go autoConnectLobby(ctx, client, lobbyHost, lobbyPort, lobbyUsername, lobbyPassword, logger)
	}

	input, output, cleanup, err := openUpstream(ctx, useStdio, tcpPort, logger)
	if err != nil {
		return fmt.Errorf("opening upstream transport: %w", err)
	}
	defer cleanup()

	if err := sess.Run(ctx, input, output); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return &transportLostError{err: err}
	}
	return nil
}

// autoConnectLobby dials and authenticates the lobby client in the
// background so an agent host that only cares about already being
// logged in does not have to call lobby_connect/lobby_login itself.
// Failure here is not fatal to the GameManager process: the agent can
// still retry through the tool surface.
func autoConnectLobby(ctx context.Context, client *lobby.Client, host string, port int, username, password string, logger *slog.Logger) {
	addr := fmt.Sprintf("%s:%d", host, port)
	if err := client.Connect(ctx, addr); err != nil {
		logger.Warn("auto-connect to lobby failed", "addr", addr, "error", err)
		return
	}
	if err := client.Login(ctx, username, password); err != nil {
		logger.Warn("auto-login to lobby failed", "addr", addr, "username", username, "error", err)
		return
	}
	logger.Info("auto-connected and authenticated to lobby", "addr", addr, "username", username)
}

// openUpstream returns the reader/writer pair sess.Run will use: the
// process's own stdio, or the single connection accepted on --tcp.
// Only one upstream connection is ever served: the listener is closed
// as soon as the first connection is accepted, so a later dialer is
// refused.
func openUpstream(ctx context.Context, useStdio bool, tcpPort int, logger *slog.Logger) (in io.Reader, out io.Writer, cleanup func(), err error) {
	if useStdio {
		return os.Stdin, os.Stdout, func() {}, nil
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", tcpPort))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("listening on :%d: %w", tcpPort, err)
	}
	logger.Info("waiting for upstream TCP connection", "port", tcpPort)

	type acceptResult struct {
		conn net.Conn
		err  error
	}
	accepted := make(chan acceptResult, 1)
	go func() {
		conn, err := ln.Accept()
		accepted <- acceptResult{conn, err}
	}()

	select {
	case <-ctx.Done():
		ln.Close()
		return nil, nil, nil, ctx.Err()
	case res := <-accepted:
		ln.Close()
		if res.err != nil {
			return nil, nil, nil, res.err
		}
		logger.Info("upstream connected", "remote", res.conn.RemoteAddr())
		return res.conn, res.conn, func() { res.conn.Close() }, nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// findSiblingBinary looks for a GameManager-adjacent binary by name,
// first next to the gamemanager binary itself, then on PATH.
func findSiblingBinary(name string, logger *slog.Logger) string {
	executable, err := os.Executable()
	if err == nil {
		candidate := filepath.Join(filepath.Dir(executable), name)
		if _, statErr := os.Stat(candidate); statErr == nil {
			logger.Info("found binary next to gamemanager", "name", name, "path", candidate)
			return candidate
		}
	}
	if path, err := exec.LookPath(name); err == nil {
		logger.Info("found binary on PATH", "name", name, "path", path)
		return path
	}
	return ""
}

// validateBinary checks that path points to a regular, executable file.
func validateBinary(path, name string) error {
	if path == "" {
		return fmt.Errorf("%s not found (checked next to gamemanager binary and PATH)", name)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s at %q: %w", name, path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s at %q is not a regular file (mode %s)", name, path, info.Mode())
	}
	if info.Mode()&0111 == 0 {
		return fmt.Errorf("%s at %q is not executable (mode %s)", name, path, info.Mode())
	}
	return nil
}
