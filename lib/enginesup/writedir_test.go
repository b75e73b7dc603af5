// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package enginesup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPrepareWriteDirCreatesSubdirsAndSymlinks(t *testing.T) {
	root := t.TempDir()
	sharedRoot := filepath.Join(root, "shared")
	instanceDir := filepath.Join(root, "instance")

	for _, name := range []string{"pool", "maps", "games"} {
		require.NoError(t, os.MkdirAll(filepath.Join(sharedRoot, name), 0755))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(sharedRoot, "AI", "Interfaces"), 0755))

	shared := SharedContent{Root: sharedRoot}
	require.NoError(t, PrepareWriteDir(instanceDir, shared, "agent1", "tok-abc"))

	for _, sub := range writeDirSubdirs {
		info, err := os.Stat(filepath.Join(instanceDir, sub))
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}

	for _, name := range []string{"pool", "maps", "games"} {
		target, err := os.Readlink(filepath.Join(instanceDir, name))
		require.NoError(t, err)
		require.Equal(t, filepath.Join(sharedRoot, name), target)
	}

	// engine and rapid weren't present in sharedRoot — no symlink, no error.
	_, err := os.Lstat(filepath.Join(instanceDir, "engine"))
	require.True(t, os.IsNotExist(err))

	target, err := os.Readlink(filepath.Join(instanceDir, "AI", "Interfaces"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(sharedRoot, "AI", "Interfaces"), target)
}

func TestPrepareWriteDirBootstrapConfigCarriesHandshakeToken(t *testing.T) {
	instanceDir := filepath.Join(t.TempDir(), "instance")
	require.NoError(t, PrepareWriteDir(instanceDir, SharedContent{Root: t.TempDir()}, "agent1", "tok-xyz"))

	data, err := os.ReadFile(filepath.Join(instanceDir, "LuaUI", "Config", "agent_bootstrap.json"))
	require.NoError(t, err)

	var cfg bootstrapConfig
	require.NoError(t, json.Unmarshal(data, &cfg))
	player, ok := cfg.Players["agent1"]
	require.True(t, ok)
	require.Equal(t, "tok-xyz", player.HandshakeToken)
	require.Equal(t, "AgentBridge", player.AI)
}

func TestPrepareWriteDirWritesHeadlessSettingsOnce(t *testing.T) {
	instanceDir := filepath.Join(t.TempDir(), "instance")
	require.NoError(t, PrepareWriteDir(instanceDir, SharedContent{Root: t.TempDir()}, "agent1", "tok"))

	settingsPath := filepath.Join(instanceDir, "springsettings.cfg")
	data, err := os.ReadFile(settingsPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "Fullscreen=0")

	custom := []byte("custom settings\n")
	require.NoError(t, os.WriteFile(settingsPath, custom, 0644))

	require.NoError(t, PrepareWriteDir(instanceDir, SharedContent{Root: t.TempDir()}, "agent1", "tok2"))
	data, err = os.ReadFile(settingsPath)
	require.NoError(t, err)
	require.Equal(t, custom, data, "existing settings file must not be overwritten")
}

func TestShouldUpdateMissingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	update, err := shouldUpdate(filepath.Join(dir, "missing"), src)
	require.NoError(t, err)
	require.True(t, update)
}

func TestShouldUpdateOnlyWhenSourceNewer(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dest := filepath.Join(dir, "dest")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0644))
	require.NoError(t, os.WriteFile(src, []byte("new"), 0644))

	now := time.Now()
	require.NoError(t, os.Chtimes(dest, now, now))
	require.NoError(t, os.Chtimes(src, now.Add(-time.Hour), now.Add(-time.Hour)))

	update, err := shouldUpdate(dest, src)
	require.NoError(t, err)
	require.False(t, update, "source older than destination should not trigger an update")

	require.NoError(t, os.Chtimes(src, now.Add(time.Hour), now.Add(time.Hour)))
	update, err = shouldUpdate(dest, src)
	require.NoError(t, err)
	require.True(t, update)
}

func TestPrepareWriteDirInstallsBridgeArtifacts(t *testing.T) {
	root := t.TempDir()
	libPath := filepath.Join(root, "libSkirmishAI.so")
	require.NoError(t, os.WriteFile(libPath, []byte("binary"), 0755))

	dataDir := filepath.Join(root, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "AIInfo.lua"), []byte("info"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "AIOptions.lua"), []byte("options"), 0644))

	instanceDir := filepath.Join(root, "instance")
	shared := SharedContent{Root: root, BridgeLib: libPath, BridgeData: dataDir}
	require.NoError(t, PrepareWriteDir(instanceDir, shared, "agent1", "tok"))

	installed, err := os.ReadFile(filepath.Join(instanceDir, bridgeInstallDir, "libSkirmishAI.so"))
	require.NoError(t, err)
	require.Equal(t, "binary", string(installed))

	info, err := os.ReadFile(filepath.Join(instanceDir, bridgeInstallDir, "AIInfo.lua"))
	require.NoError(t, err)
	require.Equal(t, "info", string(info))
}
