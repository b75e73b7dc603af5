// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package enginesup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// sharedDirs are symlinked whole from SharedContent.Root into every
// instance write-dir rather than copied. "cache" is deliberately not
// in this list: the engine's archive-scan cache stores absolute
// paths, so sharing it across write-dirs forces a full rescan anyway
// and a write-back from one instance would clobber another's cache.
var sharedDirs = []string{"pool", "packages", "maps", "games", "engine", "rapid"}

// SharedContent locates the read-mostly content tree and Bridge
// artifacts that every instance write-dir symlinks or copies from.
// Root is never written to by an instance.
type SharedContent struct {
	Root         string // content tree holding pool/packages/maps/games/engine/rapid and AI/Interfaces
	BridgeLib    string // path to the built Bridge shared library
	BridgeData   string // directory containing AIInfo.lua and AIOptions.lua
	WidgetSource string // bootstrap widget Lua source installed into every write-dir
}

// writeDirSubdirs are created fresh in every instance write-dir.
var writeDirSubdirs = []string{
	filepath.Join("AI", "Skirmish", "AgentBridge", "0.1"),
	filepath.Join("AI", "Interfaces"),
	filepath.Join("LuaUI", "Widgets"),
	filepath.Join("LuaUI", "Config"),
	"demos",
	filepath.Join("temp", "log"),
}

// bridgeInstallDir is the Skirmish AI path the Bridge and its
// metadata files are installed under, relative to a write-dir.
const bridgeInstallDir = "AI/Skirmish/AgentBridge/0.1"

// headlessSettings is the engine settings file content for a
// headless, soundless instance: no window, no audio device, no
// graphical detail features that would otherwise default on.
const headlessSettings = `XResolution=1
YResolution=1
WindowState=0
Fullscreen=0
VSync=0
ROAM=0
SmoothLines=0
SmoothPoints=0
FSAA=0
FSAALevel=0
AdvSky=0
DynamicSky=0
3DTrees=0
HighResInfoTexture=0
GroundDetail=1
UnitLodDist=0
GrassDetail=0
MaxParticles=0
GroundDecals=0
UnitIconDist=0
MaxSounds=0
snd_volmaster=0
`

// PrepareWriteDir creates (or refreshes) an isolated write-dir for one
// engine instance under dir: subdirectories for AI/UI/replay/temp
// output, symlinks into shared.Root for archives/maps/games/engine
// binaries/rapid packages, the installed Bridge library and its
// metadata, the bootstrap widget, engine settings, and a bootstrap
// config keyed by agentName and carrying handshakeToken so the Bridge
// can present it at IPC handshake time.
//
// Missing symlink sources are skipped silently (this function returns
// no error for them and nothing logs them) — directory creation must
// still succeed even if the shared content tree is incomplete. The
// engine itself will fail later if an archive it needs is absent;
// that is its problem, not the write-dir's.
func PrepareWriteDir(dir string, shared SharedContent, agentName, handshakeToken string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating write-dir %s: %w", dir, err)
	}

	for _, sub := range writeDirSubdirs {
		p := filepath.Join(dir, sub)
		if _, err := os.Stat(p); err == nil {
			continue
		}
		if err := os.MkdirAll(p, 0755); err != nil {
			return fmt.Errorf("creating write-dir subdirectory %s: %w", sub, err)
		}
	}

	for _, name := range sharedDirs {
		symlinkShared(dir, shared.Root, name)
	}
	symlinkInterfaces(dir, shared.Root)

	if err := installBridge(dir, shared); err != nil {
		return err
	}

	if shared.WidgetSource != "" {
		widgetDest := filepath.Join(dir, "LuaUI", "Widgets", "agent_bootstrap.lua")
		if fresh, err := shouldUpdate(widgetDest, shared.WidgetSource); err == nil && fresh {
			if err := copyFile(shared.WidgetSource, widgetDest); err != nil {
				return fmt.Errorf("installing bootstrap widget: %w", err)
			}
		}
	}

	if err := writeBootstrapConfig(dir, agentName, handshakeToken); err != nil {
		return err
	}

	settingsPath := filepath.Join(dir, "springsettings.cfg")
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		if err := os.WriteFile(settingsPath, []byte(headlessSettings), 0644); err != nil {
			return fmt.Errorf("writing engine settings: %w", err)
		}
	}

	return nil
}

// symlinkShared symlinks dir/name to root/name when the target exists
// and the link does not already point somewhere else. A pre-existing
// symlink to the right target is left alone; one pointing elsewhere is
// left alone too (never overwritten — some other process or a manual
// override owns it).
func symlinkShared(dir, root, name string) {
	target := filepath.Join(root, name)
	link := filepath.Join(dir, name)

	if existing, err := os.Readlink(link); err == nil {
		_ = existing // already a symlink of some kind; do not touch it
		return
	}
	if _, err := os.Lstat(link); err == nil {
		return // a real file or directory sits here; leave it
	}
	if _, err := os.Stat(target); err != nil {
		return // shared content tree doesn't have this dir; non-fatal
	}
	_ = os.Symlink(target, link)
}

// symlinkInterfaces replaces the empty AI/Interfaces directory created
// by the subdir pass with a symlink to the shared one, when available.
// Unlike symlinkShared's siblings, this directory is created eagerly
// above so engines that don't need shared interfaces still have a
// valid (if empty) one.
func symlinkInterfaces(dir, root string) {
	target := filepath.Join(root, "AI", "Interfaces")
	link := filepath.Join(dir, "AI", "Interfaces")

	if _, err := os.Stat(target); err != nil {
		return
	}
	entries, err := os.ReadDir(link)
	if err != nil || len(entries) != 0 {
		return // not empty, or not a plain directory — leave it
	}
	if err := os.Remove(link); err != nil {
		return
	}
	_ = os.Symlink(target, link)
}

func installBridge(dir string, shared SharedContent) error {
	aiDir := filepath.Join(dir, bridgeInstallDir)

	if shared.BridgeLib != "" {
		if _, err := os.Stat(shared.BridgeLib); err == nil {
			dest := filepath.Join(aiDir, "libSkirmishAI.so")
			if fresh, err := shouldUpdate(dest, shared.BridgeLib); err == nil && fresh {
				if err := copyFile(shared.BridgeLib, dest); err != nil {
					return fmt.Errorf("installing bridge library: %w", err)
				}
			}
		}
	}

	if shared.BridgeData != "" {
		for _, name := range []string{"AIInfo.lua", "AIOptions.lua"} {
			src := filepath.Join(shared.BridgeData, name)
			if _, err := os.Stat(src); err != nil {
				continue
			}
			dest := filepath.Join(aiDir, name)
			if fresh, err := shouldUpdate(dest, src); err == nil && fresh {
				if err := copyFile(src, dest); err != nil {
					return fmt.Errorf("installing %s: %w", name, err)
				}
			}
		}
	}

	return nil
}

type bootstrapConfig struct {
	Players map[string]bootstrapPlayer `json:"players"`
}

type bootstrapPlayer struct {
	AI             string `json:"ai"`
	Version        string `json:"version"`
	HandshakeToken string `json:"handshake_token"`
}

func writeBootstrapConfig(dir, agentName, handshakeToken string) error {
	path := filepath.Join(dir, "LuaUI", "Config", "agent_bootstrap.json")
	cfg := bootstrapConfig{
		Players: map[string]bootstrapPlayer{
			agentName: {AI: "AgentBridge", Version: "0.1", HandshakeToken: handshakeToken},
		},
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling bootstrap config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing bootstrap config: %w", err)
	}
	return nil
}

// shouldUpdate reports whether dest is missing or older than src.
func shouldUpdate(dest, src string) (bool, error) {
	destInfo, err := os.Stat(dest)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	return srcInfo.ModTime().After(destInfo.ModTime()), nil
}

func copyFile(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0644)
}
