// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads GameManager's persistent on-disk settings: the
// engine binary path override, default lobby host/port, the write-dir
// root, and a cached lobby password sealed to a local machine keypair
// so it never sits in plaintext across restarts.
//
// The file is JSONC (comments and trailing commas allowed) parsed with
// github.com/tidwall/jsonc, matching the teacher's template validator.
// CLI flags always take precedence over values loaded here; File is
// consulted only to fill in flags the operator left at their zero value.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/skirmish-net/gamemanager/lib/sealed"
	"github.com/skirmish-net/gamemanager/lib/secret"
)

// File is the parsed shape of the on-disk JSONC config file.
type File struct {
	EngineBinary   string `json:"engine_binary,omitempty"`
	WriteDirRoot   string `json:"write_dir_root,omitempty"`
	LobbyHost      string `json:"lobby_host,omitempty"`
	LobbyPort      int    `json:"lobby_port,omitempty"`
	LobbyUsername  string `json:"lobby_username,omitempty"`
	SealedPassword string `json:"lobby_password_sealed,omitempty"` // age-encrypted, base64
	KeypairPublic  string `json:"keypair_public,omitempty"`
}

// Load reads and parses the JSONC config file at path. A missing file
// is not an error: it returns a zero File so every field falls back to
// its flag default.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var f File
	if err := json.Unmarshal(jsonc.ToJSON(data), &f); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &f, nil
}

// Save writes f to path as indented JSON (comments added by an operator
// are not preserved across a Save; Save is only used by the credential
// caching path below, never by normal startup).
func Save(path string, f *File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// CachePassword seals password to keypair's public key and stores it
// (along with username) in f, ready for Save. Call after a successful
// lobby_connect+lobby_login so the next GameManager start does not
// require the password again in plaintext.
func CachePassword(f *File, keypair *sealed.Keypair, username, password string) error {
	ciphertext, err := sealed.Encrypt([]byte(password), []string{keypair.PublicKey})
	if err != nil {
		return fmt.Errorf("sealing lobby password: %w", err)
	}
	f.LobbyUsername = username
	f.SealedPassword = ciphertext
	f.KeypairPublic = keypair.PublicKey
	return nil
}

// CachedPassword decrypts f's sealed password with privateKey. Returns
// ok=false when f has no cached credential at all.
func CachedPassword(f *File, privateKey *secret.Buffer) (buf *secret.Buffer, ok bool, err error) {
	if f.SealedPassword == "" {
		return nil, false, nil
	}
	buf, err = sealed.Decrypt(f.SealedPassword, privateKey)
	if err != nil {
		return nil, false, fmt.Errorf("decrypting cached lobby password: %w", err)
	}
	return buf, true, nil
}
