// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package enginesup

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// handshakeDomainKey separates handshake-token hashing from any other
// BLAKE3 keyed use in the GameManager, so the same salt+instance-id
// bytes can never collide with a hash computed for a different
// purpose. The byte values are the ASCII domain name, zero-padded to
// 32 bytes.
var handshakeDomainKey = [32]byte{
	'g', 'a', 'm', 'e', 'm', 'a', 'n', 'a', 'g', 'e', 'r', '.',
	'e', 'n', 'g', 'i', 'n', 'e', 's', 'u', 'p', '.', 'h', 'a', 'n', 'd', 's', 'h', 'a', 'k', 'e',
}

// NewHandshakeToken derives a per-instance handshake token: a random
// salt plus a keyed BLAKE3 hash over the salt and instanceID, so a
// token leaked from one instance's environment cannot be replayed
// against another (the instance id is baked into the hash) and cannot
// be predicted in advance (the salt is unpredictable). The token is
// the hex-encoded salt followed by the hex-encoded hash.
func NewHandshakeToken(instanceID string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating handshake salt: %w", err)
	}

	hasher, err := blake3.NewKeyed(handshakeDomainKey[:])
	if err != nil {
		return "", fmt.Errorf("initializing handshake hasher: %w", err)
	}
	hasher.Write(salt)
	hasher.Write([]byte(instanceID))

	return hex.EncodeToString(salt) + hex.EncodeToString(hasher.Sum(nil)), nil
}

// verifyHandshakeToken recomputes the token for instanceID given the
// salt embedded in token and compares against the hash half. Used by
// Supervisor.BindBridge to confirm a presented token actually matches
// the instance it claims to be for, rather than trusting the pending
// map lookup alone.
func verifyHandshakeToken(token, instanceID string) bool {
	if len(token) < 32 {
		return false
	}
	saltHex := token[:32]
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}

	hasher, err := blake3.NewKeyed(handshakeDomainKey[:])
	if err != nil {
		return false
	}
	hasher.Write(salt)
	hasher.Write([]byte(instanceID))

	want := saltHex + hex.EncodeToString(hasher.Sum(nil))
	return want == token
}
