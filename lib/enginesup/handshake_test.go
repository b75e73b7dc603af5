// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package enginesup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewHandshakeTokenVerifies(t *testing.T) {
	token, err := NewHandshakeToken("inst-1")
	require.NoError(t, err)
	require.True(t, verifyHandshakeToken(token, "inst-1"))
}

func TestHandshakeTokenRejectsWrongInstance(t *testing.T) {
	token, err := NewHandshakeToken("inst-1")
	require.NoError(t, err)
	require.False(t, verifyHandshakeToken(token, "inst-2"))
}

func TestHandshakeTokensAreUnpredictable(t *testing.T) {
	first, err := NewHandshakeToken("inst-1")
	require.NoError(t, err)
	second, err := NewHandshakeToken("inst-1")
	require.NoError(t, err)
	require.NotEqual(t, first, second, "two tokens for the same instance must not be identical")
}

func TestVerifyHandshakeTokenRejectsMalformed(t *testing.T) {
	require.False(t, verifyHandshakeToken("short", "inst-1"))
	require.False(t, verifyHandshakeToken("zz"+strings.Repeat("0", 40), "inst-1"))
}
