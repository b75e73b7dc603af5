// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package lobby

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLineWithPayload(t *testing.T) {
	msg, ok := parseLine(`Say {"User":"test","Text":"hello","Place":0}`)
	require.True(t, ok)
	require.Equal(t, "Say", msg.command)

	var data sayData
	require.NoError(t, json.Unmarshal(msg.data, &data))
	require.Equal(t, "test", data.User)
	require.Equal(t, "hello", data.Text)
}

func TestParseLineWithoutPayload(t *testing.T) {
	msg, ok := parseLine("Ping")
	require.True(t, ok)
	require.Equal(t, "Ping", msg.command)
	require.JSONEq(t, "{}", string(msg.data))
}

func TestParseLineBlank(t *testing.T) {
	_, ok := parseLine("   ")
	require.False(t, ok)
}

func TestWireFormat(t *testing.T) {
	line, err := wire("Ping", struct{}{})
	require.NoError(t, err)
	require.Equal(t, "Ping {}\n", string(line))
}

func TestHashPassword(t *testing.T) {
	// MD5("test") = 098f6bcd4621d373cade4e832627b4f6, base64 of those bytes.
	require.Equal(t, "CY9rzUYh03PK3k6DJie09g==", hashPassword("test"))
}
