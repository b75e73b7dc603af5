// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

// Package lobby implements the line-framed TCP client for the
// matchmaking lobby server behind the multiplexer's "lobby.chat"
// feature set (chat, battles and matchmaker alike). It owns one
// connection: the wire codec, the login/register handshake, the
// in-memory model of joined rooms/users/battles, and translation of
// incoming lines into channels/incoming notifications on the
// multiplexer.
//
// Client is a session.Resource (it is not rollback-capable — a lobby
// connection has no checkpointable state of its own, only the
// tracked model, which the spec does not require snapshotting).
package lobby
