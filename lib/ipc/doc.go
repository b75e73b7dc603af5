// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

// Package ipc defines the JSON-framed message types exchanged between
// the GameManager's IPC router and the in-engine Bridge plugin over a
// local Unix domain socket. Both the GameManager and the Bridge's Go
// bindings import this package so the wire types are defined once
// rather than mirrored.
package ipc
