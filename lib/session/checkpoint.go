// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package session

import "github.com/skirmish-net/gamemanager/lib/checkpoint"

// newCheckpointTree is a thin indirection so tests can substitute a
// tree implementation; in practice it is always checkpoint.New.
func newCheckpointTree() *checkpoint.Tree {
	return checkpoint.New()
}

// checkpointIDFromString and checkpointIDFromBytes convert between
// the wire representation of a checkpoint id (a JSON string) and the
// resource-opaque checkpoint.ID stored as the tree node's payload.
func checkpointIDFromString(s string) checkpoint.ID {
	return checkpoint.ID(s)
}

func checkpointIDFromBytes(b []byte) checkpoint.ID {
	return checkpoint.ID(string(b))
}
