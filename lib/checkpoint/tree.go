// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

// Package checkpoint implements the per-session checkpoint tree used
// by rollback-enabled feature sets. The multiplexer stores only
// checkpoint ids and parent links here; the payload associated with
// each checkpoint is opaque and owned by the component that created
// it (for the game feature set, an engine savestate path plus a
// record of loaded scripts and active macros — see lib/enginesup).
package checkpoint

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/skirmish-net/gamemanager/lib/codec"
)

// ID is a stable checkpoint identifier. IDs are never reused and never
// skip — rolling back to a checkpoint and re-checkpointing produces a
// fresh ID whose parent chain includes the checkpoint rolled back to.
type ID string

// Node is one entry in the tree: a checkpoint id, its parent (empty
// for the root), and the opaque payload supplied by the owning
// component.
type Node struct {
	ID      ID              `cbor:"id"`
	Parent  ID              `cbor:"parent,omitempty"`
	Payload codec.RawMessage `cbor:"payload"`
}

// Tree is a per-channel checkpoint tree. It is owned by a single task
// (the channel's owning resource) and is not safe for concurrent use
// without the embedded mutex, which guards access from the
// multiplexer's state/checkpoint and state/rollback handlers running
// on different goroutines than the resource's own task.
type Tree struct {
	mu      sync.Mutex
	nodes   map[ID]*Node
	current ID
}

// New creates an empty checkpoint tree with no current checkpoint.
func New() *Tree {
	return &Tree{nodes: make(map[ID]*Node)}
}

// Checkpoint records a new checkpoint whose parent is the tree's
// current checkpoint (empty for the first checkpoint) and advances
// current to the new id. payload is opaque to the tree; it is
// returned unmodified by Payload.
func (t *Tree) Checkpoint(payload []byte) (ID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := ID(uuid.NewString())
	t.nodes[id] = &Node{ID: id, Parent: t.current, Payload: payload}
	t.current = id
	return id, nil
}

// Rollback moves the tree's current checkpoint pointer to id without
// deleting any nodes — the chain between the previous current and the
// restored one remains in the tree so callers can audit it, and a
// checkpoint taken immediately after rollback has id as its parent.
// Returns the restored node's payload.
func (t *Tree) Rollback(id ID) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("checkpoint %s not found", id)
	}
	t.current = id
	return node.Payload, nil
}

// Current returns the tree's current checkpoint id, or "" if no
// checkpoint has been taken yet.
func (t *Tree) Current() ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Ancestors returns the parent chain of id, starting with id itself
// and ending at the root (a node with an empty Parent). Returns an
// error if id is not in the tree.
func (t *Tree) Ancestors(id ID) ([]ID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var chain []ID
	for {
		node, ok := t.nodes[id]
		if !ok {
			return nil, fmt.Errorf("checkpoint %s not found", id)
		}
		chain = append(chain, node.ID)
		if node.Parent == "" {
			return chain, nil
		}
		id = node.Parent
	}
}

// Includes reports whether ancestor appears in id's parent chain
// (inclusive of id itself). Used to implement the round-trip law:
// checkpoint → rollback → checkpoint yields an id whose parent chain
// includes the first checkpoint.
func (t *Tree) Includes(id, ancestor ID) bool {
	chain, err := t.Ancestors(id)
	if err != nil {
		return false
	}
	for _, c := range chain {
		if c == ancestor {
			return true
		}
	}
	return false
}

// snapshot is the on-disk CBOR representation of a Tree, used when a
// checkpoint tree must survive a process restart (a game-instance
// channel's tree is reconstructed from the write-dir's demo/savestate
// bookkeeping rather than persisted directly, but the shape is shared
// for any future owner that does need durability).
type snapshot struct {
	Nodes   []*Node `cbor:"nodes"`
	Current ID      `cbor:"current"`
}

// Marshal serializes the tree to its opaque CBOR representation.
func (t *Tree) Marshal() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := snapshot{Current: t.current}
	for _, node := range t.nodes {
		snap.Nodes = append(snap.Nodes, node)
	}
	return codec.Marshal(snap)
}

// Unmarshal replaces the tree's contents with a previously marshaled
// snapshot.
func (t *Tree) Unmarshal(data []byte) error {
	var snap snapshot
	if err := codec.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("unmarshaling checkpoint tree: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes = make(map[ID]*Node, len(snap.Nodes))
	for _, node := range snap.Nodes {
		t.nodes[node.ID] = node
	}
	t.current = snap.Current
	return nil
}
