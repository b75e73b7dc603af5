// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckpointRollbackCheckpointIncludesFirst(t *testing.T) {
	tree := New()

	first, err := tree.Checkpoint([]byte(`{"savestate":"a"}`))
	require.NoError(t, err)

	second, err := tree.Checkpoint([]byte(`{"savestate":"b"}`))
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	payload, err := tree.Rollback(first)
	require.NoError(t, err)
	require.Equal(t, `{"savestate":"a"}`, string(payload))
	require.Equal(t, first, tree.Current())

	third, err := tree.Checkpoint([]byte(`{"savestate":"c"}`))
	require.NoError(t, err)

	require.True(t, tree.Includes(third, first))
	require.False(t, tree.Includes(third, second))
}

func TestCheckpointIDsAreStable(t *testing.T) {
	tree := New()
	first, err := tree.Checkpoint([]byte("x"))
	require.NoError(t, err)

	_, err = tree.Rollback(first)
	require.NoError(t, err)

	second, err := tree.Checkpoint([]byte("y"))
	require.NoError(t, err)

	// Rolling back and re-checkpointing does not reuse or skip ids:
	// the new id's parent chain includes the original checkpoint, and
	// the original id is left untouched in the tree.
	ancestors, err := tree.Ancestors(second)
	require.NoError(t, err)
	require.Contains(t, ancestors, first)
}

func TestRollbackUnknownID(t *testing.T) {
	tree := New()
	_, err := tree.Rollback(ID("missing"))
	require.Error(t, err)
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	tree := New()
	first, err := tree.Checkpoint([]byte("a"))
	require.NoError(t, err)
	_, err = tree.Checkpoint([]byte("b"))
	require.NoError(t, err)

	data, err := tree.Marshal()
	require.NoError(t, err)

	restored := New()
	require.NoError(t, restored.Unmarshal(data))
	require.Equal(t, tree.Current(), restored.Current())

	ancestors, err := restored.Ancestors(restored.Current())
	require.NoError(t, err)
	require.Contains(t, ancestors, first)
}
