// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package gmerr

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndPayload(t *testing.T) {
	err := New(Validation, "unknown field %q", "unit_id")
	require.Equal(t, Validation, err.Kind)
	require.Equal(t, `unknown field "unit_id"`, err.Message)

	payload := err.ToPayload()
	assert.Equal(t, Validation, payload.Code)
	assert.Equal(t, err.Message, payload.Message)
	assert.Nil(t, payload.Details)
}

func TestWithDetails(t *testing.T) {
	err := New(CommandError, "unknown unit").WithDetails(map[string]any{"unit_id": 999999})
	payload := err.ToPayload()
	assert.Equal(t, 999999, payload.Details["unit_id"])
}

func TestWrapUnwrap(t *testing.T) {
	err := Wrap(Transport, io.EOF, "reading lobby socket: %w", io.EOF)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, Transport, KindOf(err))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
}

func TestKindOfNestedWrap(t *testing.T) {
	inner := New(Engine, "engine exited")
	outer := fmt.Errorf("handling engine exit: %w", inner)
	assert.Equal(t, Engine, KindOf(outer))

	// A *gmerr.Error that itself wraps a third-party error should still
	// report its own Kind, regardless of how deep the chain goes.
	wrapped := Wrap(Engine, errors.New("exit status 1"), "spawn failed")
	assert.Equal(t, Engine, KindOf(wrapped))
	assert.Equal(t, Engine, KindOf(inner))
}
