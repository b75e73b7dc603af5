// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

// Package gmerr defines the GameManager's error taxonomy: a fixed set
// of error kinds with a single wire shape, used across the
// multiplexer, lobby client, engine supervisor, and IPC router so
// every failure surfaced to the agent host carries a consistent
// {code, message, details} envelope.
package gmerr

import "fmt"

// Kind classifies an error into one of the documented taxonomy
// entries. Each kind has a fixed policy for how the owning component
// reacts (respond and keep the session, close a channel, end the
// session, etc.) — see the doc comment on each constant.
type Kind string

const (
	// Protocol indicates a malformed upstream frame or unknown method.
	// Policy: respond with an error, keep the session.
	Protocol Kind = "protocol"

	// Validation indicates a tool argument failed schema validation.
	// Policy: respond with an error, keep the session.
	Validation Kind = "validation"

	// Transport indicates an upstream or downstream socket failure.
	// Policy: close affected resources, surface a notification, end
	// the session if the failure is on the upstream connection.
	Transport Kind = "transport"

	// Auth indicates lobby authentication failed.
	// Policy: error response; the lobby connection stays disconnected.
	Auth Kind = "auth"

	// ChannelClosed indicates a publish or close against a channel
	// that is not open.
	// Policy: error response; no side effect.
	ChannelClosed Kind = "channel-closed"

	// Engine indicates the engine subprocess failed to start, exited
	// unexpectedly, or never produced a Bridge handshake within the
	// supervisor's deadline.
	// Policy: close the channel with an error payload; emit a
	// channels/changed removal.
	Engine Kind = "engine"

	// Bridge indicates an IPC handshake failure, a framing error, or
	// an unexpected Bridge disconnect.
	// Policy: close the channel; the supervisor kills the engine
	// process if it is still alive.
	Bridge Kind = "bridge"

	// CommandError indicates the Bridge refused a command (unknown
	// type, invalid unit id, wrong team, unknown build def).
	// Policy: emit a command_error event on the channel; the command
	// has no effect.
	CommandError Kind = "command-error"

	// Backpressure indicates the inbound command queue was full.
	// Policy: emit a command_error event with reason "backpressure".
	Backpressure Kind = "backpressure"

	// Internal indicates an unexpected invariant violation.
	// Policy: log with full context, respond with "internal", keep
	// the session.
	Internal Kind = "internal"
)

// Error is the GameManager's structured error type. It implements the
// standard error interface and also exposes the {code, message,
// details} shape that every error kind in the taxonomy uses on the
// wire.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any

	// Wrapped is the underlying error, if any. Unwrap returns it so
	// errors.Is / errors.As work across this boundary.
	Wrapped error
}

// New creates an Error of the given kind with a formatted message. No
// wrapped error — use Wrap when an underlying error should be
// preserved for errors.Is/As.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind that wraps an underlying
// error. The message is formatted the same way as [New], with
// fmt.Sprintf, so a %w verb in format renders as %!w(...) rather than
// embedding err's text; Wrapped is what errors.Unwrap follows.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// WithDetails attaches additional structured context to the error and
// returns it for chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Payload is the wire shape every error kind uses: {code, message,
// details?}. Code is the taxonomy kind string, not a numeric code —
// the upstream protocol's JSON-RPC envelope carries its own numeric
// code separately for methods that need one.
type Payload struct {
	Code    Kind           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ToPayload converts the error to its wire shape.
func (e *Error) ToPayload() Payload {
	return Payload{Code: e.Kind, Message: e.Message, Details: e.Details}
}

// KindOf extracts the taxonomy kind from an error, walking the
// wrapped-error chain. Returns Internal for any error that is not a
// *Error — an un-taxonomized error reaching the upstream boundary is
// itself a programming error, so it is reported as internal rather
// than silently dropped.
func KindOf(err error) Kind {
	var ge *Error
	for err != nil {
		if asErr, ok := err.(*Error); ok {
			ge = asErr
			break
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	if ge == nil {
		return Internal
	}
	return ge.Kind
}
