// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/skirmish-net/gamemanager/lib/gmerr"
)

// channelsCapability is the reserved feature-set name the client
// acknowledges at initialize to opt into the channels extension. It
// is not a domain feature set (it has no tools of its own) — it
// gates whether channel-owning tools operate normally or in the
// degraded mode described in §4.1 (scenario S5).
const channelsCapability = "channels"

// defaultToolDeadline bounds every tools/call invocation. A request
// cannot carry a deadline of its own: tools/call params have no
// deadline field, so this value applies to every handler.
const defaultToolDeadline = 2 * time.Minute

// opFunc is a closure that mutates session state. All mutations to
// the tool registry, the channel table, the feature-set table, and
// the pending-request table happen inside an opFunc executed by the
// session's single owning goroutine (Run's loop) — other goroutines
// (tool handlers, channel resources delivering incoming messages)
// address session state only by submitting an opFunc, never by
// touching these maps directly.
type opFunc func(s *Session)

// Session is one connected agent host: negotiated feature sets, the
// tool registry, the channel table, and the pending-request table.
// Exactly one Session per transport connection; create with New and
// drive it with Run.
type Session struct {
	logger *slog.Logger

	ops chan opFunc

	declared map[string]*FeatureSet // all feature sets the server advertises
	enabled  map[string]bool        // subset the client acknowledged
	channelsOK bool                 // client acknowledged the channels extension

	tools map[string]*Tool

	channels map[string]*Channel
	pending  map[string]*PendingRequest

	// encoder is written to only by Run's owning goroutine (directly,
	// or via an opFunc submitted back to it) — this is the single
	// writer the concurrency model requires.
	encoder *json.Encoder

	protocolVersion string
	initialized     bool

	shutdownRequested bool
}

// New creates a Session that advertises the given feature sets at
// initialize. logger may be nil, in which case slog.Default() is used.
func New(logger *slog.Logger, declared []*FeatureSet) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	byName := make(map[string]*FeatureSet, len(declared))
	for _, fs := range declared {
		byName[fs.Name] = fs
	}
	return &Session{
		logger:          logger.With("component", "session"),
		ops:             make(chan opFunc, 256),
		declared:        byName,
		enabled:         make(map[string]bool),
		tools:           make(map[string]*Tool),
		channels:        make(map[string]*Channel),
		pending:         make(map[string]*PendingRequest),
		protocolVersion: "gm-2026-01",
	}
}

// RegisterTool adds a tool to the registry. Must be called before Run
// starts (or from within an opFunc) since the registry is part of the
// session's owned state. Tool names must be unique; registering a
// duplicate name overwrites the previous entry, matching the
// multiplexer invariant that every tool name is unique within a
// session after negotiation.
func (s *Session) RegisterTool(t *Tool) {
	s.tools[t.Name] = t
}

// submit enqueues an opFunc for execution on the session's owning
// goroutine. Safe to call from any goroutine, including before Run
// has started (ops is buffered) and after the session has ended (in
// which case the send may block forever on a full channel — callers
// draining a finished session should select on ctx.Done() too).
func (s *Session) submit(op opFunc) {
	s.ops <- op
}

// Incoming delivers a message from a channel's owning resource to the
// session, to be forwarded as a channels/incoming notification. Called
// by resource owners (lobby client, IPC router) from their own
// goroutines; the session preserves FIFO order per channel because
// each resource submits from a single goroutine.
func (s *Session) Incoming(channelID string, body json.RawMessage) {
	s.submit(func(s *Session) {
		ch, ok := s.channels[channelID]
		if !ok || ch.State != ChannelOpen {
			return
		}
		s.notify("channels/incoming", channelsIncomingParams{ChannelID: channelID, Body: body})
	})
}

// OpenChannel registers a new channel owned by resource and emits a
// channels/changed notification listing the addition. If id is empty,
// a uuid is generated. Returns the channel id and an error if the id
// is already in use or the channels extension was not negotiated.
func (s *Session) OpenChannel(ctx context.Context, id string, kind ChannelKind, feature string, resource Resource) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	type result struct {
		id  string
		err error
	}
	done := make(chan result, 1)
	s.submit(func(s *Session) {
		if !s.channelsOK {
			done <- result{err: gmerr.New(gmerr.Protocol, "channels extension not negotiated")}
			return
		}
		if _, exists := s.channels[id]; exists {
			done <- result{err: gmerr.New(gmerr.Internal, "channel id %q already in use", id)}
			return
		}
		ch := &Channel{ID: id, Kind: kind, State: ChannelOpen, Feature: feature, Resource: resource}
		if fs, ok := s.declared[feature]; ok && fs.Rollback {
			ch.checkpoints = newCheckpointTree()
		}
		s.channels[id] = ch
		s.notify("channels/changed", channelsChangedParams{Added: []string{id}})
		done <- result{id: id}
	})
	select {
	case r := <-done:
		return r.id, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// CloseChannel closes a channel and emits channels/changed with the
// removal. If failure is non-nil, the removal notification carries
// the error payload (engine crash, bridge disconnect). The resource's
// Close is invoked in a background goroutine so a slow teardown never
// blocks the session's owning goroutine; the channel is removed from
// the table once Close returns.
func (s *Session) CloseChannel(ctx context.Context, id string, failure *gmerr.Error) {
	s.submit(func(s *Session) {
		ch, ok := s.channels[id]
		if !ok || ch.State == ChannelClosing || ch.State == ChannelClosed {
			return
		}
		ch.State = ChannelClosing
		go func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := ch.Resource.Close(closeCtx); err != nil {
				s.logger.Warn("channel resource close error", "channel_id", id, "error", err)
			}
			s.submit(func(s *Session) {
				delete(s.channels, id)
				params := channelsChangedParams{Removed: []string{id}}
				if failure != nil {
					p := failure.ToPayload()
					params.Error = &errorPayload{Code: string(p.Code), Message: p.Message, Details: p.Details}
				}
				s.notify("channels/changed", params)
			})
		}()
	})
}

// notify encodes and writes a notification. Must only be called from
// the session's owning goroutine (it is not safe to call from an
// arbitrary goroutine — use submit/Incoming instead).
func (s *Session) notify(method string, params any) {
	if s.encoder == nil {
		return
	}
	if err := writeNotification(s.encoder, method, params); err != nil {
		s.logger.Error("writing notification", "method", method, "error", err)
	}
}

// Run processes JSON-RPC frames from input and writes responses and
// notifications to output until input reaches EOF, ctx is canceled, or
// shutdown is requested. Exactly one goroutine (this one) owns session
// state for the session's lifetime; everything else communicates
// through submit/Incoming.
func (s *Session) Run(ctx context.Context, input io.Reader, output io.Writer) error {
	s.encoder = json.NewEncoder(output)

	lines := make(chan []byte)
	readErrs := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(input)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			cp := make([]byte, len(line))
			copy(cp, line)
			select {
			case lines <- cp:
			case <-ctx.Done():
				readErrs <- ctx.Err()
				return
			}
		}
		readErrs <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line, ok := <-lines:
			if !ok {
				continue
			}
			var req request
			if err := json.Unmarshal(line, &req); err != nil {
				if writeErr := writeError(s.encoder, json.RawMessage("null"), codeParseError, "parse error: "+err.Error()); writeErr != nil {
					return fmt.Errorf("writing parse error response: %w", writeErr)
				}
				continue
			}
			if req.isNotification() {
				continue
			}
			s.dispatch(ctx, &req)

		case op := <-s.ops:
			op(s)

		case err := <-readErrs:
			// Drain any ops still in flight (tool handlers finishing
			// up) before returning, so their responses are written.
			s.drainOps()
			return err

		case <-func() <-chan struct{} {
			if s.shutdownRequested {
				ch := make(chan struct{})
				close(ch)
				return ch
			}
			return nil
		}():
			s.drainOps()
			return nil
		}
	}
}

// drainOps runs the ops already queued and returns as soon as the
// queue is empty, or after 2 seconds if it keeps refilling. Tool calls
// whose handlers are still running are not waited for.
func (s *Session) drainOps() {
	deadline := time.After(2 * time.Second)
	for {
		select {
		case op := <-s.ops:
			op(s)
		case <-deadline:
			return
		default:
			return
		}
	}
}
