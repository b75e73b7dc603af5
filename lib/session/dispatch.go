// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/skirmish-net/gamemanager/lib/gmerr"
)

// dispatch routes a request to its handler. Called only from Run's
// owning goroutine. Handlers that may suspend on I/O (tools/call) are
// spawned as child goroutines; everything else here completes
// synchronously because it only touches in-memory session state.
func (s *Session) dispatch(ctx context.Context, req *request) {
	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "tools/list":
		s.handleToolsList(req)
	case "tools/call":
		s.handleToolsCall(ctx, req)
	case "channels/open":
		s.handleChannelsOpen(ctx, req)
	case "channels/close":
		s.handleChannelsClose(req)
	case "channels/publish":
		s.handleChannelsPublish(ctx, req)
	case "state/checkpoint":
		s.handleStateCheckpoint(ctx, req)
	case "state/rollback":
		s.handleStateRollback(ctx, req)
	case "shutdown":
		s.handleShutdown(req)
	default:
		writeError(s.encoder, req.ID, codeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (s *Session) handleInitialize(req *request) {
	var params initializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			writeError(s.encoder, req.ID, codeInvalidParams, "invalid initialize params: "+err.Error())
			return
		}
	}

	for _, name := range params.FeatureSets {
		if name == channelsCapability {
			s.channelsOK = true
			continue
		}
		if _, ok := s.declared[name]; ok {
			s.enabled[name] = true
		}
	}

	s.initialized = true

	var allNames, enabledNames []string
	for name := range s.declared {
		allNames = append(allNames, name)
	}
	for name := range s.enabled {
		enabledNames = append(enabledNames, name)
	}
	sort.Strings(allNames)
	sort.Strings(enabledNames)

	writeResult(s.encoder, req.ID, initializeResult{
		ProtocolVersion: s.protocolVersion,
		FeatureSets:     allNames,
		Enabled:         enabledNames,
	})
}

func (s *Session) handleToolsList(req *request) {
	var descriptions []toolDescription
	for _, t := range s.tools {
		if t.Feature != "" && !s.enabled[t.Feature] {
			continue
		}
		descriptions = append(descriptions, toolDescription{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	if descriptions == nil {
		descriptions = []toolDescription{}
	}
	sort.Slice(descriptions, func(i, j int) bool { return descriptions[i].Name < descriptions[j].Name })
	writeResult(s.encoder, req.ID, toolsListResult{Tools: descriptions})
}

// channelOwningTools lists tool names whose handler opens a channel as
// a side effect. Called without the channels extension negotiated,
// these return codeChannelsRequired instead of running (scenario S5).
var channelOwningTools = map[string]bool{
	"lobby_start_game": true,
	"channel_open":     true,
}

func (s *Session) handleToolsCall(ctx context.Context, req *request) {
	var params toolsCallParams
	if len(req.Params) == 0 {
		writeError(s.encoder, req.ID, codeInvalidParams, "params required for tools/call")
		return
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeError(s.encoder, req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
		return
	}

	t, ok := s.tools[params.Name]
	if !ok || (t.Feature != "" && !s.enabled[t.Feature]) {
		writeError(s.encoder, req.ID, codeInvalidParams, "unknown tool: "+params.Name)
		return
	}

	if !s.channelsOK && channelOwningTools[params.Name] {
		writeError(s.encoder, req.ID, codeChannelsRequired, "tool "+params.Name+" requires the channels extension")
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, defaultToolDeadline)
	id := req.ID

	// Spawned so a suspending handler (lobby connect, engine spawn)
	// never blocks the session's frame reader. The handler result is
	// delivered back via submit, preserving the single-writer rule:
	// only Run's goroutine ever calls s.encoder.Encode.
	go func() {
		defer cancel()
		result, err := t.Handler(callCtx, s, params.Arguments)
		s.submit(func(s *Session) {
			if err != nil {
				code := codeInternalError
				if gmerr.KindOf(err) == gmerr.Validation {
					code = codeInvalidParams
				}
				writeError(s.encoder, id, code, err.Error())
				return
			}
			writeResult(s.encoder, id, result)
		})
	}()
}

func (s *Session) handleChannelsOpen(ctx context.Context, req *request) {
	// channels/open is answered with method-not-found: this build
	// creates channels only through tools/call (the "channel_open" and
	// "lobby_start_game" tools). The method stays in dispatch so the
	// error names the tool to use instead.
	writeError(s.encoder, req.ID, codeMethodNotFound, "channels/open: use tools/call channel_open")
}

func (s *Session) handleChannelsClose(req *request) {
	var params channelsCloseParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeError(s.encoder, req.ID, codeInvalidParams, "invalid channels/close params: "+err.Error())
		return
	}

	ch, ok := s.channels[params.ChannelID]
	if !ok || ch.State != ChannelOpen {
		writeError(s.encoder, req.ID, codeInvalidRequest, "channel not open: "+params.ChannelID)
		return
	}

	s.CloseChannel(context.Background(), params.ChannelID, nil)
	writeResult(s.encoder, req.ID, map[string]any{})
}

func (s *Session) handleChannelsPublish(ctx context.Context, req *request) {
	var params channelsPublishParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeError(s.encoder, req.ID, codeInvalidParams, "invalid channels/publish params: "+err.Error())
		return
	}

	ch, ok := s.channels[params.ChannelID]
	if !ok || ch.State != ChannelOpen {
		gmErr := gmerr.New(gmerr.ChannelClosed, "channel not open: %s", params.ChannelID)
		writeError(s.encoder, req.ID, codeInvalidRequest, gmErr.Error())
		return
	}

	resource := ch.Resource
	id := req.ID
	go func() {
		publishCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := resource.Publish(publishCtx, params.Body)
		s.submit(func(s *Session) {
			if err != nil {
				writeError(s.encoder, id, codeInternalError, err.Error())
				return
			}
			writeResult(s.encoder, id, map[string]any{})
		})
	}()
}

func (s *Session) handleStateCheckpoint(ctx context.Context, req *request) {
	var params stateCheckpointParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeError(s.encoder, req.ID, codeInvalidParams, "invalid state/checkpoint params: "+err.Error())
		return
	}

	ch, ok := s.channels[params.ChannelID]
	if !ok || ch.checkpoints == nil {
		writeError(s.encoder, req.ID, codeInvalidRequest, "channel is not rollback-enabled: "+params.ChannelID)
		return
	}
	rc, ok := ch.Resource.(RollbackCapable)
	if !ok {
		writeError(s.encoder, req.ID, codeInvalidRequest, "channel resource does not support rollback")
		return
	}

	id := req.ID
	go func() {
		checkpointCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		resourceCheckpointID, err := rc.Checkpoint(checkpointCtx)
		s.submit(func(s *Session) {
			if err != nil {
				writeError(s.encoder, id, codeInternalError, err.Error())
				return
			}
			cpID, cpErr := ch.checkpoints.Checkpoint([]byte(resourceCheckpointID))
			if cpErr != nil {
				writeError(s.encoder, id, codeInternalError, cpErr.Error())
				return
			}
			writeResult(s.encoder, id, stateCheckpointResult{CheckpointID: string(cpID)})
		})
	}()
}

func (s *Session) handleStateRollback(ctx context.Context, req *request) {
	var params stateRollbackParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeError(s.encoder, req.ID, codeInvalidParams, "invalid state/rollback params: "+err.Error())
		return
	}

	ch, ok := s.channels[params.ChannelID]
	if !ok || ch.checkpoints == nil {
		writeError(s.encoder, req.ID, codeInvalidRequest, "channel is not rollback-enabled: "+params.ChannelID)
		return
	}
	rc, ok := ch.Resource.(RollbackCapable)
	if !ok {
		writeError(s.encoder, req.ID, codeInvalidRequest, "channel resource does not support rollback")
		return
	}

	payload, err := ch.checkpoints.Rollback(checkpointIDFromString(params.CheckpointID))
	if err != nil {
		writeError(s.encoder, req.ID, codeInvalidParams, err.Error())
		return
	}

	id := req.ID
	go func() {
		rollbackCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		rbErr := rc.Rollback(rollbackCtx, checkpointIDFromBytes(payload))
		s.submit(func(s *Session) {
			if rbErr != nil {
				writeError(s.encoder, id, codeInternalError, rbErr.Error())
				return
			}
			writeResult(s.encoder, id, map[string]any{})
		})
	}()
}

func (s *Session) handleShutdown(req *request) {
	s.shutdownRequested = true
	writeResult(s.encoder, req.ID, map[string]any{})
}
