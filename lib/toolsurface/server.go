// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package toolsurface

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/skirmish-net/gamemanager/lib/session"
	"github.com/skirmish-net/gamemanager/lib/toolserver"
)

// server adapts a Registry bound to a live session to the
// toolserver.Server interface.
type server struct {
	registry *Registry
	sess     *session.Session
}

func (s *server) AuthorizedTools() []toolserver.ToolExport {
	return s.registry.ToolExports()
}

func (s *server) MetaToolDefinitions() []toolserver.MetaToolDefinition {
	return nil
}

func (s *server) CallTool(name string, arguments json.RawMessage) (string, bool, error) {
	for _, t := range s.registry.allTools() {
		if t.Name != name {
			continue
		}
		result, err := t.Handler(context.Background(), s.sess, arguments)
		if err != nil {
			return "", false, err
		}
		var text string
		if len(result.Content) > 0 {
			text = result.Content[0].Text
		}
		return text, result.IsError, nil
	}
	return "", false, fmt.Errorf("unknown tool: %s", name)
}
