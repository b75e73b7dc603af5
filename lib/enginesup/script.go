// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

package enginesup

import "fmt"

// ScriptConfig holds the values substituted into a generated
// start-script: map/game identity, the local slot layout, and the
// handshake the Bridge must present to the IPC Router.
type ScriptConfig struct {
	Map       string
	Game      string
	AgentName string // Bridge-controlled team's display name
	Opponent  string // short name of the opposing AI (e.g. "NullAI")

	SocketPath     string // IPC socket the Bridge should dial
	HandshakeToken string // embedded under [AI0]/[Options] as well as the bootstrap config
}

// GenerateScript produces a start-script for a two-team local skirmish:
// team 0 is the Bridge-controlled AgentBridge AI, team 1 is cfg.Opponent.
// The layout is fixed — one Bridge slot, one opponent slot — matching
// the local-game tool surface's single-opponent contract.
func GenerateScript(cfg ScriptConfig) string {
	return fmt.Sprintf(`[GAME]
{
    Mapname=%s;
    Gametype=%s;
    IsHost=1;
    MyPlayerNum=0;
    MyPlayerName=%s;
    StartPosType=2;
    NumPlayers=0;
    NumUsers=2;
    NumTeams=2;
    NumAllyTeams=2;

    [TEAM0]
    {
        TeamLeader=0;
        AllyTeam=0;
    }

    [TEAM1]
    {
        TeamLeader=0;
        AllyTeam=1;
    }

    [AI0]
    {
        Name=%s;
        ShortName=AgentBridge;
        Team=0;
        IsFromDemo=0;
        Host=0;
        [Options]
        {
            socket_path=%s;
            handshake_token=%s;
        }
    }

    [AI1]
    {
        Name=%s;
        ShortName=%s;
        Team=1;
        IsFromDemo=0;
        Host=0;
    }

    [ALLYTEAM0]
    {
        NumAllies=0;
    }

    [ALLYTEAM1]
    {
        NumAllies=0;
    }
}
`, cfg.Map, cfg.Game, cfg.AgentName, cfg.AgentName, cfg.SocketPath, cfg.HandshakeToken, cfg.Opponent, cfg.Opponent)
}
