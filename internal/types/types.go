package types

import "github.com/DoyleJ11/athlete-draft/internal/engine"

// ClientMessage is one inbound websocket frame.
type ClientMessage struct {
	Type        string `json:"type"` // join_draft | start_draft | make_pick | kick_team | rejoin_draft
	TeamName    string `json:"team_name,omitempty"`
	AthleteName string `json:"athlete_name,omitempty"`
}

// ServerMessage is one outbound frame. Data depends on Type.
type ServerMessage struct {
	Type    string `json:"type"`
	Version int    `json:"version,omitempty"`
	Data    any    `json:"data,omitempty"`
}

const (
	TypeError    = "error"
	TypeIdentity = "identity"
)

type ErrorData struct {
	Message string `json:"message"`
}

type IdentityData struct {
	UserID string `json:"user_id"`
}

func Error(msg string) ServerMessage {
	return ServerMessage{Type: TypeError, Data: ErrorData{Message: msg}}
}

// ToCommand maps a client frame onto an engine command for identity.
func ToCommand(identity string, m ClientMessage) (engine.Command, bool) {
	cmd := engine.Command{Identity: identity}
	switch engine.CommandType(m.Type) {
	case engine.CmdJoinDraft:
		cmd.Type, cmd.TeamName = engine.CmdJoinDraft, m.TeamName
	case engine.CmdStartDraft:
		cmd.Type = engine.CmdStartDraft
	case engine.CmdMakePick:
		cmd.Type, cmd.AthleteName = engine.CmdMakePick, m.AthleteName
	case engine.CmdKickTeam:
		cmd.Type, cmd.TeamName = engine.CmdKickTeam, m.TeamName
	case engine.CmdRejoinDraft:
		cmd.Type, cmd.TeamName = engine.CmdRejoinDraft, m.TeamName
	default:
		return engine.Command{}, false
	}
	return cmd, true
}
