package types

import "github.com/eeshag/ihs-imposter/internal/engine"

// ClientMessage is one intent from a websocket client. Action names
// mirror the REST endpoints.
type ClientMessage struct {
	Action       string `json:"action"`
	PlayerNumber int    `json:"playerNumber,omitempty"`
	VotedPlayers []int  `json:"votedPlayers,omitempty"`
}

// ServerMessage is either a session snapshot or an error.
type ServerMessage struct {
	Type    string          `json:"type"` // "SessionSnapshot" | "Error"
	Version int             `json:"version,omitempty"`
	Session *engine.Session `json:"session,omitempty"`
	Error   string          `json:"error,omitempty"`
}
