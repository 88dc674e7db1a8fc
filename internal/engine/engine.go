package engine

import (
	"errors"
	"slices"
	"time"
)

var ErrInvalidConfig = errors.New("invalid session config")
var ErrSessionFull = errors.New("session is full")
var ErrSessionEnded = errors.New("session has ended")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Role string

const (
	RolePlayer   Role = "PLAYER"
	RoleImposter Role = "IMPOSTER"
)

type Phase string

const (
	PhaseLobby         Phase = "LOBBY"
	PhaseRoleReveal    Phase = "ROLE_REVEAL"
	PhaseAllReady      Phase = "ALL_READY"
	PhaseTurnSelection Phase = "TURN_SELECTION"
	PhaseVoting        Phase = "VOTING"
	PhaseVotingResults Phase = "VOTING_RESULTS"
	PhaseEnded         Phase = "ENDED"
)

// Seat is one claimed player slot. Role stays empty until the session
// leaves the lobby.
type Seat struct {
	Role  Role `json:"role,omitempty"`
	Ready bool `json:"ready"`
}

// Session is the full shared game record, keyed by its join code.
type Session struct {
	Code              string        `json:"code"`
	TotalPlayers      int           `json:"totalPlayers"`
	NumImposters      int           `json:"numImposters"`
	JoinedCount       int           `json:"joinedCount"`
	Phase             Phase         `json:"state"`
	Players           map[int]Seat  `json:"players"`
	Word              string        `json:"word,omitempty"`
	Hint              string        `json:"hint,omitempty"`
	TurnOrder         []int         `json:"turnOrder"`
	CurrentTurnPlayer int           `json:"currentTurnPlayer,omitempty"`
	Votes             map[int][]int `json:"votes"`
	VoteCount         int           `json:"voteCount"`
	ImpostersRevealed bool          `json:"impostersRevealed"`
	CreatedAt         time.Time     `json:"createdAt"`
}

type CommandType string

const (
	CmdJoin                 CommandType = "Join"
	CmdStart                CommandType = "Start"
	CmdMarkReady            CommandType = "MarkReady"
	CmdSelectStartingPlayer CommandType = "SelectStartingPlayer"
	CmdSelectNextPlayer     CommandType = "SelectNextPlayer"
	CmdStartVoting          CommandType = "StartVoting"
	CmdSubmitVote           CommandType = "SubmitVote"
	CmdRevealImposters      CommandType = "RevealImposters"
	CmdEnd                  CommandType = "End"
)

type Command struct {
	Type         CommandType
	PlayerNumber int
	Accused      []int
}

type EventType string

const (
	EvtPlayerJoined      EventType = "PlayerJoined"
	EvtRolesAssigned     EventType = "RolesAssigned"
	EvtPlayerReady       EventType = "PlayerReady"
	EvtAllReady          EventType = "AllReady"
	EvtTurnSelected      EventType = "TurnSelected"
	EvtVotingStarted     EventType = "VotingStarted"
	EvtVoteRecorded      EventType = "VoteRecorded"
	EvtVotingCompleted   EventType = "VotingCompleted"
	EvtImpostersRevealed EventType = "ImpostersRevealed"
	EvtSessionEnded      EventType = "SessionEnded"
)

type Event struct {
	Type         EventType
	PlayerNumber int
}

// Apply runs one command against the session and returns the events it
// produced plus the resulting state. Stale or out-of-phase commands
// return the session unchanged with no events and no error: clients
// race to trigger the same transition and duplicates must stay silent.
// The input session is never mutated; snapshots can be handed out
// without copying.
func Apply(s Session, cmd Command) ([]Event, Session, error) {
	if s.Phase == PhaseEnded && cmd.Type != CmdEnd {
		if cmd.Type == CmdJoin {
			return nil, s, ErrSessionEnded
		}
		return nil, s, nil
	}

	switch cmd.Type {
	case CmdJoin:
		if s.JoinedCount >= s.TotalPlayers || s.Phase != PhaseLobby {
			return nil, s, ErrSessionFull
		}
		next := s.clone()
		seat := next.JoinedCount + 1
		next.Players[seat] = Seat{}
		next.JoinedCount = seat
		return []Event{{Type: EvtPlayerJoined, PlayerNumber: seat}}, next, nil

	case CmdStart:
		// Already started or lobby not yet full: return the current
		// session untouched so duplicate triggers stay harmless.
		if s.Phase != PhaseLobby || s.JoinedCount != s.TotalPlayers {
			return nil, s, nil
		}
		next := s.clone()
		pair := pickWordPair()
		next.Word = pair.Word
		next.Hint = pair.Hint
		assignRoles(&next)
		next.Phase = PhaseRoleReveal
		return []Event{{Type: EvtRolesAssigned}}, next, nil

	case CmdMarkReady:
		if s.Phase != PhaseRoleReveal {
			return nil, s, nil
		}
		seat, ok := s.Players[cmd.PlayerNumber]
		if !ok || seat.Ready {
			return nil, s, nil
		}
		next := s.clone()
		seat.Ready = true
		next.Players[cmd.PlayerNumber] = seat
		events := []Event{{Type: EvtPlayerReady, PlayerNumber: cmd.PlayerNumber}}
		if allReady(next) {
			next.Phase = PhaseAllReady
			events = append(events, Event{Type: EvtAllReady})
		}
		return events, next, nil

	case CmdSelectStartingPlayer:
		if s.Phase != PhaseAllReady {
			return nil, s, nil
		}
		next := s.clone()
		pick := selectNextTurn(&next)
		next.Phase = PhaseTurnSelection
		return []Event{{Type: EvtTurnSelected, PlayerNumber: pick}}, next, nil

	case CmdSelectNextPlayer:
		if s.Phase != PhaseTurnSelection || len(s.TurnOrder) >= s.TotalPlayers {
			return nil, s, nil
		}
		next := s.clone()
		pick := selectNextTurn(&next)
		return []Event{{Type: EvtTurnSelected, PlayerNumber: pick}}, next, nil

	case CmdStartVoting:
		if s.Phase != PhaseTurnSelection || len(s.TurnOrder) != s.TotalPlayers {
			return nil, s, nil
		}
		next := s.clone()
		next.Phase = PhaseVoting
		return []Event{{Type: EvtVotingStarted}}, next, nil

	case CmdSubmitVote:
		if s.Phase != PhaseVoting {
			return nil, s, nil
		}
		if _, seated := s.Players[cmd.PlayerNumber]; !seated {
			return nil, s, nil
		}
		if _, voted := s.Votes[cmd.PlayerNumber]; voted {
			return nil, s, nil
		}
		ballot := normalizeBallot(cmd.Accused, s.TotalPlayers)
		if len(ballot) != s.NumImposters {
			return nil, s, nil
		}
		next := s.clone()
		next.Votes[cmd.PlayerNumber] = ballot
		next.VoteCount++
		events := []Event{{Type: EvtVoteRecorded, PlayerNumber: cmd.PlayerNumber}}
		if next.VoteCount == next.TotalPlayers {
			next.Phase = PhaseVotingResults
			events = append(events, Event{Type: EvtVotingCompleted})
		}
		return events, next, nil

	case CmdRevealImposters:
		if s.Phase != PhaseVotingResults || s.ImpostersRevealed {
			return nil, s, nil
		}
		next := s.clone()
		next.ImpostersRevealed = true
		return []Event{{Type: EvtImpostersRevealed}}, next, nil

	case CmdEnd:
		if s.Phase == PhaseEnded {
			return nil, s, nil
		}
		next := s.clone()
		next.Phase = PhaseEnded
		return []Event{{Type: EvtSessionEnded}}, next, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func allReady(s Session) bool {
	if len(s.Players) != s.TotalPlayers {
		return false
	}
	for _, seat := range s.Players {
		if !seat.Ready {
			return false
		}
	}
	return true
}

// normalizeBallot dedupes and sorts an accusation list, dropping any
// player numbers outside the seated range. Ballot size is validated
// against the result, so padding with duplicates doesn't pass.
func normalizeBallot(accused []int, totalPlayers int) []int {
	ballot := make([]int, 0, len(accused))
	for _, n := range accused {
		if n < 1 || n > totalPlayers {
			continue
		}
		if !slices.Contains(ballot, n) {
			ballot = append(ballot, n)
		}
	}
	slices.Sort(ballot)
	return ballot
}
