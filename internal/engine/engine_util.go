package engine

import (
	"maps"
	"slices"
	"time"
)

// NewSession validates the creation parameters and seats the creator
// as player 1.
func NewSession(code string, totalPlayers, numImposters int) (Session, error) {
	if totalPlayers < 3 {
		return Session{}, ErrInvalidConfig
	}
	if numImposters < 1 || numImposters > totalPlayers-1 {
		return Session{}, ErrInvalidConfig
	}

	return Session{
		Code:         code,
		TotalPlayers: totalPlayers,
		NumImposters: numImposters,
		JoinedCount:  1,
		Phase:        PhaseLobby,
		Players:      map[int]Seat{1: {}},
		TurnOrder:    []int{},
		Votes:        map[int][]int{},
		CreatedAt:    time.Now(),
	}, nil
}

// clone deep-copies the session so Apply can mutate freely while
// previously returned snapshots stay stable.
func (s Session) clone() Session {
	next := s
	next.Players = maps.Clone(s.Players)
	next.TurnOrder = slices.Clone(s.TurnOrder)
	next.Votes = make(map[int][]int, len(s.Votes))
	for voter, ballot := range s.Votes {
		next.Votes[voter] = slices.Clone(ballot)
	}
	return next
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
