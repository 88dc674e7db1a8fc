package engine

import "math/rand"

// Indirection over math/rand so tests can pin the randomness.
var randIntn = rand.Intn
var randPerm = rand.Perm

// assignRoles hands exactly NumImposters seats the imposter role,
// chosen uniformly without replacement. Only ever called on a full
// lobby; re-running start on a later phase never reaches here.
func assignRoles(s *Session) {
	perm := randPerm(s.TotalPlayers)
	imposters := make(map[int]bool, s.NumImposters)
	for _, idx := range perm[:s.NumImposters] {
		imposters[idx+1] = true
	}

	for n := 1; n <= s.TotalPlayers; n++ {
		seat := s.Players[n]
		if imposters[n] {
			seat.Role = RoleImposter
		} else {
			seat.Role = RolePlayer
		}
		seat.Ready = false
		s.Players[n] = seat
	}
}

// selectNextTurn appends one player sampled uniformly from the seats
// not yet in the turn order, and returns the pick. Callers guard
// against a full order before invoking.
func selectNextTurn(s *Session) int {
	remaining := make([]int, 0, s.TotalPlayers-len(s.TurnOrder))
	for n := 1; n <= s.TotalPlayers; n++ {
		if !turnTaken(s, n) {
			remaining = append(remaining, n)
		}
	}

	pick := remaining[randIntn(len(remaining))]
	s.TurnOrder = append(s.TurnOrder, pick)
	s.CurrentTurnPlayer = pick
	return pick
}

func turnTaken(s *Session, player int) bool {
	for _, n := range s.TurnOrder {
		if n == player {
			return true
		}
	}
	return false
}
