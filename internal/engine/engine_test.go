package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pinRandomness makes every random draw pick the first option, so
// assertions can name exact seats.
func pinRandomness(t *testing.T) {
	t.Helper()
	origIntn, origPerm := randIntn, randPerm
	randIntn = func(n int) int { return 0 }
	randPerm = func(n int) []int {
		perm := make([]int, n)
		for i := range perm {
			perm[i] = i
		}
		return perm
	}
	t.Cleanup(func() { randIntn, randPerm = origIntn, origPerm })
}

func fullLobby(t *testing.T, totalPlayers, numImposters int) Session {
	t.Helper()
	s, err := NewSession("TEST42", totalPlayers, numImposters)
	require.NoError(t, err)
	for i := 1; i < totalPlayers; i++ {
		var errJoin error
		_, s, errJoin = Apply(s, Command{Type: CmdJoin})
		require.NoError(t, errJoin)
	}
	return s
}

func TestNewSessionValidatesConfig(t *testing.T) {
	cases := []struct {
		name         string
		totalPlayers int
		numImposters int
		wantErr      bool
	}{
		{name: "minimum viable", totalPlayers: 3, numImposters: 1, wantErr: false},
		{name: "imposter majority allowed", totalPlayers: 5, numImposters: 4, wantErr: false},
		{name: "too few players", totalPlayers: 2, numImposters: 1, wantErr: true},
		{name: "zero imposters", totalPlayers: 4, numImposters: 0, wantErr: true},
		{name: "all imposters", totalPlayers: 4, numImposters: 4, wantErr: true},
		{name: "more imposters than players", totalPlayers: 3, numImposters: 5, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSession("TEST42", tc.totalPlayers, tc.numImposters)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, PhaseLobby, s.Phase)
			assert.Equal(t, 1, s.JoinedCount)
			assert.Contains(t, s.Players, 1) // creator seated
		})
	}
}

func TestJoinAssignsSequentialSeats(t *testing.T) {
	s, err := NewSession("TEST42", 4, 1)
	require.NoError(t, err)

	for want := 2; want <= 4; want++ {
		events, next, err := Apply(s, Command{Type: CmdJoin})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, EvtPlayerJoined, events[0].Type)
		assert.Equal(t, want, events[0].PlayerNumber)
		assert.Equal(t, want, next.JoinedCount)
		s = next
	}

	_, next, err := Apply(s, Command{Type: CmdJoin})
	require.ErrorIs(t, err, ErrSessionFull)
	assert.Equal(t, 4, next.JoinedCount, "rejected join must not seat a player")
}

func TestStartAssignsRolesExactlyOnce(t *testing.T) {
	pinRandomness(t)
	s := fullLobby(t, 5, 2)

	events, started, err := Apply(s, Command{Type: CmdStart})
	require.NoError(t, err)
	require.True(t, ContainsEvent(events, EvtRolesAssigned))
	assert.Equal(t, PhaseRoleReveal, started.Phase)
	assert.NotEmpty(t, started.Word)
	assert.NotEmpty(t, started.Hint)

	imposters := 0
	for n := 1; n <= 5; n++ {
		seat := started.Players[n]
		require.NotEmpty(t, seat.Role, "every seat gets a role")
		if seat.Role == RoleImposter {
			imposters++
		}
	}
	assert.Equal(t, 2, imposters)

	// A racing duplicate start must not reshuffle anything.
	events, again, err := Apply(started, Command{Type: CmdStart})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, started, again)
}

func TestStartBeforeFullLobbyIsNoop(t *testing.T) {
	s, err := NewSession("TEST42", 4, 1)
	require.NoError(t, err)

	events, next, err := Apply(s, Command{Type: CmdStart})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, PhaseLobby, next.Phase)
	assert.Empty(t, next.Word)
}

func TestMarkReadyIsMonotone(t *testing.T) {
	pinRandomness(t)
	s := fullLobby(t, 3, 1)
	_, s, err := Apply(s, Command{Type: CmdStart})
	require.NoError(t, err)

	_, s, err = Apply(s, Command{Type: CmdMarkReady, PlayerNumber: 1})
	require.NoError(t, err)
	require.True(t, s.Players[1].Ready)

	// Second ready from the same player changes nothing.
	events, same, err := Apply(s, Command{Type: CmdMarkReady, PlayerNumber: 1})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, s, same)

	// Unknown seat changes nothing.
	events, same, err = Apply(s, Command{Type: CmdMarkReady, PlayerNumber: 9})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, s, same)

	_, s, err = Apply(s, Command{Type: CmdMarkReady, PlayerNumber: 2})
	require.NoError(t, err)
	assert.Equal(t, PhaseRoleReveal, s.Phase, "not all ready yet")

	events, s, err = Apply(s, Command{Type: CmdMarkReady, PlayerNumber: 3})
	require.NoError(t, err)
	assert.True(t, ContainsEvent(events, EvtAllReady))
	assert.Equal(t, PhaseAllReady, s.Phase)
}

func TestTurnOrderHasNoDuplicates(t *testing.T) {
	pinRandomness(t)
	s := fullLobby(t, 4, 1)
	_, s, _ = Apply(s, Command{Type: CmdStart})
	for n := 1; n <= 4; n++ {
		_, s, _ = Apply(s, Command{Type: CmdMarkReady, PlayerNumber: n})
	}

	_, s, err := Apply(s, Command{Type: CmdSelectStartingPlayer})
	require.NoError(t, err)
	assert.Equal(t, PhaseTurnSelection, s.Phase)
	require.Len(t, s.TurnOrder, 1)
	assert.Equal(t, s.TurnOrder[0], s.CurrentTurnPlayer)

	for i := 0; i < 3; i++ {
		_, s, err = Apply(s, Command{Type: CmdSelectNextPlayer})
		require.NoError(t, err)
	}
	require.Len(t, s.TurnOrder, 4)

	seen := map[int]bool{}
	for _, n := range s.TurnOrder {
		assert.False(t, seen[n], "player %d selected twice", n)
		seen[n] = true
	}

	// Exhausted order: further selections are no-ops.
	events, same, err := Apply(s, Command{Type: CmdSelectNextPlayer})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, s, same)
}

func TestStartVotingIsIdempotent(t *testing.T) {
	pinRandomness(t)
	s := votingSession(t, 4, 1)
	assert.Equal(t, PhaseVoting, s.Phase)

	events, same, err := Apply(s, Command{Type: CmdStartVoting})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, s, same)
}

// votingSession drives a fresh session all the way into VOTING.
func votingSession(t *testing.T, totalPlayers, numImposters int) Session {
	t.Helper()
	s := fullLobby(t, totalPlayers, numImposters)
	_, s, _ = Apply(s, Command{Type: CmdStart})
	for n := 1; n <= totalPlayers; n++ {
		_, s, _ = Apply(s, Command{Type: CmdMarkReady, PlayerNumber: n})
	}
	_, s, _ = Apply(s, Command{Type: CmdSelectStartingPlayer})
	for len(s.TurnOrder) < totalPlayers {
		_, s, _ = Apply(s, Command{Type: CmdSelectNextPlayer})
	}
	_, s, _ = Apply(s, Command{Type: CmdStartVoting})
	return s
}

func TestSubmitVoteGuards(t *testing.T) {
	pinRandomness(t)
	base := votingSession(t, 4, 2)

	cases := []struct {
		name string
		cmd  Command
	}{
		{name: "ballot too small", cmd: Command{Type: CmdSubmitVote, PlayerNumber: 1, Accused: []int{2}}},
		{name: "ballot too large", cmd: Command{Type: CmdSubmitVote, PlayerNumber: 1, Accused: []int{2, 3, 4}}},
		{name: "duplicate accusations collapse", cmd: Command{Type: CmdSubmitVote, PlayerNumber: 1, Accused: []int{2, 2}}},
		{name: "out-of-range accusation", cmd: Command{Type: CmdSubmitVote, PlayerNumber: 1, Accused: []int{2, 9}}},
		{name: "unseated voter", cmd: Command{Type: CmdSubmitVote, PlayerNumber: 7, Accused: []int{2, 3}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, next, err := Apply(base, tc.cmd)
			require.NoError(t, err)
			assert.Empty(t, events)
			assert.Empty(t, next.Votes)
			assert.Zero(t, next.VoteCount)
		})
	}
}

func TestSubmitVoteKeepsFirstBallot(t *testing.T) {
	pinRandomness(t)
	s := votingSession(t, 4, 1)

	_, s, err := Apply(s, Command{Type: CmdSubmitVote, PlayerNumber: 1, Accused: []int{3}})
	require.NoError(t, err)
	require.Equal(t, []int{3}, s.Votes[1])
	assert.Equal(t, 1, s.VoteCount)

	// Resubmission is rejected outright, not revised.
	events, same, err := Apply(s, Command{Type: CmdSubmitVote, PlayerNumber: 1, Accused: []int{2}})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, []int{3}, same.Votes[1])
	assert.Equal(t, 1, same.VoteCount)
}

func TestVotingCompletesOnLastBallot(t *testing.T) {
	pinRandomness(t)
	s := votingSession(t, 4, 1)

	for n := 1; n <= 3; n++ {
		_, s, _ = Apply(s, Command{Type: CmdSubmitVote, PlayerNumber: n, Accused: []int{4}})
		assert.Equal(t, PhaseVoting, s.Phase)
	}

	events, s, err := Apply(s, Command{Type: CmdSubmitVote, PlayerNumber: 4, Accused: []int{1}})
	require.NoError(t, err)
	assert.True(t, ContainsEvent(events, EvtVotingCompleted))
	assert.Equal(t, PhaseVotingResults, s.Phase)
	assert.Equal(t, 4, s.VoteCount)
}

func TestRevealImpostersIsOneWay(t *testing.T) {
	pinRandomness(t)
	s := votingSession(t, 3, 1)
	for n := 1; n <= 3; n++ {
		_, s, _ = Apply(s, Command{Type: CmdSubmitVote, PlayerNumber: n, Accused: []int{1}})
	}
	require.Equal(t, PhaseVotingResults, s.Phase)

	events, s, err := Apply(s, Command{Type: CmdRevealImposters})
	require.NoError(t, err)
	assert.True(t, ContainsEvent(events, EvtImpostersRevealed))
	assert.True(t, s.ImpostersRevealed)

	events, same, err := Apply(s, Command{Type: CmdRevealImposters})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, s, same)
}

func TestEndIsTerminalFromAnyPhase(t *testing.T) {
	pinRandomness(t)

	s := fullLobby(t, 3, 1)
	_, ended, err := Apply(s, Command{Type: CmdEnd})
	require.NoError(t, err)
	assert.Equal(t, PhaseEnded, ended.Phase)

	// Everything but join is silently ignored afterward.
	events, same, err := Apply(ended, Command{Type: CmdStart})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, ended, same)

	_, _, err = Apply(ended, Command{Type: CmdJoin})
	require.ErrorIs(t, err, ErrSessionEnded)

	events, same, err = Apply(ended, Command{Type: CmdEnd})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, ended, same)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	pinRandomness(t)
	s := fullLobby(t, 3, 1)

	_, started, err := Apply(s, Command{Type: CmdStart})
	require.NoError(t, err)
	require.Equal(t, PhaseRoleReveal, started.Phase)

	assert.Equal(t, PhaseLobby, s.Phase)
	assert.Empty(t, s.Players[1].Role, "input snapshot must stay untouched")
}

func TestUnsupportedCommand(t *testing.T) {
	s, err := NewSession("TEST42", 3, 1)
	require.NoError(t, err)
	_, _, err = Apply(s, Command{Type: CommandType("Nonsense")})
	require.ErrorIs(t, err, ErrUnsupportedCommand)
}

// The full walkthrough: 4 players, 1 imposter, lobby to reveal.
func TestFullGameScenario(t *testing.T) {
	pinRandomness(t)

	s, err := NewSession("TEST42", 4, 1)
	require.NoError(t, err)
	require.Equal(t, 1, s.JoinedCount)

	for want := 2; want <= 4; want++ {
		_, s, err = Apply(s, Command{Type: CmdJoin})
		require.NoError(t, err)
		assert.Equal(t, want, s.JoinedCount)
	}
	_, _, err = Apply(s, Command{Type: CmdJoin})
	require.ErrorIs(t, err, ErrSessionFull)

	_, s, err = Apply(s, Command{Type: CmdStart})
	require.NoError(t, err)
	require.Equal(t, PhaseRoleReveal, s.Phase)
	imposters := 0
	for n := 1; n <= 4; n++ {
		if s.Players[n].Role == RoleImposter {
			imposters++
		}
	}
	require.Equal(t, 1, imposters)

	for n := 1; n <= 4; n++ {
		_, s, err = Apply(s, Command{Type: CmdMarkReady, PlayerNumber: n})
		require.NoError(t, err)
		if n < 4 {
			assert.Equal(t, PhaseRoleReveal, s.Phase)
		}
	}
	require.Equal(t, PhaseAllReady, s.Phase)

	_, s, err = Apply(s, Command{Type: CmdSelectStartingPlayer})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, s, err = Apply(s, Command{Type: CmdSelectNextPlayer})
		require.NoError(t, err)
	}
	require.Len(t, s.TurnOrder, 4)
	seen := map[int]bool{}
	for _, n := range s.TurnOrder {
		require.False(t, seen[n])
		seen[n] = true
	}

	_, s, err = Apply(s, Command{Type: CmdStartVoting})
	require.NoError(t, err)
	require.Equal(t, PhaseVoting, s.Phase)

	for n := 1; n <= 4; n++ {
		_, s, err = Apply(s, Command{Type: CmdSubmitVote, PlayerNumber: n, Accused: []int{(n % 4) + 1}})
		require.NoError(t, err)
	}
	require.Equal(t, PhaseVotingResults, s.Phase)

	total := 0
	for _, count := range TallyVotes(s) {
		total += count
	}
	assert.Equal(t, 4, total, "4 ballots x 1 accusation each")
}
