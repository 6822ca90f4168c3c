package service

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/op-tournament/internal/bracket"
	"github.com/AdamBeresnev/op-tournament/internal/events"
	"github.com/AdamBeresnev/op-tournament/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBracket(t *testing.T) {
	testCases := []struct {
		name               string
		numTeams           int
		expectedMatchCount int
		expectedByes       int
		expectedError      error
	}{
		{name: "3 teams", numTeams: 3, expectedError: bracket.ErrInsufficientEntrants},
		{name: "4 teams", numTeams: 4, expectedMatchCount: 3},
		{name: "5 teams", numTeams: 5, expectedMatchCount: 7, expectedByes: 3},
		{name: "8 teams", numTeams: 8, expectedMatchCount: 7},
		{name: "13 teams", numTeams: 13, expectedMatchCount: 15, expectedByes: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			organizerID := uuid.New()

			tournament := f.openTournament(t, organizerID, CreateTournamentInput{})
			f.registerTeams(t, tournament.ID, tc.numTeams)

			result, err := f.brackets.GenerateBracket(ctx, tournament.ID, organizerID)
			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
				assert.Equal(t, bracket.TournamentRegistrationOpen, f.status(t, tournament.ID))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedMatchCount, result.TotalMatches)

			matches, err := f.store.GetMatches(ctx, tournament.ID)
			require.NoError(t, err)
			assert.Len(t, matches, tc.expectedMatchCount)

			byes := 0
			for _, m := range matches {
				if m.Status == bracket.MatchBye {
					byes++
				}
			}
			assert.Equal(t, tc.expectedByes, byes)

			assert.NoError(t, f.loadBracket(t, tournament.ID).Validate())
			assert.Equal(t, bracket.TournamentInProgress, f.status(t, tournament.ID))
		})
	}
}

func TestGenerateBracket_FiveTeamScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	organizerID := uuid.New()

	tournament := f.openTournament(t, organizerID, CreateTournamentInput{})
	teams := f.registerTeams(t, tournament.ID, 5)
	// Seeds 1-4, the last team stays unseeded
	for i, team := range teams[:4] {
		require.NoError(t, f.teams.SetSeed(ctx, team.ID, organizerID, utils.Ptr(i+1)))
	}
	f.events.reset()

	result, err := f.brackets.GenerateBracket(ctx, tournament.ID, organizerID)
	require.NoError(t, err)
	assert.Equal(t, 7, result.TotalMatches)

	b := f.loadBracket(t, tournament.ID)
	round1 := b.Round(1)
	require.Len(t, round1, 4)

	// Seed 4 against the unseeded team is the only real first round match
	played := b.At(1, 2)
	assert.Equal(t, bracket.MatchPending, played.Status)
	assert.Equal(t, teams[3].ID, *played.TeamAID)
	assert.Equal(t, teams[4].ID, *played.TeamBID)

	for _, pos := range []int{1, 3, 4} {
		bye := b.At(1, pos)
		assert.Equal(t, bracket.MatchBye, bye.Status, "position %d", pos)
		assert.Nil(t, bye.TeamBID)
		require.NotNil(t, bye.WinnerTeamID)
		assert.Equal(t, *bye.TeamAID, *bye.WinnerTeamID)
	}

	// Bye winners are already waiting in round 2
	semi1, semi2 := b.At(2, 1), b.At(2, 2)
	assert.Equal(t, teams[0].ID, *semi1.TeamAID)
	assert.Nil(t, semi1.TeamBID)
	assert.Equal(t, teams[1].ID, *semi2.TeamAID)
	assert.Equal(t, teams[2].ID, *semi2.TeamBID)

	assert.Equal(t, []events.Kind{
		events.KindBracketGenerated,
		events.KindStatusChanged,
		events.KindStatusChanged,
	}, f.events.kinds())
}

func TestGenerateBracket_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tournament, organizerID, _ := f.startTournament(t, 6)

	_, err := f.brackets.GenerateBracket(ctx, tournament.ID, organizerID)
	require.Error(t, err)
	// The tournament already left registration, so the status guard fires first
	assert.ErrorIs(t, err, bracket.ErrInvalidTransition)

	matches, err := f.store.GetMatches(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, matches, 7)
	assert.Empty(t, f.events.kinds())
}

func TestGenerateBracket_RowsAlreadyExist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tournament, organizerID, _ := f.startTournament(t, 4)

	// Put the tournament back into a state that allows generation
	_, err := f.db.Exec(f.db.Rebind("UPDATE tournaments SET status = ? WHERE id = ?"), bracket.TournamentRegistrationClosed, tournament.ID)
	require.NoError(t, err)

	_, err = f.brackets.GenerateBracket(ctx, tournament.ID, organizerID)
	assert.ErrorIs(t, err, bracket.ErrBracketAlreadyExists)

	matches, err := f.store.GetMatches(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, matches, 3)
	assert.Equal(t, bracket.TournamentRegistrationClosed, f.status(t, tournament.ID))
}

func TestGenerateBracket_Forbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tournament := f.openTournament(t, uuid.New(), CreateTournamentInput{})
	f.registerTeams(t, tournament.ID, 4)

	_, err := f.brackets.GenerateBracket(ctx, tournament.ID, uuid.New())
	assert.ErrorIs(t, err, bracket.ErrForbidden)

	matches, err := f.store.GetMatches(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, bracket.TournamentRegistrationOpen, f.status(t, tournament.ID))
}

func TestGenerateBracket_WrongStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	organizerID := uuid.New()

	tournament, err := f.tournaments.CreateTournament(ctx, organizerID, CreateTournamentInput{Name: "Draft", MaxTeams: 8})
	require.NoError(t, err)

	_, err = f.brackets.GenerateBracket(ctx, tournament.ID, organizerID)
	var transitionErr *bracket.TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, bracket.TournamentDraft, transitionErr.From)
	assert.Equal(t, bracket.TournamentInProgress, transitionErr.To)
}

func TestGenerateBracket_FromClosedRegistration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	organizerID := uuid.New()

	tournament := f.openTournament(t, organizerID, CreateTournamentInput{})
	f.registerTeams(t, tournament.ID, 4)
	require.NoError(t, f.tournaments.TransitionStatus(ctx, tournament.ID, organizerID, bracket.TournamentRegistrationClosed))
	f.events.reset()

	_, err := f.brackets.GenerateBracket(ctx, tournament.ID, organizerID)
	require.NoError(t, err)
	assert.Equal(t, []events.Kind{events.KindBracketGenerated, events.KindStatusChanged}, f.events.kinds())
	assert.Equal(t, bracket.TournamentInProgress, f.status(t, tournament.ID))
}

func TestGenerateBracket_SkipsUnpaidAndWithdrawn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	organizerID := uuid.New()

	tournament := f.openTournament(t, organizerID, CreateTournamentInput{EntryFee: 1000})
	teams := f.registerTeams(t, tournament.ID, 6)
	for _, team := range teams[:5] {
		_, err := f.teams.ConfirmGatewayPayment(ctx, team.ID)
		require.NoError(t, err)
	}
	require.NoError(t, f.teams.WithdrawTeam(ctx, teams[0].ID, teams[0].CaptainID))

	_, err := f.brackets.GenerateBracket(ctx, tournament.ID, organizerID)
	require.NoError(t, err)

	b := f.loadBracket(t, tournament.ID)
	assert.Equal(t, 2, b.Rounds)
	for _, m := range b.Round(1) {
		assert.False(t, m.HasTeam(teams[0].ID), "withdrawn team placed")
		assert.False(t, m.HasTeam(teams[5].ID), "unpaid team placed")
	}
}
