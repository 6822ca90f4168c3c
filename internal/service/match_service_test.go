package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/AdamBeresnev/op-tournament/internal/bracket"
	"github.com/AdamBeresnev/op-tournament/internal/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func winA(m *bracket.Match) CompleteMatchInput {
	return CompleteMatchInput{ScoreA: "2", ScoreB: "1", WinnerTeamID: *m.TeamAID}
}

func TestCompleteMatch_PlaysToChampion(t *testing.T) {
	for _, n := range []int{4, 5, 8, 11} {
		t.Run(fmt.Sprintf("%d teams", n), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			tournament, organizerID, teams := f.startTournament(t, n)

			b := f.loadBracket(t, tournament.ID)
			for round := 1; round <= b.Rounds; round++ {
				for _, m := range f.loadBracket(t, tournament.ID).Round(round) {
					if m.Status == bracket.MatchBye {
						continue
					}

					result, err := f.matches.CompleteMatch(ctx, tournament.ID, m.ID, organizerID, winA(m))
					require.NoError(t, err)
					assert.Equal(t, m.IsFinal(), result.TournamentCompleted)

					if m.IsFinal() {
						continue
					}
					next, err := f.store.GetMatch(ctx, *m.NextMatchID)
					require.NoError(t, err)
					slot := bracket.SlotFor(m.Position)
					require.NotNil(t, next.TeamIn(slot), "round %d position %d", m.Round, m.Position)
					assert.Equal(t, *m.TeamAID, *next.TeamIn(slot))
				}
			}

			assert.Equal(t, bracket.TournamentCompleted, f.status(t, tournament.ID))

			// Team A always wins, which under standard seeding is the top seed
			data, err := f.tournaments.GetTournamentData(ctx, tournament.ID)
			require.NoError(t, err)
			require.NotNil(t, data.ChampionID)
			assert.Equal(t, teams[0].ID, *data.ChampionID)

			final := f.loadBracket(t, tournament.ID)
			require.NoError(t, final.Validate())
			assert.Equal(t, teams[0].ID, *final.Champion())

			kinds := f.events.kinds()
			require.NotEmpty(t, kinds)
			assert.Equal(t, events.KindTournamentCompleted, kinds[len(kinds)-1])
		})
	}
}

func TestCompleteMatch_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament, organizerID, teams := f.startTournament(t, 5)
	b := f.loadBracket(t, tournament.ID)

	played := b.At(1, 2)
	bye := b.At(1, 1)
	waiting := b.At(2, 1)

	testCases := []struct {
		name          string
		tournamentID  uuid.UUID
		matchID       uuid.UUID
		requesterID   uuid.UUID
		input         CompleteMatchInput
		expectedError error
	}{
		{
			name:          "Unknown match",
			tournamentID:  tournament.ID,
			matchID:       uuid.New(),
			requesterID:   organizerID,
			input:         winA(played),
			expectedError: bracket.ErrNotFound,
		},
		{
			name:          "Match from another tournament",
			tournamentID:  f.openTournament(t, organizerID, CreateTournamentInput{}).ID,
			matchID:       played.ID,
			requesterID:   organizerID,
			input:         winA(played),
			expectedError: bracket.ErrNotFound,
		},
		{
			name:          "Not the organizer",
			tournamentID:  tournament.ID,
			matchID:       played.ID,
			requesterID:   teams[3].CaptainID,
			input:         winA(played),
			expectedError: bracket.ErrForbidden,
		},
		{
			name:          "Winner not in match",
			tournamentID:  tournament.ID,
			matchID:       played.ID,
			requesterID:   organizerID,
			input:         CompleteMatchInput{ScoreA: "1", ScoreB: "0", WinnerTeamID: teams[0].ID},
			expectedError: bracket.ErrInvalidWinner,
		},
		{
			name:          "Bye cannot be reported",
			tournamentID:  tournament.ID,
			matchID:       bye.ID,
			requesterID:   organizerID,
			input:         winA(bye),
			expectedError: bracket.ErrMatchAlreadyCompleted,
		},
		{
			name:          "Opponent still missing",
			tournamentID:  tournament.ID,
			matchID:       waiting.ID,
			requesterID:   organizerID,
			input:         winA(waiting),
			expectedError: bracket.ErrMatchNotReady,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.matches.CompleteMatch(ctx, tc.tournamentID, tc.matchID, tc.requesterID, tc.input)
			assert.ErrorIs(t, err, tc.expectedError)
		})
	}

	// Nothing above changed any row
	after := f.loadBracket(t, tournament.ID)
	assert.Equal(t, b.Matches, after.Matches)
	assert.Empty(t, f.events.kinds())
}

func TestCompleteMatch_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament, organizerID, teams := f.startTournament(t, 4)
	b := f.loadBracket(t, tournament.ID)

	semi := b.At(1, 1)
	_, err := f.matches.CompleteMatch(ctx, tournament.ID, semi.ID, organizerID, winA(semi))
	require.NoError(t, err)

	before, err := f.store.GetMatch(ctx, b.Final().ID)
	require.NoError(t, err)

	// Replaying with the other team must not move anything
	_, err = f.matches.CompleteMatch(ctx, tournament.ID, semi.ID, organizerID,
		CompleteMatchInput{ScoreA: "0", ScoreB: "2", WinnerTeamID: *semi.TeamBID})
	assert.ErrorIs(t, err, bracket.ErrMatchAlreadyCompleted)

	after, err := f.store.GetMatch(ctx, b.Final().ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, teams[0].ID, *after.TeamAID)

	stored, err := f.store.GetMatch(ctx, semi.ID)
	require.NoError(t, err)
	assert.Equal(t, *semi.TeamAID, *stored.WinnerTeamID)
	assert.Equal(t, "2", *stored.ScoreA)
}

func TestCompleteMatch_ConcurrentSiblings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament, organizerID, _ := f.startTournament(t, 4)
	b := f.loadBracket(t, tournament.ID)

	semis := b.Round(1)
	require.Len(t, semis, 2)

	var wg sync.WaitGroup
	errs := make([]error, len(semis))
	for i, m := range semis {
		i, m := i, m
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.matches.CompleteMatch(ctx, tournament.ID, m.ID, organizerID,
				CompleteMatchInput{ScoreA: "0", ScoreB: "3", WinnerTeamID: *m.TeamBID})
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	final, err := f.store.GetMatch(ctx, b.Final().ID)
	require.NoError(t, err)
	require.NotNil(t, final.TeamAID)
	require.NotNil(t, final.TeamBID)
	assert.Equal(t, *semis[0].TeamBID, *final.TeamAID)
	assert.Equal(t, *semis[1].TeamBID, *final.TeamBID)
}

func TestCompleteMatch_RequiresInProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament, organizerID, _ := f.startTournament(t, 4)
	semi := f.loadBracket(t, tournament.ID).At(1, 1)

	require.NoError(t, f.tournaments.TransitionStatus(ctx, tournament.ID, organizerID, bracket.TournamentCancelled))

	_, err := f.matches.CompleteMatch(ctx, tournament.ID, semi.ID, organizerID, winA(semi))
	assert.ErrorIs(t, err, bracket.ErrInvalidTransition)

	stored, err := f.store.GetMatch(ctx, semi.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.MatchPending, stored.Status)
}

func TestCompleteMatch_FinalCompletesTournament(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament, organizerID, _ := f.startTournament(t, 4)
	b := f.loadBracket(t, tournament.ID)

	for _, m := range b.Round(1) {
		_, err := f.matches.CompleteMatch(ctx, tournament.ID, m.ID, organizerID, winA(m))
		require.NoError(t, err)
	}
	f.events.reset()

	final, err := f.matches.GetMatch(ctx, tournament.ID, b.Final().ID)
	require.NoError(t, err)

	result, err := f.matches.CompleteMatch(ctx, tournament.ID, final.ID, organizerID,
		CompleteMatchInput{ScoreA: "1", ScoreB: "3", WinnerTeamID: *final.TeamBID})
	require.NoError(t, err)
	assert.True(t, result.TournamentCompleted)
	assert.Equal(t, bracket.TournamentCompleted, f.status(t, tournament.ID))

	assert.Equal(t, []events.Kind{
		events.KindMatchCompleted,
		events.KindStatusChanged,
		events.KindTournamentCompleted,
	}, f.events.kinds())

	// The final can be replayed neither as a match nor as a status change
	_, err = f.matches.CompleteMatch(ctx, tournament.ID, final.ID, organizerID, winA(final))
	assert.Error(t, err)
}
