package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/AdamBeresnev/op-tournament/internal/bracket"
	"github.com/AdamBeresnev/op-tournament/internal/db"
	"github.com/AdamBeresnev/op-tournament/internal/events"
	"github.com/AdamBeresnev/op-tournament/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.Open(db.DriverSQLite, "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	require.NoError(t, db.RunMigrations(database), "Failed to apply migrations")

	t.Cleanup(func() { database.Close() })
	return database
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]events.Kind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type fixture struct {
	db     *sqlx.DB
	store  *store.TournamentStore
	events *recorder

	tournaments *TournamentService
	teams       *TeamService
	brackets    *BracketService
	matches     *MatchService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database := setupTestDB(t)
	tournamentStore := store.NewTournamentStore(database)
	rec := &recorder{}

	f := &fixture{
		db:          database,
		store:       tournamentStore,
		events:      rec,
		tournaments: NewTournamentService(database, tournamentStore, rec),
		teams:       NewTeamService(database, tournamentStore),
		brackets:    NewBracketService(database, tournamentStore, rec),
		matches:     NewMatchService(database, tournamentStore, rec),
	}

	// Registrations get distinct, increasing timestamps
	clock := time.Now().UTC()
	f.teams.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return f
}

// openTournament creates a free tournament with open registration.
func (f *fixture) openTournament(t *testing.T, organizerID uuid.UUID, input CreateTournamentInput) *bracket.Tournament {
	t.Helper()
	ctx := context.Background()

	if input.Name == "" {
		input.Name = "Test Tournament"
	}
	if input.MaxTeams == 0 {
		input.MaxTeams = 32
	}

	tournament, err := f.tournaments.CreateTournament(ctx, organizerID, input)
	require.NoError(t, err)
	require.NoError(t, f.tournaments.TransitionStatus(ctx, tournament.ID, organizerID, bracket.TournamentRegistrationOpen))
	tournament.Status = bracket.TournamentRegistrationOpen
	return tournament
}

// registerTeams signs up n teams in order and returns them.
func (f *fixture) registerTeams(t *testing.T, tournamentID uuid.UUID, n int) []*bracket.Team {
	t.Helper()

	teams := make([]*bracket.Team, 0, n)
	for _i := 0; _i < n; _i++ {
		team, err := f.teams.RegisterTeam(context.Background(), tournamentID, uuid.New(), RegisterTeamInput{Name: "Team"})
		require.NoError(t, err)
		teams = append(teams, team)
	}
	return teams
}

// startTournament opens a tournament, registers n teams, seeds them in
// registration order and generates the bracket.
func (f *fixture) startTournament(t *testing.T, n int) (*bracket.Tournament, uuid.UUID, []*bracket.Team) {
	t.Helper()
	ctx := context.Background()

	organizerID := uuid.New()
	tournament := f.openTournament(t, organizerID, CreateTournamentInput{})
	teams := f.registerTeams(t, tournament.ID, n)
	for i, team := range teams {
		seed := i + 1
		require.NoError(t, f.teams.SetSeed(ctx, team.ID, organizerID, &seed))
	}

	_, err := f.brackets.GenerateBracket(ctx, tournament.ID, organizerID)
	require.NoError(t, err)
	f.events.reset()
	return tournament, organizerID, teams
}

func (f *fixture) loadBracket(t *testing.T, tournamentID uuid.UUID) *bracket.Bracket {
	t.Helper()
	b, err := f.brackets.GetBracket(context.Background(), tournamentID)
	require.NoError(t, err)
	return b
}

func (f *fixture) status(t *testing.T, tournamentID uuid.UUID) bracket.TournamentStatus {
	t.Helper()
	tournament, err := f.store.GetTournament(context.Background(), tournamentID)
	require.NoError(t, err)
	return tournament.Status
}
