package service

import (
	"context"
	"fmt"
	"time"

	"github.com/AdamBeresnev/op-tournament/internal/bracket"
	"github.com/AdamBeresnev/op-tournament/internal/events"
	"github.com/AdamBeresnev/op-tournament/internal/store"
	"github.com/AdamBeresnev/op-tournament/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TournamentService struct {
	db     *sqlx.DB
	store  *store.TournamentStore
	events events.Publisher
}

func NewTournamentService(db *sqlx.DB, store *store.TournamentStore, publisher events.Publisher) *TournamentService {
	return &TournamentService{db: db, store: store, events: publisher}
}

type CreateTournamentInput struct {
	Name                 string     `json:"name"`
	EntryFee             int64      `json:"entryFee"`
	MaxTeams             int        `json:"maxTeams"`
	RegistrationDeadline *time.Time `json:"registrationDeadline,omitempty"`
}

func (in CreateTournamentInput) validate() error {
	if utils.StringOrNil(in.Name) == nil {
		return fmt.Errorf("%w: name is required", bracket.ErrInvalidInput)
	}
	if in.EntryFee < 0 {
		return fmt.Errorf("%w: entry fee cannot be negative", bracket.ErrInvalidInput)
	}
	if in.MaxTeams < bracket.MinEntrants {
		return fmt.Errorf("%w: at least %d teams must fit", bracket.ErrInvalidInput, bracket.MinEntrants)
	}
	return nil
}

type TournamentData struct {
	Tournament *bracket.Tournament `json:"tournament"`
	Teams      []bracket.Team      `json:"teams"`
	Matches    []bracket.Match     `json:"matches"`
	ChampionID *uuid.UUID          `json:"championId,omitempty"`
}

// CreateTournament stores a new tournament in draft.
func (s *TournamentService) CreateTournament(ctx context.Context, organizerID uuid.UUID, input CreateTournamentInput) (*bracket.Tournament, error) {
	if organizerID == uuid.Nil {
		return nil, bracket.ErrForbidden
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament := &bracket.Tournament{
		ID:                   uuid.New(),
		OrganizerID:          organizerID,
		Name:                 *utils.StringOrNil(input.Name),
		Status:               bracket.TournamentDraft,
		EntryFee:             input.EntryFee,
		MaxTeams:             input.MaxTeams,
		RegistrationDeadline: input.RegistrationDeadline,
		CreatedAt:            time.Now().UTC(),
	}
	if err := s.store.CreateTournament(ctx, tx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	return tournament, tx.Commit()
}

func (s *TournamentService) GetTournament(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error) {
	return s.store.GetTournament(ctx, id)
}

func (s *TournamentService) GetTournamentData(ctx context.Context, id uuid.UUID) (*TournamentData, error) {
	tournament, err := s.store.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}

	teams, err := s.store.GetTeams(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get teams: %w", err)
	}

	matches, err := s.store.GetMatches(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}

	data := &TournamentData{
		Tournament: tournament,
		Teams:      teams,
		Matches:    matches,
	}
	if tournament.Status == bracket.TournamentCompleted && len(matches) > 0 {
		// Matches are ordered by round, so the final comes last
		data.ChampionID = matches[len(matches)-1].WinnerTeamID
	}
	return data, nil
}

func (s *TournamentService) GetTournamentsForOrganizer(ctx context.Context, organizerID uuid.UUID) ([]bracket.Tournament, error) {
	return s.store.GetTournamentsByOrganizer(ctx, organizerID)
}

// TransitionStatus applies an organizer requested status change. Statuses the
// engine manages itself cannot be requested.
func (s *TournamentService) TransitionStatus(ctx context.Context, tournamentID, requesterID uuid.UUID, target bracket.TournamentStatus) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournamentTx(ctx, tx, tournamentID)
	if err != nil {
		return err
	}
	if !tournament.IsOrganizer(requesterID) {
		return bracket.ErrForbidden
	}

	if err := bracket.CheckRequestedTransition(tournament.Status, target); err != nil {
		return err
	}
	if err := s.store.UpdateTournamentStatusTx(ctx, tx, tournamentID, target); err != nil {
		return fmt.Errorf("failed to update tournament status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.events.Publish(events.StatusChanged(tournamentID, tournament.Status, target))
	return nil
}
