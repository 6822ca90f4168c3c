package service

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/op-tournament/internal/bracket"
	"github.com/AdamBeresnev/op-tournament/internal/events"
	"github.com/AdamBeresnev/op-tournament/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type BracketService struct {
	db     *sqlx.DB
	store  *store.TournamentStore
	events events.Publisher
}

func NewBracketService(db *sqlx.DB, store *store.TournamentStore, publisher events.Publisher) *BracketService {
	return &BracketService{db: db, store: store, events: publisher}
}

type GenerateResult struct {
	TotalMatches int `json:"totalMatches"`
}

// GenerateBracket seeds the eligible teams, persists the whole tree and moves
// the tournament to in_progress, all in one transaction.
func (s *BracketService) GenerateBracket(ctx context.Context, tournamentID, requesterID uuid.UUID) (*GenerateResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournamentTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !tournament.IsOrganizer(requesterID) {
		return nil, bracket.ErrForbidden
	}

	path, err := bracket.StartPath(tournament.Status)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.CountMatchesTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count matches: %w", err)
	}
	if existing > 0 {
		return nil, bracket.ErrBracketAlreadyExists
	}

	teams, err := s.store.ListEligibleTeamsTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible teams: %w", err)
	}

	slots, err := bracket.NormalizeSeeds(teams)
	if err != nil {
		return nil, err
	}

	b, err := bracket.Build(tournamentID, slots)
	if err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate bracket: %w", err)
	}

	if err := s.store.CreateMatches(ctx, tx, b.Matches); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, bracket.ErrBracketAlreadyExists
		}
		return nil, fmt.Errorf("failed to create matches: %w", err)
	}
	if err := s.store.UpdateSuccessorLinksTx(ctx, tx, b.Links); err != nil {
		return nil, fmt.Errorf("failed to link matches: %w", err)
	}

	changes := make([]events.Event, 0, len(path)+1)
	from := tournament.Status
	for _, to := range path {
		if err := bracket.CheckTransition(from, to); err != nil {
			return nil, err
		}
		if err := s.store.UpdateTournamentStatusTx(ctx, tx, tournamentID, to); err != nil {
			return nil, fmt.Errorf("failed to update tournament status: %w", err)
		}
		changes = append(changes, events.StatusChanged(tournamentID, from, to))
		from = to
	}

	if err := tx.Commit(); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, bracket.ErrBracketAlreadyExists
		}
		return nil, err
	}

	s.events.Publish(events.BracketGenerated(tournamentID, len(b.Matches)))
	for _, e := range changes {
		s.events.Publish(e)
	}

	return &GenerateResult{TotalMatches: len(b.Matches)}, nil
}

// GetBracket loads the persisted tree for a tournament.
func (s *BracketService) GetBracket(ctx context.Context, tournamentID uuid.UUID) (*bracket.Bracket, error) {
	if _, err := s.store.GetTournament(ctx, tournamentID); err != nil {
		return nil, err
	}

	matches, err := s.store.GetMatches(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("bracket for tournament %s: %w", tournamentID, bracket.ErrNotFound)
	}

	b, err := bracket.FromMatches(tournamentID, matches)
	if err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("stored bracket is inconsistent: %w", err)
	}
	return b, nil
}
