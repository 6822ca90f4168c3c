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

type MatchService struct {
	db     *sqlx.DB
	store  *store.TournamentStore
	events events.Publisher
}

func NewMatchService(db *sqlx.DB, store *store.TournamentStore, publisher events.Publisher) *MatchService {
	return &MatchService{db: db, store: store, events: publisher}
}

type CompleteMatchInput struct {
	ScoreA       string    `json:"scoreA"`
	ScoreB       string    `json:"scoreB"`
	WinnerTeamID uuid.UUID `json:"winnerTeamId"`
}

type CompleteResult struct {
	TournamentCompleted bool `json:"tournamentCompleted"`
}

// CompleteMatch records a result and advances the winner into the successor
// slot, or completes the tournament when the match is the final.
func (s *MatchService) CompleteMatch(ctx context.Context, tournamentID, matchID, requesterID uuid.UUID, input CompleteMatchInput) (*CompleteResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournamentTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}

	match, err := s.store.GetMatchTx(ctx, tx, matchID)
	if err != nil {
		return nil, err
	}
	if match.TournamentID != tournamentID {
		return nil, fmt.Errorf("match %s in tournament %s: %w", matchID, tournamentID, bracket.ErrNotFound)
	}

	if !tournament.IsOrganizer(requesterID) {
		return nil, bracket.ErrForbidden
	}
	if tournament.Status != bracket.TournamentInProgress {
		return nil, fmt.Errorf("%w: tournament is %s", bracket.ErrInvalidTransition, tournament.Status)
	}

	if err := match.Complete(input.ScoreA, input.ScoreB, input.WinnerTeamID); err != nil {
		return nil, err
	}
	if err := s.store.CompleteMatchTx(ctx, tx, match); err != nil {
		return nil, err
	}

	adv, err := match.Advancement()
	if err != nil {
		return nil, err
	}

	final := adv.NextMatchID == nil
	if final {
		if err := bracket.CheckTransition(tournament.Status, bracket.TournamentCompleted); err != nil {
			return nil, err
		}
		if err := s.store.UpdateTournamentStatusTx(ctx, tx, tournamentID, bracket.TournamentCompleted); err != nil {
			return nil, fmt.Errorf("failed to complete tournament: %w", err)
		}
	} else {
		if err := s.store.SetMatchSlotTx(ctx, tx, *adv.NextMatchID, adv.Slot, adv.WinnerID); err != nil {
			return nil, fmt.Errorf("failed to advance winner: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.events.Publish(events.MatchCompleted(tournamentID, matchID, adv.WinnerID))
	if final {
		s.events.Publish(events.StatusChanged(tournamentID, tournament.Status, bracket.TournamentCompleted))
		s.events.Publish(events.TournamentCompleted(tournamentID, adv.WinnerID))
	}

	return &CompleteResult{TournamentCompleted: final}, nil
}

func (s *MatchService) GetMatch(ctx context.Context, tournamentID, matchID uuid.UUID) (*bracket.Match, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.TournamentID != tournamentID {
		return nil, fmt.Errorf("match %s in tournament %s: %w", matchID, tournamentID, bracket.ErrNotFound)
	}
	return match, nil
}
