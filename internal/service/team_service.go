package service

import (
	"context"
	"fmt"
	"time"

	"github.com/AdamBeresnev/op-tournament/internal/bracket"
	"github.com/AdamBeresnev/op-tournament/internal/store"
	"github.com/AdamBeresnev/op-tournament/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TeamService struct {
	db    *sqlx.DB
	store *store.TournamentStore
	now   func() time.Time
}

func NewTeamService(db *sqlx.DB, store *store.TournamentStore) *TeamService {
	return &TeamService{db: db, store: store, now: time.Now}
}

type RegisterTeamInput struct {
	Name string `json:"name"`
}

// RegisterTeam signs a team up while registration is open. Teams of a free
// tournament are paid on arrival and take a place straight away; the others
// take one when their payment is confirmed.
func (s *TeamService) RegisterTeam(ctx context.Context, tournamentID, captainID uuid.UUID, input RegisterTeamInput) (*bracket.Team, error) {
	name := utils.StringOrNil(input.Name)
	if name == nil {
		return nil, fmt.Errorf("%w: team name is required", bracket.ErrInvalidInput)
	}
	if captainID == uuid.Nil {
		return nil, bracket.ErrForbidden
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournamentTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if !tournament.RegistrationOpenAt(now) {
		return nil, bracket.ErrRegistrationClosed
	}
	if tournament.IsFull() {
		return nil, bracket.ErrTournamentFull
	}

	team := &bracket.Team{
		ID:            uuid.New(),
		TournamentID:  tournamentID,
		CaptainID:     captainID,
		Name:          *name,
		PaymentStatus: bracket.PaymentPending,
		RegisteredAt:  now,
	}
	if tournament.EntryFee == 0 {
		team.PaymentStatus = bracket.PaymentPaid
		if err := s.store.AdjustTeamCountTx(ctx, tx, tournamentID, 1); err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateTeam(ctx, tx, team); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	return team, tx.Commit()
}

// ConfirmGatewayPayment is called once the payment gateway reports the entry
// fee as settled. Callers must have authenticated the gateway.
func (s *TeamService) ConfirmGatewayPayment(ctx context.Context, teamID uuid.UUID) (*bracket.Team, error) {
	return s.confirmPayment(ctx, teamID, func(*bracket.Tournament) error { return nil })
}

// ConfirmPayment lets the organizer mark a fee as settled by hand, for
// payments taken outside the gateway.
func (s *TeamService) ConfirmPayment(ctx context.Context, teamID, requesterID uuid.UUID) (*bracket.Team, error) {
	return s.confirmPayment(ctx, teamID, func(t *bracket.Tournament) error {
		if !t.IsOrganizer(requesterID) {
			return bracket.ErrForbidden
		}
		return nil
	})
}

func (s *TeamService) confirmPayment(ctx context.Context, teamID uuid.UUID, authorize func(*bracket.Tournament) error) (*bracket.Team, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	team, err := s.store.GetTeamTx(ctx, tx, teamID)
	if err != nil {
		return nil, err
	}
	tournament, err := s.store.GetTournamentTx(ctx, tx, team.TournamentID)
	if err != nil {
		return nil, err
	}
	if err := authorize(tournament); err != nil {
		return nil, err
	}

	if team.WithdrawnAt != nil {
		return nil, fmt.Errorf("%w: team %s has withdrawn", bracket.ErrInvalidInput, teamID)
	}
	if !bracket.CanGenerateBracket(tournament.Status) {
		return nil, bracket.ErrRegistrationClosed
	}

	if err := s.store.MarkTeamPaidTx(ctx, tx, teamID); err != nil {
		return nil, err
	}
	if err := s.store.AdjustTeamCountTx(ctx, tx, team.TournamentID, 1); err != nil {
		return nil, err
	}

	team.PaymentStatus = bracket.PaymentPaid
	return team, tx.Commit()
}

// WithdrawTeam removes a team from bracket generation. Matches that already
// exist are left as they are.
func (s *TeamService) WithdrawTeam(ctx context.Context, teamID, requesterID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	team, err := s.store.GetTeamTx(ctx, tx, teamID)
	if err != nil {
		return err
	}

	tournament, err := s.store.GetTournamentTx(ctx, tx, team.TournamentID)
	if err != nil {
		return err
	}
	if requesterID == uuid.Nil || (team.CaptainID != requesterID && !tournament.IsOrganizer(requesterID)) {
		return bracket.ErrForbidden
	}
	if tournament.Status.Terminal() {
		return fmt.Errorf("%w: tournament is %s", bracket.ErrInvalidTransition, tournament.Status)
	}

	counted := team.Eligible()
	if err := s.store.WithdrawTeamTx(ctx, tx, teamID, s.now().UTC()); err != nil {
		return err
	}
	if counted {
		if err := s.store.AdjustTeamCountTx(ctx, tx, team.TournamentID, -1); err != nil {
			return fmt.Errorf("failed to release team place: %w", err)
		}
	}

	return tx.Commit()
}

// SetSeed lets the organizer seed a team, or clear its seed with nil, before
// the bracket exists.
func (s *TeamService) SetSeed(ctx context.Context, teamID, requesterID uuid.UUID, seed *int) error {
	if seed != nil && *seed <= 0 {
		return fmt.Errorf("%w: seed must be positive", bracket.ErrInvalidInput)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	team, err := s.store.GetTeamTx(ctx, tx, teamID)
	if err != nil {
		return err
	}
	tournament, err := s.store.GetTournamentTx(ctx, tx, team.TournamentID)
	if err != nil {
		return err
	}
	if !tournament.IsOrganizer(requesterID) {
		return bracket.ErrForbidden
	}
	if tournament.Status != bracket.TournamentDraft && !bracket.CanGenerateBracket(tournament.Status) {
		return fmt.Errorf("%w: seeds are fixed once the bracket exists", bracket.ErrInvalidTransition)
	}

	if err := s.store.SetTeamSeedTx(ctx, tx, teamID, seed); err != nil {
		return err
	}
	return tx.Commit()
}
