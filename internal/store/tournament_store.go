package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AdamBeresnev/op-tournament/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

const (
	createTournamentQuery = `INSERT INTO tournaments (id, organizer_id, name, status, entry_fee, max_teams, team_count, registration_deadline, created_at)
        VALUES (:id, :organizer_id, :name, :status, :entry_fee, :max_teams, :team_count, :registration_deadline, :created_at)`
	createTeamQuery = `INSERT INTO teams (id, tournament_id, captain_id, name, seed, payment_status, withdrawn_at, registered_at)
        VALUES (:id, :tournament_id, :captain_id, :name, :seed, :payment_status, :withdrawn_at, :registered_at)`
	// next_match_id is filled in a second pass, once every row exists
	createMatchesQuery = `INSERT INTO matches (id, tournament_id, round, position, team_a_id, team_b_id, score_a, score_b, winner_team_id, status, created_at)
		VALUES (:id, :tournament_id, :round, :position, :team_a_id, :team_b_id, :score_a, :score_b, :winner_team_id, :status, :created_at)`

	eligibleTeamsQuery = `
        SELECT * FROM teams
        WHERE tournament_id = ?
        AND payment_status = ?
        AND withdrawn_at IS NULL
        ORDER BY registered_at ASC, id ASC
    `
	completeMatchQuery = `
		UPDATE matches SET
		score_a = ?,
		score_b = ?,
		winner_team_id = ?,
		status = ?
		WHERE id = ? AND status = ?
	`
)

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func notFound(err error, what string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, bracket.ErrNotFound)
	}
	return err
}

// IsUniqueViolation reports whether err comes from a unique constraint in
// either supported database.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func expectOneRow(result sql.Result, otherwise error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rows == 0 {
		return otherwise
	}
	return nil
}

// Tournaments

func (s *TournamentStore) CreateTournament(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error {
	if tournament.CreatedAt.IsZero() {
		tournament.CreatedAt = time.Now().UTC()
	}
	_, err := tx.NamedExecContext(ctx, createTournamentQuery, tournament)
	return err
}

func (s *TournamentStore) getTournament(ctx context.Context, q queryer, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	err := q.GetContext(ctx, &tournament, q.Rebind("SELECT * FROM tournaments WHERE id = ?"), id)
	if err != nil {
		return nil, notFound(err, "tournament", id)
	}
	return &tournament, nil
}

func (s *TournamentStore) GetTournament(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error) {
	return s.getTournament(ctx, s.db, id)
}

func (s *TournamentStore) GetTournamentTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*bracket.Tournament, error) {
	return s.getTournament(ctx, tx, id)
}

func (s *TournamentStore) GetTournamentsByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]bracket.Tournament, error) {
	var tournaments []bracket.Tournament
	err := s.db.SelectContext(ctx, &tournaments, s.db.Rebind("SELECT * FROM tournaments WHERE organizer_id = ? ORDER BY created_at DESC"), organizerID)
	return tournaments, err
}

func (s *TournamentStore) UpdateTournamentStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status bracket.TournamentStatus) error {
	result, err := tx.ExecContext(ctx, tx.Rebind("UPDATE tournaments SET status = ? WHERE id = ?"), status, id)
	if err != nil {
		return err
	}
	return expectOneRow(result, fmt.Errorf("tournament %s: %w", id, bracket.ErrNotFound))
}

// AdjustTeamCountTx moves team_count by delta without ever leaving [0, max_teams].
func (s *TournamentStore) AdjustTeamCountTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, delta int) error {
	query := tx.Rebind(`UPDATE tournaments SET team_count = team_count + ?
		WHERE id = ? AND team_count + ? <= max_teams AND team_count + ? >= 0`)
	result, err := tx.ExecContext(ctx, query, delta, id, delta, delta)
	if err != nil {
		return err
	}
	return expectOneRow(result, bracket.ErrTournamentFull)
}

// Teams

func (s *TournamentStore) CreateTeam(ctx context.Context, tx *sqlx.Tx, team *bracket.Team) error {
	if team.RegisteredAt.IsZero() {
		team.RegisteredAt = time.Now().UTC()
	}
	_, err := tx.NamedExecContext(ctx, createTeamQuery, team)
	return err
}

func (s *TournamentStore) GetTeamTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*bracket.Team, error) {
	var team bracket.Team
	if err := tx.GetContext(ctx, &team, tx.Rebind("SELECT * FROM teams WHERE id = ?"), id); err != nil {
		return nil, notFound(err, "team", id)
	}
	return &team, nil
}

func (s *TournamentStore) GetTeams(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Team, error) {
	var teams []bracket.Team
	err := s.db.SelectContext(ctx, &teams, s.db.Rebind("SELECT * FROM teams WHERE tournament_id = ? ORDER BY registered_at ASC, id ASC"), tournamentID)
	return teams, err
}

// ListEligibleTeamsTx returns paid, active teams in registration order.
// The order is the tie-break for unseeded teams.
func (s *TournamentStore) ListEligibleTeamsTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) ([]bracket.Team, error) {
	var teams []bracket.Team
	err := tx.SelectContext(ctx, &teams, tx.Rebind(eligibleTeamsQuery), tournamentID, bracket.PaymentPaid)
	return teams, err
}

func (s *TournamentStore) MarkTeamPaidTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	result, err := tx.ExecContext(ctx, tx.Rebind("UPDATE teams SET payment_status = ? WHERE id = ? AND payment_status = ?"),
		bracket.PaymentPaid, id, bracket.PaymentPending)
	if err != nil {
		return err
	}
	return expectOneRow(result, fmt.Errorf("team %s is not awaiting payment: %w", id, bracket.ErrInvalidInput))
}

func (s *TournamentStore) SetTeamSeedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, seed *int) error {
	result, err := tx.ExecContext(ctx, tx.Rebind("UPDATE teams SET seed = ? WHERE id = ?"), seed, id)
	if err != nil {
		return err
	}
	return expectOneRow(result, fmt.Errorf("team %s: %w", id, bracket.ErrNotFound))
}

func (s *TournamentStore) WithdrawTeamTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time) error {
	result, err := tx.ExecContext(ctx, tx.Rebind("UPDATE teams SET withdrawn_at = ? WHERE id = ? AND withdrawn_at IS NULL"), at, id)
	if err != nil {
		return err
	}
	return expectOneRow(result, fmt.Errorf("team %s already withdrawn: %w", id, bracket.ErrInvalidInput))
}

// Matches

func (s *TournamentStore) CountMatchesTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, tx.Rebind("SELECT COUNT(*) FROM matches WHERE tournament_id = ?"), tournamentID)
	return count, err
}

func (s *TournamentStore) CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range matches {
		if matches[i].CreatedAt.IsZero() {
			matches[i].CreatedAt = now
		}
	}
	_, err := tx.NamedExecContext(ctx, createMatchesQuery, matches)
	return err
}

func (s *TournamentStore) UpdateSuccessorLinksTx(ctx context.Context, tx *sqlx.Tx, links []bracket.SuccessorLink) error {
	stmt, err := tx.PrepareNamedContext(ctx, "UPDATE matches SET next_match_id = :next_match_id WHERE id = :id")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, link := range links {
		result, err := stmt.ExecContext(ctx, link)
		if err != nil {
			return fmt.Errorf("failed to link match %s: %w", link.MatchID, err)
		}
		if err := expectOneRow(result, fmt.Errorf("match %s: %w", link.MatchID, bracket.ErrNotFound)); err != nil {
			return err
		}
	}
	return nil
}

func (s *TournamentStore) getMatch(ctx context.Context, q queryer, id uuid.UUID) (*bracket.Match, error) {
	var match bracket.Match
	if err := q.GetContext(ctx, &match, q.Rebind("SELECT * FROM matches WHERE id = ?"), id); err != nil {
		return nil, notFound(err, "match", id)
	}
	return &match, nil
}

func (s *TournamentStore) GetMatch(ctx context.Context, id uuid.UUID) (*bracket.Match, error) {
	return s.getMatch(ctx, s.db, id)
}

func (s *TournamentStore) GetMatchTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*bracket.Match, error) {
	return s.getMatch(ctx, tx, id)
}

func (s *TournamentStore) GetMatches(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := s.db.SelectContext(ctx, &matches, s.db.Rebind("SELECT * FROM matches WHERE tournament_id = ? ORDER BY round ASC, position ASC"), tournamentID)
	return matches, err
}

// CompleteMatchTx stores a result only if the match is still pending, so a
// replayed or concurrent completion cannot overwrite it.
func (s *TournamentStore) CompleteMatchTx(ctx context.Context, tx *sqlx.Tx, match *bracket.Match) error {
	result, err := tx.ExecContext(ctx, tx.Rebind(completeMatchQuery),
		match.ScoreA, match.ScoreB, match.WinnerTeamID, bracket.MatchCompleted,
		match.ID, bracket.MatchPending)
	if err != nil {
		return err
	}
	return expectOneRow(result, bracket.ErrMatchAlreadyCompleted)
}

// SetMatchSlotTx writes a single team column of a pending match. Sibling
// matches write different columns, so neither update can clobber the other.
func (s *TournamentStore) SetMatchSlotTx(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID, slot bracket.Slot, teamID uuid.UUID) error {
	column := "team_a_id"
	if slot == bracket.SlotB {
		column = "team_b_id"
	}

	query := tx.Rebind(fmt.Sprintf(`UPDATE matches SET %[1]s = ?
		WHERE id = ? AND status = ? AND (%[1]s IS NULL OR %[1]s = ?)`, column))
	result, err := tx.ExecContext(ctx, query, teamID, matchID, bracket.MatchPending, teamID)
	if err != nil {
		return err
	}
	return expectOneRow(result, fmt.Errorf("slot %d of match %s is not open", slot, matchID))
}
