package bracket

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchCompleted MatchStatus = "completed"
	MatchBye       MatchStatus = "bye"
)

// Slot is the side of a match a team plays on.
type Slot int

const (
	SlotA Slot = 1
	SlotB Slot = 2
)

// SlotFor returns the successor slot fed by the match at the given position.
// Odd positions feed team A, even positions feed team B.
func SlotFor(position int) Slot {
	if position%2 != 0 {
		return SlotA
	}
	return SlotB
}

// NextPosition is the position in the following round that the match at
// position feeds into.
func NextPosition(position int) int {
	return (position + 1) / 2
}

type Match struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournamentId"`

	// Position in the bracket tree, both 1-indexed
	Round    int `db:"round" json:"round"`
	Position int `db:"position" json:"position"`

	TeamAID *uuid.UUID `db:"team_a_id" json:"teamAId,omitempty"`
	TeamBID *uuid.UUID `db:"team_b_id" json:"teamBId,omitempty"`

	ScoreA *string `db:"score_a" json:"scoreA,omitempty"`
	ScoreB *string `db:"score_b" json:"scoreB,omitempty"`

	WinnerTeamID *uuid.UUID  `db:"winner_team_id" json:"winnerTeamId,omitempty"`
	Status       MatchStatus `db:"status" json:"status"`

	NextMatchID *uuid.UUID `db:"next_match_id" json:"nextMatchId,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Resolved is true for played matches and byes alike.
func (m *Match) Resolved() bool {
	return m.Status == MatchCompleted || m.Status == MatchBye
}

func (m *Match) IsFinal() bool {
	return m.NextMatchID == nil
}

func (m *Match) HasTeam(teamID uuid.UUID) bool {
	return (m.TeamAID != nil && *m.TeamAID == teamID) || (m.TeamBID != nil && *m.TeamBID == teamID)
}

func (m *Match) TeamIn(slot Slot) *uuid.UUID {
	if slot == SlotA {
		return m.TeamAID
	}
	return m.TeamBID
}

func (m *Match) setTeam(slot Slot, teamID uuid.UUID) {
	id := teamID
	if slot == SlotA {
		m.TeamAID = &id
	} else {
		m.TeamBID = &id
	}
}
