package bracket

import (
	"time"

	"github.com/google/uuid"
)

type TournamentStatus string

const (
	TournamentDraft              TournamentStatus = "draft"
	TournamentRegistrationOpen   TournamentStatus = "registration_open"
	TournamentRegistrationClosed TournamentStatus = "registration_closed"
	TournamentInProgress         TournamentStatus = "in_progress"
	TournamentCompleted          TournamentStatus = "completed"
	TournamentCancelled          TournamentStatus = "cancelled"
)

type Tournament struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	OrganizerID uuid.UUID        `db:"organizer_id" json:"organizerId"`
	Name        string           `db:"name" json:"name"`
	Status      TournamentStatus `db:"status" json:"status"`

	// Minor currency units
	EntryFee  int64 `db:"entry_fee" json:"entryFee"`
	MaxTeams  int   `db:"max_teams" json:"maxTeams"`
	TeamCount int   `db:"team_count" json:"teamCount"`

	RegistrationDeadline *time.Time `db:"registration_deadline" json:"registrationDeadline,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"createdAt"`
}

func (t *Tournament) IsOrganizer(userID uuid.UUID) bool {
	return userID != uuid.Nil && t.OrganizerID == userID
}

func (t *Tournament) IsFull() bool {
	return t.TeamCount >= t.MaxTeams
}

// RegistrationOpenAt reports whether new teams may sign up at the given instant.
func (t *Tournament) RegistrationOpenAt(now time.Time) bool {
	if t.Status != TournamentRegistrationOpen {
		return false
	}
	return t.RegistrationDeadline == nil || now.Before(*t.RegistrationDeadline)
}
