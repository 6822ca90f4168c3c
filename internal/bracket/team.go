package bracket

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

type Team struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournamentId"`
	CaptainID    uuid.UUID `db:"captain_id" json:"captainId"`
	Name         string    `db:"name" json:"name"`

	// Unseeded teams are placed after every seeded one
	Seed *int `db:"seed" json:"seed,omitempty"`

	PaymentStatus PaymentStatus `db:"payment_status" json:"paymentStatus"`
	WithdrawnAt   *time.Time    `db:"withdrawn_at" json:"withdrawnAt,omitempty"`
	RegisteredAt  time.Time     `db:"registered_at" json:"registeredAt"`
}

// Eligible reports whether the team takes part in bracket generation.
func (t *Team) Eligible() bool {
	return t.PaymentStatus == PaymentPaid && t.WithdrawnAt == nil
}
