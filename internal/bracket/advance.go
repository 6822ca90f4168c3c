package bracket

import (
	"fmt"

	"github.com/google/uuid"
)

// Advancement describes where a resolved match sends its winner.
// NextMatchID is nil for the final.
type Advancement struct {
	WinnerID    uuid.UUID
	NextMatchID *uuid.UUID
	Slot        Slot
}

// Complete validates a reported result and records it on the match.
func (m *Match) Complete(scoreA, scoreB string, winnerID uuid.UUID) error {
	if m.Resolved() {
		return ErrMatchAlreadyCompleted
	}
	if m.TeamAID == nil || m.TeamBID == nil {
		return ErrMatchNotReady
	}
	if !m.HasTeam(winnerID) {
		return ErrInvalidWinner
	}

	winner := winnerID
	m.ScoreA = &scoreA
	m.ScoreB = &scoreB
	m.WinnerTeamID = &winner
	m.Status = MatchCompleted
	return nil
}

// Advancement applies the parity rule to a resolved match.
func (m *Match) Advancement() (Advancement, error) {
	if !m.Resolved() || m.WinnerTeamID == nil {
		return Advancement{}, fmt.Errorf("match %s has no winner yet", m.ID)
	}
	return Advancement{
		WinnerID:    *m.WinnerTeamID,
		NextMatchID: m.NextMatchID,
		Slot:        SlotFor(m.Position),
	}, nil
}

// Writes the winner of m into its successor. The target slot must still be
// empty; each slot has exactly one feeding match.
func (b *Bracket) propagate(m *Match) error {
	adv, err := m.Advancement()
	if err != nil {
		return err
	}
	if adv.NextMatchID == nil {
		return nil
	}

	next := b.Get(*adv.NextMatchID)
	if next == nil {
		return fmt.Errorf("match %s links to unknown match %s", m.ID, *adv.NextMatchID)
	}
	if next.Resolved() {
		return fmt.Errorf("successor %s of match %s is already resolved", next.ID, m.ID)
	}
	if current := next.TeamIn(adv.Slot); current != nil && *current != adv.WinnerID {
		return fmt.Errorf("slot %d of match %s is already taken", adv.Slot, next.ID)
	}

	next.setTeam(adv.Slot, adv.WinnerID)
	return nil
}

// Advance completes a match inside the arena and propagates the winner.
// It reports whether the completed match was the final.
func (b *Bracket) Advance(matchID uuid.UUID, scoreA, scoreB string, winnerID uuid.UUID) (bool, error) {
	m := b.Get(matchID)
	if m == nil {
		return false, ErrNotFound
	}
	if err := m.Complete(scoreA, scoreB, winnerID); err != nil {
		return false, err
	}
	if err := b.propagate(m); err != nil {
		return false, err
	}
	return m.IsFinal(), nil
}
