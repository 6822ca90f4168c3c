package events

import (
	"time"

	"github.com/AdamBeresnev/op-tournament/internal/bracket"
	"github.com/google/uuid"
)

type Kind string

const (
	KindMatchCompleted      Kind = "match_completed"
	KindTournamentCompleted Kind = "tournament_completed"
	KindBracketGenerated    Kind = "bracket_generated"
	KindStatusChanged       Kind = "status_changed"
)

// Event is what sinks receive. Payload holds one of the typed payloads below.
type Event struct {
	Kind         Kind      `json:"type"`
	TournamentID uuid.UUID `json:"tournamentId"`
	Payload      any       `json:"payload"`
	OccurredAt   time.Time `json:"occurredAt"`
}

type MatchCompletedPayload struct {
	MatchID  uuid.UUID `json:"matchId"`
	WinnerID uuid.UUID `json:"winnerId"`
}

type TournamentCompletedPayload struct {
	ChampionID uuid.UUID `json:"championId"`
}

type BracketGeneratedPayload struct {
	TotalMatches int `json:"totalMatches"`
}

type StatusChangedPayload struct {
	From bracket.TournamentStatus `json:"from"`
	To   bracket.TournamentStatus `json:"to"`
}

func newEvent(kind Kind, tournamentID uuid.UUID, payload any) Event {
	return Event{
		Kind:         kind,
		TournamentID: tournamentID,
		Payload:      payload,
		OccurredAt:   time.Now().UTC(),
	}
}

func MatchCompleted(tournamentID, matchID, winnerID uuid.UUID) Event {
	return newEvent(KindMatchCompleted, tournamentID, MatchCompletedPayload{MatchID: matchID, WinnerID: winnerID})
}

func TournamentCompleted(tournamentID, championID uuid.UUID) Event {
	return newEvent(KindTournamentCompleted, tournamentID, TournamentCompletedPayload{ChampionID: championID})
}

func BracketGenerated(tournamentID uuid.UUID, totalMatches int) Event {
	return newEvent(KindBracketGenerated, tournamentID, BracketGeneratedPayload{TotalMatches: totalMatches})
}

func StatusChanged(tournamentID uuid.UUID, from, to bracket.TournamentStatus) Event {
	return newEvent(KindStatusChanged, tournamentID, StatusChangedPayload{From: from, To: to})
}

// Publisher accepts events after the state change they describe is committed.
// Publish must never block the caller.
type Publisher interface {
	Publish(Event)
}

type discard struct{}

func (discard) Publish(Event) {}

// Discard drops every event.
var Discard Publisher = discard{}
