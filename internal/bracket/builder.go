package bracket

import (
	"fmt"
	"math"

	"github.com/dominikbraun/graph"
	"github.com/google/uuid"
)

type matchKey struct {
	round    int
	position int
}

// SuccessorLink wires a match to the one its winner advances into.
type SuccessorLink struct {
	MatchID     uuid.UUID `db:"id"`
	NextMatchID uuid.UUID `db:"next_match_id"`
}

// Bracket is an arena of matches addressed by (round, position) or id.
// Successor resolution is always a lookup, never a live pointer.
type Bracket struct {
	TournamentID uuid.UUID
	Rounds       int
	Matches      []Match
	Links        []SuccessorLink

	byKey map[matchKey]int
	byID  map[uuid.UUID]int
	graph graph.Graph[uuid.UUID, uuid.UUID]
}

func isPowerOfTwo(n int) bool {
	return n >= 2 && n&(n-1) == 0
}

// Build creates the full single elimination tree for the padded slot list
// returned by NormalizeSeeds. Byes are resolved and their winners advanced
// before it returns.
func Build(tournamentID uuid.UUID, slots []*uuid.UUID) (*Bracket, error) {
	if !isPowerOfTwo(len(slots)) {
		return nil, fmt.Errorf("%w: got %d slots", ErrInvalidEntrantCount, len(slots))
	}

	totalRounds := int(math.Log2(float64(len(slots))))
	b := layout(tournamentID, totalRounds)

	for i := 0; i < len(slots)/2; i++ {
		m := b.At(1, i+1)
		m.TeamAID = slots[2*i]
		m.TeamBID = slots[2*i+1]
	}

	b.Links = b.link()

	if err := b.resolveByes(); err != nil {
		return nil, err
	}
	return b, nil
}

// First phase: one row per (round, position) without any successor reference.
func layout(tournamentID uuid.UUID, totalRounds int) *Bracket {
	total := int(math.Pow(2, float64(totalRounds))) - 1
	b := &Bracket{
		TournamentID: tournamentID,
		Rounds:       totalRounds,
		Matches:      make([]Match, 0, total),
	}

	for r := 1; r <= totalRounds; r++ {
		matchesInRound := int(math.Pow(2, float64(totalRounds-r)))
		for p := 1; p <= matchesInRound; p++ {
			b.Matches = append(b.Matches, Match{
				ID:           uuid.New(),
				TournamentID: tournamentID,
				Round:        r,
				Position:     p,
				Status:       MatchPending,
			})
		}
	}

	b.reindex()
	return b
}

// Second phase: every row exists, so the successor ids can be resolved
// through the (round, position) lookup.
func (b *Bracket) link() []SuccessorLink {
	links := make([]SuccessorLink, 0, len(b.Matches)-1)
	for i := range b.Matches {
		m := &b.Matches[i]
		if m.Round == b.Rounds {
			continue
		}
		next := b.At(m.Round+1, NextPosition(m.Position))
		nextID := next.ID
		m.NextMatchID = &nextID
		links = append(links, SuccessorLink{MatchID: m.ID, NextMatchID: nextID})
	}
	return links
}

func (b *Bracket) resolveByes() error {
	for i := range b.Matches {
		m := &b.Matches[i]
		if m.Round != 1 {
			continue
		}

		var present *uuid.UUID
		switch {
		case m.TeamAID != nil && m.TeamBID != nil:
			continue
		case m.TeamAID != nil:
			present = m.TeamAID
		case m.TeamBID != nil:
			present = m.TeamBID
		default:
			return fmt.Errorf("round 1 match %d has two byes", m.Position)
		}

		winner := *present
		m.WinnerTeamID = &winner
		m.Status = MatchBye
		if err := b.propagate(m); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bracket) reindex() {
	b.byKey = make(map[matchKey]int, len(b.Matches))
	b.byID = make(map[uuid.UUID]int, len(b.Matches))
	for i, m := range b.Matches {
		b.byKey[matchKey{m.Round, m.Position}] = i
		b.byID[m.ID] = i
	}
	b.graph = nil
}

// At returns the match at round/position or nil.
func (b *Bracket) At(round, position int) *Match {
	i, ok := b.byKey[matchKey{round, position}]
	if !ok {
		return nil
	}
	return &b.Matches[i]
}

func (b *Bracket) Get(id uuid.UUID) *Match {
	i, ok := b.byID[id]
	if !ok {
		return nil
	}
	return &b.Matches[i]
}

func (b *Bracket) Round(round int) []*Match {
	var out []*Match
	for i := range b.Matches {
		if b.Matches[i].Round == round {
			out = append(out, &b.Matches[i])
		}
	}
	return out
}

func (b *Bracket) Final() *Match {
	return b.At(b.Rounds, 1)
}

// Champion is the winner of the final, if it has been played.
func (b *Bracket) Champion() *uuid.UUID {
	final := b.Final()
	if final == nil || !final.Resolved() {
		return nil
	}
	return final.WinnerTeamID
}

// FromMatches rebuilds the arena from persisted rows.
func FromMatches(tournamentID uuid.UUID, matches []Match) (*Bracket, error) {
	if !isPowerOfTwo(len(matches) + 1) {
		return nil, fmt.Errorf("%w: %d matches", ErrInvalidEntrantCount, len(matches))
	}

	b := &Bracket{
		TournamentID: tournamentID,
		Rounds:       int(math.Log2(float64(len(matches) + 1))),
		Matches:      append([]Match(nil), matches...),
	}
	b.reindex()

	if len(b.byKey) != len(b.Matches) {
		return nil, fmt.Errorf("duplicate round/position in bracket %s", tournamentID)
	}
	for _, m := range b.Matches {
		if m.NextMatchID != nil {
			b.Links = append(b.Links, SuccessorLink{MatchID: m.ID, NextMatchID: *m.NextMatchID})
		}
	}
	return b, nil
}
