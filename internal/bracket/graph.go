package bracket

import (
	"fmt"

	"github.com/dominikbraun/graph"
	"github.com/google/uuid"
)

func matchIDHash(id uuid.UUID) uuid.UUID {
	return id
}

// Graph returns the bracket as a directed graph with an edge from every match
// to its successor. The graph is built on first use and rejects cycles.
func (b *Bracket) Graph() (graph.Graph[uuid.UUID, uuid.UUID], error) {
	if b.graph != nil {
		return b.graph, nil
	}

	g := graph.New(matchIDHash, graph.Directed(), graph.Acyclic(), graph.PreventCycles())
	for _, m := range b.Matches {
		if err := g.AddVertex(m.ID); err != nil {
			return nil, fmt.Errorf("failed to add match %s: %w", m.ID, err)
		}
	}
	for _, m := range b.Matches {
		if m.NextMatchID == nil {
			continue
		}
		if err := g.AddEdge(m.ID, *m.NextMatchID); err != nil {
			return nil, fmt.Errorf("failed to link match %s to %s: %w", m.ID, *m.NextMatchID, err)
		}
	}

	b.graph = g
	return g, nil
}

// HopsToFinal counts the successor links followed from a match to the final.
func (b *Bracket) HopsToFinal(matchID uuid.UUID) (int, error) {
	g, err := b.Graph()
	if err != nil {
		return 0, err
	}
	final := b.Final()
	if final == nil {
		return 0, fmt.Errorf("bracket %s has no final", b.TournamentID)
	}

	// Every match has at most one successor, so the search visits the path
	// to the final in order.
	hops, visited := -1, 0
	err = graph.BFSWithDepth(g, matchID, func(id uuid.UUID, _ int) bool {
		if id == final.ID {
			hops = visited
			return true
		}
		visited++
		return false
	})
	if err != nil {
		return 0, err
	}
	if hops < 0 {
		return 0, fmt.Errorf("match %s does not reach the final", matchID)
	}
	return hops, nil
}

// Validate checks the structural invariants of the tree.
func (b *Bracket) Validate() error {
	expected := 1<<b.Rounds - 1
	if len(b.Matches) != expected {
		return fmt.Errorf("expected %d matches for %d rounds, got %d", expected, b.Rounds, len(b.Matches))
	}

	g, err := b.Graph()
	if err != nil {
		return err
	}
	predecessors, err := g.PredecessorMap()
	if err != nil {
		return err
	}

	finals := 0
	for _, m := range b.Matches {
		if m.NextMatchID == nil {
			finals++
			if m.Round != b.Rounds {
				return fmt.Errorf("match %s in round %d has no successor", m.ID, m.Round)
			}
		} else {
			next := b.Get(*m.NextMatchID)
			if next == nil {
				return fmt.Errorf("match %s links to unknown match %s", m.ID, *m.NextMatchID)
			}
			if next.Round != m.Round+1 || next.Position != NextPosition(m.Position) {
				return fmt.Errorf("match %s links to round %d position %d", m.ID, next.Round, next.Position)
			}
		}

		feeders := len(predecessors[m.ID])
		if (m.Round == 1 && feeders != 0) || (m.Round > 1 && feeders != 2) {
			return fmt.Errorf("match %s in round %d has %d feeding matches", m.ID, m.Round, feeders)
		}

		if m.Resolved() {
			if m.WinnerTeamID == nil || !m.HasTeam(*m.WinnerTeamID) {
				return fmt.Errorf("resolved match %s has no valid winner", m.ID)
			}
		} else if m.WinnerTeamID != nil {
			return fmt.Errorf("pending match %s has a winner", m.ID)
		}
	}

	if finals != 1 {
		return fmt.Errorf("expected exactly one final, got %d", finals)
	}
	return nil
}
