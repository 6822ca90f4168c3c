package bracket

import (
	"fmt"
	"math/bits"
	"sort"

	"github.com/google/uuid"
)

// MinEntrants is the smallest field a bracket is generated for.
const MinEntrants = 4

// BracketSize returns the smallest power of two holding count entrants.
func BracketSize(count int) int {
	if count <= 0 {
		return 0
	}
	return 1 << bits.Len(uint(count-1))
}

// round1Pairs lists round 1 matchups as indexes into the seed order. The
// order starts as [0] and each pass interleaves every index i with its mirror
// 2n-1-i, so seeds 0 and 1 sit in opposite halves and the indexes past the
// entrant count (byes) face the top seeds. Consecutive pairs share a round 2
// match.
func round1Pairs(size int) [][2]int {
	order := []int{0}
	for len(order) < size {
		mirror := 2*len(order) - 1
		next := make([]int, 0, 2*len(order))
		for _, idx := range order {
			next = append(next, idx, mirror-idx)
		}
		order = next
	}

	pairs := make([][2]int, 0, size/2)
	for i := 0; i+1 < len(order); i += 2 {
		pairs = append(pairs, [2]int{order[i], order[i+1]})
	}
	return pairs
}

// SeedOrder sorts teams into seed order: seeded teams ascending by seed,
// then unseeded teams in the order they were passed in. The sort is stable
// so equal seeds keep their input order too.
func SeedOrder(teams []Team) []Team {
	ordered := make([]Team, len(teams))
	copy(ordered, teams)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].Seed, ordered[j].Seed
		switch {
		case a != nil && b != nil:
			return *a < *b
		case a != nil:
			return true
		default:
			return false
		}
	})
	return ordered
}

// NormalizeSeeds turns the eligible teams into the padded slot list consumed
// by Build. Slots 2i-1 and 2i (1-indexed) form round 1 match i; nil slots are byes.
func NormalizeSeeds(teams []Team) ([]*uuid.UUID, error) {
	if len(teams) < MinEntrants {
		return nil, fmt.Errorf("%w: found %d", ErrInsufficientEntrants, len(teams))
	}

	ordered := SeedOrder(teams)
	size := BracketSize(len(ordered))
	slots := make([]*uuid.UUID, size)

	for i, pair := range round1Pairs(size) {
		for side, seedIdx := range pair {
			if seedIdx < len(ordered) {
				id := ordered[seedIdx].ID
				slots[2*i+side] = &id
			}
		}
	}

	return slots, nil
}
