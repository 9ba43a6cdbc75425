// Package roster provides the display ordering for a team's match roster.
package roster

import (
	"sort"

	"rinkcenter/internal/domain"
)

// positionPriority orders captain, assistant, goalie, then everyone
// else; unknown positions sort last.
var positionPriority = map[string]int{
	"C": 1,
	"A": 2,
	"G": 3,
	"F": 4,
}

const unknownPriority = 99

func priority(position string) int {
	if p, ok := positionPriority[position]; ok {
		return p
	}
	return unknownPriority
}

// Order returns a new slice sorted by position priority then jersey
// number. The sort is stable and idempotent; the input is not modified.
func Order(entries []domain.RosterEntry) []domain.RosterEntry {
	out := make([]domain.RosterEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := priority(out[i].Position), priority(out[j].Position)
		if pi != pj {
			return pi < pj
		}
		return out[i].Player.Jersey < out[j].Player.Jersey
	})
	return out
}
