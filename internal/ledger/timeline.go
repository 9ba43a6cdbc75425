package ledger

import (
	"sort"

	"rinkcenter/internal/domain"
	"rinkcenter/internal/matchtime"
)

// TimelineGoal is one step of the merged goal timeline. HomeScore and
// AwayScore carry the running score after this goal counted.
type TimelineGoal struct {
	Side      domain.Side      `json:"side"`
	Goal      domain.GoalEvent `json:"goal"`
	Seconds   int              `json:"seconds"`
	HomeScore int              `json:"homeScore"`
	AwayScore int              `json:"awayScore"`
}

type TimelinePenalty struct {
	Side    domain.Side         `json:"side"`
	Penalty domain.PenaltyEvent `json:"penalty"`
	Seconds int                 `json:"seconds"`
}

// GoalTimeline merges both sides' goals, sorts them by elapsed time
// (stable, insertion order breaks ties) and walks the result to
// compute the running score.
func GoalTimeline(m *domain.Match) ([]TimelineGoal, error) {
	merged := make([]TimelineGoal, 0, len(m.Home.Scores)+len(m.Away.Scores))
	for _, g := range m.Home.Scores {
		secs, err := matchtime.TotalSeconds(g.MatchTime)
		if err != nil {
			return nil, err
		}
		merged = append(merged, TimelineGoal{Side: domain.SideHome, Goal: g, Seconds: secs})
	}
	for _, g := range m.Away.Scores {
		secs, err := matchtime.TotalSeconds(g.MatchTime)
		if err != nil {
			return nil, err
		}
		merged = append(merged, TimelineGoal{Side: domain.SideAway, Goal: g, Seconds: secs})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Seconds < merged[j].Seconds
	})

	home, away := 0, 0
	for i := range merged {
		if merged[i].Side == domain.SideHome {
			home++
		} else {
			away++
		}
		merged[i].HomeScore = home
		merged[i].AwayScore = away
	}
	return merged, nil
}

// PenaltyTimeline merges both sides' penalties ordered by their start time.
func PenaltyTimeline(m *domain.Match) ([]TimelinePenalty, error) {
	merged := make([]TimelinePenalty, 0, len(m.Home.Penalties)+len(m.Away.Penalties))
	for _, p := range m.Home.Penalties {
		secs, err := matchtime.TotalSeconds(p.TimeStart)
		if err != nil {
			return nil, err
		}
		merged = append(merged, TimelinePenalty{Side: domain.SideHome, Penalty: p, Seconds: secs})
	}
	for _, p := range m.Away.Penalties {
		secs, err := matchtime.TotalSeconds(p.TimeStart)
		if err != nil {
			return nil, err
		}
		merged = append(merged, TimelinePenalty{Side: domain.SideAway, Penalty: p, Seconds: secs})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Seconds < merged[j].Seconds
	})
	return merged, nil
}
