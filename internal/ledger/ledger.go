// Package ledger holds the append/update/remove operations over a
// side's goal and penalty collections and the derived views computed
// from them. Mutations validate first and apply all-or-nothing; the
// goalsFor aggregate is kept equal to the goal count after every
// operation.
package ledger

import (
	"fmt"

	"rinkcenter/internal/domain"
	"rinkcenter/internal/matchtime"
)

var allowedPenaltyMinutes = map[int]bool{2: true, 5: true, 10: true, 20: true}

func rosterHas(side *domain.TeamSide, playerID string) bool {
	for _, e := range side.Roster {
		if e.Player.ID == playerID {
			return true
		}
	}
	return false
}

func validateGoal(side *domain.TeamSide, goal domain.GoalEvent) error {
	if _, err := matchtime.TotalSeconds(goal.MatchTime); err != nil {
		return domain.NewFieldError("matchTime", err)
	}
	if goal.Scorer.ID == "" {
		return domain.NewFieldError("goalPlayer", fmt.Errorf("required"))
	}
	if !rosterHas(side, goal.Scorer.ID) {
		return domain.NewFieldError("goalPlayer", domain.ErrUnknownRosterPlayer)
	}
	if goal.Assist != nil {
		if !rosterHas(side, goal.Assist.ID) {
			return domain.NewFieldError("assistPlayer", domain.ErrUnknownRosterPlayer)
		}
		if goal.Assist.ID == goal.Scorer.ID {
			return domain.NewFieldError("assistPlayer", fmt.Errorf("assist must differ from scorer"))
		}
	}
	return nil
}

func validatePenalty(side *domain.TeamSide, p domain.PenaltyEvent) error {
	start, err := matchtime.TotalSeconds(p.TimeStart)
	if err != nil {
		return domain.NewFieldError("matchTimeStart", err)
	}
	if p.TimeEnd != "" {
		end, err := matchtime.TotalSeconds(p.TimeEnd)
		if err != nil {
			return domain.NewFieldError("matchTimeEnd", err)
		}
		if end < start {
			return domain.NewFieldError("matchTimeEnd", fmt.Errorf("must not be before matchTimeStart"))
		}
	}
	if p.Player.ID == "" {
		return domain.NewFieldError("penaltyPlayer", fmt.Errorf("required"))
	}
	if !rosterHas(side, p.Player.ID) {
		return domain.NewFieldError("penaltyPlayer", domain.ErrUnknownRosterPlayer)
	}
	if p.Code.Key == "" {
		return domain.NewFieldError("penaltyCode", fmt.Errorf("required"))
	}
	if !allowedPenaltyMinutes[p.Minutes] {
		return domain.NewFieldError("penaltyMinutes", fmt.Errorf("%d is not a valid penalty length", p.Minutes))
	}
	return nil
}

func syncGoals(side *domain.TeamSide) {
	side.Stats.GoalsFor = len(side.Scores)
}

// AddGoal validates and appends a goal to the side.
func AddGoal(side *domain.TeamSide, goal domain.GoalEvent) error {
	if err := validateGoal(side, goal); err != nil {
		return err
	}
	side.Scores = append(side.Scores, goal)
	syncGoals(side)
	return nil
}

// UpdateGoal replaces the goal with the given id in place.
func UpdateGoal(side *domain.TeamSide, id string, goal domain.GoalEvent) error {
	if err := validateGoal(side, goal); err != nil {
		return err
	}
	for i, g := range side.Scores {
		if g.ID == id {
			goal.ID = id
			side.Scores[i] = goal
			return nil
		}
	}
	return fmt.Errorf("goal %s: %w", id, domain.ErrNotFound)
}

func RemoveGoal(side *domain.TeamSide, id string) error {
	for i, g := range side.Scores {
		if g.ID == id {
			side.Scores = append(side.Scores[:i], side.Scores[i+1:]...)
			syncGoals(side)
			return nil
		}
	}
	return fmt.Errorf("goal %s: %w", id, domain.ErrNotFound)
}

func AddPenalty(side *domain.TeamSide, p domain.PenaltyEvent) error {
	if err := validatePenalty(side, p); err != nil {
		return err
	}
	side.Penalties = append(side.Penalties, p)
	return nil
}

func UpdatePenalty(side *domain.TeamSide, id string, p domain.PenaltyEvent) error {
	if err := validatePenalty(side, p); err != nil {
		return err
	}
	for i, existing := range side.Penalties {
		if existing.ID == id {
			p.ID = id
			side.Penalties[i] = p
			return nil
		}
	}
	return fmt.Errorf("penalty %s: %w", id, domain.ErrNotFound)
}

func RemovePenalty(side *domain.TeamSide, id string) error {
	for i, p := range side.Penalties {
		if p.ID == id {
			side.Penalties = append(side.Penalties[:i], side.Penalties[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("penalty %s: %w", id, domain.ErrNotFound)
}

// PenaltyMinutes sums the penalty lengths recorded against a side.
func PenaltyMinutes(side *domain.TeamSide) int {
	total := 0
	for _, p := range side.Penalties {
		total += p.Minutes
	}
	return total
}

// PenaltyMinutesByPlayer breaks the side's penalty minutes down per player.
func PenaltyMinutesByPlayer(side *domain.TeamSide) map[string]int {
	totals := make(map[string]int)
	for _, p := range side.Penalties {
		totals[p.Player.ID] += p.Minutes
	}
	return totals
}
