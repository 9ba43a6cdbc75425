// Package state owns the match status lifecycle: which transitions are
// legal and what applying one does to the match.
package state

import (
	"fmt"

	"rinkcenter/internal/domain"
)

type Action string

const (
	ActionStart   Action = "start"
	ActionFinish  Action = "finish"
	ActionCancel  Action = "cancel"
	ActionForfeit Action = "forfeit"
)

// Display labels ride along as data; only the status key drives logic.
var statusLabels = map[domain.MatchStatus]string{
	domain.StatusScheduled:  "Angesetzt",
	domain.StatusInProgress: "Läuft",
	domain.StatusFinished:   "Beendet",
	domain.StatusCancelled:  "Abgesagt",
	domain.StatusForfeited:  "Gewertet",
}

var finishLabels = map[domain.FinishType]string{
	domain.FinishRegular:  "Regulär",
	domain.FinishOvertime: "Verlängerung",
	domain.FinishShootout: "Penaltyschießen",
}

// transitions holds every legal (state, action) pair. Forfeit is an
// administrative override reachable from any state and handled in Next.
var transitions = map[domain.MatchStatus]map[Action]domain.MatchStatus{
	domain.StatusScheduled: {
		ActionStart:  domain.StatusInProgress,
		ActionCancel: domain.StatusCancelled,
	},
	domain.StatusInProgress: {
		ActionFinish: domain.StatusFinished,
	},
}

func StatusLabel(s domain.MatchStatus) string {
	return statusLabels[s]
}

func FinishLabel(ft domain.FinishType) string {
	return finishLabels[ft]
}

// Next resolves the target status for an action from the given state.
func Next(from domain.MatchStatus, action Action) (domain.MatchStatus, bool) {
	if action == ActionForfeit {
		return domain.StatusForfeited, true
	}
	to, ok := transitions[from][action]
	return to, ok
}

// Apply mutates the match according to the requested action. On an
// illegal request the match is left untouched and ErrInvalidTransition
// (or ErrMissingFinishType) is returned. Finishing freezes the display
// score at the goal counts current at the moment of transition.
func Apply(m *domain.Match, action Action, finishType domain.FinishType) error {
	to, ok := Next(m.Status, action)
	if !ok {
		return fmt.Errorf("%w: %s from %s", domain.ErrInvalidTransition, action, m.Status)
	}

	if action == ActionFinish {
		if finishType == "" {
			return domain.ErrMissingFinishType
		}
		if _, known := finishLabels[finishType]; !known {
			return fmt.Errorf("%w: unknown finish type %q", domain.ErrMissingFinishType, finishType)
		}
		m.FinishType = finishType
		m.FinishTypeLabel = finishLabels[finishType]
		m.Home.Stats.GoalsFor = len(m.Home.Scores)
		m.Away.Stats.GoalsFor = len(m.Away.Scores)
	}

	m.Status = to
	m.StatusLabel = statusLabels[to]
	return nil
}
