package domain

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleLeagueAdmin Role = "LEAGUE_ADMIN"
	RoleClubAdmin   Role = "CLUB_ADMIN"
)

// Actor is the acting user as asserted by the gateway. An Actor with no
// roles and no club is anonymous.
type Actor struct {
	Roles  []Role
	ClubID string
}

func (a Actor) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsLeagueLevel reports whether the actor holds league-wide admin rights.
func (a Actor) IsLeagueLevel() bool {
	return a.HasRole(RoleAdmin) || a.HasRole(RoleLeagueAdmin)
}

// KeyValue is the upstream {key, value} pair: key is the stable enum
// token, value a display label the core never interprets.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Ref points at a tournament/season/round/matchday entity by id and alias.
type Ref struct {
	ID    string `json:"id"`
	Alias string `json:"alias"`
}

type MatchStatus string

const (
	StatusScheduled  MatchStatus = "SCHEDULED"
	StatusInProgress MatchStatus = "INPROGRESS"
	StatusFinished   MatchStatus = "FINISHED"
	StatusCancelled  MatchStatus = "CANCELLED"
	StatusForfeited  MatchStatus = "FORFEITED"
)

type FinishType string

const (
	FinishRegular  FinishType = "REGULAR"
	FinishOvertime FinishType = "OVERTIME"
	FinishShootout FinishType = "SHOOTOUT"
)

type Match struct {
	ID              string              `json:"id"`
	Tournament      Ref                 `json:"tournament"`
	Season          Ref                 `json:"season"`
	Round           Ref                 `json:"round"`
	Matchday        Ref                 `json:"matchday"`
	Venue           string              `json:"venue"`
	StartDate       time.Time           `json:"startDate"`
	Status          MatchStatus         `json:"matchStatus"`
	StatusLabel     string              `json:"matchStatusLabel"`
	FinishType      FinishType          `json:"finishType,omitempty"`
	FinishTypeLabel string              `json:"finishTypeLabel,omitempty"`
	Home            TeamSide            `json:"home"`
	Away            TeamSide            `json:"away"`
	Referee1        *RefereeAssignment  `json:"referee1,omitempty"`
	Referee2        *RefereeAssignment  `json:"referee2,omitempty"`
	Supplementary   *SupplementarySheet `json:"supplementarySheet,omitempty"`
}

// Side selects one of the two team sides of a match.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

func (m *Match) SideOf(side Side) *TeamSide {
	if side == SideAway {
		return &m.Away
	}
	return &m.Home
}

type TeamSide struct {
	ClubID          string         `json:"clubId"`
	TeamName        string         `json:"teamName"`
	ShortName       string         `json:"shortName"`
	Logo            string         `json:"logo"`
	Roster          []RosterEntry  `json:"roster"`
	RosterPublished bool           `json:"rosterPublished"`
	Scores          []GoalEvent    `json:"scores"`
	Penalties       []PenaltyEvent `json:"penalties"`
	Stats           TeamStats      `json:"stats"`
}

type TeamStats struct {
	GoalsFor int `json:"goalsFor"`
}

// PlayerRef is the player snapshot embedded in rosters and events.
type PlayerRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Jersey int    `json:"jersey"`
}

// RosterEntry registers a player for one side of a match. Position is
// C, A, G or F; Called marks a player called up from another roster.
type RosterEntry struct {
	Player     PlayerRef `json:"player"`
	Position   string    `json:"playerPosition"`
	PassNumber string    `json:"passNumber"`
	Called     bool      `json:"called"`
}

type GoalEvent struct {
	ID        string     `json:"id,omitempty"`
	MatchTime string     `json:"matchTime"`
	Scorer    PlayerRef  `json:"goalPlayer"`
	Assist    *PlayerRef `json:"assistPlayer,omitempty"`
	PPG       bool       `json:"isPPG"`
	SHG       bool       `json:"isSHG"`
	GWG       bool       `json:"isGWG"`
}

type PenaltyEvent struct {
	ID        string    `json:"id,omitempty"`
	TimeStart string    `json:"matchTimeStart"`
	TimeEnd   string    `json:"matchTimeEnd,omitempty"`
	Player    PlayerRef `json:"penaltyPlayer"`
	Code      KeyValue  `json:"penaltyCode"`
	Minutes   int       `json:"penaltyMinutes"`
	GM        bool      `json:"isGM"`
	MP        bool      `json:"isMP"`
}

type RefereeAssignment struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Club   string `json:"club"`
	Level  string `json:"level"`
}

// SupplementarySheet is opaque to the core beyond the saved flag; the
// checklist payload passes through to the upstream API untouched.
type SupplementarySheet struct {
	Saved   bool            `json:"isSaved"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MatchdayOwner is the club hosting all matches of one matchday.
type MatchdayOwner struct {
	MatchdayID string `json:"matchdayId"`
	ClubID     string `json:"clubId"`
	ClubName   string `json:"clubName"`
}
