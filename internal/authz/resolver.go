// Package authz computes what an actor may do to a match. The resolver
// is a pure function of its input: every rule is a predicate-to-grant
// mapping, grants are unioned, and a global season/status gate can
// force everything back to read-only.
package authz

import (
	"time"

	"rinkcenter/internal/constants"
	"rinkcenter/internal/domain"
)

type PermissionSet struct {
	CanEditRosterHome    bool `json:"canEditRosterHome"`
	CanEditRosterAway    bool `json:"canEditRosterAway"`
	CanRecordEventsHome  bool `json:"canRecordEventsHome"`
	CanRecordEventsAway  bool `json:"canRecordEventsAway"`
	CanChangeStatus      bool `json:"canChangeStatus"`
	CanEditSupplementary bool `json:"canEditSupplementary"`
}

// Input bundles everything a resolution depends on. Time and the
// active season are injected so the resolver never reads ambient state.
type Input struct {
	Actor        domain.Actor
	Match        *domain.Match
	Owner        *domain.MatchdayOwner
	Now          time.Time
	ActiveSeason string
}

// grant is the partial permission set one rule contributes.
type grant struct {
	rosterHome bool
	rosterAway bool
	eventsHome bool
	eventsAway bool
	status     bool
}

type rule struct {
	name    string
	applies func(Input) grant
}

// withinPreStart reports whether now has entered the 30-minute window
// before the scheduled start (or is past it).
func withinPreStart(in Input) bool {
	return !in.Now.Before(in.Match.StartDate.Add(-constants.PreStartWindow))
}

// onOrAfterMatchday reports whether the start date's calendar day is
// today or earlier, in the caller's clock location.
func onOrAfterMatchday(in Input) bool {
	start := in.Match.StartDate.In(in.Now.Location())
	sy, sm, sd := start.Date()
	ny, nm, nd := in.Now.Date()
	if sy != ny {
		return sy < ny
	}
	if sm != nm {
		return sm < nm
	}
	return sd <= nd
}

var rules = []rule{
	{
		// league admins may do everything, any time
		name: "league-admin",
		applies: func(in Input) grant {
			if !in.Actor.IsLeagueLevel() {
				return grant{}
			}
			return grant{rosterHome: true, rosterAway: true, eventsHome: true, eventsAway: true, status: true}
		},
	},
	{
		name: "home-club-admin",
		applies: func(in Input) grant {
			if !in.Actor.HasRole(domain.RoleClubAdmin) || in.Actor.ClubID == "" || in.Actor.ClubID != in.Match.Home.ClubID {
				return grant{}
			}
			g := grant{rosterHome: true}
			live := in.Match.Status == domain.StatusInProgress
			if withinPreStart(in) || live {
				g.rosterAway = true
				g.status = true
			}
			if live {
				g.eventsHome = true
			}
			return g
		},
	},
	{
		// the away club only prepares its roster; it records no events
		name: "away-club-admin",
		applies: func(in Input) grant {
			if !in.Actor.HasRole(domain.RoleClubAdmin) || in.Actor.ClubID == "" || in.Actor.ClubID != in.Match.Away.ClubID {
				return grant{}
			}
			return grant{rosterAway: true}
		},
	},
	{
		// the matchday host runs the table from matchday on
		name: "matchday-owner",
		applies: func(in Input) grant {
			if in.Owner == nil || in.Actor.ClubID == "" || in.Actor.ClubID != in.Owner.ClubID {
				return grant{}
			}
			if !onOrAfterMatchday(in) {
				return grant{}
			}
			return grant{rosterHome: true, rosterAway: true, eventsHome: true, eventsAway: true, status: true}
		},
	},
}

// SupplementaryPolicy decides the supplementary-sheet permission. It is
// an external collaborator and is not subject to the season/status gate.
type SupplementaryPolicy func(actor domain.Actor, match *domain.Match) bool

type Resolver struct {
	supplementary SupplementaryPolicy
}

func NewResolver(policy SupplementaryPolicy) *Resolver {
	return &Resolver{supplementary: policy}
}

// Resolve evaluates every rule, unions the grants and applies the
// global gate: a match outside the active season or no longer
// scheduled/in progress is read-only for everyone.
func (r *Resolver) Resolve(in Input) PermissionSet {
	var out PermissionSet
	for _, rl := range rules {
		g := rl.applies(in)
		out.CanEditRosterHome = out.CanEditRosterHome || g.rosterHome
		out.CanEditRosterAway = out.CanEditRosterAway || g.rosterAway
		out.CanRecordEventsHome = out.CanRecordEventsHome || g.eventsHome
		out.CanRecordEventsAway = out.CanRecordEventsAway || g.eventsAway
		out.CanChangeStatus = out.CanChangeStatus || g.status
	}

	editable := in.Match.Season.Alias == in.ActiveSeason &&
		(in.Match.Status == domain.StatusScheduled || in.Match.Status == domain.StatusInProgress)
	if !editable {
		out = PermissionSet{}
	}

	if r.supplementary != nil {
		out.CanEditSupplementary = r.supplementary(in.Actor, in.Match)
	}
	return out
}
