package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"rinkcenter/internal/authz"
	"rinkcenter/internal/config"
	"rinkcenter/internal/constants"
	"rinkcenter/internal/domain"
	"rinkcenter/internal/ledger"
	"rinkcenter/internal/repository"
	"rinkcenter/internal/roster"
	"rinkcenter/internal/state"
)

// LeagueAPI is the upstream match query/command surface the controller
// delegates persistence to.
type LeagueAPI interface {
	GetMatch(ctx context.Context, matchID string) (*domain.Match, error)
	PatchStatus(ctx context.Context, matchID string, status domain.MatchStatus) (*domain.Match, error)
	PatchFinishType(ctx context.Context, matchID string, finishType domain.FinishType) (*domain.Match, error)
	AddGoal(ctx context.Context, matchID string, side domain.Side, goal domain.GoalEvent) (*domain.Match, error)
	UpdateGoal(ctx context.Context, matchID string, side domain.Side, goalID string, goal domain.GoalEvent) (*domain.Match, error)
	DeleteGoal(ctx context.Context, matchID string, side domain.Side, goalID string) (*domain.Match, error)
	AddPenalty(ctx context.Context, matchID string, side domain.Side, penalty domain.PenaltyEvent) (*domain.Match, error)
	UpdatePenalty(ctx context.Context, matchID string, side domain.Side, penaltyID string, penalty domain.PenaltyEvent) (*domain.Match, error)
	DeletePenalty(ctx context.Context, matchID string, side domain.Side, penaltyID string) (*domain.Match, error)
	PatchSupplementary(ctx context.Context, matchID string, sheet domain.SupplementarySheet) (*domain.Match, error)
	PenaltyCodes(ctx context.Context) ([]domain.KeyValue, error)
	MatchdayOwner(ctx context.Context, matchdayID string) (*domain.MatchdayOwner, error)
}

// Clock supplies the current time; injected so permission windows are
// testable.
type Clock func() time.Time

// MatchView is everything a match-center client needs to render one
// match for one actor.
type MatchView struct {
	Match          *domain.Match           `json:"match"`
	HomeRoster     []domain.RosterEntry    `json:"homeRoster"`
	AwayRoster     []domain.RosterEntry    `json:"awayRoster"`
	Goals          []ledger.TimelineGoal   `json:"goals"`
	Penalties      []ledger.TimelinePenalty `json:"penalties"`
	PenaltyMinutes PenaltyMinuteTotals     `json:"penaltyMinutes"`
	PenaltyCodes   []domain.KeyValue       `json:"penaltyCodes"`
	Permissions    authz.PermissionSet     `json:"permissions"`
}

type PenaltyMinuteTotals struct {
	Home         int            `json:"home"`
	Away         int            `json:"away"`
	HomeByPlayer map[string]int `json:"homeByPlayer"`
	AwayByPlayer map[string]int `json:"awayByPlayer"`
}

type MatchService struct {
	league   LeagueAPI
	resolver *authz.Resolver
	owners   *repository.MatchdayOwnerRepository
	codes    *repository.PenaltyCodeRepository
	cfg      *config.Config
	clock    Clock
	logger   zerolog.Logger
}

func NewMatchService(
	league LeagueAPI,
	resolver *authz.Resolver,
	owners *repository.MatchdayOwnerRepository,
	codes *repository.PenaltyCodeRepository,
	cfg *config.Config,
	clock Clock,
	logger zerolog.Logger,
) *MatchService {
	return &MatchService{
		league:   league,
		resolver: resolver,
		owners:   owners,
		codes:    codes,
		cfg:      cfg,
		clock:    clock,
		logger:   logger,
	}
}

// GetMatchView loads the authoritative match plus its matchday owner
// and penalty codes and resolves the actor's permissions against it.
func (s *MatchService) GetMatchView(ctx context.Context, matchID string, actor domain.Actor) (*MatchView, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	match, err := s.league.GetMatch(ctx, matchID)
	if err != nil {
		s.logger.Error().Err(err).Str("match_id", matchID).Msg("failed to fetch match")
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)
	var owner *domain.MatchdayOwner
	var codes []domain.KeyValue

	g.Go(func() error {
		var err error
		owner, err = s.matchdayOwner(gCtx, match.Matchday.ID)
		return err
	})
	g.Go(func() error {
		var err error
		codes, err = s.PenaltyCodes(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("match_id", matchID).Msg("failed to load match collaborators")
		return nil, err
	}

	view, err := s.buildView(match, owner, actor)
	if err != nil {
		return nil, err
	}
	view.PenaltyCodes = codes
	return view, nil
}

// matchdayOwner resolves the owning club for a matchday, serving from
// the local cache when it is fresh. A matchday without an owner is nil,
// not an error.
func (s *MatchService) matchdayOwner(ctx context.Context, matchdayID string) (*domain.MatchdayOwner, error) {
	if matchdayID == "" {
		return nil, nil
	}

	cached, err := s.owners.Get(ctx, matchdayID, constants.MatchdayOwnerCacheTTL)
	if err != nil {
		s.logger.Warn().Err(err).Str("matchday_id", matchdayID).Msg("matchday owner cache read failed")
	}
	if cached != nil {
		return cached, nil
	}

	owner, err := s.league.MatchdayOwner(ctx, matchdayID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.owners.Upsert(ctx, owner); err != nil {
		s.logger.Warn().Err(err).Str("matchday_id", matchdayID).Msg("failed to cache matchday owner")
	}
	return owner, nil
}

// PenaltyCodes returns the penalty code table, refreshing the local
// cache from upstream when it has gone stale. A failed refresh falls
// back to the cached copy when one exists.
func (s *MatchService) PenaltyCodes(ctx context.Context) ([]domain.KeyValue, error) {
	refresh, err := s.codes.ShouldRefresh(ctx, constants.PenaltyCodeCacheTTL)
	if err != nil {
		s.logger.Warn().Err(err).Msg("penalty code cache check failed")
		refresh = true
	}

	if !refresh {
		return s.codes.List(ctx)
	}

	fresh, err := s.league.PenaltyCodes(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("penalty code refresh failed, trying cache")
		cached, cacheErr := s.codes.List(ctx)
		if cacheErr == nil && len(cached) > 0 {
			return cached, nil
		}
		return nil, err
	}

	if err := s.codes.ReplaceAll(ctx, fresh); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache penalty codes")
	}
	return fresh, nil
}

// authorize re-fetches the authoritative match and resolves the
// actor's permission set against it. Every mutation starts here.
func (s *MatchService) authorize(ctx context.Context, matchID string, actor domain.Actor) (*domain.Match, *domain.MatchdayOwner, authz.PermissionSet, error) {
	match, err := s.league.GetMatch(ctx, matchID)
	if err != nil {
		return nil, nil, authz.PermissionSet{}, err
	}
	owner, err := s.matchdayOwner(ctx, match.Matchday.ID)
	if err != nil {
		return nil, nil, authz.PermissionSet{}, err
	}
	perms := s.resolver.Resolve(authz.Input{
		Actor:        actor,
		Match:        match,
		Owner:        owner,
		Now:          s.clock(),
		ActiveSeason: s.cfg.ActiveSeason,
	})
	return match, owner, perms, nil
}

func (s *MatchService) buildView(match *domain.Match, owner *domain.MatchdayOwner, actor domain.Actor) (*MatchView, error) {
	goals, err := ledger.GoalTimeline(match)
	if err != nil {
		return nil, fmt.Errorf("goal timeline: %w", err)
	}
	penalties, err := ledger.PenaltyTimeline(match)
	if err != nil {
		return nil, fmt.Errorf("penalty timeline: %w", err)
	}

	perms := s.resolver.Resolve(authz.Input{
		Actor:        actor,
		Match:        match,
		Owner:        owner,
		Now:          s.clock(),
		ActiveSeason: s.cfg.ActiveSeason,
	})

	return &MatchView{
		Match:      match,
		HomeRoster: roster.Order(match.Home.Roster),
		AwayRoster: roster.Order(match.Away.Roster),
		Goals:      goals,
		Penalties:  penalties,
		PenaltyMinutes: PenaltyMinuteTotals{
			Home:         ledger.PenaltyMinutes(&match.Home),
			Away:         ledger.PenaltyMinutes(&match.Away),
			HomeByPlayer: ledger.PenaltyMinutesByPlayer(&match.Home),
			AwayByPlayer: ledger.PenaltyMinutesByPlayer(&match.Away),
		},
		Permissions: perms,
	}, nil
}

// refreshView rebuilds the view from the authoritative match a command
// returned.
func (s *MatchService) refreshView(ctx context.Context, match *domain.Match, actor domain.Actor) (*MatchView, error) {
	owner, err := s.matchdayOwner(ctx, match.Matchday.ID)
	if err != nil {
		return nil, err
	}
	return s.buildView(match, owner, actor)
}

// StartMatch moves a scheduled match in progress.
func (s *MatchService) StartMatch(ctx context.Context, matchID string, actor domain.Actor) (*MatchView, error) {
	return s.changeStatus(ctx, matchID, actor, state.ActionStart, "")
}

// FinishMatch ends a running match with the given finish type.
func (s *MatchService) FinishMatch(ctx context.Context, matchID string, actor domain.Actor, finishType domain.FinishType) (*MatchView, error) {
	return s.changeStatus(ctx, matchID, actor, state.ActionFinish, finishType)
}

// CancelMatch calls off a match that has not started.
func (s *MatchService) CancelMatch(ctx context.Context, matchID string, actor domain.Actor) (*MatchView, error) {
	return s.changeStatus(ctx, matchID, actor, state.ActionCancel, "")
}

func (s *MatchService) changeStatus(ctx context.Context, matchID string, actor domain.Actor, action state.Action, finishType domain.FinishType) (*MatchView, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	match, _, perms, err := s.authorize(ctx, matchID, actor)
	if err != nil {
		return nil, err
	}
	if !perms.CanChangeStatus {
		return nil, fmt.Errorf("%w: status change on match %s", domain.ErrPermissionDenied, matchID)
	}

	// dry-run against a copy so an illegal request leaves nothing behind
	probe := *match
	if err := state.Apply(&probe, action, finishType); err != nil {
		return nil, err
	}

	if action == state.ActionFinish {
		if _, err := s.league.PatchFinishType(ctx, matchID, finishType); err != nil {
			return nil, err
		}
	}

	updated, err := s.league.PatchStatus(ctx, matchID, probe.Status)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("match_id", matchID).
		Str("action", string(action)).
		Str("status", string(updated.Status)).
		Msg("match status changed")
	return s.refreshView(ctx, updated, actor)
}

func (s *MatchService) canRecord(perms authz.PermissionSet, side domain.Side) bool {
	if side == domain.SideAway {
		return perms.CanRecordEventsAway
	}
	return perms.CanRecordEventsHome
}

// AddGoal validates a goal locally and records it upstream.
func (s *MatchService) AddGoal(ctx context.Context, matchID string, side domain.Side, actor domain.Actor, goal domain.GoalEvent) (*MatchView, error) {
	return s.recordEvent(ctx, matchID, side, actor, "goal added", func(match *domain.Match) error {
		probe := *match.SideOf(side)
		return ledger.AddGoal(&probe, goal)
	}, func(ctx context.Context) (*domain.Match, error) {
		return s.league.AddGoal(ctx, matchID, side, goal)
	})
}

func (s *MatchService) UpdateGoal(ctx context.Context, matchID string, side domain.Side, goalID string, actor domain.Actor, goal domain.GoalEvent) (*MatchView, error) {
	return s.recordEvent(ctx, matchID, side, actor, "goal updated", func(match *domain.Match) error {
		probe := *match.SideOf(side)
		return ledger.UpdateGoal(&probe, goalID, goal)
	}, func(ctx context.Context) (*domain.Match, error) {
		return s.league.UpdateGoal(ctx, matchID, side, goalID, goal)
	})
}

func (s *MatchService) RemoveGoal(ctx context.Context, matchID string, side domain.Side, goalID string, actor domain.Actor) (*MatchView, error) {
	return s.recordEvent(ctx, matchID, side, actor, "goal removed", func(match *domain.Match) error {
		probe := *match.SideOf(side)
		return ledger.RemoveGoal(&probe, goalID)
	}, func(ctx context.Context) (*domain.Match, error) {
		return s.league.DeleteGoal(ctx, matchID, side, goalID)
	})
}

func (s *MatchService) AddPenalty(ctx context.Context, matchID string, side domain.Side, actor domain.Actor, penalty domain.PenaltyEvent) (*MatchView, error) {
	return s.recordEvent(ctx, matchID, side, actor, "penalty added", func(match *domain.Match) error {
		probe := *match.SideOf(side)
		return ledger.AddPenalty(&probe, penalty)
	}, func(ctx context.Context) (*domain.Match, error) {
		return s.league.AddPenalty(ctx, matchID, side, penalty)
	})
}

func (s *MatchService) UpdatePenalty(ctx context.Context, matchID string, side domain.Side, penaltyID string, actor domain.Actor, penalty domain.PenaltyEvent) (*MatchView, error) {
	return s.recordEvent(ctx, matchID, side, actor, "penalty updated", func(match *domain.Match) error {
		probe := *match.SideOf(side)
		return ledger.UpdatePenalty(&probe, penaltyID, penalty)
	}, func(ctx context.Context) (*domain.Match, error) {
		return s.league.UpdatePenalty(ctx, matchID, side, penaltyID, penalty)
	})
}

func (s *MatchService) RemovePenalty(ctx context.Context, matchID string, side domain.Side, penaltyID string, actor domain.Actor) (*MatchView, error) {
	return s.recordEvent(ctx, matchID, side, actor, "penalty removed", func(match *domain.Match) error {
		probe := *match.SideOf(side)
		return ledger.RemovePenalty(&probe, penaltyID)
	}, func(ctx context.Context) (*domain.Match, error) {
		return s.league.DeletePenalty(ctx, matchID, side, penaltyID)
	})
}

// recordEvent is the shared path for all ledger mutations: re-fetch,
// permission check, local all-or-nothing validation against a copy of
// the side, then the upstream command.
func (s *MatchService) recordEvent(
	ctx context.Context,
	matchID string,
	side domain.Side,
	actor domain.Actor,
	logMsg string,
	validate func(*domain.Match) error,
	persist func(context.Context) (*domain.Match, error),
) (*MatchView, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	match, _, perms, err := s.authorize(ctx, matchID, actor)
	if err != nil {
		return nil, err
	}
	if !s.canRecord(perms, side) {
		return nil, fmt.Errorf("%w: event recording on %s side of match %s", domain.ErrPermissionDenied, side, matchID)
	}

	if err := validate(match); err != nil {
		return nil, err
	}

	updated, err := persist(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("match_id", matchID).Str("side", string(side)).Msg(logMsg)
	return s.refreshView(ctx, updated, actor)
}

// SaveSupplementary forwards the supplementary sheet upstream. The
// sheet permission comes from its own policy, not the match-edit rules.
func (s *MatchService) SaveSupplementary(ctx context.Context, matchID string, actor domain.Actor, sheet domain.SupplementarySheet) (*MatchView, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	_, _, perms, err := s.authorize(ctx, matchID, actor)
	if err != nil {
		return nil, err
	}
	if !perms.CanEditSupplementary {
		return nil, fmt.Errorf("%w: supplementary sheet on match %s", domain.ErrPermissionDenied, matchID)
	}

	updated, err := s.league.PatchSupplementary(ctx, matchID, sheet)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("match_id", matchID).Msg("supplementary sheet saved")
	return s.refreshView(ctx, updated, actor)
}
