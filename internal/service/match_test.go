package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"rinkcenter/internal/authz"
	"rinkcenter/internal/config"
	"rinkcenter/internal/database"
	"rinkcenter/internal/domain"
	"rinkcenter/internal/repository"
)

const activeSeason = "2025-26"

var startDate = time.Date(2026, 2, 14, 18, 30, 0, 0, time.UTC)

// fakeLeague implements LeagueAPI over a single in-memory match.
type fakeLeague struct {
	mu               sync.Mutex
	match            *domain.Match
	owner            *domain.MatchdayOwner
	codes            []domain.KeyValue
	nextID           int
	calls            []string
	codeCalls        int
	failStatusPatch  error
	failGoalCommands error
}

func (f *fakeLeague) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeLeague) snapshot() *domain.Match {
	copied := *f.match
	return &copied
}

func (f *fakeLeague) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c != "GetMatch" && c != "MatchdayOwner" && c != "PenaltyCodes" {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeLeague) GetMatch(ctx context.Context, matchID string) (*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetMatch")
	if matchID != f.match.ID {
		return nil, domain.ErrNotFound
	}
	return f.snapshot(), nil
}

func (f *fakeLeague) PatchStatus(ctx context.Context, matchID string, status domain.MatchStatus) (*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PatchStatus")
	if f.failStatusPatch != nil {
		return nil, f.failStatusPatch
	}
	f.match.Status = status
	return f.snapshot(), nil
}

func (f *fakeLeague) PatchFinishType(ctx context.Context, matchID string, finishType domain.FinishType) (*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PatchFinishType")
	f.match.FinishType = finishType
	return f.snapshot(), nil
}

func (f *fakeLeague) AddGoal(ctx context.Context, matchID string, side domain.Side, goal domain.GoalEvent) (*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AddGoal")
	if f.failGoalCommands != nil {
		return nil, f.failGoalCommands
	}
	f.nextID++
	goal.ID = fmt.Sprintf("g%d", f.nextID)
	s := f.match.SideOf(side)
	s.Scores = append(s.Scores, goal)
	s.Stats.GoalsFor = len(s.Scores)
	return f.snapshot(), nil
}

func (f *fakeLeague) UpdateGoal(ctx context.Context, matchID string, side domain.Side, goalID string, goal domain.GoalEvent) (*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateGoal")
	s := f.match.SideOf(side)
	for i := range s.Scores {
		if s.Scores[i].ID == goalID {
			goal.ID = goalID
			s.Scores[i] = goal
		}
	}
	return f.snapshot(), nil
}

func (f *fakeLeague) DeleteGoal(ctx context.Context, matchID string, side domain.Side, goalID string) (*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteGoal")
	s := f.match.SideOf(side)
	for i := range s.Scores {
		if s.Scores[i].ID == goalID {
			s.Scores = append(s.Scores[:i], s.Scores[i+1:]...)
			break
		}
	}
	s.Stats.GoalsFor = len(s.Scores)
	return f.snapshot(), nil
}

func (f *fakeLeague) AddPenalty(ctx context.Context, matchID string, side domain.Side, penalty domain.PenaltyEvent) (*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AddPenalty")
	f.nextID++
	penalty.ID = fmt.Sprintf("p%d", f.nextID)
	s := f.match.SideOf(side)
	s.Penalties = append(s.Penalties, penalty)
	return f.snapshot(), nil
}

func (f *fakeLeague) UpdatePenalty(ctx context.Context, matchID string, side domain.Side, penaltyID string, penalty domain.PenaltyEvent) (*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdatePenalty")
	s := f.match.SideOf(side)
	for i := range s.Penalties {
		if s.Penalties[i].ID == penaltyID {
			penalty.ID = penaltyID
			s.Penalties[i] = penalty
		}
	}
	return f.snapshot(), nil
}

func (f *fakeLeague) DeletePenalty(ctx context.Context, matchID string, side domain.Side, penaltyID string) (*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeletePenalty")
	s := f.match.SideOf(side)
	for i := range s.Penalties {
		if s.Penalties[i].ID == penaltyID {
			s.Penalties = append(s.Penalties[:i], s.Penalties[i+1:]...)
			break
		}
	}
	return f.snapshot(), nil
}

func (f *fakeLeague) PatchSupplementary(ctx context.Context, matchID string, sheet domain.SupplementarySheet) (*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PatchSupplementary")
	sheet.Saved = true
	f.match.Supplementary = &sheet
	return f.snapshot(), nil
}

func (f *fakeLeague) PenaltyCodes(ctx context.Context) ([]domain.KeyValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PenaltyCodes")
	f.codeCalls++
	return f.codes, nil
}

func (f *fakeLeague) MatchdayOwner(ctx context.Context, matchdayID string) (*domain.MatchdayOwner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("MatchdayOwner")
	if f.owner == nil || f.owner.MatchdayID != matchdayID {
		return nil, domain.ErrNotFound
	}
	return f.owner, nil
}

func testMatch(status domain.MatchStatus) *domain.Match {
	return &domain.Match{
		ID:        "m1",
		Season:    domain.Ref{ID: "s1", Alias: activeSeason},
		Matchday:  domain.Ref{ID: "md1", Alias: "md-3"},
		StartDate: startDate,
		Status:    status,
		Home: domain.TeamSide{
			ClubID: "club-h",
			Roster: []domain.RosterEntry{
				{Player: domain.PlayerRef{ID: "p1", Jersey: 12}, Position: "C"},
				{Player: domain.PlayerRef{ID: "p2", Jersey: 7}, Position: "F"},
			},
		},
		Away: domain.TeamSide{
			ClubID: "club-a",
			Roster: []domain.RosterEntry{
				{Player: domain.PlayerRef{ID: "a1", Jersey: 9}, Position: "F"},
			},
		},
	}
}

func newTestService(t *testing.T, league LeagueAPI) *MatchService {
	t.Helper()
	logger := zerolog.Nop()
	cfg := &config.Config{
		ActiveSeason: activeSeason,
		DBPath:       filepath.Join(t.TempDir(), "cache.db"),
		PollInterval: 10 * time.Millisecond,
	}
	db, err := database.New(cfg, logger)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewMatchService(
		league,
		authz.NewResolver(nil),
		repository.NewMatchdayOwnerRepository(db, logger),
		repository.NewPenaltyCodeRepository(db, logger),
		cfg,
		func() time.Time { return startDate },
		logger,
	)
}

func leagueAdmin() domain.Actor {
	return domain.Actor{Roles: []domain.Role{domain.RoleLeagueAdmin}}
}

func clubAdmin(clubID string) domain.Actor {
	return domain.Actor{Roles: []domain.Role{domain.RoleClubAdmin}, ClubID: clubID}
}

func TestGetMatchView(t *testing.T) {
	league := &fakeLeague{
		match: testMatch(domain.StatusInProgress),
		codes: []domain.KeyValue{{Key: "TRIP", Value: "Beinstellen"}},
	}
	svc := newTestService(t, league)

	view, err := svc.GetMatchView(context.Background(), "m1", clubAdmin("club-h"))
	if err != nil {
		t.Fatalf("GetMatchView: %v", err)
	}
	if view.Match.ID != "m1" {
		t.Fatalf("match id = %s", view.Match.ID)
	}
	if !view.Permissions.CanRecordEventsHome || view.Permissions.CanRecordEventsAway {
		t.Fatalf("unexpected permissions: %+v", view.Permissions)
	}
	if len(view.PenaltyCodes) != 1 {
		t.Fatalf("penalty codes missing from view")
	}
	// roster ordered captain first
	if view.HomeRoster[0].Player.ID != "p1" {
		t.Fatalf("home roster not ordered: %+v", view.HomeRoster)
	}
}

func TestStartMatch(t *testing.T) {
	league := &fakeLeague{match: testMatch(domain.StatusScheduled)}
	svc := newTestService(t, league)

	view, err := svc.StartMatch(context.Background(), "m1", leagueAdmin())
	if err != nil {
		t.Fatalf("StartMatch: %v", err)
	}
	if view.Match.Status != domain.StatusInProgress {
		t.Fatalf("status = %s", view.Match.Status)
	}
}

func TestStartMatch_PermissionDenied(t *testing.T) {
	league := &fakeLeague{match: testMatch(domain.StatusScheduled)}
	svc := newTestService(t, league)

	_, err := svc.StartMatch(context.Background(), "m1", domain.Actor{})
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	if cmds := league.commands(); len(cmds) != 0 {
		t.Fatalf("denied action reached upstream: %v", cmds)
	}
}

func TestFinishMatch(t *testing.T) {
	league := &fakeLeague{match: testMatch(domain.StatusInProgress)}
	svc := newTestService(t, league)

	view, err := svc.FinishMatch(context.Background(), "m1", leagueAdmin(), domain.FinishOvertime)
	if err != nil {
		t.Fatalf("FinishMatch: %v", err)
	}
	if view.Match.Status != domain.StatusFinished {
		t.Fatalf("status = %s", view.Match.Status)
	}
	if league.match.FinishType != domain.FinishOvertime {
		t.Fatalf("finish type not persisted: %s", league.match.FinishType)
	}
}

func TestFinishMatch_MissingType(t *testing.T) {
	league := &fakeLeague{match: testMatch(domain.StatusInProgress)}
	svc := newTestService(t, league)

	_, err := svc.FinishMatch(context.Background(), "m1", leagueAdmin(), "")
	if !errors.Is(err, domain.ErrMissingFinishType) {
		t.Fatalf("err = %v, want ErrMissingFinishType", err)
	}
	if cmds := league.commands(); len(cmds) != 0 {
		t.Fatalf("invalid finish reached upstream: %v", cmds)
	}
}

func TestStartMatch_InvalidFromFinished(t *testing.T) {
	league := &fakeLeague{match: testMatch(domain.StatusFinished)}
	svc := newTestService(t, league)

	// a finished match is read-only, so the gate fires before the
	// state machine does
	_, err := svc.StartMatch(context.Background(), "m1", leagueAdmin())
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestStartMatch_StaleUpstream(t *testing.T) {
	league := &fakeLeague{match: testMatch(domain.StatusScheduled), failStatusPatch: domain.ErrStaleMatch}
	svc := newTestService(t, league)

	_, err := svc.StartMatch(context.Background(), "m1", leagueAdmin())
	if !errors.Is(err, domain.ErrStaleMatch) {
		t.Fatalf("err = %v, want ErrStaleMatch", err)
	}
}

func TestAddGoal(t *testing.T) {
	league := &fakeLeague{match: testMatch(domain.StatusInProgress)}
	svc := newTestService(t, league)

	goal := domain.GoalEvent{MatchTime: "12:30", Scorer: domain.PlayerRef{ID: "p1"}}
	view, err := svc.AddGoal(context.Background(), "m1", domain.SideHome, clubAdmin("club-h"), goal)
	if err != nil {
		t.Fatalf("AddGoal: %v", err)
	}
	if len(view.Goals) != 1 || view.Goals[0].HomeScore != 1 || view.Goals[0].AwayScore != 0 {
		t.Fatalf("timeline wrong: %+v", view.Goals)
	}
	if view.Match.Home.Stats.GoalsFor != 1 {
		t.Fatalf("goalsFor = %d", view.Match.Home.Stats.GoalsFor)
	}
}

func TestAddGoal_ValidationShortCircuits(t *testing.T) {
	league := &fakeLeague{match: testMatch(domain.StatusInProgress)}
	svc := newTestService(t, league)

	cases := []domain.GoalEvent{
		{MatchTime: "12:75", Scorer: domain.PlayerRef{ID: "p1"}},
		{MatchTime: "12:30", Scorer: domain.PlayerRef{ID: "stranger"}},
	}
	for _, goal := range cases {
		if _, err := svc.AddGoal(context.Background(), "m1", domain.SideHome, clubAdmin("club-h"), goal); err == nil {
			t.Fatalf("invalid goal %+v accepted", goal)
		}
	}
	if cmds := league.commands(); len(cmds) != 0 {
		t.Fatalf("invalid goals reached upstream: %v", cmds)
	}
}

func TestAddGoal_AwayClubDenied(t *testing.T) {
	league := &fakeLeague{match: testMatch(domain.StatusInProgress)}
	svc := newTestService(t, league)

	goal := domain.GoalEvent{MatchTime: "12:30", Scorer: domain.PlayerRef{ID: "a1"}}
	_, err := svc.AddGoal(context.Background(), "m1", domain.SideAway, clubAdmin("club-a"), goal)
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestAddPenalty_EndBeforeStartRejected(t *testing.T) {
	league := &fakeLeague{match: testMatch(domain.StatusInProgress)}
	svc := newTestService(t, league)

	penalty := domain.PenaltyEvent{
		TimeStart: "14:00",
		TimeEnd:   "12:00",
		Player:    domain.PlayerRef{ID: "p1"},
		Code:      domain.KeyValue{Key: "TRIP"},
		Minutes:   2,
	}
	if _, err := svc.AddPenalty(context.Background(), "m1", domain.SideHome, clubAdmin("club-h"), penalty); err == nil {
		t.Fatalf("penalty with end before start accepted")
	}
	if cmds := league.commands(); len(cmds) != 0 {
		t.Fatalf("invalid penalty reached upstream: %v", cmds)
	}
	if len(league.match.Home.Penalties) != 0 {
		t.Fatalf("penalty list changed")
	}
}

func TestMatchdayOwnerGrantsHostPermissions(t *testing.T) {
	league := &fakeLeague{
		match: testMatch(domain.StatusScheduled),
		owner: &domain.MatchdayOwner{MatchdayID: "md1", ClubID: "club-host", ClubName: "Host"},
	}
	svc := newTestService(t, league)

	view, err := svc.GetMatchView(context.Background(), "m1", clubAdmin("club-host"))
	if err != nil {
		t.Fatalf("GetMatchView: %v", err)
	}
	if !view.Permissions.CanChangeStatus || !view.Permissions.CanRecordEventsAway {
		t.Fatalf("host permissions missing: %+v", view.Permissions)
	}
}

func TestPenaltyCodes_CachedAfterFirstFetch(t *testing.T) {
	league := &fakeLeague{
		match: testMatch(domain.StatusScheduled),
		codes: []domain.KeyValue{{Key: "TRIP", Value: "Beinstellen"}, {Key: "HOLD", Value: "Halten"}},
	}
	svc := newTestService(t, league)

	for i := 0; i < 3; i++ {
		codes, err := svc.PenaltyCodes(context.Background())
		if err != nil {
			t.Fatalf("PenaltyCodes: %v", err)
		}
		if len(codes) != 2 {
			t.Fatalf("codes = %v", codes)
		}
	}
	if league.codeCalls != 1 {
		t.Fatalf("upstream fetched %d times, want 1", league.codeCalls)
	}
}

func TestSaveSupplementary_DeniedWithoutPolicy(t *testing.T) {
	league := &fakeLeague{match: testMatch(domain.StatusInProgress)}
	svc := newTestService(t, league)

	_, err := svc.SaveSupplementary(context.Background(), "m1", leagueAdmin(), domain.SupplementarySheet{})
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
}
