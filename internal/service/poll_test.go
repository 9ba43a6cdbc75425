package service

import (
	"context"
	"testing"
	"time"

	"rinkcenter/internal/domain"
)

func TestWatchMatch_DeliversSnapshotsAndStopsWhenFinished(t *testing.T) {
	league := &fakeLeague{match: testMatch(domain.StatusInProgress)}
	svc := newTestService(t, league)

	session := svc.WatchMatch(context.Background(), "m1", clubAdmin("club-h"))
	defer session.Stop()

	select {
	case view := <-session.Updates():
		if view == nil || view.Match.ID != "m1" {
			t.Fatalf("bad snapshot: %+v", view)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot delivered")
	}

	// finish the match; the session should emit the terminal snapshot
	// and close itself
	league.mu.Lock()
	league.match.Status = domain.StatusFinished
	league.mu.Unlock()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case view, ok := <-session.Updates():
			if !ok {
				return // closed after leaving INPROGRESS
			}
			_ = view
		case <-deadline:
			t.Fatalf("session did not stop after match finished")
		}
	}
}

func TestWatchMatch_StopIsIdempotentUnderTeardown(t *testing.T) {
	league := &fakeLeague{match: testMatch(domain.StatusInProgress)}
	svc := newTestService(t, league)

	session := svc.WatchMatch(context.Background(), "m1", clubAdmin("club-h"))
	session.Stop()

	// updates channel is closed after Stop returns
	if _, ok := <-session.Updates(); ok {
		// a buffered snapshot may still be pending; the channel must
		// close right after
		if _, ok := <-session.Updates(); ok {
			t.Fatalf("updates channel still open after Stop")
		}
	}
}
