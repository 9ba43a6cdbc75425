package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"rinkcenter/internal/domain"
)

// PollSession periodically re-fetches one match view while the match is
// in progress. It is owned by whoever renders the live view and must be
// stopped on teardown; it also stops itself once the match leaves
// INPROGRESS.
type PollSession struct {
	matchID string
	actor   domain.Actor
	svc     *MatchService
	updates chan *MatchView
	cancel  context.CancelFunc
	done    chan struct{}
	logger  zerolog.Logger
}

// WatchMatch starts a poll session for the given match. The first
// snapshot arrives on Updates after one poll interval.
func (s *MatchService) WatchMatch(ctx context.Context, matchID string, actor domain.Actor) *PollSession {
	ctx, cancel := context.WithCancel(ctx)
	p := &PollSession{
		matchID: matchID,
		actor:   actor,
		svc:     s,
		updates: make(chan *MatchView, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
		logger:  s.logger.With().Str("match_id", matchID).Logger(),
	}
	go p.run(ctx, s.cfg.PollInterval)
	return p
}

// Updates delivers match snapshots; closed when the session ends.
func (p *PollSession) Updates() <-chan *MatchView {
	return p.updates
}

// Stop tears the session down. Safe to call more than once.
func (p *PollSession) Stop() {
	p.cancel()
	<-p.done
}

func (p *PollSession) run(ctx context.Context, interval time.Duration) {
	defer close(p.done)
	defer close(p.updates)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Debug().Dur("interval", interval).Msg("poll session started")

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug().Msg("poll session cancelled")
			return
		case <-ticker.C:
			view, err := p.svc.GetMatchView(ctx, p.matchID, p.actor)
			if err != nil {
				// surfaced on the next successful poll; no tight retry
				p.logger.Warn().Err(err).Msg("live poll failed")
				continue
			}
			if view.Match.ID != p.matchID {
				p.logger.Warn().Str("got", view.Match.ID).Msg("dropping stale poll response")
				continue
			}

			select {
			case p.updates <- view:
			case <-ctx.Done():
				return
			default:
				// consumer lagging: replace the pending snapshot
				select {
				case <-p.updates:
				default:
				}
				p.updates <- view
			}

			if view.Match.Status != domain.StatusInProgress {
				p.logger.Info().Str("status", string(view.Match.Status)).Msg("match left INPROGRESS, stopping poll")
				return
			}
		}
	}
}
