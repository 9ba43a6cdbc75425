package fx

import (
	"time"

	"go.uber.org/fx"

	"rinkcenter/internal/api"
	"rinkcenter/internal/authz"
	"rinkcenter/internal/config"
	"rinkcenter/internal/database"
	"rinkcenter/internal/domain"
	"rinkcenter/internal/logger"
	"rinkcenter/internal/repository"
	"rinkcenter/internal/server"
	"rinkcenter/internal/service"
)

func ProvideLeagueAPI(client *api.Client) service.LeagueAPI {
	return client
}

func ProvideClock() service.Clock {
	return time.Now
}

// ProvideSupplementaryPolicy is the stand-in for the league's external
// supplementary-sheet permission service: league admins and the home
// club's admin may edit the sheet.
func ProvideSupplementaryPolicy() authz.SupplementaryPolicy {
	return func(actor domain.Actor, match *domain.Match) bool {
		if actor.IsLeagueLevel() {
			return true
		}
		return actor.HasRole(domain.RoleClubAdmin) && actor.ClubID != "" && actor.ClubID == match.Home.ClubID
	}
}

func ProvideResolver(policy authz.SupplementaryPolicy) *authz.Resolver {
	return authz.NewResolver(policy)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewPenaltyCodeRepository),
	fx.Provide(repository.NewMatchdayOwnerRepository),
	// api client
	fx.Provide(api.NewClient),
	fx.Provide(ProvideLeagueAPI),
	// authz
	fx.Provide(ProvideSupplementaryPolicy),
	fx.Provide(ProvideResolver),
	// svc
	fx.Provide(ProvideClock),
	fx.Provide(service.NewMatchService),
	// server
	fx.Provide(server.NewServer),
)
