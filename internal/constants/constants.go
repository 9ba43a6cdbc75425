package constants

import "time"

const (
	// PreStartWindow is how long before the scheduled start clubs get
	// their extended match-day permissions.
	PreStartWindow = 30 * time.Minute

	// LivePollInterval is how often an INPROGRESS match view re-fetches.
	LivePollInterval = 30 * time.Second
)

const (
	PenaltyCodeCacheTTL   = 12 * time.Hour
	MatchdayOwnerCacheTTL = 1 * time.Hour
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)
