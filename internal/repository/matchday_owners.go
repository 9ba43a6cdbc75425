package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"rinkcenter/internal/domain"
)

// MatchdayOwnerRepository caches matchday-owner lookups.
type MatchdayOwnerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMatchdayOwnerRepository(db *sql.DB, logger zerolog.Logger) *MatchdayOwnerRepository {
	return &MatchdayOwnerRepository{db: db, logger: logger}
}

// Get returns the cached owner for a matchday, or nil when the matchday
// is not cached or the cache entry is older than ttl.
func (r *MatchdayOwnerRepository) Get(ctx context.Context, matchdayID string, ttl time.Duration) (*domain.MatchdayOwner, error) {
	var owner domain.MatchdayOwner
	var fetchedAt time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT matchday_id, club_id, club_name, fetched_at FROM matchday_owners WHERE matchday_id = ?`,
		matchdayID).Scan(&owner.MatchdayID, &owner.ClubID, &owner.ClubName, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Since(fetchedAt) > ttl {
		r.logger.Debug().Str("matchday_id", matchdayID).Msg("matchday owner cache entry expired")
		return nil, nil
	}
	return &owner, nil
}

func (r *MatchdayOwnerRepository) Upsert(ctx context.Context, owner *domain.MatchdayOwner) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO matchday_owners (matchday_id, club_id, club_name, fetched_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(matchday_id) DO UPDATE SET
		   club_id = excluded.club_id,
		   club_name = excluded.club_name,
		   fetched_at = excluded.fetched_at`,
		owner.MatchdayID, owner.ClubID, owner.ClubName, time.Now())
	return err
}
