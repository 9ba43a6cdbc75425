package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"rinkcenter/internal/domain"
)

// PenaltyCodeRepository caches the upstream penalty code table locally.
type PenaltyCodeRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPenaltyCodeRepository(db *sql.DB, logger zerolog.Logger) *PenaltyCodeRepository {
	return &PenaltyCodeRepository{db: db, logger: logger}
}

func (r *PenaltyCodeRepository) List(ctx context.Context) ([]domain.KeyValue, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM penalty_codes ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []domain.KeyValue
	for rows.Next() {
		var kv domain.KeyValue
		if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
			return nil, err
		}
		codes = append(codes, kv)
	}
	return codes, rows.Err()
}

// ReplaceAll swaps the cached table for a fresh upstream snapshot.
func (r *PenaltyCodeRepository) ReplaceAll(ctx context.Context, codes []domain.KeyValue) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM penalty_codes`); err != nil {
		return fmt.Errorf("failed to clear penalty codes: %w", err)
	}

	now := time.Now()
	for _, code := range codes {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO penalty_codes (key, value, fetched_at) VALUES (?, ?, ?)`,
			code.Key, code.Value, now)
		if err != nil {
			return fmt.Errorf("failed to insert penalty code %s: %w", code.Key, err)
		}
	}

	return tx.Commit()
}

// ShouldRefresh reports whether the cache is empty or older than ttl.
func (r *PenaltyCodeRepository) ShouldRefresh(ctx context.Context, ttl time.Duration) (bool, error) {
	var fetchedAt time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT fetched_at FROM penalty_codes ORDER BY fetched_at DESC LIMIT 1`).Scan(&fetchedAt)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return true, err
	}
	return time.Since(fetchedAt) > ttl, nil
}
