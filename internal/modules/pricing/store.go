// README: Fare config store backed by PostgreSQL (append-only, latest row wins).
package pricing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hatid/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Latest(ctx context.Context) (Config, bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT base_fare, rate_per_km, updated_by, created_at
		FROM fare_configs
		ORDER BY created_at DESC
		LIMIT 1`)

	var cfg Config
	var updatedBy *string
	err := row.Scan(&cfg.BaseFare, &cfg.RatePerKm, &updatedBy, &cfg.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Config{}, false, nil
	}
	if err != nil {
		return Config{}, false, err
	}
	if updatedBy != nil {
		id := types.ID(*updatedBy)
		cfg.UpdatedBy = &id
	}
	return cfg, true, nil
}

func (s *Store) Save(ctx context.Context, cfg Config) error {
	var updatedBy *string
	if cfg.UpdatedBy != nil {
		v := string(*cfg.UpdatedBy)
		updatedBy = &v
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO fare_configs (base_fare, rate_per_km, updated_by, created_at)
		VALUES ($1, $2, $3, $4)`,
		cfg.BaseFare, cfg.RatePerKm, updatedBy, cfg.CreatedAt,
	)
	return err
}
