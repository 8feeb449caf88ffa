// README: Driver profile store backed by PostgreSQL (position, availability, rating aggregate).
package location

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

const profileColumns = `user_id, plate_number, is_online, location_lng, location_lat,
	total_ratings, average_rating, updated_at`

func scanProfile(row pgx.Row) (*DriverProfile, error) {
	var p DriverProfile
	var lng, lat float64
	err := row.Scan(&p.UserID, &p.Plate, &p.Online, &lng, &lat, &p.TotalRatings, &p.AverageRating, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Location = types.LngLat{lng, lat}
	return &p, nil
}

func (s *Store) Get(ctx context.Context, id types.ID) (*DriverProfile, error) {
	return scanProfile(s.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM driver_profiles WHERE user_id = $1`, string(id)))
}

func (s *Store) UpdateLocation(ctx context.Context, id types.ID, loc types.LngLat) (*DriverProfile, error) {
	return scanProfile(s.db.QueryRow(ctx, `
		UPDATE driver_profiles
		SET location_lng = $2, location_lat = $3, updated_at = NOW()
		WHERE user_id = $1
		RETURNING `+profileColumns,
		string(id), loc.Lng(), loc.Lat(),
	))
}

func (s *Store) SetOnline(ctx context.Context, id types.ID, online bool) (*DriverProfile, error) {
	return scanProfile(s.db.QueryRow(ctx, `
		UPDATE driver_profiles
		SET is_online = $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING `+profileColumns,
		string(id), online,
	))
}

// ApplyRating folds one rating into the running average in a single statement,
// so concurrent ratings for the same driver cannot lose updates.
func (s *Store) ApplyRating(ctx context.Context, id types.ID, rating int) (Aggregate, error) {
	var agg Aggregate
	err := s.db.QueryRow(ctx, `
		UPDATE driver_profiles
		SET average_rating = ROUND(((average_rating * total_ratings + $2) / (total_ratings + 1))::numeric, 2),
		    total_ratings = total_ratings + 1,
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING total_ratings, average_rating`,
		string(id), float64(rating),
	).Scan(&agg.TotalRatings, &agg.AverageRating)
	if errors.Is(err, pgx.ErrNoRows) {
		return Aggregate{}, ErrNotFound
	}
	return agg, err
}

func (s *Store) ListOnline(ctx context.Context) ([]DriverProfile, error) {
	rows, err := s.db.Query(ctx, `SELECT `+profileColumns+` FROM driver_profiles WHERE is_online`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DriverProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
