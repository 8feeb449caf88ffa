// README: Booking store backed by PostgreSQL; every transition is a single conditional UPDATE.
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hatid/internal/types"
)

type PgStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

const bookingColumns = `id, rider_id, driver_id, requested_driver_id,
	pickup_address, pickup_barangay, pickup_lng, pickup_lat,
	dropoff_address, dropoff_barangay, dropoff_lng, dropoff_lat,
	fare, currency, distance, payment_method, payment_status,
	status, status_version, cancelled_by, cancellation_reason, rating, feedback,
	created_at, updated_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var driverID, requestedID, cancelledBy *string
	err := row.Scan(
		&b.ID, &b.RiderID, &driverID, &requestedID,
		&b.Pickup.Address, &b.Pickup.Barangay, &b.Pickup.Coordinates[0], &b.Pickup.Coordinates[1],
		&b.Dropoff.Address, &b.Dropoff.Barangay, &b.Dropoff.Coordinates[0], &b.Dropoff.Coordinates[1],
		&b.Fare.Amount, &b.Fare.Currency, &b.Distance, &b.PaymentMethod, &b.PaymentStatus,
		&b.Status, &b.StatusVersion, &cancelledBy, &b.CancellationReason, &b.Rating, &b.Feedback,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b.DriverID = toIDPtr(driverID)
	b.RequestedDriverID = toIDPtr(requestedID)
	if cancelledBy != nil {
		r := types.Role(*cancelledBy)
		b.CancelledBy = &r
	}
	return &b, nil
}

func (s *PgStore) Create(ctx context.Context, b *Booking) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO bookings (
			id, rider_id, driver_id, requested_driver_id,
			pickup_address, pickup_barangay, pickup_lng, pickup_lat,
			dropoff_address, dropoff_barangay, dropoff_lng, dropoff_lat,
			fare, currency, distance, payment_method, payment_status,
			status, status_version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15, $16, $17,
			$18, $19, $20, $21
		)`,
		string(b.ID), string(b.RiderID), toStringPtr(b.DriverID), toStringPtr(b.RequestedDriverID),
		b.Pickup.Address, b.Pickup.Barangay, b.Pickup.Coordinates.Lng(), b.Pickup.Coordinates.Lat(),
		b.Dropoff.Address, b.Dropoff.Barangay, b.Dropoff.Coordinates.Lng(), b.Dropoff.Coordinates.Lat(),
		b.Fare.Amount, b.Fare.Currency, b.Distance, string(b.PaymentMethod), string(b.PaymentStatus),
		string(b.Status), b.StatusVersion, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

func (s *PgStore) Get(ctx context.Context, id types.ID) (*Booking, error) {
	return scanBooking(s.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, string(id)))
}

// Accept assigns the driver only while the booking is still pending.
func (s *PgStore) Accept(ctx context.Context, id, driverID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = 'accepted',
		    driver_id = $2,
		    status_version = status_version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`,
		string(id), string(driverID),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PgStore) Advance(ctx context.Context, id types.ID, from, to Status, driverID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = $4,
		    status_version = status_version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2 AND driver_id = $3`,
		string(id), string(from), string(driverID), string(to),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Cancel clears driver_id so the driver reference only exists on active or
// completed rides.
func (s *PgStore) Cancel(ctx context.Context, id types.ID, from Status, version int, by types.Role, reason string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
		    driver_id = NULL,
		    cancelled_by = $4,
		    cancellation_reason = $5,
		    status_version = status_version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2 AND status_version = $3`,
		string(id), string(from), version, string(by), reason,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PgStore) MarkPaid(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings SET payment_status = 'paid', updated_at = NOW() WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) ExpirePending(ctx context.Context, cutoff time.Time, reason string) ([]types.ID, error) {
	rows, err := s.db.Query(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
		    cancelled_by = 'system',
		    cancellation_reason = $2,
		    status_version = status_version + 1,
		    updated_at = NOW()
		WHERE status = 'pending' AND created_at < $1
		RETURNING id`,
		cutoff, reason,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[types.ID])
}

// SetRating writes the rating once, and only on a completed booking.
func (s *PgStore) SetRating(ctx context.Context, id types.ID, rating int, feedback string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET rating = $2, feedback = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'completed' AND rating IS NULL`,
		string(id), rating, feedback,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PgStore) list(ctx context.Context, where string, args ...any) ([]Booking, error) {
	return s.query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE `+where+` ORDER BY created_at DESC`, args...)
}

func (s *PgStore) query(ctx context.Context, sql string, args ...any) ([]Booking, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *PgStore) ListOpen(ctx context.Context) ([]Booking, error) {
	return s.list(ctx, `status = 'pending' AND requested_driver_id IS NULL`)
}

func (s *PgStore) ListByRider(ctx context.Context, riderID types.ID) ([]Booking, error) {
	return s.list(ctx, `rider_id = $1`, string(riderID))
}

func (s *PgStore) ListByDriver(ctx context.Context, driverID types.ID) ([]Booking, error) {
	return s.list(ctx, `driver_id = $1`, string(driverID))
}

func (s *PgStore) ListDirect(ctx context.Context, driverID types.ID) ([]Booking, error) {
	return s.list(ctx, `status = 'pending' AND requested_driver_id = $1`, string(driverID))
}

func (s *PgStore) DriverStats(ctx context.Context, driverID types.ID, recent int) (Stats, error) {
	st := Stats{TotalEarnings: types.PHP(0)}
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(fare), 0)::bigint, COUNT(*)
		FROM bookings
		WHERE driver_id = $1 AND status = 'completed'`, string(driverID),
	).Scan(&st.TotalEarnings.Amount, &st.TotalTrips)
	if err != nil {
		return Stats{}, err
	}
	completed, err := s.query(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE driver_id = $1 AND status = 'completed'
		ORDER BY updated_at DESC
		LIMIT $2`, string(driverID), recent)
	if err != nil {
		return Stats{}, err
	}
	st.Recent = completed
	return st, nil
}

func (s *PgStore) EarningsHistory(ctx context.Context, driverID types.ID) ([]DailyEarnings, error) {
	rows, err := s.db.Query(ctx, `
		SELECT date_trunc('day', created_at), SUM(fare)::bigint, COUNT(*)
		FROM bookings
		WHERE driver_id = $1 AND status = 'completed'
		GROUP BY 1
		ORDER BY 1 DESC`, string(driverID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyEarnings
	for rows.Next() {
		d := DailyEarnings{Earnings: types.PHP(0)}
		if err := rows.Scan(&d.Day, &d.Earnings.Amount, &d.Trips); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PgStore) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO booking_events (
			booking_id, from_status, to_status, actor_role, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.BookingID),
		string(e.FromStatus),
		string(e.ToStatus),
		string(e.ActorRole),
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toIDPtr(v *string) *types.ID {
	if v == nil || *v == "" {
		return nil
	}
	id := types.ID(*v)
	return &id
}
