// README: Post-trip rating: exactly-once booking rating plus the driver's running average.
package rating

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"hatid/internal/logging"
	"hatid/internal/modules/booking"
	"hatid/internal/modules/location"
	"hatid/internal/types"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("booking not found")
	ErrConflict   = errors.New("booking cannot be rated")
)

type Bookings interface {
	Get(ctx context.Context, id types.ID) (*booking.Booking, error)
	SetRating(ctx context.Context, id types.ID, rating int, feedback string) (bool, error)
}

type Aggregates interface {
	ApplyRating(ctx context.Context, driverID types.ID, rating int) (location.Aggregate, error)
}

type Service struct {
	bookings Bookings
	drivers  Aggregates
	log      *slog.Logger
}

func NewService(bookings Bookings, drivers Aggregates, log *slog.Logger) *Service {
	return &Service{bookings: bookings, drivers: drivers, log: log}
}

type RateCommand struct {
	BookingID types.ID
	Rider     types.Actor
	Rating    int
	Feedback  string
}

// Rate records the rider's rating. The booking write is authoritative; a
// failed driver aggregate update is logged and does not fail the call.
func (s *Service) Rate(ctx context.Context, cmd RateCommand) (*booking.Booking, error) {
	if cmd.Rating < 1 || cmd.Rating > 5 {
		return nil, ErrBadRequest
	}
	b, err := s.bookings.Get(ctx, cmd.BookingID)
	if errors.Is(err, booking.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if cmd.Rider.Role != types.RoleRider || b.RiderID != cmd.Rider.ID {
		return nil, ErrForbidden
	}
	if b.Status != booking.StatusCompleted || b.Rating != nil {
		return nil, ErrConflict
	}

	feedback := strings.TrimSpace(cmd.Feedback)
	ok, err := s.bookings.SetRating(ctx, b.ID, cmd.Rating, feedback)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	r := cmd.Rating
	b.Rating = &r
	b.Feedback = feedback

	if b.DriverID == nil {
		return b, nil
	}
	agg, err := s.drivers.ApplyRating(ctx, *b.DriverID, cmd.Rating)
	if err != nil {
		s.log.ErrorContext(logging.WithBookingID(ctx, string(b.ID)), "driver rating aggregate update failed",
			slog.String("driver_id", string(*b.DriverID)), slog.Any("err", err))
		return b, nil
	}
	s.log.InfoContext(logging.WithBookingID(ctx, string(b.ID)), "booking rated",
		slog.Int("rating", cmd.Rating),
		slog.Int("driver_total_ratings", agg.TotalRatings),
		slog.Float64("driver_average", agg.AverageRating),
	)
	return b, nil
}
