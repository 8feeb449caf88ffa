// README: Booking service: ride state machine, ownership guards, and notification side effects.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hatid/internal/logging"
	"hatid/internal/modules/notification"
	"hatid/internal/modules/pricing"
	"hatid/internal/observability"
	"hatid/internal/types"
)

const (
	DefaultPendingTimeout = 60 * time.Second
	// FallbackFare applies when no locality pair can be priced.
	FallbackFare = 12

	ExpiredReason    = "Timeout - No driver accepted"
	CompletedMessage = "Thank you for riding with us! Your trip is complete."
	statsRecent      = 5
)

var (
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("booking not found")
	ErrConflict     = errors.New("booking state conflict")
	ErrBadRequest   = errors.New("bad request")
	ErrForbidden    = errors.New("forbidden")
)

type Store interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id types.ID) (*Booking, error)
	Accept(ctx context.Context, id, driverID types.ID) (bool, error)
	Advance(ctx context.Context, id types.ID, from, to Status, driverID types.ID) (bool, error)
	Cancel(ctx context.Context, id types.ID, from Status, version int, by types.Role, reason string) (bool, error)
	MarkPaid(ctx context.Context, id types.ID) error
	ExpirePending(ctx context.Context, cutoff time.Time, reason string) ([]types.ID, error)
	ListOpen(ctx context.Context) ([]Booking, error)
	ListByRider(ctx context.Context, riderID types.ID) ([]Booking, error)
	ListByDriver(ctx context.Context, driverID types.ID) ([]Booking, error)
	ListDirect(ctx context.Context, driverID types.ID) ([]Booking, error)
	DriverStats(ctx context.Context, driverID types.ID, recent int) (Stats, error)
	EarningsHistory(ctx context.Context, driverID types.ID) ([]DailyEarnings, error)
	AppendEvent(ctx context.Context, e *Event) error
}

type FareQuoter interface {
	Calculate(ctx context.Context, pickup, dropoff string) (pricing.Quote, error)
}

type Notifier interface {
	Dispatch(job notification.Job)
}

// Publisher receives every committed transition. Implementations must not block.
type Publisher interface {
	Publish(ctx context.Context, e Event, b *Booking)
}

type Options struct {
	PendingTimeout time.Duration
	Publisher      Publisher
	Now            func() time.Time
}

type Service struct {
	store          Store
	fares          FareQuoter
	notifier       Notifier
	publisher      Publisher
	pendingTimeout time.Duration
	now            func() time.Time
	log            *slog.Logger
}

func NewService(store Store, fares FareQuoter, notifier Notifier, log *slog.Logger, opts Options) *Service {
	s := &Service{
		store:          store,
		fares:          fares,
		notifier:       notifier,
		publisher:      opts.Publisher,
		pendingTimeout: opts.PendingTimeout,
		now:            opts.Now,
		log:            log,
	}
	if s.pendingTimeout <= 0 {
		s.pendingTimeout = DefaultPendingTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type CreateCommand struct {
	Rider         types.Actor
	Pickup        Location
	Dropoff       Location
	PaymentMethod PaymentMethod
	Fare          *int64
	Distance      *float64
	DriverHint    types.ID
}

func (c CreateCommand) validate() error {
	if c.Rider.ID == "" {
		return ErrBadRequest
	}
	if !c.PaymentMethod.Valid() {
		return ErrBadRequest
	}
	for _, loc := range []Location{c.Pickup, c.Dropoff} {
		if strings.TrimSpace(loc.Address) == "" {
			return ErrBadRequest
		}
		if err := loc.Coordinates.Point().Validate(); err != nil {
			return ErrBadRequest
		}
	}
	if c.Fare != nil && *c.Fare < 0 {
		return ErrBadRequest
	}
	if c.Distance != nil && *c.Distance < 0 {
		return ErrBadRequest
	}
	return nil
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Booking, error) {
	if cmd.Rider.Role != types.RoleRider {
		return nil, ErrForbidden
	}
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	if cmd.DriverHint == cmd.Rider.ID {
		return nil, ErrBadRequest
	}

	fare, distance, err := s.price(ctx, cmd)
	if err != nil {
		return nil, err
	}

	now := s.now()
	b := &Booking{
		ID:                types.NewID(),
		RiderID:           cmd.Rider.ID,
		RequestedDriverID: cmd.DriverHint.Ptr(),
		Pickup:            cmd.Pickup,
		Dropoff:           cmd.Dropoff,
		Fare:              types.PHP(fare),
		Distance:          distance,
		PaymentMethod:     cmd.PaymentMethod,
		PaymentStatus:     PaymentPending,
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	s.committed(ctx, b, StatusNone, cmd.Rider)

	if b.RequestedDriverID != nil {
		s.notify(ctx, *b.RequestedDriverID, b, "New Ride Request",
			fmt.Sprintf("You have a new ride request from %s to %s.", b.Pickup.Address, b.Dropoff.Address))
	}
	return b, nil
}

// price uses client-supplied values when both are positive, otherwise the
// fare table for the two barangays, otherwise the fixed fallback. Zero counts
// as not supplied.
func (s *Service) price(ctx context.Context, cmd CreateCommand) (int64, float64, error) {
	if cmd.Fare != nil && cmd.Distance != nil && *cmd.Fare > 0 && *cmd.Distance > 0 {
		return *cmd.Fare, *cmd.Distance, nil
	}
	if s.fares != nil && cmd.Pickup.Barangay != "" && cmd.Dropoff.Barangay != "" {
		q, err := s.fares.Calculate(ctx, cmd.Pickup.Barangay, cmd.Dropoff.Barangay)
		if err != nil {
			return 0, 0, fmt.Errorf("calculate fare: %w", err)
		}
		return q.Fare.Amount, q.Distance, nil
	}
	return FallbackFare, 0, nil
}

type AcceptCommand struct {
	BookingID types.ID
	Driver    types.Actor
}

func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Booking, error) {
	if cmd.Driver.Role != types.RoleDriver {
		return nil, ErrForbidden
	}
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusPending {
		observability.BookingConflicts.WithLabelValues("accept").Inc()
		return nil, ErrConflict
	}
	if b.RequestedDriverID != nil && !b.RequestedFrom(cmd.Driver.ID) {
		return nil, ErrForbidden
	}

	ok, err := s.store.Accept(ctx, b.ID, cmd.Driver.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		observability.BookingConflicts.WithLabelValues("accept").Inc()
		return nil, ErrConflict
	}

	b.Status = StatusAccepted
	b.DriverID = cmd.Driver.ID.Ptr()
	b.StatusVersion++
	b.UpdatedAt = s.now()
	s.committed(ctx, b, StatusPending, cmd.Driver)
	s.notify(ctx, b.RiderID, b, "Ride Accepted", "A driver has accepted your ride request.")
	return b, nil
}

type AdvanceCommand struct {
	BookingID types.ID
	Driver    types.Actor
	Status    Status
}

func (s *Service) Advance(ctx context.Context, cmd AdvanceCommand) (*Booking, error) {
	switch cmd.Status {
	case StatusArrived, StatusInProgress, StatusCompleted:
	default:
		return nil, ErrBadRequest
	}
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if b.DriverID == nil {
		observability.BookingConflicts.WithLabelValues("advance").Inc()
		return nil, ErrConflict
	}
	if !b.AssignedTo(cmd.Driver.ID) {
		return nil, ErrForbidden
	}
	if !CanAdvance(b.Status, cmd.Status) {
		observability.BookingConflicts.WithLabelValues("advance").Inc()
		return nil, ErrInvalidState
	}

	from := b.Status
	ok, err := s.store.Advance(ctx, b.ID, from, cmd.Status, cmd.Driver.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		observability.BookingConflicts.WithLabelValues("advance").Inc()
		return nil, ErrConflict
	}

	b.Status = cmd.Status
	b.StatusVersion++
	b.UpdatedAt = s.now()
	s.committed(ctx, b, from, cmd.Driver)

	title, msg := statusUpdate(cmd.Status)
	if cmd.Status == StatusCompleted {
		msg = CompletedMessage
	}
	s.notify(ctx, b.RiderID, b, title, msg)
	return b, nil
}

type CancelCommand struct {
	BookingID types.ID
	Actor     types.Actor
	Reason    string
}

// Cancel is permitted from any non-terminal state.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Booking, error) {
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	switch cmd.Actor.Role {
	case types.RoleRider:
		if b.RiderID != cmd.Actor.ID {
			return nil, ErrForbidden
		}
	case types.RoleDriver:
		if !b.AssignedTo(cmd.Actor.ID) && !b.RequestedFrom(cmd.Actor.ID) {
			return nil, ErrForbidden
		}
	case types.RoleAdmin:
	default:
		return nil, ErrForbidden
	}
	if !CanCancel(b.Status) {
		observability.BookingConflicts.WithLabelValues("cancel").Inc()
		return nil, ErrInvalidState
	}

	from := b.Status
	observedDriver := b.DriverID
	ok, err := s.store.Cancel(ctx, b.ID, from, b.StatusVersion, cmd.Actor.Role, cmd.Reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		observability.BookingConflicts.WithLabelValues("cancel").Inc()
		return nil, ErrConflict
	}

	by := cmd.Actor.Role
	b.Status = StatusCancelled
	b.DriverID = nil
	b.CancelledBy = &by
	b.CancellationReason = cmd.Reason
	b.StatusVersion++
	b.UpdatedAt = s.now()
	s.committed(ctx, b, from, cmd.Actor)

	if party, ok := Counterparty(b, cmd.Actor, observedDriver); ok {
		if to, ok := party.UserID(); ok {
			title, msg := statusUpdate(StatusCancelled)
			s.notify(ctx, to, b, title, msg)
		}
	}
	return b, nil
}

type StatusCommand struct {
	BookingID types.ID
	Actor     types.Actor
	Status    string
	Reason    string
}

// UpdateStatus is the generic status entry point; it routes to the
// operation that owns the requested target state.
func (s *Service) UpdateStatus(ctx context.Context, cmd StatusCommand) (*Booking, error) {
	to, ok := ParseStatus(cmd.Status)
	if !ok {
		return nil, ErrBadRequest
	}
	switch to {
	case StatusAccepted:
		return s.Accept(ctx, AcceptCommand{BookingID: cmd.BookingID, Driver: cmd.Actor})
	case StatusArrived, StatusInProgress, StatusCompleted:
		if cmd.Actor.Role != types.RoleDriver {
			return nil, ErrForbidden
		}
		return s.Advance(ctx, AdvanceCommand{BookingID: cmd.BookingID, Driver: cmd.Actor, Status: to})
	case StatusCancelled:
		return s.Cancel(ctx, CancelCommand{BookingID: cmd.BookingID, Actor: cmd.Actor, Reason: cmd.Reason})
	default:
		return nil, ErrBadRequest
	}
}

// MarkPaid flips the payment flag regardless of its prior value.
func (s *Service) MarkPaid(ctx context.Context, id types.ID, actor types.Actor) (*Booking, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.RiderID != actor.ID && !b.AssignedTo(actor.ID) {
		return nil, ErrForbidden
	}
	if err := s.store.MarkPaid(ctx, id); err != nil {
		return nil, err
	}
	b.PaymentStatus = PaymentPaid
	b.UpdatedAt = s.now()
	return b, nil
}

// ExpireStalePending cancels pending bookings older than the pending timeout.
// No notification is sent.
func (s *Service) ExpireStalePending(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.pendingTimeout)
	ids, err := s.store.ExpirePending(ctx, cutoff, ExpiredReason)
	if err != nil {
		return 0, fmt.Errorf("expire pending: %w", err)
	}
	system := types.Actor{Role: types.RoleSystem}
	for _, id := range ids {
		observability.PendingExpired.Inc()
		s.recordEvent(ctx, &Booking{ID: id, Status: StatusCancelled}, StatusPending, system)
	}
	if len(ids) > 0 {
		s.log.InfoContext(ctx, "expired stale pending bookings", slog.Int("count", len(ids)))
	}
	return len(ids), nil
}

// ListOpen returns pending bookings any driver may take, after sweeping
// stale ones.
func (s *Service) ListOpen(ctx context.Context) ([]Booking, error) {
	if _, err := s.ExpireStalePending(ctx); err != nil {
		return nil, err
	}
	return s.store.ListOpen(ctx)
}

// Get returns a booking visible to actor: its rider, its assigned or
// requested driver, or an admin.
func (s *Service) Get(ctx context.Context, id types.ID, actor types.Actor) (*Booking, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == types.RoleAdmin || b.RiderID == actor.ID || b.AssignedTo(actor.ID) || b.RequestedFrom(actor.ID) {
		return b, nil
	}
	// Drivers browsing open bookings may view them before accepting.
	if actor.Role == types.RoleDriver && b.Status == StatusPending && b.RequestedDriverID == nil {
		return b, nil
	}
	return nil, ErrForbidden
}

func (s *Service) ListForRider(ctx context.Context, riderID types.ID) ([]Booking, error) {
	return s.store.ListByRider(ctx, riderID)
}

func (s *Service) ListForDriver(ctx context.Context, driverID types.ID) ([]Booking, error) {
	return s.store.ListByDriver(ctx, driverID)
}

// ListDirectForDriver returns pending requests addressed to driverID.
func (s *Service) ListDirectForDriver(ctx context.Context, driverID types.ID) ([]Booking, error) {
	if _, err := s.ExpireStalePending(ctx); err != nil {
		return nil, err
	}
	return s.store.ListDirect(ctx, driverID)
}

func (s *Service) DriverStats(ctx context.Context, driverID types.ID) (Stats, error) {
	return s.store.DriverStats(ctx, driverID, statsRecent)
}

// EarningsHistory groups a driver's completed fares by day, newest first.
func (s *Service) EarningsHistory(ctx context.Context, driverID types.ID) ([]DailyEarnings, error) {
	if driverID == "" {
		return nil, ErrBadRequest
	}
	return s.store.EarningsHistory(ctx, driverID)
}

// CompletedFor returns the caller's completed rides, as driver for drivers
// and as rider otherwise. ErrNotFound when there are none.
func (s *Service) CompletedFor(ctx context.Context, actor types.Actor) ([]Booking, error) {
	var (
		list []Booking
		err  error
	)
	if actor.Role == types.RoleDriver {
		list, err = s.store.ListByDriver(ctx, actor.ID)
	} else {
		list, err = s.store.ListByRider(ctx, actor.ID)
	}
	if err != nil {
		return nil, err
	}
	done := list[:0]
	for _, b := range list {
		if b.Status == StatusCompleted {
			done = append(done, b)
		}
	}
	if len(done) == 0 {
		return nil, ErrNotFound
	}
	return done, nil
}

// committed runs the side effects shared by every successful transition.
func (s *Service) committed(ctx context.Context, b *Booking, from Status, actor types.Actor) {
	observability.BookingTransitions.WithLabelValues(string(b.Status)).Inc()
	e := s.recordEvent(ctx, b, from, actor)
	if s.publisher != nil {
		s.publisher.Publish(logging.Detach(ctx), *e, b)
	}
	s.log.InfoContext(logging.WithBookingID(ctx, string(b.ID)), "booking transition",
		slog.String("from", string(from)),
		slog.String("to", string(b.Status)),
		slog.String("actor_role", string(actor.Role)),
	)
}

func (s *Service) recordEvent(ctx context.Context, b *Booking, from Status, actor types.Actor) *Event {
	e := &Event{
		BookingID:  b.ID,
		FromStatus: from,
		ToStatus:   b.Status,
		ActorRole:  actor.Role,
		ActorID:    actor.ID.Ptr(),
		CreatedAt:  s.now(),
	}
	if err := s.store.AppendEvent(ctx, e); err != nil {
		s.log.WarnContext(ctx, "append booking event failed", slog.String("booking_id", string(b.ID)), slog.Any("err", err))
	}
	return e
}

func (s *Service) notify(ctx context.Context, to types.ID, b *Booking, title, message string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(notification.Job{
		UserID:   to,
		Title:    title,
		Message:  message,
		Category: notification.CategoryBooking,
		Data: map[string]any{
			"type":      "booking",
			"bookingId": b.ID,
			"status":    string(b.Status),
			"fare":      b.Fare.Amount,
		},
	})
	s.log.DebugContext(ctx, "notification queued", slog.String("to", string(to)), slog.String("title", title))
}

func statusUpdate(st Status) (title, message string) {
	return "Ride Update: " + string(st), fmt.Sprintf("Your ride status has been updated to %s.", st)
}
