package http_test

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"hatid/internal/infra"
	"hatid/internal/modules/booking"
	"hatid/internal/modules/location"
	"hatid/internal/modules/notification"
	"hatid/internal/types"
)

// tokenVerifier accepts tokens of the form "<role>:<uid>".
type tokenVerifier struct{}

func (tokenVerifier) VerifyIDToken(_ context.Context, raw string) (*infra.FirebaseToken, error) {
	role, uid, ok := strings.Cut(raw, ":")
	if !ok || uid == "" {
		return nil, errors.New("malformed token")
	}
	return &infra.FirebaseToken{UID: uid, Claims: map[string]interface{}{"role": role}}, nil
}

type nopNotifier struct{}

func (nopNotifier) Dispatch(notification.Job) {}

type bookingStore struct {
	mu       sync.Mutex
	bookings map[types.ID]*booking.Booking
}

func newBookingStore() *bookingStore {
	return &bookingStore{bookings: make(map[types.ID]*booking.Booking)}
}

func (m *bookingStore) Create(_ context.Context, b *booking.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *bookingStore) Get(_ context.Context, id types.ID) (*booking.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *bookingStore) Accept(_ context.Context, id, driverID types.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != booking.StatusPending {
		return false, nil
	}
	b.Status = booking.StatusAccepted
	b.DriverID = driverID.Ptr()
	b.StatusVersion++
	return true, nil
}

func (m *bookingStore) Advance(_ context.Context, id types.ID, from, to booking.Status, driverID types.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != from || !b.AssignedTo(driverID) {
		return false, nil
	}
	b.Status = to
	b.StatusVersion++
	return true, nil
}

func (m *bookingStore) Cancel(_ context.Context, id types.ID, from booking.Status, version int, by types.Role, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != from || b.StatusVersion != version {
		return false, nil
	}
	b.Status = booking.StatusCancelled
	b.DriverID = nil
	b.CancelledBy = &by
	b.CancellationReason = reason
	b.StatusVersion++
	return true, nil
}

func (m *bookingStore) MarkPaid(_ context.Context, id types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return booking.ErrNotFound
	}
	b.PaymentStatus = booking.PaymentPaid
	return nil
}

func (m *bookingStore) ExpirePending(context.Context, time.Time, string) ([]types.ID, error) {
	return nil, nil
}

func (m *bookingStore) SetRating(_ context.Context, id types.ID, rating int, feedback string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != booking.StatusCompleted || b.Rating != nil {
		return false, nil
	}
	b.Rating = &rating
	b.Feedback = feedback
	return true, nil
}

func (m *bookingStore) filter(keep func(*booking.Booking) bool) []booking.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []booking.Booking
	for _, b := range m.bookings {
		if keep(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *bookingStore) ListOpen(context.Context) ([]booking.Booking, error) {
	return m.filter(func(b *booking.Booking) bool {
		return b.Status == booking.StatusPending && b.RequestedDriverID == nil
	}), nil
}

func (m *bookingStore) ListByRider(_ context.Context, id types.ID) ([]booking.Booking, error) {
	return m.filter(func(b *booking.Booking) bool { return b.RiderID == id }), nil
}

func (m *bookingStore) ListByDriver(_ context.Context, id types.ID) ([]booking.Booking, error) {
	return m.filter(func(b *booking.Booking) bool { return b.AssignedTo(id) }), nil
}

func (m *bookingStore) ListDirect(_ context.Context, id types.ID) ([]booking.Booking, error) {
	return m.filter(func(b *booking.Booking) bool {
		return b.Status == booking.StatusPending && b.RequestedFrom(id)
	}), nil
}

func (m *bookingStore) DriverStats(_ context.Context, id types.ID, recent int) (booking.Stats, error) {
	done := m.filter(func(b *booking.Booking) bool {
		return b.AssignedTo(id) && b.Status == booking.StatusCompleted
	})
	st := booking.Stats{TotalEarnings: types.PHP(0), TotalTrips: len(done)}
	for _, b := range done {
		st.TotalEarnings.Amount += b.Fare.Amount
	}
	if len(done) > recent {
		done = done[:recent]
	}
	st.Recent = done
	return st, nil
}

func (m *bookingStore) EarningsHistory(_ context.Context, id types.ID) ([]booking.DailyEarnings, error) {
	done := m.filter(func(b *booking.Booking) bool {
		return b.AssignedTo(id) && b.Status == booking.StatusCompleted
	})
	var out []booking.DailyEarnings
	for _, b := range done {
		day := b.CreatedAt.UTC().Truncate(24 * time.Hour)
		if n := len(out); n > 0 && out[n-1].Day.Equal(day) {
			out[n-1].Earnings.Amount += b.Fare.Amount
			out[n-1].Trips++
			continue
		}
		out = append(out, booking.DailyEarnings{Day: day, Earnings: types.PHP(b.Fare.Amount), Trips: 1})
	}
	return out, nil
}

func (m *bookingStore) AppendEvent(context.Context, *booking.Event) error { return nil }

type profileStore struct {
	mu       sync.Mutex
	profiles map[types.ID]*location.DriverProfile
}

func newProfileStore(profiles ...location.DriverProfile) *profileStore {
	s := &profileStore{profiles: make(map[types.ID]*location.DriverProfile)}
	for i := range profiles {
		p := profiles[i]
		s.profiles[p.UserID] = &p
	}
	return s
}

func (s *profileStore) update(id types.ID, fn func(*location.DriverProfile)) (*location.DriverProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, location.ErrNotFound
	}
	fn(p)
	cp := *p
	return &cp, nil
}

func (s *profileStore) Get(_ context.Context, id types.ID) (*location.DriverProfile, error) {
	return s.update(id, func(*location.DriverProfile) {})
}

func (s *profileStore) UpdateLocation(_ context.Context, id types.ID, loc types.LngLat) (*location.DriverProfile, error) {
	return s.update(id, func(p *location.DriverProfile) { p.Location = loc })
}

func (s *profileStore) SetOnline(_ context.Context, id types.ID, online bool) (*location.DriverProfile, error) {
	return s.update(id, func(p *location.DriverProfile) { p.Online = online })
}

func (s *profileStore) ApplyRating(_ context.Context, id types.ID, rating int) (location.Aggregate, error) {
	p, err := s.update(id, func(p *location.DriverProfile) {
		p.AverageRating, p.TotalRatings = nextAverage(p.AverageRating, p.TotalRatings, rating)
	})
	if err != nil {
		return location.Aggregate{}, err
	}
	return location.Aggregate{TotalRatings: p.TotalRatings, AverageRating: p.AverageRating}, nil
}

func (s *profileStore) ListOnline(context.Context) ([]location.DriverProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []location.DriverProfile
	for _, p := range s.profiles {
		if p.Online {
			out = append(out, *p)
		}
	}
	return out, nil
}

// geoIndex returns every online profile and leaves radius filtering to the service.
type geoIndex struct {
	store *profileStore
}

func (g geoIndex) Upsert(context.Context, location.DriverProfile) error { return nil }

func (g geoIndex) Search(ctx context.Context, _ types.Point, _ float64) ([]location.Candidate, error) {
	online, _ := g.store.ListOnline(ctx)
	out := make([]location.Candidate, 0, len(online))
	for _, p := range online {
		out = append(out, location.Candidate{DriverID: p.UserID, Location: p.Location, Plate: p.Plate, Online: true})
	}
	return out, nil
}

type inbox struct {
	mu     sync.Mutex
	items  []notification.Notification
	tokens map[types.ID]string
}

func (s *inbox) ListByUser(_ context.Context, userID types.ID, limit int) ([]notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notification.Notification
	for _, n := range s.items {
		if n.UserID == userID && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *inbox) MarkRead(_ context.Context, id, userID types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].UserID == userID {
			s.items[i].IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (s *inbox) SaveToken(_ context.Context, userID types.ID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		s.tokens = make(map[types.ID]string)
	}
	s.tokens[userID] = token
	return nil
}

// nextAverage mirrors the rounding the Postgres store applies in SQL.
func nextAverage(avg float64, total, rating int) (float64, int) {
	next := (avg*float64(total) + float64(rating)) / float64(total+1)
	return math.Round(next*100) / 100, total + 1
}
