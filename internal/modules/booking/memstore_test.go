package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"hatid/internal/types"
)

// memStore mirrors PgStore's conditional writes under a single mutex.
type memStore struct {
	mu       sync.Mutex
	bookings map[types.ID]*Booking
	events   []Event
}

func newMemStore() *memStore {
	return &memStore{bookings: make(map[types.ID]*Booking)}
}

func (m *memStore) Create(_ context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memStore) Get(_ context.Context, id types.ID) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) Accept(_ context.Context, id, driverID types.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != StatusPending {
		return false, nil
	}
	b.Status = StatusAccepted
	b.DriverID = driverID.Ptr()
	b.StatusVersion++
	return true, nil
}

func (m *memStore) Advance(_ context.Context, id types.ID, from, to Status, driverID types.ID) (bool, error) {
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

func (m *memStore) Cancel(_ context.Context, id types.ID, from Status, version int, by types.Role, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != from || b.StatusVersion != version {
		return false, nil
	}
	b.Status = StatusCancelled
	b.DriverID = nil
	b.CancelledBy = &by
	b.CancellationReason = reason
	b.StatusVersion++
	return true, nil
}

func (m *memStore) MarkPaid(_ context.Context, id types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return ErrNotFound
	}
	b.PaymentStatus = PaymentPaid
	return nil
}

func (m *memStore) ExpirePending(_ context.Context, cutoff time.Time, reason string) ([]types.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []types.ID
	system := types.RoleSystem
	for _, b := range m.bookings {
		if b.Status == StatusPending && b.CreatedAt.Before(cutoff) {
			b.Status = StatusCancelled
			b.CancelledBy = &system
			b.CancellationReason = reason
			b.StatusVersion++
			ids = append(ids, b.ID)
		}
	}
	return ids, nil
}

func (m *memStore) SetRating(_ context.Context, id types.ID, rating int, feedback string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != StatusCompleted || b.Rating != nil {
		return false, nil
	}
	b.Rating = &rating
	b.Feedback = feedback
	return true, nil
}

func (m *memStore) filter(keep func(*Booking) bool) []Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Booking
	for _, b := range m.bookings {
		if keep(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memStore) ListOpen(_ context.Context) ([]Booking, error) {
	return m.filter(func(b *Booking) bool { return b.Status == StatusPending && b.RequestedDriverID == nil }), nil
}

func (m *memStore) ListByRider(_ context.Context, id types.ID) ([]Booking, error) {
	return m.filter(func(b *Booking) bool { return b.RiderID == id }), nil
}

func (m *memStore) ListByDriver(_ context.Context, id types.ID) ([]Booking, error) {
	return m.filter(func(b *Booking) bool { return b.AssignedTo(id) }), nil
}

func (m *memStore) ListDirect(_ context.Context, id types.ID) ([]Booking, error) {
	return m.filter(func(b *Booking) bool { return b.Status == StatusPending && b.RequestedFrom(id) }), nil
}

func (m *memStore) DriverStats(_ context.Context, id types.ID, recent int) (Stats, error) {
	done := m.filter(func(b *Booking) bool { return b.AssignedTo(id) && b.Status == StatusCompleted })
	st := Stats{TotalEarnings: types.PHP(0), TotalTrips: len(done)}
	for _, b := range done {
		st.TotalEarnings.Amount += b.Fare.Amount
	}
	if len(done) > recent {
		done = done[:recent]
	}
	st.Recent = done
	return st, nil
}

func (m *memStore) EarningsHistory(_ context.Context, id types.ID) ([]DailyEarnings, error) {
	done := m.filter(func(b *Booking) bool { return b.AssignedTo(id) && b.Status == StatusCompleted })
	var out []DailyEarnings
	for _, b := range done {
		day := b.CreatedAt.UTC().Truncate(24 * time.Hour)
		if n := len(out); n > 0 && out[n-1].Day.Equal(day) {
			out[n-1].Earnings.Amount += b.Fare.Amount
			out[n-1].Trips++
			continue
		}
		out = append(out, DailyEarnings{Day: day, Earnings: types.PHP(b.Fare.Amount), Trips: 1})
	}
	return out, nil
}

func (m *memStore) AppendEvent(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}
