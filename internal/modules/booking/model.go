// README: Booking aggregate, ride status graph, and the counterparty union used for notifications.
package booking

import (
	"time"

	"hatid/internal/types"
)

type Status string

const (
	StatusNone       Status = "none"
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusArrived    Status = "arrived"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// HasDriver reports whether a booking in this status must carry a driver.
func (s Status) HasDriver() bool {
	switch s {
	case StatusAccepted, StatusArrived, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func ParseStatus(v string) (Status, bool) {
	switch s := Status(v); s {
	case StatusPending, StatusAccepted, StatusArrived, StatusInProgress, StatusCompleted, StatusCancelled:
		return s, true
	}
	return "", false
}

// rideOrder is the position of each driver-driven status along the ride.
var rideOrder = map[Status]int{
	StatusAccepted:   1,
	StatusArrived:    2,
	StatusInProgress: 3,
	StatusCompleted:  4,
}

// CanAdvance allows forward moves only, from a non-terminal ride status.
// Skipping arrived is permitted; going back is not.
func CanAdvance(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	f, ok := rideOrder[from]
	if !ok {
		return false
	}
	t, ok := rideOrder[to]
	if !ok || to == StatusAccepted {
		return false
	}
	return t > f
}

func CanCancel(from Status) bool {
	return from != StatusNone && !from.Terminal()
}

type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentGCash   PaymentMethod = "gcash"
	PaymentPayMaya PaymentMethod = "paymaya"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentGCash, PaymentPayMaya:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Location is one end of a ride.
type Location struct {
	Address     string
	Barangay    string
	Coordinates types.LngLat
}

type Booking struct {
	ID                 types.ID
	RiderID            types.ID
	DriverID           *types.ID
	RequestedDriverID  *types.ID
	Pickup             Location
	Dropoff            Location
	Fare               types.Money
	Distance           float64
	PaymentMethod      PaymentMethod
	PaymentStatus      PaymentStatus
	Status             Status
	StatusVersion      int
	CancelledBy        *types.Role
	CancellationReason string
	Rating             *int
	Feedback           string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (b *Booking) AssignedTo(id types.ID) bool {
	return b.DriverID != nil && *b.DriverID == id
}

func (b *Booking) RequestedFrom(id types.ID) bool {
	return b.RequestedDriverID != nil && *b.RequestedDriverID == id
}

// Event is one row of a booking's state history.
type Event struct {
	ID         int64
	BookingID  types.ID
	FromStatus Status
	ToStatus   Status
	ActorRole  types.Role
	ActorID    *types.ID
	CreatedAt  time.Time
}

// Party is the other side of a booking from some actor's point of view.
// Exactly one of Rider or Driver is set.
type Party struct {
	Rider  *types.ID
	Driver *types.ID
}

func (p Party) UserID() (types.ID, bool) {
	switch {
	case p.Rider != nil:
		return *p.Rider, true
	case p.Driver != nil:
		return *p.Driver, true
	}
	return "", false
}

// Counterparty resolves who should hear about an actor's change to b.
// driver is the driver observed before the change, which may have been
// cleared since.
func Counterparty(b *Booking, actor types.Actor, driver *types.ID) (Party, bool) {
	switch actor.Role {
	case types.RoleRider:
		if driver == nil {
			driver = b.RequestedDriverID
		}
		if driver == nil {
			return Party{}, false
		}
		return Party{Driver: driver}, true
	default:
		return Party{Rider: &b.RiderID}, true
	}
}

// Stats summarizes a driver's completed rides.
type Stats struct {
	TotalEarnings types.Money
	TotalTrips    int
	Recent        []Booking
}

// DailyEarnings is one day of completed fares, keyed by booking creation day.
type DailyEarnings struct {
	Day      time.Time
	Earnings types.Money
	Trips    int
}
