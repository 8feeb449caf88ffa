// README: Wire shapes. Coordinates leave the API as {lat, lng}.
package handlers

import (
	"time"

	"hatid/internal/modules/booking"
	"hatid/internal/modules/location"
	"hatid/internal/modules/notification"
	"hatid/internal/modules/pricing"
	"hatid/internal/types"
)

type locationDTO struct {
	Address     string       `json:"address"`
	Barangay    string       `json:"barangay,omitempty"`
	Coordinates *types.Point `json:"coordinates"`
}

// pointReq keeps lat/lng as pointers so an absent field is not read as 0.
type pointReq struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (p *pointReq) toPoint() (types.Point, bool) {
	if p == nil || p.Lat == nil || p.Lng == nil {
		return types.Point{}, false
	}
	return types.Point{Lat: *p.Lat, Lng: *p.Lng}, true
}

type locationReq struct {
	Address     string    `json:"address"`
	Barangay    string    `json:"barangay"`
	Coordinates *pointReq `json:"coordinates"`
}

func (l locationReq) toModel() (booking.Location, bool) {
	p, ok := l.Coordinates.toPoint()
	if !ok {
		return booking.Location{}, false
	}
	return booking.Location{Address: l.Address, Barangay: l.Barangay, Coordinates: p.LngLat()}, true
}

func toLocationDTO(l booking.Location) locationDTO {
	p := l.Coordinates.Point()
	return locationDTO{Address: l.Address, Barangay: l.Barangay, Coordinates: &p}
}

type bookingResponse struct {
	ID                 string      `json:"id"`
	RiderID            string      `json:"riderId"`
	DriverID           *string     `json:"driverId"`
	RequestedDriverID  *string     `json:"requestedDriverId,omitempty"`
	PickupLocation     locationDTO `json:"pickupLocation"`
	DropoffLocation    locationDTO `json:"dropoffLocation"`
	Fare               int64       `json:"fare"`
	Currency           string      `json:"currency"`
	Distance           float64     `json:"distance"`
	PaymentMethod      string      `json:"paymentMethod"`
	PaymentStatus      string      `json:"paymentStatus"`
	Status             string      `json:"status"`
	CancelledBy        *string     `json:"cancelledBy,omitempty"`
	CancellationReason string      `json:"cancellationReason,omitempty"`
	Rating             *int        `json:"rating,omitempty"`
	Feedback           string      `json:"feedback,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

func idString(id *types.ID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}

func toBookingResponse(b *booking.Booking) bookingResponse {
	resp := bookingResponse{
		ID:                 string(b.ID),
		RiderID:            string(b.RiderID),
		DriverID:           idString(b.DriverID),
		RequestedDriverID:  idString(b.RequestedDriverID),
		PickupLocation:     toLocationDTO(b.Pickup),
		DropoffLocation:    toLocationDTO(b.Dropoff),
		Fare:               b.Fare.Amount,
		Currency:           b.Fare.Currency,
		Distance:           b.Distance,
		PaymentMethod:      string(b.PaymentMethod),
		PaymentStatus:      string(b.PaymentStatus),
		Status:             string(b.Status),
		CancellationReason: b.CancellationReason,
		Rating:             b.Rating,
		Feedback:           b.Feedback,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
	if b.CancelledBy != nil {
		by := string(*b.CancelledBy)
		resp.CancelledBy = &by
	}
	return resp
}

func toBookingList(list []booking.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(list))
	for i := range list {
		out = append(out, toBookingResponse(&list[i]))
	}
	return out
}

type quoteResponse struct {
	CalculatedFare int64   `json:"calculatedFare"`
	BaseFare       float64 `json:"baseFare"`
	RatePerKm      float64 `json:"ratePerKm"`
	Distance       float64 `json:"distance"`
}

func toQuoteResponse(q pricing.Quote) quoteResponse {
	return quoteResponse{CalculatedFare: q.Fare.Amount, BaseFare: q.BaseFare, RatePerKm: q.RatePerKm, Distance: q.Distance}
}

type nearbyDriverResponse struct {
	DriverID   string      `json:"driverId"`
	Location   types.Point `json:"location"`
	Plate      string      `json:"plate"`
	DistanceKm float64     `json:"distanceKm"`
}

type driverProfileResponse struct {
	UserID        string      `json:"userId"`
	Plate         string      `json:"plate"`
	Online        bool        `json:"online"`
	Location      types.Point `json:"location"`
	TotalRatings  int         `json:"totalRatings"`
	AverageRating float64     `json:"averageRating"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

func toDriverProfileResponse(p *location.DriverProfile) driverProfileResponse {
	return driverProfileResponse{
		UserID:        string(p.UserID),
		Plate:         p.Plate,
		Online:        p.Online,
		Location:      p.Location.Point(),
		TotalRatings:  p.TotalRatings,
		AverageRating: p.AverageRating,
		UpdatedAt:     p.UpdatedAt,
	}
}

type notificationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Category  string    `json:"category"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

func toNotificationResponse(n notification.Notification) notificationResponse {
	return notificationResponse{
		ID:        string(n.ID),
		Title:     n.Title,
		Message:   n.Message,
		Category:  string(n.Category),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}
