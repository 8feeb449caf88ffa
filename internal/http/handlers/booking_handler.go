// README: Booking handlers: create, list, accept/advance/status, paid, rate.
package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"hatid/internal/http/middleware"
	"hatid/internal/modules/booking"
	"hatid/internal/modules/rating"
	"hatid/internal/types"
)

type BookingHandler struct {
	bookings *booking.Service
	ratings  *rating.Service
}

func NewBookingHandler(bookings *booking.Service, ratings *rating.Service) *BookingHandler {
	return &BookingHandler{bookings: bookings, ratings: ratings}
}

type createBookingReq struct {
	PickupLocation  locationReq `json:"pickupLocation"`
	DropoffLocation locationReq `json:"dropoffLocation"`
	PaymentMethod   string      `json:"paymentMethod"`
	Fare            *int64      `json:"fare"`
	Distance        *float64    `json:"distance"`
	DriverID        string      `json:"driverId"`
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	pickup, ok := req.PickupLocation.toModel()
	if !ok {
		writeError(c, http.StatusBadRequest, "missing pickup coordinates")
		return
	}
	dropoff, ok := req.DropoffLocation.toModel()
	if !ok {
		writeError(c, http.StatusBadRequest, "missing dropoff coordinates")
		return
	}
	if req.DriverID != "" && !isValidID(req.DriverID) {
		writeError(c, http.StatusBadRequest, "invalid driver id")
		return
	}
	b, err := h.bookings.Create(c.Request.Context(), booking.CreateCommand{
		Rider:         middleware.Caller(c),
		Pickup:        pickup,
		Dropoff:       dropoff,
		PaymentMethod: booking.PaymentMethod(req.PaymentMethod),
		Fare:          req.Fare,
		Distance:      req.Distance,
		DriverHint:    types.ID(req.DriverID),
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"booking": toBookingResponse(b)})
}

func (h *BookingHandler) ListOpen(c *gin.Context) {
	list, err := h.bookings.ListOpen(c.Request.Context())
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"results": len(list), "bookings": toBookingList(list)})
}

// ListMine returns the caller's rides: as rider for riders, as assigned
// driver for drivers.
func (h *BookingHandler) ListMine(c *gin.Context) {
	caller := middleware.Caller(c)
	var (
		list []booking.Booking
		err  error
	)
	if caller.Role == types.RoleDriver {
		list, err = h.bookings.ListForDriver(c.Request.Context(), caller.ID)
	} else {
		list, err = h.bookings.ListForRider(c.Request.Context(), caller.ID)
	}
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"results": len(list), "bookings": toBookingList(list)})
}

// Export sends the caller's completed rides as a CSV attachment.
func (h *BookingHandler) Export(c *gin.Context) {
	list, err := h.bookings.CompletedFor(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := booking.WriteCSV(&buf, list); err != nil {
		writeInternal(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="ride_history.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func (h *BookingHandler) ListDirect(c *gin.Context) {
	list, err := h.bookings.ListDirectForDriver(c.Request.Context(), middleware.Caller(c).ID)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"results": len(list), "bookings": toBookingList(list)})
}

func (h *BookingHandler) bookingID(c *gin.Context) (types.ID, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid booking id")
		return "", false
	}
	return types.ID(id), true
}

func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}
	b, err := h.bookings.Get(c.Request.Context(), id, middleware.Caller(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"booking": toBookingResponse(b)})
}

func (h *BookingHandler) Accept(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}
	b, err := h.bookings.Accept(c.Request.Context(), booking.AcceptCommand{BookingID: id, Driver: middleware.Caller(c)})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"booking": toBookingResponse(b)})
}

type statusReq struct {
	Status             string `json:"status"`
	CancellationReason string `json:"cancellationReason"`
}

func (h *BookingHandler) Advance(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	b, err := h.bookings.Advance(c.Request.Context(), booking.AdvanceCommand{
		BookingID: id,
		Driver:    middleware.Caller(c),
		Status:    booking.Status(req.Status),
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"booking": toBookingResponse(b)})
}

func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	b, err := h.bookings.UpdateStatus(c.Request.Context(), booking.StatusCommand{
		BookingID: id,
		Actor:     middleware.Caller(c),
		Status:    req.Status,
		Reason:    req.CancellationReason,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"booking": toBookingResponse(b)})
}

func (h *BookingHandler) MarkPaid(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}
	b, err := h.bookings.MarkPaid(c.Request.Context(), id, middleware.Caller(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"booking": toBookingResponse(b)})
}

type rateReq struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

func (h *BookingHandler) Rate(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}
	var req rateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	b, err := h.ratings.Rate(c.Request.Context(), rating.RateCommand{
		BookingID: id,
		Rider:     middleware.Caller(c),
		Rating:    req.Rating,
		Feedback:  req.Feedback,
	})
	if err != nil {
		writeRatingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"booking": toBookingResponse(b)})
}
