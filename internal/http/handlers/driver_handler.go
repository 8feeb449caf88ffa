// README: Driver handlers: nearby search, own position/availability, profile and earnings.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"hatid/internal/http/middleware"
	"hatid/internal/modules/booking"
	"hatid/internal/modules/location"
	"hatid/internal/types"
)

type DriverHandler struct {
	location *location.Service
	bookings *booking.Service
}

func NewDriverHandler(locationSvc *location.Service, bookingSvc *booking.Service) *DriverHandler {
	return &DriverHandler{location: locationSvc, bookings: bookingSvc}
}

func (h *DriverHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	drivers, err := h.location.Nearby(c.Request.Context(), types.Point{Lat: lat, Lng: lng})
	if err != nil {
		writeLocationError(c, err)
		return
	}
	out := make([]nearbyDriverResponse, 0, len(drivers))
	for _, d := range drivers {
		out = append(out, nearbyDriverResponse{
			DriverID:   string(d.DriverID),
			Location:   d.Location.Point(),
			Plate:      d.Plate,
			DistanceKm: d.DistanceKm,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"results": len(out), "drivers": out})
}

func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var req pointReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	pos, ok := req.toPoint()
	if !ok {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	p, err := h.location.UpdateLocation(c.Request.Context(), location.UpdateLocationCommand{
		Actor:    middleware.Caller(c),
		Position: pos,
	})
	if err != nil {
		writeLocationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"driver": toDriverProfileResponse(p)})
}

type availabilityReq struct {
	Online *bool `json:"online"`
}

func (h *DriverHandler) SetStatus(c *gin.Context) {
	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Online == nil {
		writeError(c, http.StatusBadRequest, "online is required")
		return
	}
	p, err := h.location.SetOnline(c.Request.Context(), location.SetOnlineCommand{
		Actor:  middleware.Caller(c),
		Online: *req.Online,
	})
	if err != nil {
		writeLocationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"driver": toDriverProfileResponse(p)})
}

func (h *DriverHandler) Me(c *gin.Context) {
	p, err := h.location.Profile(c.Request.Context(), middleware.Caller(c).ID)
	if err != nil {
		writeLocationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"driver": toDriverProfileResponse(p)})
}

func (h *DriverHandler) Stats(c *gin.Context) {
	st, err := h.bookings.DriverStats(c.Request.Context(), middleware.Caller(c).ID)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"totalEarnings": st.TotalEarnings.Amount,
		"currency":      st.TotalEarnings.Currency,
		"totalTrips":    st.TotalTrips,
		"recentTrips":   toBookingList(st.Recent),
	})
}

type dailyEarningsResponse struct {
	Date          string `json:"date"`
	DailyEarnings int64  `json:"dailyEarnings"`
	TripCount     int    `json:"tripCount"`
}

func (h *DriverHandler) Earnings(c *gin.Context) {
	days, err := h.bookings.EarningsHistory(c.Request.Context(), middleware.Caller(c).ID)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	out := make([]dailyEarningsResponse, 0, len(days))
	for _, d := range days {
		out = append(out, dailyEarningsResponse{
			Date:          d.Day.Format(time.DateOnly),
			DailyEarnings: d.Earnings.Amount,
			TripCount:     d.Trips,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"results": len(out), "history": out})
}
