// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hatid/internal/modules/booking"
	"hatid/internal/modules/location"
	"hatid/internal/modules/notification"
	"hatid/internal/modules/pricing"
	"hatid/internal/modules/rating"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID ensures IDs are alphanumeric and at most 32 chars (matches the ID generator).
func isValidID(v string) bool {
	if v == "" || len(v) > 32 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeInternal(c *gin.Context, err error) {
	_ = c.Error(err)
	writeError(c, http.StatusInternalServerError, "internal error")
}

func writeBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrInvalidState), errors.Is(err, booking.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeInternal(c, err)
	}
}

func writeRatingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, rating.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, rating.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, rating.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, rating.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeInternal(c, err)
	}
}

func writePricingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pricing.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, pricing.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	default:
		writeInternal(c, err)
	}
}

func writeLocationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, location.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, location.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, location.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeInternal(c, err)
	}
}

func writeNotificationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, notification.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, notification.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeInternal(c, err)
	}
}
