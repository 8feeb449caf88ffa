// README: Fare quote and fare configuration handlers.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hatid/internal/http/middleware"
	"hatid/internal/modules/pricing"
)

type FareHandler struct {
	pricing *pricing.Service
}

func NewFareHandler(svc *pricing.Service) *FareHandler {
	return &FareHandler{pricing: svc}
}

// fareQuery is read from the query string on GET and from the JSON body on POST.
type fareQuery struct {
	Pickup   string   `form:"pickup" json:"pickup"`
	Dropoff  string   `form:"dropoff" json:"dropoff"`
	Distance *float64 `form:"distance" json:"distance"`
}

func (h *FareHandler) Calculate(c *gin.Context) {
	var q fareQuery
	if err := c.ShouldBind(&q); err != nil {
		writeError(c, http.StatusBadRequest, "invalid distance parameter")
		return
	}

	var (
		quote pricing.Quote
		err   error
	)
	switch {
	case q.Distance != nil:
		quote, err = h.pricing.QuoteDistance(c.Request.Context(), *q.Distance)
	case strings.TrimSpace(q.Pickup) != "" && strings.TrimSpace(q.Dropoff) != "":
		quote, err = h.pricing.Calculate(c.Request.Context(), q.Pickup, q.Dropoff)
	default:
		writeError(c, http.StatusBadRequest, "provide either distance or both pickup and dropoff")
		return
	}
	if err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toQuoteResponse(quote))
}

type fareConfigReq struct {
	BaseFare  *float64 `json:"baseFare"`
	RatePerKm *float64 `json:"ratePerKm"`
}

func (h *FareHandler) UpdateConfig(c *gin.Context) {
	var req fareConfigReq
	if err := c.ShouldBindJSON(&req); err != nil || req.BaseFare == nil || req.RatePerKm == nil {
		writeError(c, http.StatusBadRequest, "baseFare and ratePerKm are required")
		return
	}
	cfg, err := h.pricing.UpdateConfig(c.Request.Context(), pricing.UpdateConfigCommand{
		Actor:     middleware.Caller(c),
		BaseFare:  *req.BaseFare,
		RatePerKm: *req.RatePerKm,
	})
	if err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"baseFare": cfg.BaseFare, "ratePerKm": cfg.RatePerKm, "createdAt": cfg.CreatedAt})
}
