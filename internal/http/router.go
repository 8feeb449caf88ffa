// README: HTTP router registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hatid/internal/http/handlers"
	"hatid/internal/http/middleware"
	"hatid/internal/infra"
	"hatid/internal/modules/booking"
	"hatid/internal/modules/location"
	"hatid/internal/modules/notification"
	"hatid/internal/modules/pricing"
	"hatid/internal/modules/rating"
	"hatid/internal/types"
)

type RouterDeps struct {
	Verifier      infra.TokenVerifier
	Bookings      *booking.Service
	Ratings       *rating.Service
	Pricing       *pricing.Service
	Location      *location.Service
	Notifications *notification.Service
}

func NewRouter(deps RouterDeps, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logging(log), middleware.Recovery(log), middleware.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	fareHandler := handlers.NewFareHandler(deps.Pricing)
	r.GET("/api/fare/calculate", fareHandler.Calculate)
	r.POST("/api/fare/calculate", fareHandler.Calculate)

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	rider := middleware.RequireRole(types.RoleRider)
	driver := middleware.RequireRole(types.RoleDriver)
	admin := middleware.RequireRole(types.RoleAdmin)

	bookingHandler := handlers.NewBookingHandler(deps.Bookings, deps.Ratings)
	bookings := api.Group("/bookings")
	bookings.POST("", rider, bookingHandler.Create)
	bookings.GET("/open", driver, bookingHandler.ListOpen)
	bookings.GET("/mine", bookingHandler.ListMine)
	bookings.GET("/direct", driver, bookingHandler.ListDirect)
	bookings.GET("/export", bookingHandler.Export)
	bookings.GET("/:id", bookingHandler.Get)
	bookings.POST("/:id/accept", driver, bookingHandler.Accept)
	bookings.POST("/:id/advance", driver, bookingHandler.Advance)
	bookings.PATCH("/:id/status", bookingHandler.UpdateStatus)
	bookings.POST("/:id/paid", middleware.RequireRole(types.RoleRider, types.RoleDriver), bookingHandler.MarkPaid)
	bookings.POST("/:id/rate", rider, bookingHandler.Rate)

	api.PUT("/fare/config", admin, fareHandler.UpdateConfig)

	driverHandler := handlers.NewDriverHandler(deps.Location, deps.Bookings)
	api.GET("/drivers/nearby", driverHandler.Nearby)
	me := api.Group("/drivers/me", driver)
	me.GET("", driverHandler.Me)
	me.PUT("/location", driverHandler.UpdateLocation)
	me.PUT("/status", driverHandler.SetStatus)
	me.GET("/stats", driverHandler.Stats)
	me.GET("/earnings", driverHandler.Earnings)

	notificationHandler := handlers.NewNotificationHandler(deps.Notifications)
	api.GET("/notifications", notificationHandler.List)
	api.PATCH("/notifications/:id/read", notificationHandler.MarkRead)
	api.PUT("/notifications/token", notificationHandler.RegisterToken)

	return r
}
