// README: Entry point; loads config, wires stores and services, runs the HTTP server and notification workers.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"hatid/internal/config"
	httptransport "hatid/internal/http"
	"hatid/internal/infra"
	"hatid/internal/logging"
	"hatid/internal/modules/booking"
	"hatid/internal/modules/location"
	"hatid/internal/modules/notification"
	"hatid/internal/modules/pricing"
	"hatid/internal/modules/rating"
)

func main() {
	if err := run(); err != nil {
		slog.Error("hatid-api exited", slog.Any("err", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level)
	slog.SetDefault(log)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		return errors.New("HATID_FIREBASE_PROJECT_ID is required")
	}
	app, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		return err
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, app)
	if err != nil {
		return err
	}
	messagingClient, err := infra.NewMessagingClient(ctx, app)
	if err != nil {
		return err
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	notificationStore := notification.NewStore(dbPool)
	dispatcher := notification.NewDispatcher(
		notificationStore,
		notificationStore,
		notification.NewFCMPusher(messagingClient),
		cfg.Notify.Workers,
		cfg.Notify.QueueSize,
		log,
	)
	notificationSvc := notification.NewService(notificationStore)

	pricingSvc := pricing.NewService(pricing.NewStore(dbPool), pricing.DefaultTable())

	locationSvc := location.NewService(location.NewStore(dbPool), location.NewRedisIndex(redisClient), cfg.Dispatch.NearbyRadiusKm, log)
	if err := locationSvc.Reindex(ctx); err != nil {
		log.Warn("driver reindex failed", slog.Any("err", err))
	}

	opts := booking.Options{PendingTimeout: cfg.Dispatch.PendingTimeout}
	if w := infra.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic, log); w != nil {
		defer w.Close()
		opts.Publisher = booking.NewKafkaPublisher(w, log)
	}
	bookingStore := booking.NewStore(dbPool)
	bookingSvc := booking.NewService(bookingStore, pricingSvc, dispatcher, log, opts)
	ratingSvc := rating.NewService(bookingStore, locationSvc, log)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Verifier:      verifier,
		Bookings:      bookingSvc,
		Ratings:       ratingSvc,
		Pricing:       pricingSvc,
		Location:      locationSvc,
		Notifications: notificationSvc,
	}, log)

	// Workers outlive the server so jobs queued by in-flight requests are persisted.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		dispatcher.Run(dispatchCtx)
	}()

	err = httptransport.NewServer(cfg.HTTP.Addr, router, log).Run(ctx)
	stopDispatch()
	<-workersDone
	log.Info("shutdown complete")
	return err
}
