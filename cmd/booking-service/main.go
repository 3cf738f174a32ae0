package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"rideshare/internal/booking/adapter/rideclient"
	"rideshare/internal/booking/api"
	"rideshare/internal/booking/app"
	"rideshare/internal/booking/repo"
	"rideshare/internal/shared/config"
	"rideshare/internal/shared/db"
	"rideshare/internal/shared/health"
	"rideshare/internal/shared/middleware"
	"rideshare/internal/shared/mq"
	"rideshare/internal/shared/util"
)

const defaultGatewayTimeout = 3 * time.Second

func main() {
	logger := util.New()
	instance := "booking-service"

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal(instance, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.ConnectToDB(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal(instance, err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, repo.Schema); err != nil {
		logger.Fatal(instance, err)
	}

	rmqConn, rmqCh, err := mq.ConnectToRMQ(&cfg.RabbitMQ)
	if err != nil {
		logger.Fatal(instance, err)
	}
	defer rmqConn.Close()
	defer rmqCh.Close()

	if err := mq.DeclareTopology(rmqCh); err != nil {
		logger.Fatal(instance, err)
	}

	timeout := defaultGatewayTimeout
	if d, err := time.ParseDuration(cfg.Services.RequestTimeout); err == nil && d > 0 {
		timeout = d
	}

	repository := repo.NewBookingRepo(pool)
	gateway := rideclient.New(cfg.Services.RideService, timeout)
	publisher := mq.NewPublisher(rmqCh)
	hub := api.NewPassengerHub(logger)
	service := app.NewBookingService(repository, gateway, publisher, hub, logger)

	mq.MonitorConnection(rmqConn, &cfg.RabbitMQ, func(_ *amqp091.Connection, ch *amqp091.Channel) {
		publisher.Swap(ch)
	})

	reconciler := app.NewReconciler(repository, gateway, logger)
	go reconciler.Run(ctx)

	handler := api.NewHandler(service, hub, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.HandleFunc("GET /health", health.Handler(instance, pool, rmqConn))

	server := &http.Server{
		Addr:    ":" + cfg.HTTP.BookingPort,
		Handler: middleware.RequestID(mux),
	}

	go func() {
		logger.Info(instance, "listening on :"+cfg.HTTP.BookingPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(instance, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(instance, "shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal(instance, err)
	}
	logger.OK(instance, "stopped")
}
