package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"rideshare/internal/ride/api"
	"rideshare/internal/ride/app"
	"rideshare/internal/ride/consumer"
	"rideshare/internal/ride/repo"
	"rideshare/internal/shared/config"
	"rideshare/internal/shared/db"
	"rideshare/internal/shared/health"
	"rideshare/internal/shared/middleware"
	"rideshare/internal/shared/mq"
	"rideshare/internal/shared/util"
)

func main() {
	logger := util.New()
	instance := "ride-service"

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

	repository := repo.NewRideRepo(pool)
	publisher := mq.NewPublisher(rmqCh)
	service := app.NewRideService(repository, publisher, logger)

	bookingConsumer := consumer.NewBookingConsumer(service, rmqCh, logger)
	go func() {
		if err := bookingConsumer.Start(ctx); err != nil {
			logger.Error(instance, err)
		}
	}()

	mq.MonitorConnection(rmqConn, &cfg.RabbitMQ, func(_ *amqp091.Connection, ch *amqp091.Channel) {
		publisher.Swap(ch)
		rewired := consumer.NewBookingConsumer(service, ch, logger)
		if err := rewired.Start(ctx); err != nil {
			logger.Error(instance, err)
		}
	})

	handler := api.NewHandler(service, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.HandleFunc("GET /health", health.Handler(instance, pool, rmqConn))

	server := &http.Server{
		Addr:    ":" + cfg.HTTP.RidePort,
		Handler: middleware.RequestID(mux),
	}

	go func() {
		logger.Info(instance, "listening on :"+cfg.HTTP.RidePort)
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
