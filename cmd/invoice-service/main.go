package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Mucahit2020/order-management-go/internal/config"
	"github.com/Mucahit2020/order-management-go/internal/httpapi"
	"github.com/Mucahit2020/order-management-go/internal/invoice"
	"github.com/Mucahit2020/order-management-go/internal/messaging"
	"github.com/Mucahit2020/order-management-go/internal/postgres"
)

const serviceName = "invoice-service"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("service", serviceName))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- DB ---
	db, err := postgres.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.DatabaseDSN, postgres.MigrationsInvoice, logger); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	repo := invoice.NewRepository(db)
	external := invoice.NewMockExternalClient(cfg.ExternalLatency, cfg.ExternalFailureRate, logger)

	// --- AMQP ---
	conn, err := messaging.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq connect", zap.Error(err))
	}
	defer conn.Close()

	pub, err := messaging.NewPublisher(conn)
	if err != nil {
		logger.Fatal("init publisher", zap.Error(err))
	}
	defer pub.Close()

	svc := invoice.NewService(repo, external, pub, cfg.ExternalTimeout, logger)

	consumer := messaging.NewConsumer(conn, logger)

	if err := consumer.Start(ctx,
		messaging.ServiceQueue(serviceName, messaging.OrderCompletedRoutingKey),
		messaging.OrderCompletedRoutingKey,
		messaging.ExponentialRetry(5, time.Second, 30*time.Second),
		invoice.OrderCompletedHandler(svc)); err != nil {
		logger.Fatal("start OrderCompleted consumer", zap.Error(err))
	}

	// --- HTTP ---
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewInvoiceRouter(svc),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("fatal error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = httpServer.Shutdown(shutdownCtx)
	cancel()

	logger.Info("shutdown complete")
}
