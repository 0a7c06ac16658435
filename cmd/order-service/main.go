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
	"github.com/Mucahit2020/order-management-go/internal/messaging"
	"github.com/Mucahit2020/order-management-go/internal/order"
	"github.com/Mucahit2020/order-management-go/internal/postgres"
)

const serviceName = "order-service"

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
		if err := postgres.RunMigrations(cfg.DatabaseDSN, postgres.MigrationsOrder, logger); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	repo := order.NewRepository(db)

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

	svc := order.NewService(repo, pub, logger)

	consumer := messaging.NewConsumer(conn, logger)
	policy := messaging.ExponentialRetry(5, time.Second, 30*time.Second)

	if err := consumer.Start(ctx,
		messaging.ServiceQueue(serviceName, messaging.StockReducedRoutingKey),
		messaging.StockReducedRoutingKey,
		policy, order.StockReducedHandler(svc)); err != nil {
		logger.Fatal("start StockReduced consumer", zap.Error(err))
	}
	if err := consumer.Start(ctx,
		messaging.ServiceQueue(serviceName, messaging.StockFailedRoutingKey),
		messaging.StockFailedRoutingKey,
		policy, order.StockFailedHandler(svc)); err != nil {
		logger.Fatal("start StockFailed consumer", zap.Error(err))
	}

	// --- HTTP ---
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewOrderRouter(svc),
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
