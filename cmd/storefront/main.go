package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pm3/bigcord/internal/cart"
	"github.com/pm3/bigcord/internal/catalog"
	"github.com/pm3/bigcord/internal/checkout"
	"github.com/pm3/bigcord/internal/config"
	"github.com/pm3/bigcord/internal/db"
	"github.com/pm3/bigcord/internal/events"
	httpapi "github.com/pm3/bigcord/internal/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	choices := cart.DefaultChoices()
	var cartRepo cart.Repository = cart.NewMemoryRepository()
	var sequenceRepo events.SequenceRepository = events.NewMemorySequenceRepository()

	if cfg.DatabaseDSN != "" {
		if cfg.RunMigrations {
			if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
				logger.Fatal("run migrations", zap.Error(err))
			}
		}
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			logger.Fatal("connect database", zap.Error(err))
		}
		defer pool.Close()

		cartRepo = cart.NewPostgresRepository(pool, choices)
		sequenceRepo = events.NewPostgresSequenceRepository(pool)
	} else {
		logger.Info("DATABASE_DSN not set, keeping carts in memory")
	}

	var publisher events.Publisher = events.NewLogPublisher(logger)
	if cfg.RabbitMQURL != "" {
		conn, err := events.Dial(ctx, cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Fatal("dial rabbitmq", zap.Error(err))
		}
		defer conn.Close()

		publisher, err = events.NewRabbitPublisher(conn, logger)
		if err != nil {
			logger.Fatal("create publisher", zap.Error(err))
		}
	}

	store := catalog.NewStore(
		catalog.NewLoader(cfg.CatalogSource, &http.Client{Timeout: 15 * time.Second}),
		cfg.CatalogBatchSize,
		logger,
	)
	// A missing catalog is retried on the first request.
	if err := store.Load(ctx); err != nil {
		logger.Warn("initial catalog load failed", zap.String("source", cfg.CatalogSource), zap.Error(err))
	}

	carts := cart.NewService(cartRepo, choices, cart.ServiceOptions{
		RemovalDelay: cfg.RemovalDelay,
		IdleTimeout:  cfg.CartIdleTimeout,
		Logger:       logger,
	})
	defer carts.Close()

	orders := checkout.NewService(carts, sequenceRepo, publisher, logger)

	handler := httpapi.NewHandler(carts, store, orders, logger)
	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(handler, httpapi.RouterOptions{
			CORSAllowOrigins: cfg.CORSAllowOrigins,
			RequestTimeout:   cfg.RequestTimeout,
		}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("storefront listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Fatal("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown error", zap.Error(err))
	}
	if err := publisher.Close(); err != nil {
		logger.Warn("publisher close error", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
