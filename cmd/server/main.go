package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HanzKay/KrasandApps-V1/internal/cache"
	"github.com/HanzKay/KrasandApps-V1/internal/config"
	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/HanzKay/KrasandApps-V1/internal/events"
	"github.com/HanzKay/KrasandApps-V1/internal/logger"
	"github.com/HanzKay/KrasandApps-V1/internal/router"
	"github.com/HanzKay/KrasandApps-V1/internal/tracing"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(cfg.Server.Env); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		zap.L().Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	tp, err := tracing.Init(cfg.Observ.ServiceName, cfg.Observ.JaegerEndpoint)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	if tp != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				zap.L().Warn("shutdown tracer", zap.Error(err))
			}
		}()
	}

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.URL); err != nil {
			return err
		}
		zap.L().Info("migrations applied")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	zap.L().Info("database connected")

	var c *cache.Cache
	if cfg.Redis.Addr != "" {
		c, err = cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CatalogTTL, cfg.Redis.IdempotencyTTL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer c.Close()
		zap.L().Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	} else {
		zap.L().Warn("REDIS_ADDR not set; catalog cache and idempotency keys disabled")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrders)
		defer producer.Close()
		publisher = events.NewKafkaPublisher(producer)
		zap.L().Info("kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	r := router.New(cfg, router.Deps{
		Queries:   database.New(pool),
		Pool:      pool,
		Cache:     c,
		Publisher: publisher,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		zap.L().Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	zap.L().Info("server stopped")
	return nil
}
