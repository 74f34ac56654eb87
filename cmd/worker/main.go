package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/HanzKay/KrasandApps-V1/internal/config"
	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/HanzKay/KrasandApps-V1/internal/events"
	"github.com/HanzKay/KrasandApps-V1/internal/logger"
	"github.com/HanzKay/KrasandApps-V1/internal/service"
	"github.com/HanzKay/KrasandApps-V1/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(cfg.Server.Env); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		zap.L().Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		zap.L().Fatal("ping database", zap.Error(err))
	}

	queries := database.New(pool)
	memberships := service.NewMembershipService(pool, func(db database.DBTX) service.MembershipStore {
		return database.New(db)
	})

	var wg sync.WaitGroup

	sweeper := worker.NewExpirySweeper(memberships, cfg.Worker.ExpirySweepInterval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zap.L().Error("expiry sweeper", zap.Error(err))
		}
	}()

	alerter := worker.NewStockAlerter(queries)
	if _, err := alerter.Check(ctx); err != nil {
		zap.L().Warn("initial stock check", zap.Error(err))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		consumer := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrders, cfg.Kafka.ConsumerGroup)
		defer consumer.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx, alerter.Handle); err != nil && !errors.Is(err, context.Canceled) {
				zap.L().Error("stock alerter", zap.Error(err))
			}
		}()
	} else {
		zap.L().Warn("KAFKA_BROKERS not set; stock alerts only run at startup")
	}

	zap.L().Info("worker started")
	<-ctx.Done()
	zap.L().Info("shutting down worker")
	wg.Wait()
}
