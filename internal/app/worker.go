package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leaveflow/internal/config"
	"leaveflow/internal/leavebalance"
	"leaveflow/internal/leavetype"
	"leaveflow/internal/messaging/kafka"
	"leaveflow/internal/messaging/kafka/producer"
	"leaveflow/internal/shared/connection"

	"go.uber.org/zap"
)

// RunWorker drives the two background jobs: relaying outbox events to kafka
// and the year-boundary carry-over of unused balances.
func RunWorker(cfg *config.Config) error {
	logger := zap.L().Named("app.worker")

	gormDB, err := connection.ConnectGORMWithRetry(
		cfg.Database.DSN(),
		connection.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute,
		},
		5,
	)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if cfg.Kafka.Broker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	kafkaWriter, err := connection.ConnectKafkaWithRetry(cfg.Kafka.Broker, 5)
	if err != nil {
		return err
	}
	defer kafkaWriter.Close()

	outboxRepo := kafka.NewOutboxRepository(sqlDB)

	leaveTypeService := leavetype.NewService(leavetype.NewRepository(gormDB))
	balanceService := leavebalance.NewService(sqlDB, leavebalance.NewRepository(gormDB), leaveTypeService, cfg.CarryOver.Concurrency)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go producer.ProcessOutboxEvents(
		ctx,
		outboxRepo,
		kafkaWriter,
		logger,
		cfg.Kafka.PollInterval,
	)

	go runCarryOverScheduler(ctx, balanceService, cfg.CarryOver.CheckInterval, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("worker shutting down")
	cancel()

	return nil
}

// runCarryOverScheduler fires the carry-over job once per year boundary. The
// job itself is idempotent, so a restart near new year cannot double-credit.
func runCarryOverScheduler(
	ctx context.Context,
	balances leavebalance.Service,
	checkInterval time.Duration,
	logger *zap.Logger,
) {
	if checkInterval <= 0 {
		checkInterval = time.Hour
	}

	log := logger.Named("carryover.scheduler")
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	lastSeenYear := time.Now().UTC().Year()
	log.Info("carry over scheduler started",
		zap.Duration("check_interval", checkInterval),
		zap.Int("year", lastSeenYear),
	)

	for {
		select {
		case <-ctx.Done():
			log.Info("carry over scheduler stopped")
			return
		case <-ticker.C:
			year := time.Now().UTC().Year()
			if year == lastSeenYear {
				continue
			}

			summary, err := balances.CarryOver(ctx, year-1)
			if err != nil {
				log.Error("carry over run failed", zap.Int("from_year", year-1), zap.Error(err))
				continue
			}

			log.Info("carry over run finished",
				zap.Int("from_year", summary.FromYear),
				zap.Int("processed", summary.Processed),
				zap.Int("failed", summary.Failed),
			)
			lastSeenYear = year
		}
	}
}
