package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/kursadbilgin/batch-lifecycle/internal/config"
	"github.com/kursadbilgin/batch-lifecycle/internal/handler"
	"github.com/kursadbilgin/batch-lifecycle/internal/infra/postgresql"
	"github.com/kursadbilgin/batch-lifecycle/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/batch-lifecycle/internal/infra/redis"
	"github.com/kursadbilgin/batch-lifecycle/internal/observability"
	"github.com/kursadbilgin/batch-lifecycle/internal/queue"
	"github.com/kursadbilgin/batch-lifecycle/internal/repository"
	"github.com/kursadbilgin/batch-lifecycle/internal/service"
	"github.com/kursadbilgin/batch-lifecycle/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	publisher := queue.NewRabbitMQPublisher(rabbit)
	defer publisher.Close()

	metrics := observability.NewMetrics()

	batches := repository.NewGormBatchRepo(db)
	roster := repository.NewGormRosterRepo(db)

	batchService, err := service.NewBatchService(batches, roster, publisher, metrics, logger)
	if err != nil {
		logger.Fatal("batch service init failed", zap.Error(err))
	}

	sweepLock, err := infraredis.NewRedisSweepLock(rdb, time.Duration(cfg.SweepLockTTLSec)*time.Second)
	if err != nil {
		logger.Fatal("sweep lock init failed", zap.Error(err))
	}

	scheduler, err := service.NewScheduler(
		batches,
		roster,
		publisher,
		sweepLock,
		time.Duration(cfg.SchedulerIntervalSec)*time.Second,
		cfg.SchedulerScanLimit,
		metrics,
		logger,
	)
	if err != nil {
		logger.Fatal("scheduler init failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	if err := handler.RegisterBatchRoutes(app, batchService); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("batch lifecycle api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		logger.Info("scheduler started",
			zap.Int("intervalSec", cfg.SchedulerIntervalSec),
			zap.Int("scanLimit", cfg.SchedulerScanLimit),
		)
		return scheduler.Start(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("service terminated", zap.Error(err))
	}
}
