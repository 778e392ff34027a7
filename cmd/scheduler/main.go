package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mediatracker/internal/adapter/repo"
	"mediatracker/internal/infra"
	"mediatracker/internal/notify"
	"mediatracker/internal/tracker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.ConnectDBWithRetry(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	jobs := repo.NewJobRepository(runner)

	var notifier tracker.Notifier = tracker.NewLogNotifier(logger)
	if cfg.RedisAddr != "" {
		redisNotifier, err := notify.NewRedisNotifier(ctx, cfg.RedisAddr, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("scheduler: redis connection failed")
		}
		defer redisNotifier.Close()
		notifier = redisNotifier
	}

	registry, err := tracker.BuildRegistry(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: vendor registry setup failed")
	}

	reconciler := tracker.NewReconciler(jobs, notifier, logger)
	scheduler := tracker.NewScheduler(jobs, registry, reconciler, logger, tracker.SchedulerConfig{
		Tick:           cfg.PollTick,
		InitialBackoff: cfg.PollInitialBackoff,
		MaxBackoff:     cfg.PollMaxBackoff,
		MaxAttempts:    cfg.PollMaxAttempts,
		MaxLifetime:    cfg.JobMaxLifetime,
		Concurrency:    cfg.SchedulerConcurrency,
		ClaimLimit:     cfg.SchedulerClaimLimit,
	})

	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("scheduler stopped with error")
	}
	logger.Info().Msg("scheduler stopped")
}
