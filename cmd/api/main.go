package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mediatracker/internal/adapter/repo"
	"mediatracker/internal/http/handlers"
	"mediatracker/internal/http/httpapi"
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
		logger.Fatal().Err(err).Msg("api: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	jobs := repo.NewJobRepository(runner)

	var notifier tracker.Notifier = tracker.NewLogNotifier(logger)
	if cfg.RedisAddr != "" {
		redisNotifier, err := notify.NewRedisNotifier(ctx, cfg.RedisAddr, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: redis connection failed")
		}
		defer redisNotifier.Close()
		notifier = redisNotifier
	}

	registry, err := tracker.BuildRegistry(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: vendor registry setup failed")
	}

	reconciler := tracker.NewReconciler(jobs, notifier, logger)
	service := tracker.NewService(jobs, registry, reconciler, logger, cfg.StartRetryMaxElapsed)

	app := handlers.NewApp(service, logger, cfg.WebhookSecret)
	router := httpapi.NewRouter(app, logger, cfg.JWTSecret)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("api listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("api stopped")
}
