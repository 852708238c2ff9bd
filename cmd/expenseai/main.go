package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"expenseai/internal/backend"
	"expenseai/internal/cache"
	"expenseai/internal/cli"
	apphttp "expenseai/internal/http"
	applog "expenseai/internal/log"
)

const cacheCleanupInterval = 10 * time.Minute

func main() {
	cfg, logger := cli.LoadConfig(applog.ComponentApp)
	shutdownTracing := cli.InitTracing(logger, cfg, applog.ComponentApp)

	app, err := backend.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}

	if cfg.SeedSampleData {
		if _, err := app.Expenses.SeedIfEmpty(context.Background()); err != nil {
			logger.Error("Failed to seed sample expenses", "error", err)
		}
	}

	cacheManager := cache.NewManager()
	if app.Models.QueryCache != nil {
		cacheManager.Register("query_embeddings", app.Models.QueryCache)
	}
	cacheManager.StartCleanup(cacheCleanupInterval)

	var opts []apphttp.Option
	if app.Store.Ready != nil {
		opts = append(opts, apphttp.WithReadinessCheck("store", apphttp.ReadinessCheck(app.Store.Ready)))
	}
	if app.Events != nil {
		opts = append(opts, apphttp.WithReadinessCheck("amqp", app.Events.Ping))
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               cfg.Addr(),
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, app.Expenses, app.Assistant, app.Insights, opts...)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if err := app.Close(); err != nil {
			logger.Error("Failed to release resources", "error", err)
		}
		shutdownTracing(ctx)
	})

	// Label embeddings load lazily; warming early only shortens the first classification.
	go func() {
		if err := app.Models.Classifier.Warm(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("Category embeddings not warmed, will retry on first use", "error", err)
		}
	}()

	logger.Info("Starting expenseai server",
		"addr", cfg.Addr(),
		"backend", cfg.DataBackend,
		"llm_provider", cfg.LLMProvider,
		"amqp_enabled", app.Events != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "addr", cfg.Addr())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
