package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"tripledger/internal/auth"
	"tripledger/internal/backend"
	"tripledger/internal/cache"
	"tripledger/internal/cli"
	"tripledger/internal/config"
	"tripledger/internal/core"
	apphttp "tripledger/internal/http"
	applog "tripledger/internal/log"
	"tripledger/internal/metrics"
	"tripledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig((*config.Config).Validate)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, applog.ComponentApp)
	ctx := context.Background()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger.WithComponent(applog.ComponentStorage).Logger)

	store, err := factory.CreateStore(ctx, bcfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize store", applog.FieldError, err, "backend", bcfg.Type)
		os.Exit(1)
	}
	publisher, err := factory.CreatePublisher(ctx, bcfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize event publisher", applog.FieldError, err)
		os.Exit(1)
	}

	m := metrics.New()
	summaries := cache.NewLRUCache[core.Summary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	caches := cache.NewManager()
	caches.Register(summaries)
	caches.StartCleanup(time.Minute)

	dashboard := services.NewDashboardService(store.Store, summaries, m)
	notifier := services.NewNotifier(publisher.Publisher, dashboard, m)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AuthRateLimit:      cfg.AuthRateLimit,
	}, apphttp.Deps{
		Store:      store.Store,
		Auth:       auth.NewPasswordAuthenticator(store.Store),
		Tokens:     auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL),
		Categories: services.NewCategoryService(store.Store, notifier),
		Expenses:   services.NewExpenseService(store.Store, notifier),
		Trips:      services.NewTripService(store.Store, notifier, m, cfg.ReconcileConcurrency),
		Dashboard:  dashboard,
		Metrics:    m,
		Logger:     logger.WithComponent(applog.ComponentHTTP),
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.ErrorContext(ctx, "Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
		if err := publisher.Cleanup(); err != nil {
			logger.WarnContext(ctx, "Failed to close event publisher", applog.FieldError, err)
		}
		if err := store.Cleanup(); err != nil {
			logger.WarnContext(ctx, "Failed to close store", applog.FieldError, err)
		}
	})

	logger.InfoContext(ctx, "Starting tripledger server",
		"port", cfg.Port,
		"backend", bcfg.Type,
		"events", bcfg.EventsEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.ErrorContext(ctx, "Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.InfoContext(ctx, "Server stopped gracefully")
}
