package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/travel-session/internal/api/http"
	"github.com/spec-kit/travel-session/internal/api/http/handlers"
	"github.com/spec-kit/travel-session/internal/apiclient"
	"github.com/spec-kit/travel-session/internal/auth"
	"github.com/spec-kit/travel-session/internal/config"
	"github.com/spec-kit/travel-session/internal/domain"
	"github.com/spec-kit/travel-session/internal/events"
	"github.com/spec-kit/travel-session/internal/navigation"
	"github.com/spec-kit/travel-session/internal/observability"
	"github.com/spec-kit/travel-session/internal/service"
	"github.com/spec-kit/travel-session/internal/session"
	"github.com/spec-kit/travel-session/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open session storage", zap.Error(err))
	}
	defer backend.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	navigator := navigation.NewHistory(navigation.HomePath, logger)

	manager := session.NewManager(session.Dependencies{
		Store:      backend.Store,
		Decoder:    auth.NewDecoder(cfg.Session.TokenSecret),
		Dispatcher: dispatcher,
		Navigator:  navigator,
		Logger:     logger.Named("session"),
	}, session.Options{
		ValidationInterval: cfg.Session.ValidationInterval(),
		MaxTimerSegment:    cfg.Session.MaxTimerSegment(),
		LoginPath:          cfg.Session.LoginPath,
	})
	defer manager.Close()

	service.NewSessionEventsService(manager, logger, metrics, cfg.Notification).RegisterHandlers()

	client := apiclient.New(apiclient.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout(),
		OnUnauthorized: func(ctx context.Context) {
			manager.Expire(ctx, domain.TriggerUnauthorized)
		},
		Logger: logger.Named("api"),
	})
	sessions := service.NewSessionService(manager, client, logger)

	if err := manager.Bootstrap(ctx); err != nil {
		logger.Warn("session bootstrap failed; starting anonymous", zap.Error(err))
	}

	app := httptransport.NewApp(cfg.App.Name, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterSessionRoutes(app, httptransport.SessionRouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, handlers.DependencyCheck{Name: cfg.Session.Storage, Ping: backend.Ping}),
		Session: handlers.NewSessionHandler(sessions),
		Metrics: metrics,
	})

	go func() {
		logger.Info("session daemon listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
