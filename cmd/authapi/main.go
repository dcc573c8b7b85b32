package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/travel-session/internal/api/http"
	"github.com/spec-kit/travel-session/internal/api/http/handlers"
	"github.com/spec-kit/travel-session/internal/auth"
	"github.com/spec-kit/travel-session/internal/config"
	"github.com/spec-kit/travel-session/internal/observability"
	"github.com/spec-kit/travel-session/internal/persistence"
	"github.com/spec-kit/travel-session/internal/repository"
	"github.com/spec-kit/travel-session/internal/service"
)

// authapi is a development stand-in for the auth endpoints of the travel REST API.
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

	var (
		userRepo repository.UserRepository
		checks   []handlers.DependencyCheck
	)
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	switch {
	case errors.Is(err, persistence.ErrPostgresNotConfigured):
		logger.Warn("POSTGRES_DSN not set; using in-memory user repository")
		userRepo = repository.NewMemoryUserRepository()
	case err != nil:
		logger.Fatal("failed to connect postgres", zap.Error(err))
	default:
		defer pg.Close()
		if err := pg.Migrate(ctx, cfg.Postgres, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		userRepo = repository.NewUserRepository(pg.Pool())
		checks = append(checks, handlers.DependencyCheck{Name: "postgres", Ping: pg.Ping})
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: userRepo})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	metrics := observability.NewMetrics()
	app := httptransport.NewApp(cfg.App.Name+"-auth", logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterAuthRoutes(app, httptransport.AuthRouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name+"-auth", cfg.App.Version, checks...),
		Users:          handlers.NewUsersHandler(authService),
		AuthMiddleware: authMiddleware,
	})

	addr := cfg.API.ListenAddr
	go func() {
		logger.Info("auth api listening", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	_ = app.Shutdown()
}
