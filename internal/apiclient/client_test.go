package apiclient_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/travel-session/internal/api/http"
	"github.com/spec-kit/travel-session/internal/api/http/handlers"
	"github.com/spec-kit/travel-session/internal/apiclient"
	"github.com/spec-kit/travel-session/internal/auth"
	"github.com/spec-kit/travel-session/internal/config"
	"github.com/spec-kit/travel-session/internal/domain"
	"github.com/spec-kit/travel-session/internal/repository"
	"github.com/spec-kit/travel-session/internal/service"
	apperrors "github.com/spec-kit/travel-session/pkg/util/errorutil"
)

type authServer struct {
	baseURL string
	tokens  *auth.TokenManager
}

func startAuthAPI(t *testing.T) authServer {
	t.Helper()

	tokens := auth.NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	users := repository.NewMemoryUserRepository()
	authService := service.NewAuthService(config.Config{Auth: config.AuthConfig{BcryptCost: 4}}, service.AuthDependencies{
		UserRepo: users,
		Tokens:   tokens,
	})

	app := httptransport.NewApp("auth-test", zap.NewNop(), nil, 0)
	httptransport.RegisterAuthRoutes(app, httptransport.AuthRouteConfig{
		Health:         handlers.NewHealthHandler("auth-test", "test"),
		Users:          handlers.NewUsersHandler(authService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, users),
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return authServer{baseURL: "http://" + ln.Addr().String(), tokens: tokens}
}

func domainError(t *testing.T, err error) *apperrors.DomainError {
	t.Helper()
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de), "got %T: %v", err, err)
	return de
}

func TestRegisterLoginProfile(t *testing.T) {
	srv := startAuthAPI(t)
	client := apiclient.New(apiclient.Options{BaseURL: srv.baseURL, Timeout: 5 * time.Second})
	ctx := context.Background()

	reg, err := client.Register(ctx, apiclient.RegisterRequest{
		Name:     "Ana",
		Email:    "Ana@Example.com",
		Password: "pw",
		Role:     domain.RoleTourCompany,
	})
	require.NoError(t, err)
	require.NotNil(t, reg.User)
	assert.Equal(t, domain.RoleTourCompany, reg.User.Role)
	assert.NotEmpty(t, reg.Token)
	assert.NotEmpty(t, reg.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), reg.TokenExpirationTime, 5*time.Second)

	login, err := client.Login(ctx, "ana@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	sess := login.Session()
	assert.Equal(t, login.Token, sess.Token)
	assert.True(t, sess.ExpirationTime.Equal(login.TokenExpirationTime))

	profile, err := client.Profile(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", profile.Email)

	refreshed, err := client.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.Token, refreshed.Token)
}

func TestRejectedCallsBecomeDomainErrors(t *testing.T) {
	srv := startAuthAPI(t)
	var unauthorized atomic.Int32
	client := apiclient.New(apiclient.Options{
		BaseURL:        srv.baseURL,
		OnUnauthorized: func(context.Context) { unauthorized.Add(1) },
	})
	ctx := context.Background()

	_, err := client.Register(ctx, apiclient.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = client.Register(ctx, apiclient.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "pw"})
	de := domainError(t, err)
	assert.Equal(t, http.StatusConflict, de.HTTPStatus)
	assert.Equal(t, "email already registered", de.Message)

	_, err = client.Login(ctx, "ana@example.com", "wrong")
	de = domainError(t, err)
	assert.Equal(t, http.StatusUnauthorized, de.HTTPStatus)
	assert.Equal(t, "UPSTREAM_ERROR", de.Code)
	assert.Zero(t, unauthorized.Load(), "login failures are not session failures")

	_, err = client.Register(ctx, apiclient.RegisterRequest{Name: "Root", Email: "root@example.com", Password: "pw", Role: domain.RoleAdmin})
	assert.Equal(t, http.StatusForbidden, domainError(t, err).HTTPStatus)
}

func TestUnauthorizedHook(t *testing.T) {
	srv := startAuthAPI(t)
	var unauthorized atomic.Int32
	client := apiclient.New(apiclient.Options{
		BaseURL:        srv.baseURL,
		OnUnauthorized: func(context.Context) { unauthorized.Add(1) },
	})
	ctx := context.Background()

	expired, _, err := srv.tokens.GenerateTokenWithTTL("someone", domain.RoleCustomer, -time.Minute)
	require.NoError(t, err)

	_, err = client.Profile(ctx, expired)
	assert.Equal(t, http.StatusUnauthorized, domainError(t, err).HTTPStatus)
	assert.Equal(t, int32(1), unauthorized.Load())

	_, err = client.Refresh(ctx, "not-a-refresh-token")
	assert.Equal(t, http.StatusUnauthorized, domainError(t, err).HTTPStatus)
	assert.Equal(t, int32(2), unauthorized.Load())
}

func TestUnreachableAPI(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := apiclient.New(apiclient.Options{BaseURL: "http://" + addr, Timeout: time.Second})

	_, err = client.Login(context.Background(), "ana@example.com", "pw")
	de := domainError(t, err)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", de.Code)
	assert.Equal(t, http.StatusServiceUnavailable, de.HTTPStatus)
}

func TestCancelledContext(t *testing.T) {
	client := apiclient.New(apiclient.Options{BaseURL: "http://127.0.0.1:1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Login(ctx, "a", "b")
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", domainError(t, err).Code)
}
