package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/travel-session/internal/auth"
	"github.com/spec-kit/travel-session/internal/config"
	"github.com/spec-kit/travel-session/internal/domain"
	"github.com/spec-kit/travel-session/internal/repository"
	apperrors "github.com/spec-kit/travel-session/pkg/util/errorutil"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(config.Config{Auth: config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 30,
		RefreshTokenTTLHours:  1,
		BcryptCost:            4,
	}}, AuthDependencies{UserRepo: repository.NewMemoryUserRepository()})
}

func statusOf(err error) int {
	return apperrors.ToDomainError(err).HTTPStatus
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	reg, err := svc.RegisterUser(ctx, RegisterInput{Name: " Ana ", Email: "Ana@Example.com", Password: "pw", Role: domain.RoleSpecialtyShop})
	require.NoError(t, err)
	assert.Equal(t, "Ana", reg.User.Name)
	assert.Equal(t, domain.RoleSpecialtyShop, reg.User.Role)
	assert.NotEmpty(t, reg.User.ID)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), reg.ExpiresAt, 5*time.Second)

	claims, err := svc.TokenManager().ParseToken(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.Subject)
	assert.Equal(t, domain.RoleSpecialtyShop, claims.Role)

	login, err := svc.LoginUser(ctx, "ana@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)
}

func TestRegisterRejections(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	_, err := svc.RegisterUser(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		in     RegisterInput
		status int
	}{
		{"missing fields", RegisterInput{Email: "b@example.com"}, http.StatusBadRequest},
		{"admin self-registration", RegisterInput{Name: "Root", Email: "root@example.com", Password: "pw", Role: domain.RoleAdmin}, http.StatusForbidden},
		{"duplicate email", RegisterInput{Name: "Ana", Email: "ANA@example.com", Password: "pw"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterUser(ctx, tt.in)
			assert.Equal(t, tt.status, statusOf(err))
		})
	}
}

func TestUnknownRoleRegistersAsCustomer(t *testing.T) {
	svc := newAuthService(t)

	res, err := svc.RegisterUser(context.Background(), RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "pw", Role: "pilot"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, res.User.Role)
}

func TestLoginRejections(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()
	_, err := svc.RegisterUser(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.LoginUser(ctx, "ana@example.com", "wrong")
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))

	_, err = svc.LoginUser(ctx, "nobody@example.com", "pw")
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))

	_, err = svc.LoginUser(ctx, "", "pw")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}

func TestRefresh(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()
	reg, err := svc.RegisterUser(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)

	res, err := svc.Refresh(ctx, reg.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)

	_, err = svc.Refresh(ctx, reg.Token)
	assert.Equal(t, http.StatusUnauthorized, statusOf(err), "access tokens are not refresh tokens")

	other := auth.NewTokenManager("other-secret", time.Hour, time.Hour)
	forged, err := other.GenerateRefreshToken(reg.User.ID, domain.RoleCustomer)
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, forged)
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))
}
