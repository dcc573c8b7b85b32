package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/travel-session/internal/auth"
	"github.com/spec-kit/travel-session/internal/config"
	"github.com/spec-kit/travel-session/internal/domain"
	"github.com/spec-kit/travel-session/internal/repository"
	apperrors "github.com/spec-kit/travel-session/pkg/util/errorutil"
)

// AuthResult is what register, login and refresh hand back to the client.
type AuthResult struct {
	User         domain.UserProfile
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
}

// RegisterInput carries a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     domain.Role
}

// AuthService coordinates registration and login flows of the auth API.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Tokens   *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	tokens := deps.Tokens
	if tokens == nil {
		tokens = auth.NewTokenManager(
			cfg.Auth.JWTSecret,
			time.Duration(cfg.Auth.AccessTokenTTLMinutes)*time.Minute,
			time.Duration(cfg.Auth.RefreshTokenTTLHours)*time.Hour,
		)
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   tokens,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// RegisterUser creates an account. Admin accounts cannot self-register.
func (s *AuthService) RegisterUser(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, apperrors.NewValidationError("name, email, password required", nil)
	}
	role := domain.ParseRole(string(in.Role))
	if role == domain.RoleAdmin {
		return nil, apperrors.NewForbidden("role cannot be self-assigned")
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Profile: domain.UserProfile{
			Name:  in.Name,
			Email: in.Email,
			Phone: in.Phone,
			Role:  role,
		},
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperrors.NewConflict("email already registered", nil)
		}
		return nil, err
	}
	return s.issue(user)
}

// LoginUser authenticates an account by email and password.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password required", nil)
	}
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issue(user)
}

// Refresh issues a new token pair for a valid refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokenMgr.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid refresh token")
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewUnauthorized("user not found")
		}
		return nil, err
	}
	return s.issue(user)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.Profile.ID, user.Profile.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	refresh, err := s.tokenMgr.GenerateRefreshToken(user.Profile.ID, user.Profile.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user.Profile, Token: token, RefreshToken: refresh, ExpiresAt: exp}, nil
}
