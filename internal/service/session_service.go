package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/travel-session/internal/apiclient"
	"github.com/spec-kit/travel-session/internal/auth"
	"github.com/spec-kit/travel-session/internal/domain"
	"github.com/spec-kit/travel-session/internal/navigation"
	"github.com/spec-kit/travel-session/internal/session"
	apperrors "github.com/spec-kit/travel-session/pkg/util/errorutil"
)

// AuthAPI is the REST collaborator used by SessionService.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*apiclient.AuthResponse, error)
	Register(ctx context.Context, req apiclient.RegisterRequest) (*apiclient.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*apiclient.AuthResponse, error)
	Profile(ctx context.Context, token string) (*domain.UserProfile, error)
}

// Status describes the session as shown to the UI.
type Status struct {
	State     domain.State
	Session   *domain.Session
	Remaining time.Duration
}

// SessionService drives the session manager from user actions.
type SessionService struct {
	manager *session.Manager
	api     AuthAPI
	logger  *zap.Logger
	now     func() time.Time
}

// NewSessionService builds the service.
func NewSessionService(manager *session.Manager, api AuthAPI, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{manager: manager, api: api, logger: logger, now: time.Now}
}

// Status reports the current session.
func (s *SessionService) Status() Status {
	sess := s.manager.GetSession()
	st := Status{State: s.manager.State(), Session: sess}
	if sess != nil {
		st.Remaining = sess.Remaining(s.now())
	}
	return st
}

// Login signs in and redirects to the role's landing page. Failures leave the
// current session and its timers as they were.
func (s *SessionService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password required", nil)
	}
	previous := s.previousView()

	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.logger.Info("login rejected", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	return s.start(ctx, resp, previous)
}

// Register creates an account and signs in with it.
func (s *SessionService) Register(ctx context.Context, req apiclient.RegisterRequest) (*domain.Session, error) {
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, apperrors.NewValidationError("name, email, password required", nil)
	}
	previous := s.previousView()

	resp, err := s.api.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.start(ctx, resp, previous)
}

// Refresh replaces the session with a freshly issued token pair. The view is kept.
func (s *SessionService) Refresh(ctx context.Context) (*domain.Session, error) {
	current := s.manager.GetSession()
	if current == nil {
		return nil, apperrors.NewUnauthorized("not signed in")
	}
	if current.RefreshToken == "" {
		return nil, apperrors.NewValidationError("session has no refresh token", nil)
	}

	resp, err := s.api.Refresh(ctx, current.RefreshToken)
	if err != nil {
		return nil, err
	}
	if err := s.manager.SetSession(ctx, resp.Session()); err != nil {
		return nil, unusableToken(err)
	}
	return s.manager.GetSession(), nil
}

// Logout ends the session.
func (s *SessionService) Logout(ctx context.Context) {
	s.manager.ClearSession(ctx)
}

// Profile fetches the signed-in user. A 401 ends the session through the client hook.
func (s *SessionService) Profile(ctx context.Context) (*domain.UserProfile, error) {
	current := s.manager.GetSession()
	if current == nil {
		return nil, apperrors.NewUnauthorized("not signed in")
	}
	return s.api.Profile(ctx, current.Token)
}

// View returns the current view and, when known, the one before it.
func (s *SessionService) View() (current, previous string) {
	nav := s.manager.Navigator()
	if h, ok := nav.(interface{ Previous() string }); ok {
		previous = h.Previous()
	}
	return nav.Current(), previous
}

// Visit records a view the user opened.
func (s *SessionService) Visit(path string) {
	nav := s.manager.Navigator()
	if v, ok := nav.(interface{ Visit(string) }); ok {
		v.Visit(path)
		return
	}
	nav.Navigate(path)
}

func (s *SessionService) start(ctx context.Context, resp *apiclient.AuthResponse, previous string) (*domain.Session, error) {
	if err := s.manager.SetSession(ctx, resp.Session()); err != nil {
		return nil, unusableToken(err)
	}
	sess := s.manager.GetSession()
	if sess == nil {
		return nil, apperrors.NewUnauthorized("session ended")
	}

	role := domain.RoleCustomer
	if sess.User != nil {
		role = sess.User.Role
	}
	s.manager.Navigator().Navigate(auth.LandingPath(role, previous))
	return sess, nil
}

// previousView is where a customer returns after signing in.
func (s *SessionService) previousView() string {
	nav := s.manager.Navigator()
	current := nav.Current()
	if current != navigation.LoginPath {
		return current
	}
	if h, ok := nav.(interface{ Previous() string }); ok {
		return h.Previous()
	}
	return ""
}

func unusableToken(err error) error {
	if errors.Is(err, session.ErrInvalidToken) {
		return apperrors.NewUpstreamError(http.StatusBadGateway, "server issued an unusable token", err)
	}
	return apperrors.NewInternalError(err)
}
