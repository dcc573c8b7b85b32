// Package apiclient calls the travel REST API auth endpoints.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/travel-session/internal/domain"
	apperrors "github.com/spec-kit/travel-session/pkg/util/errorutil"
)

// UnauthorizedHandler runs when an authorized call is answered with 401.
type UnauthorizedHandler func(ctx context.Context)

// Options configures a Client.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	OnUnauthorized UnauthorizedHandler
	Logger         *zap.Logger
}

// Client is a thin JSON client over fiber's HTTP agent.
type Client struct {
	baseURL        string
	timeout        time.Duration
	onUnauthorized UnauthorizedHandler
	logger         *zap.Logger
}

// New builds a client.
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		timeout:        opts.Timeout,
		onUnauthorized: opts.OnUnauthorized,
		logger:         logger,
	}
}

// SetUnauthorizedHandler replaces the 401 hook.
func (c *Client) SetUnauthorizedHandler(fn UnauthorizedHandler) {
	c.onUnauthorized = fn
}

// AuthResponse is returned by login, registration and refresh.
type AuthResponse struct {
	User                *domain.UserProfile `json:"user"`
	Token               string              `json:"token"`
	RefreshToken        string              `json:"refreshToken,omitempty"`
	TokenExpirationTime time.Time           `json:"tokenExpirationTime"`
}

// Session converts the response into a session for the manager.
func (r *AuthResponse) Session() domain.Session {
	return domain.Session{
		User:           r.User,
		Token:          r.Token,
		RefreshToken:   r.RefreshToken,
		ExpirationTime: r.TokenExpirationTime,
	}
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Phone    string      `json:"phone,omitempty"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, request{
		method: fiber.MethodPost,
		path:   "/auth/login",
		body:   loginRequest{Email: email, Password: password},
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns its first session.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, request{
		method: fiber.MethodPost,
		path:   "/auth/register",
		body:   req,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh trades a refresh token for a new session. A 401 invokes the unauthorized hook.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, request{
		method:     fiber.MethodPost,
		path:       "/auth/refresh",
		body:       refreshRequest{RefreshToken: refreshToken},
		authorized: true,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile loads the signed-in user. A 401 invokes the unauthorized hook.
func (c *Client) Profile(ctx context.Context, token string) (*domain.UserProfile, error) {
	var out domain.UserProfile
	if err := c.do(ctx, request{
		method:     fiber.MethodGet,
		path:       "/auth/me",
		token:      token,
		authorized: true,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type request struct {
	method     string
	path       string
	body       any
	token      string
	authorized bool
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewUnavailable(err)
	}

	url := c.baseURL + req.path
	var agent *fiber.Agent
	switch req.method {
	case fiber.MethodGet:
		agent = fiber.Get(url)
	default:
		agent = fiber.Post(url)
	}
	if req.body != nil {
		agent.JSON(req.body)
	}
	if req.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+req.token)
	}
	if timeout := c.timeoutFor(ctx); timeout > 0 {
		agent.Timeout(timeout)
	}
	if err := agent.Parse(); err != nil {
		return apperrors.NewUnavailable(err)
	}

	start := time.Now()
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		err := errors.Join(errs...)
		c.logger.Warn("api call failed",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Error(err))
		return apperrors.NewUnavailable(err)
	}
	c.logger.Debug("api call",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)))

	if status == http.StatusUnauthorized && req.authorized && c.onUnauthorized != nil {
		c.onUnauthorized(ctx)
	}
	if status < 200 || status >= 300 {
		return upstreamError(status, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.NewUpstreamError(http.StatusBadGateway, "unreadable response", err)
	}
	return nil
}

func (c *Client) timeoutFor(ctx context.Context) time.Duration {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); timeout <= 0 || left < timeout {
			timeout = left
		}
	}
	return timeout
}

func upstreamError(status int, body []byte) error {
	var envelope errorEnvelope
	message := http.StatusText(status)
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}
	return apperrors.NewUpstreamError(status, message, fmt.Errorf("status %d", status))
}
