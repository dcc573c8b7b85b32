package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/travel-session/internal/api/dto"
	"github.com/spec-kit/travel-session/internal/apiclient"
	"github.com/spec-kit/travel-session/internal/domain"
	"github.com/spec-kit/travel-session/internal/service"
)

// SessionHandler exposes the client session to the UI.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Get handles GET /session.
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	return c.JSON(h.sessionResponse())
}

// Login handles POST /session/login.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if _, err := h.sessions.Login(c.UserContext(), req.Email, req.Password); err != nil {
		return err
	}
	return c.JSON(h.sessionResponse())
}

// Register handles POST /session/register.
func (h *SessionHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	_, err := h.sessions.Register(c.UserContext(), apiclient.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(h.sessionResponse())
}

// Refresh handles POST /session/refresh.
func (h *SessionHandler) Refresh(c *fiber.Ctx) error {
	if _, err := h.sessions.Refresh(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(h.sessionResponse())
}

// Logout handles POST /session/logout.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	h.sessions.Logout(c.UserContext())
	return c.JSON(h.sessionResponse())
}

// Profile handles GET /session/profile.
func (h *SessionHandler) Profile(c *fiber.Ctx) error {
	profile, err := h.sessions.Profile(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

// Navigation handles GET /navigation.
func (h *SessionHandler) Navigation(c *fiber.Ctx) error {
	return c.JSON(h.navigationResponse())
}

// Visit handles PUT /navigation.
func (h *SessionHandler) Visit(c *fiber.Ctx) error {
	var req dto.NavigationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Path == "" || req.Path[0] != '/' {
		return fiber.NewError(http.StatusBadRequest, "path must start with /")
	}
	h.sessions.Visit(req.Path)
	return c.JSON(h.navigationResponse())
}

func (h *SessionHandler) sessionResponse() dto.SessionResponse {
	status := h.sessions.Status()
	resp := dto.SessionResponse{
		State:            status.State.String(),
		Authenticated:    status.State == domain.StateAuthenticated,
		RemainingSeconds: int64(status.Remaining.Seconds()),
	}
	if sess := status.Session; sess != nil {
		exp := sess.ExpirationTime
		resp.SessionID = sess.ID
		resp.User = sess.User
		resp.ExpiresAt = &exp
	}
	return resp
}

func (h *SessionHandler) navigationResponse() dto.NavigationResponse {
	current, previous := h.sessions.View()
	return dto.NavigationResponse{Current: current, Previous: previous}
}
