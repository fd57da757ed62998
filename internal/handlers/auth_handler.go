package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/middleware"
	"github.com/grupokali/portal/internal/services"
)

type AuthHandler struct {
	sessions *services.SessionService
}

func NewAuthHandler(sessions *services.SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

func (h *AuthHandler) AdminLogin(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.sessions.AuthenticateAdmin(c.UserContext(), &req, h.previousSession(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) ClientLogin(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.sessions.AuthenticateClient(c.UserContext(), &req, h.previousSession(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if err := h.sessions.EndSession(c.UserContext(), p.SessionID); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	resp := dto.PrincipalResponse{
		Kind:  string(p.Kind),
		Email: p.Email,
		Role:  string(p.Role),
	}
	if p.IsClient() {
		id := p.ClientID
		resp.ClientID = &id
	}
	return c.JSON(resp)
}

// previousSession returns the session behind a still-valid bearer token sent with a
// login request, so signing in again replaces it.
func (h *AuthHandler) previousSession(c *fiber.Ctx) uuid.UUID {
	raw, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !ok || raw == "" {
		return uuid.Nil
	}
	sid, err := h.sessions.ParseToken(raw)
	if err != nil {
		return uuid.Nil
	}
	return sid
}
