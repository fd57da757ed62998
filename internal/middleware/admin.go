package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/grupokali/portal/internal/dto"
)

// AdminRequired rejects client sessions before they reach staff-only routes. Tier
// checks still happen in the services.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !GetPrincipal(c).IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Admin access required",
			})
		}
		return c.Next()
	}
}
