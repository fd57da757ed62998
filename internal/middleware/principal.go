package middleware

import (
	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/grupokali/portal/internal/policy"
)

const principalKey = "principal"

// SetPrincipal stores the caller for downstream handlers and tags the Sentry scope.
func SetPrincipal(c *fiber.Ctx, p policy.Principal) {
	c.Locals(principalKey, p)

	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		user := sentry.User{Email: p.Email}
		if p.ClientID != uuid.Nil {
			user.ID = p.ClientID.String()
		}
		hub.Scope().SetUser(user)
	}
}

// GetPrincipal returns the caller stored by SessionRequired. The zero Principal is
// denied by every policy check.
func GetPrincipal(c *fiber.Ctx) policy.Principal {
	if p, ok := c.Locals(principalKey).(policy.Principal); ok {
		return p
	}
	return policy.Principal{}
}

// RequestID returns the id assigned by the requestid middleware.
func RequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}
