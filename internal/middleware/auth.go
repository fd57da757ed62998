package middleware

import (
	"errors"
	"log/slog"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/grupokali/portal/internal/config"
	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/services"
)

// JWTProtected verifies the bearer token in the Authorization header.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtMiddleware(cfg, "header:Authorization")
}

// JWTFromQuery verifies a token passed as ?token=, for websocket upgrades where
// browsers cannot set headers.
func JWTFromQuery(cfg *config.Config) fiber.Handler {
	return jwtMiddleware(cfg, "query:token")
}

func jwtMiddleware(cfg *config.Config, lookup string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:  jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.JWTSecret)},
		TokenLookup: lookup,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}

// SessionRequired resolves the verified token's session into a principal. It must
// run after JWTProtected or JWTFromQuery.
func SessionRequired(sessions *services.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok || token == nil {
			return unauthorized(c)
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return unauthorized(c)
		}

		sid, err := services.SessionIDFromClaims(claims)
		if err != nil {
			return unauthorized(c)
		}

		p, err := sessions.Resolve(c.UserContext(), sid)
		if err != nil {
			if errors.Is(err, services.ErrSessionInvalid) {
				return unauthorized(c)
			}
			slog.Error("session lookup failed", "error", err, "request_id", RequestID(c))
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Internal server error",
			})
		}

		SetPrincipal(c, p)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized: session expired or revoked",
	})
}
