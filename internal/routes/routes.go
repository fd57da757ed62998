package routes

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/grupokali/portal/internal/config"
	"github.com/grupokali/portal/internal/handlers"
	"github.com/grupokali/portal/internal/middleware"
	"github.com/grupokali/portal/internal/services"
)

// Handlers groups everything Setup mounts.
type Handlers struct {
	Health    *handlers.HealthHandler
	Auth      *handlers.AuthHandler
	Clients   *handlers.ClientHandler
	Tasks     *handlers.TaskHandler
	Documents *handlers.DocumentHandler
	Messages  *handlers.MessageHandler
	Admins    *handlers.AdminHandler
	Feed      *handlers.FeedHandler
}

func Setup(app *fiber.App, cfg *config.Config, sessions *services.SessionService, h Handlers) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/admin/login", h.Auth.AdminLogin)
	auth.Post("/client/login", h.Auth.ClientLogin)

	// Protected routes carry their middleware individually so the public routes
	// above never see it.
	jwt := middleware.JWTProtected(cfg)
	session := middleware.SessionRequired(sessions)

	api.Post("/auth/logout", jwt, session, h.Auth.Logout)
	api.Get("/auth/me", jwt, session, h.Auth.Me)

	// Clients; export must precede /clients/:id
	api.Get("/clients", jwt, session, h.Clients.List)
	api.Post("/clients", jwt, session, h.Clients.Create)
	api.Get("/clients/export", jwt, session, h.Clients.Export)
	api.Get("/clients/:id", jwt, session, h.Clients.Get)
	api.Put("/clients/:id", jwt, session, h.Clients.Update)
	api.Delete("/clients/:id", jwt, session, h.Clients.Delete)
	api.Post("/clients/:id/toggle", jwt, session, h.Clients.Toggle)

	api.Put("/clients/:id/credentials/:slot", jwt, session, h.Clients.ReplaceCredential)
	api.Get("/clients/:id/credentials/:slot", jwt, session, h.Clients.DownloadCredential)

	api.Get("/clients/:id/tasks", jwt, session, h.Tasks.List)
	api.Post("/clients/:id/tasks", jwt, session, h.Tasks.Create)
	api.Patch("/tasks/:id", jwt, session, h.Tasks.Update)
	api.Delete("/tasks/:id", jwt, session, h.Tasks.Delete)

	api.Get("/clients/:id/documents", jwt, session, h.Documents.List)
	api.Post("/clients/:id/documents", jwt, session, h.Documents.Upload)
	api.Get("/documents/:id", jwt, session, h.Documents.Download)
	api.Delete("/documents/:id", jwt, session, h.Documents.Delete)

	api.Get("/clients/:id/messages", jwt, session, h.Messages.List)
	api.Post("/clients/:id/messages", jwt, session, h.Messages.Send)

	// Staff registry (clients are turned away before the tier checks)
	admins := api.Group("/admins", jwt, session, middleware.AdminRequired())
	admins.Get("/", h.Admins.List)
	admins.Post("/", h.Admins.Create)
	admins.Put("/:email", h.Admins.Update)
	admins.Delete("/:email", h.Admins.Delete)
	admins.Post("/:email/toggle", h.Admins.Toggle)

	// Change feed; browsers cannot set headers on websocket upgrades
	api.Get("/feed",
		middleware.JWTFromQuery(cfg),
		session,
		h.Feed.Upgrade,
		websocket.New(h.Feed.Stream),
	)
}
