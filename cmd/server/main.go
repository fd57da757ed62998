package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"

	"github.com/grupokali/portal/internal/authprovider"
	"github.com/grupokali/portal/internal/config"
	"github.com/grupokali/portal/internal/database"
	"github.com/grupokali/portal/internal/feed"
	"github.com/grupokali/portal/internal/handlers"
	"github.com/grupokali/portal/internal/logging"
	"github.com/grupokali/portal/internal/middleware"
	"github.com/grupokali/portal/internal/routes"
	"github.com/grupokali/portal/internal/services"
	"github.com/grupokali/portal/internal/storage"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	portal, err := config.LoadPortalFile(cfg.PortalConfigPath)
	if err != nil {
		slog.Error("failed to load portal file", "path", cfg.PortalConfigPath, "error", err)
		os.Exit(1)
	}
	slog.Info("portal file loaded", "firm", portal.FirmName, "seed_admins", len(portal.SeedAdmins))

	// Database
	db, err := database.Connect(cfg, portal.TablePrefix)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(db, 5*time.Second)
	logging.Setup(pgLogHandler)

	provider, err := newAuthProvider(cfg, db)
	if err != nil {
		slog.Error("auth provider setup failed", "error", err)
		os.Exit(1)
	}
	store, err := newStore(cfg)
	if err != nil {
		slog.Error("blob storage setup failed", "error", err)
		os.Exit(1)
	}

	// Change feed
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	hub := feed.NewHub()
	go hub.Run(ctx)

	var publisher feed.Publisher = hub
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		relay := feed.NewRedisRelay(rdb, cfg.FeedChannel, hub)
		go func() {
			if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("feed relay stopped", "error", err)
			}
		}()
		publisher = relay
		slog.Info("feed relay enabled", "addr", cfg.RedisAddr, "channel", cfg.FeedChannel)
	}

	// Services
	sessionService := services.NewSessionService(db, cfg, provider)
	clientService := services.NewClientService(db, store, publisher, portal.FirmName, cfg.MaxUploadSize)
	credentialService := services.NewCredentialService(db, store, publisher, cfg.MaxUploadSize)
	taskService := services.NewTaskService(db, publisher)
	documentService := services.NewDocumentService(db, store, publisher, cfg.MaxUploadSize)
	messageService := services.NewMessageService(db, publisher, cfg)
	adminService := services.NewAdminService(db, provider, publisher, cfg)

	if err := adminService.Seed(ctx, cfg.SuperAdminPassword, portal.SeedAdmins); err != nil {
		slog.Error("admin seeding failed", "error", err)
		os.Exit(1)
	}

	// Log and session cleanup
	cleanupDone := make(chan struct{})
	logging.StartCleanup(db, cfg.LogRetention, sessionService.PurgeExpired, cleanupDone)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.MaxUploadSize + 1024*1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, sessionService, routes.Handlers{
		Health:    handlers.NewHealthHandler(db, portal.FirmName),
		Auth:      handlers.NewAuthHandler(sessionService),
		Clients:   handlers.NewClientHandler(clientService, credentialService),
		Tasks:     handlers.NewTaskHandler(taskService),
		Documents: handlers.NewDocumentHandler(documentService),
		Messages:  handlers.NewMessageHandler(messageService),
		Admins:    handlers.NewAdminHandler(adminService),
		Feed:      handlers.NewFeedHandler(hub, 30*time.Second),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "auth_provider", cfg.AuthProvider, "storage", cfg.StorageProvider)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	stop()
	close(cleanupDone)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(db); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func newAuthProvider(cfg *config.Config, db *gorm.DB) (authprovider.Provider, error) {
	switch cfg.AuthProvider {
	case "local":
		return authprovider.NewLocal(db), nil
	case "gotrue":
		if cfg.AuthURL == "" || cfg.AuthServiceKey == "" {
			return nil, fmt.Errorf("AUTH_URL and AUTH_SERVICE_KEY are required for the gotrue provider")
		}
		return authprovider.NewGoTrue(cfg.AuthURL, cfg.AuthAnonKey, cfg.AuthServiceKey), nil
	default:
		return nil, fmt.Errorf("unknown AUTH_PROVIDER %q", cfg.AuthProvider)
	}
}

func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageProvider {
	case "local":
		local, err := storage.NewLocal(cfg.StorageDir)
		if err != nil {
			return nil, err
		}
		return local, nil
	case "http":
		if cfg.StorageURL == "" || cfg.StorageKey == "" {
			return nil, fmt.Errorf("STORAGE_URL and STORAGE_KEY are required for the http provider")
		}
		return storage.NewHTTP(cfg.StorageURL, cfg.StorageBucket, cfg.StorageKey), nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_PROVIDER %q", cfg.StorageProvider)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error(), "request_id", middleware.RequestID(c))
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
