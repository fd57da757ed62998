// Command portalwatch signs in to the portal and prints live changes while keeping
// an in-memory mirror of the rows it has seen.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/grupokali/portal/internal/feed"
	"github.com/grupokali/portal/internal/logging"
	"github.com/grupokali/portal/internal/watch"
	"github.com/joho/godotenv"
)

func main() {
	logging.Setup()
	_ = godotenv.Load()

	baseURL := flag.String("url", envOr("PORTAL_URL", "http://localhost:8080"), "portal base URL")
	kind := flag.String("kind", "admin", "account kind: admin or client")
	email := flag.String("email", os.Getenv("PORTAL_EMAIL"), "login email")
	password := flag.String("password", os.Getenv("PORTAL_PASSWORD"), "login password")
	flag.Parse()

	if *email == "" || *password == "" {
		slog.Error("email and password are required (flags or PORTAL_EMAIL / PORTAL_PASSWORD)")
		os.Exit(2)
	}
	if *kind != "admin" && *kind != "client" {
		slog.Error("kind must be admin or client", "kind", *kind)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	token, err := watch.Login(ctx, *baseURL, *kind, *email, *password)
	if err != nil {
		slog.Error("login failed", "error", err)
		os.Exit(1)
	}

	feedURL, err := watch.FeedURL(*baseURL, token)
	if err != nil {
		slog.Error("invalid portal URL", "url", *baseURL, "error", err)
		os.Exit(1)
	}

	mirror := watch.NewMirror()
	slog.Info("watching portal feed", "url", *baseURL, "kind", *kind)

	err = watch.Stream(ctx, feedURL, mirror, func(ev feed.Event) {
		slog.Info("change",
			"table", ev.Table,
			"type", ev.Type,
			"client_id", ev.ClientID,
			"clients", mirror.Clients.Len(),
			"tasks", mirror.Tasks.Len(),
			"documents", mirror.Documents.Len(),
			"messages", mirror.Messages.Len(),
		)
	})
	if err != nil {
		slog.Error("feed stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("feed closed")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
