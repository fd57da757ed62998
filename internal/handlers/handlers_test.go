package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/grupokali/portal/internal/authprovider"
	"github.com/grupokali/portal/internal/config"
	"github.com/grupokali/portal/internal/database/dbtest"
	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/feed"
	"github.com/grupokali/portal/internal/handlers"
	"github.com/grupokali/portal/internal/routes"
	"github.com/grupokali/portal/internal/services"
	"github.com/grupokali/portal/internal/storage"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	superEmail    = "boss@firm.mx"
	superPassword = "super-secret"
	viewerEmail   = "viewer@firm.mx"
	viewerPass    = "viewer-pass"
)

type testServer struct {
	app *fiber.App
	db  *gorm.DB
	hub *feed.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := dbtest.Open(t)
	cfg := &config.Config{
		JWTSecret:       "test-secret",
		SessionTTL:      time.Hour,
		SuperAdminEmail: superEmail,
		MaxUploadSize:   1 << 20,
	}

	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := feed.NewHub()
	go hub.Run(ctx)

	provider := authprovider.NewLocal(db)
	sessions := services.NewSessionService(db, cfg, provider)
	clients := services.NewClientService(db, store, hub, "Firma de Prueba", cfg.MaxUploadSize)
	admins := services.NewAdminService(db, provider, hub, cfg)
	require.NoError(t, admins.Seed(ctx, superPassword, []config.SeedAdmin{
		{Email: viewerEmail, Role: "LEVEL_1", Password: viewerPass},
	}))

	app := fiber.New()
	app.Use(requestid.New())
	routes.Setup(app, cfg, sessions, routes.Handlers{
		Health:    handlers.NewHealthHandler(db, "Firma de Prueba"),
		Auth:      handlers.NewAuthHandler(sessions),
		Clients:   handlers.NewClientHandler(clients, services.NewCredentialService(db, store, hub, cfg.MaxUploadSize)),
		Tasks:     handlers.NewTaskHandler(services.NewTaskService(db, hub)),
		Documents: handlers.NewDocumentHandler(services.NewDocumentService(db, store, hub, cfg.MaxUploadSize)),
		Messages:  handlers.NewMessageHandler(services.NewMessageService(db, hub, cfg)),
		Admins:    handlers.NewAdminHandler(admins),
		Feed:      handlers.NewFeedHandler(hub, time.Minute),
	})

	return &testServer{app: app, db: db, hub: hub}
}

func (s *testServer) send(t *testing.T, req *http.Request, token string) *http.Response {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(t, req, token)
}

func (s *testServer) upload(t *testing.T, path, token string, fields map[string]string, fileField, fileName string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.send(t, req, token)
}

func (s *testServer) login(t *testing.T, kind, email, password string) string {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/auth/"+kind+"/login", "", dto.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session dto.SessionResponse
	decode(t, resp, &session)
	require.NotEmpty(t, session.AccessToken)
	return session.AccessToken
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body dto.ErrorResponse
	decode(t, resp, &body)
	require.True(t, body.Error)
	return body.Message
}

func clientBody(email, rfc string) dto.ClientRequest {
	return dto.ClientRequest{
		CompanyName: "Comercial del Norte",
		LegalName:   "Comercial del Norte SA de CV",
		Location:    "Monterrey",
		Email:       email,
		RFC:         rfc,
		Password:    "cliente123",
		Admin: dto.ContactRequest{
			FirstName:        "Laura",
			PaternalLastName: "Garza",
		},
	}
}
