package handlers_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body dto.HealthResponse
	decode(t, resp, &body)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.DB)
	assert.Equal(t, "Firma de Prueba", body.Firm)
}

func TestAdminSessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodPost, "/api/auth/admin/login", "", dto.LoginRequest{Email: superEmail, Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := s.login(t, "admin", superEmail, superPassword)

	resp = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me dto.PrincipalResponse
	decode(t, resp, &me)
	assert.Equal(t, string(models.SessionAdmin), me.Kind)
	assert.Equal(t, superEmail, me.Email)
	assert.Equal(t, string(models.RoleLevel3), me.Role)
	assert.Nil(t, me.ClientID)

	resp = s.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginReplacesPresentedSession(t *testing.T) {
	s := newTestServer(t)

	first := s.login(t, "admin", superEmail, superPassword)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/admin/login",
		strings.NewReader(`{"email":"`+superEmail+`","password":"`+superPassword+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := s.send(t, req, first)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/auth/me", first, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/api/clients", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/clients", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestClientRoutes(t *testing.T) {
	s := newTestServer(t)
	super := s.login(t, "admin", superEmail, superPassword)
	viewer := s.login(t, "admin", viewerEmail, viewerPass)

	resp := s.do(t, http.MethodPost, "/api/clients", super, clientBody("norte@cliente.mx", "CNO010101AB1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Client
	decode(t, resp, &created)
	assert.Equal(t, models.SatPendiente, created.SatStatus)
	assert.True(t, created.IsActive)

	resp = s.do(t, http.MethodPost, "/api/clients", super, clientBody("NORTE@cliente.mx", "XYZ010101AB1"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "email already registered", errorMessage(t, resp))

	resp = s.do(t, http.MethodPost, "/api/clients", super, clientBody("otro@cliente.mx", "SHORT"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorMessage(t, resp), "rfc must have 12 or 13 characters")

	resp = s.do(t, http.MethodPost, "/api/clients", viewer, clientBody("otro@cliente.mx", "OTR010101AB1"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/clients/not-a-uuid", super, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/clients/"+created.ID.String(), viewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/clients/"+created.ID.String()+"/toggle", super, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var toggled models.Client
	decode(t, resp, &toggled)
	assert.False(t, toggled.IsActive)

	resp = s.do(t, http.MethodPost, "/api/auth/client/login", "", dto.LoginRequest{Email: "norte@cliente.mx", Password: "cliente123"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/api/clients/"+created.ID.String(), super, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/clients/"+created.ID.String(), super, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClientPrincipalIsScoped(t *testing.T) {
	s := newTestServer(t)
	super := s.login(t, "admin", superEmail, superPassword)

	var own, other models.Client
	resp := s.do(t, http.MethodPost, "/api/clients", super, clientBody("norte@cliente.mx", "CNO010101AB1"))
	decode(t, resp, &own)
	resp = s.do(t, http.MethodPost, "/api/clients", super, clientBody("sur@cliente.mx", "CSU010101AB1"))
	decode(t, resp, &other)

	token := s.login(t, "client", "norte@cliente.mx", "cliente123")

	resp = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	var me dto.PrincipalResponse
	decode(t, resp, &me)
	require.NotNil(t, me.ClientID)
	assert.Equal(t, own.ID, *me.ClientID)

	resp = s.do(t, http.MethodGet, "/api/clients", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []models.Client
	decode(t, resp, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, own.ID, listed[0].ID)

	resp = s.do(t, http.MethodGet, "/api/clients/"+other.ID.String(), token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/admins", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Admin access required", errorMessage(t, resp))

	resp = s.do(t, http.MethodGet, "/api/clients/export", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestExportRoster(t *testing.T) {
	s := newTestServer(t)
	super := s.login(t, "admin", superEmail, superPassword)
	s.do(t, http.MethodPost, "/api/clients", super, clientBody("norte@cliente.mx", "CNO010101AB1"))

	resp := s.do(t, http.MethodGet, "/api/clients/export", super, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "clientes.xlsx")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(data[:2]))
}

func TestDocumentsTasksAndMessages(t *testing.T) {
	s := newTestServer(t)
	super := s.login(t, "admin", superEmail, superPassword)

	var client models.Client
	resp := s.do(t, http.MethodPost, "/api/clients", super, clientBody("norte@cliente.mx", "CNO010101AB1"))
	decode(t, resp, &client)
	base := "/api/clients/" + client.ID.String()

	token := s.login(t, "client", "norte@cliente.mx", "cliente123")

	// documents
	resp = s.upload(t, base+"/documents", token, map[string]string{"folder": "FISCAL"}, "file", "balance.pdf", []byte("%PDF-1.4 balance"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var doc models.Document
	decode(t, resp, &doc)
	assert.Equal(t, models.FolderFiscal, doc.Folder)
	assert.Equal(t, models.PartyClient, doc.UploadedBy)

	resp = s.upload(t, base+"/documents", token, nil, "", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodGet, base+"/documents?folder=FISCAL", super, nil)
	var docs []models.Document
	decode(t, resp, &docs)
	require.Len(t, docs, 1)

	resp = s.do(t, http.MethodGet, "/api/documents/"+doc.ID.String(), super, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "balance.pdf")
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 balance", string(data))

	resp = s.do(t, http.MethodDelete, "/api/documents/"+doc.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// tasks
	resp = s.do(t, http.MethodPost, base+"/tasks", token, dto.CreateTaskRequest{Title: "Declaración anual"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodPost, base+"/tasks", super, dto.CreateTaskRequest{Title: "Declaración anual"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var task models.Task
	decode(t, resp, &task)

	done := models.TaskCompletada
	resp = s.do(t, http.MethodPatch, "/api/tasks/"+task.ID.String(), token, dto.UpdateTaskRequest{Status: &done})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &task)
	assert.Equal(t, models.TaskCompletada, task.Status)
	assert.NotNil(t, task.CompletedAt)

	// messages
	resp = s.do(t, http.MethodPost, base+"/messages", token, dto.SendMessageRequest{Content: "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPost, base+"/messages", token, dto.SendMessageRequest{Content: "Hola"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = s.do(t, http.MethodPost, base+"/messages", super, dto.SendMessageRequest{Content: "Buen día"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = s.do(t, http.MethodGet, base+"/messages", token, nil)
	var msgs []models.Message
	decode(t, resp, &msgs)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.PartyClient, msgs[0].Sender)
	assert.Equal(t, models.PartyAdmin, msgs[1].Sender)
}

func TestAdminRegistryRoutes(t *testing.T) {
	s := newTestServer(t)
	super := s.login(t, "admin", superEmail, superPassword)

	resp := s.do(t, http.MethodPost, "/api/admins", super, dto.CreateAdminRequest{
		Email: "nuevo@firm.mx", Role: models.RoleLevel2, Password: "nuevo-pass",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = s.do(t, http.MethodPut, "/api/admins/nuevo%40firm.mx", super, dto.UpdateAdminRequest{Role: models.RoleLevel3})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Admin
	decode(t, resp, &updated)
	assert.Equal(t, models.RoleLevel3, updated.Role)

	resp = s.do(t, http.MethodPost, "/api/admins/"+superEmail+"/toggle", super, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/admins", super, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var admins []models.Admin
	decode(t, resp, &admins)
	assert.Len(t, admins, 3)

	resp = s.do(t, http.MethodDelete, "/api/admins/nuevo@firm.mx", super, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFeedRequiresUpgrade(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "admin", superEmail, superPassword)

	resp := s.do(t, http.MethodGet, "/api/feed?token="+token, "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/feed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
