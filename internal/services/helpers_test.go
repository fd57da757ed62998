package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/grupokali/portal/internal/authprovider"
	"github.com/grupokali/portal/internal/config"
	"github.com/grupokali/portal/internal/database/dbtest"
	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/feed"
	"github.com/grupokali/portal/internal/models"
	"github.com/grupokali/portal/internal/policy"
	"github.com/grupokali/portal/internal/storage"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const superEmail = "boss@firm.mx"

var errInjected = errors.New("injected failure")

type fakeProvider struct {
	mu        sync.Mutex
	users     map[string]string
	ids       map[string]string
	signedOut []string
	deleted   []string
	createErr error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{users: map[string]string{}, ids: map[string]string{}}
}

func (f *fakeProvider) SignIn(_ context.Context, email, password string) (*authprovider.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pw, ok := f.users[email]; !ok || pw != password {
		return nil, authprovider.ErrInvalidCredentials
	}
	return &authprovider.Session{Token: "tok-" + email, Email: email}, nil
}

func (f *fakeProvider) SignOut(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = append(f.signedOut, token)
	return nil
}

func (f *fakeProvider) CreateUser(_ context.Context, email, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	if _, ok := f.users[email]; ok {
		return "", authprovider.ErrUserExists
	}
	id := "id-" + email
	f.users[email] = password
	f.ids[id] = email
	return id, nil
}

func (f *fakeProvider) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	delete(f.users, f.ids[id])
	delete(f.ids, id)
	return nil
}

func (f *fakeProvider) has(email string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[email]
	return ok
}

// recorder collects published change events.
type recorder struct {
	mu     sync.Mutex
	events []feed.Event
}

func (r *recorder) Publish(_ context.Context, ev feed.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) tables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Table+":"+string(ev.Type))
	}
	return out
}

// flakyStore wraps the local store and fails operations on keys containing a marker.
type flakyStore struct {
	*storage.Local
	failUpload string
	failRemove bool
}

func (s *flakyStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if s.failUpload != "" && strings.Contains(key, s.failUpload) {
		return errInjected
	}
	return s.Local.Upload(ctx, key, data, contentType)
}

func (s *flakyStore) Remove(ctx context.Context, keys ...string) error {
	if s.failRemove {
		return errInjected
	}
	return s.Local.Remove(ctx, keys...)
}

type env struct {
	db       *gorm.DB
	cfg      *config.Config
	store    *flakyStore
	provider *fakeProvider
	pub      *recorder

	sessions    *SessionService
	clients     *ClientService
	credentials *CredentialService
	tasks       *TaskService
	documents   *DocumentService
	messages    *MessageService
	admins      *AdminService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	local, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	e := &env{
		db: dbtest.Open(t),
		cfg: &config.Config{
			JWTSecret:       "test-secret",
			SessionTTL:      time.Hour,
			SuperAdminEmail: superEmail,
		},
		store:    &flakyStore{Local: local},
		provider: newFakeProvider(),
		pub:      &recorder{},
	}

	e.sessions = NewSessionService(e.db, e.cfg, e.provider)
	e.clients = NewClientService(e.db, e.store, e.pub, "Firma de Prueba", 1<<20)
	e.credentials = NewCredentialService(e.db, e.store, e.pub, 1<<20)
	e.tasks = NewTaskService(e.db, e.pub)
	e.documents = NewDocumentService(e.db, e.store, e.pub, 1<<20)
	e.messages = NewMessageService(e.db, e.pub, e.cfg)
	e.admins = NewAdminService(e.db, e.provider, e.pub, e.cfg)

	require.NoError(t, e.admins.Seed(context.Background(), "super-secret", nil))
	return e
}

func adminPrincipal(email string, role models.Role) policy.Principal {
	return policy.Principal{Kind: models.SessionAdmin, Email: email, Role: role}
}

var (
	super  = adminPrincipal(superEmail, models.RoleLevel3)
	level1 = adminPrincipal("uno@firm.mx", models.RoleLevel1)
	level2 = adminPrincipal("dos@firm.mx", models.RoleLevel2)
)

func clientPrincipal(c *models.Client) policy.Principal {
	return policy.Principal{Kind: models.SessionClient, Email: c.Email, ClientID: c.ID}
}

func clientRequest(email, rfc string) *dto.ClientRequest {
	return &dto.ClientRequest{
		CompanyName: "Comercial del Norte",
		LegalName:   "Comercial del Norte SA de CV",
		Location:    "Monterrey",
		Email:       email,
		Phone:       "8180000000",
		RFC:         rfc,
		Password:    "cliente123",
		Admin: dto.ContactRequest{
			FirstName:        "Laura",
			PaternalLastName: "Garza",
			MaternalLastName: "Treviño",
		},
	}
}

func (e *env) addClient(t *testing.T, email, rfc string) *models.Client {
	t.Helper()
	c, err := e.clients.AddClient(context.Background(), super, clientRequest(email, rfc), nil)
	require.NoError(t, err)
	return c
}

func pdf(name string) dto.Upload {
	return dto.Upload{FileName: name, ContentType: "application/pdf", Data: []byte("%PDF-1.4 " + name)}
}

// failCreates makes every insert into table fail.
func failCreates(t *testing.T, db *gorm.DB, table string) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(errInjected)
		}
	})
	require.NoError(t, err)
}

func count(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}
