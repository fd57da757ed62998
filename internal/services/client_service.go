package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/feed"
	"github.com/grupokali/portal/internal/models"
	"github.com/grupokali/portal/internal/policy"
	"github.com/grupokali/portal/internal/saga"
	"github.com/grupokali/portal/internal/storage"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

type ClientService struct {
	db       *gorm.DB
	store    storage.Store
	pub      feed.Publisher
	firmName string
	maxSize  int
}

func NewClientService(db *gorm.DB, store storage.Store, pub feed.Publisher, firmName string, maxSize int) *ClientService {
	return &ClientService{db: db, store: store, pub: pub, firmName: firmName, maxSize: maxSize}
}

// AddClient registers a client together with any credential files. Registration is
// all or nothing: if a file cannot be stored the client row and every blob already
// written are removed.
func (s *ClientService) AddClient(ctx context.Context, p policy.Principal, req *dto.ClientRequest, files map[models.CredentialSlot]dto.Upload) (*models.Client, error) {
	if err := authorize(p, policy.CreateClient, policy.Resource{}); err != nil {
		return nil, err
	}

	if req.Password == "" {
		return nil, invalid("password is required")
	}
	for slot, file := range files {
		if !slot.Valid() {
			return nil, invalid("unknown credential slot %q", slot)
		}
		if len(file.Data) == 0 {
			return nil, invalid("credential file %s is empty", slot)
		}
		if s.maxSize > 0 && len(file.Data) > s.maxSize {
			return nil, invalid("credential file %s exceeds %d bytes", slot, s.maxSize)
		}
	}

	client, err := s.validate(ctx, req, nil)
	if err != nil {
		return nil, err
	}

	client.SatStatus = models.SatPendiente
	client.IsActive = true

	steps := []saga.Step{{
		Name: "insert client",
		Do: func(ctx context.Context) error {
			return storeErr("insert client", s.db.WithContext(ctx).Create(client).Error)
		},
		Compensate: func(ctx context.Context) error {
			return s.db.WithContext(ctx).Delete(&models.Client{}, "id = ?", client.ID).Error
		},
	}}

	paths := make(map[string]any)
	now := time.Now().UTC()
	for _, slot := range models.CredentialSlots {
		file, ok := files[slot]
		if !ok {
			continue
		}
		key := credentialKey(client.ID, slot, file.FileName, now)
		steps = append(steps, saga.Step{
			Name: "upload " + string(slot),
			Do: func(ctx context.Context) error {
				return blobErr("upload "+string(slot), s.store.Upload(ctx, key, file.Data, file.ContentType))
			},
			Compensate: func(ctx context.Context) error {
				return s.store.Remove(ctx, key)
			},
		})
		paths[models.CredentialColumn(slot)] = key
		paths[models.CredentialNameColumn(slot)] = uploadName(file.FileName)
	}

	if len(paths) > 0 {
		steps = append(steps, saga.Step{
			Name: "save credential references",
			Do: func(ctx context.Context) error {
				err := s.db.WithContext(ctx).Model(&models.Client{}).Where("id = ?", client.ID).Updates(paths).Error
				return storeErr("save credential references", err)
			},
		})
	}

	if err := saga.Run(ctx, "add client", steps...); err != nil {
		slog.Error("client registration failed", "email", client.Email, "rfc", client.RFC, "error", err)
		return nil, err
	}

	created, err := loadClient(ctx, s.db, client.ID)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.pub, tableClients, feed.Insert, created.ID, created, nil)
	slog.Info("welcome notice sent",
		"client_id", created.ID,
		"email", created.Email,
		"company", created.CompanyName,
		"firm", s.firmName,
	)
	return created, nil
}

// UpdateClient replaces every editable field of the record.
func (s *ClientService) UpdateClient(ctx context.Context, p policy.Principal, id uuid.UUID, req *dto.ClientRequest) (*models.Client, error) {
	if err := authorize(p, policy.UpdateClient, policy.Client(id)); err != nil {
		return nil, err
	}

	existing, err := loadClient(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	old := *existing

	client, err := s.validate(ctx, req, existing)
	if err != nil {
		return nil, err
	}

	if req.SatStatus != "" {
		if !req.SatStatus.Valid() {
			return nil, invalid("unknown sat status %q", req.SatStatus)
		}
		client.SatStatus = req.SatStatus
	}
	if req.IsActive != nil {
		client.IsActive = *req.IsActive
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(client).Error; err != nil {
			return err
		}
		if old.IsActive && !client.IsActive {
			return revokeSessions(tx, models.SessionClient, client.ID.String())
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("update client", err)
	}

	publish(ctx, s.pub, tableClients, feed.Update, client.ID, client, &old)
	return client, nil
}

// ToggleClientStatus flips is_active. Deactivation ends the client's sessions.
func (s *ClientService) ToggleClientStatus(ctx context.Context, p policy.Principal, id uuid.UUID) (*models.Client, error) {
	if err := authorize(p, policy.ToggleClient, policy.Client(id)); err != nil {
		return nil, err
	}

	client, err := loadClient(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	old := *client
	client.IsActive = !client.IsActive

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(client).Update("is_active", client.IsActive).Error; err != nil {
			return err
		}
		if !client.IsActive {
			return revokeSessions(tx, models.SessionClient, client.ID.String())
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("toggle client", err)
	}

	publish(ctx, s.pub, tableClients, feed.Update, client.ID, client, &old)
	return client, nil
}

// DeleteClient removes the client's blobs, then its messages, tasks and documents,
// then the client row. Blob removal is best effort; the rows go in one transaction.
func (s *ClientService) DeleteClient(ctx context.Context, p policy.Principal, id uuid.UUID) error {
	if err := authorize(p, policy.DeleteClient, policy.Client(id)); err != nil {
		return err
	}

	client, err := loadClient(ctx, s.db, id)
	if err != nil {
		return err
	}

	var keys []string
	if err := s.db.WithContext(ctx).Model(&models.Document{}).Where("client_id = ?", id).Pluck("file_path", &keys).Error; err != nil {
		return storeErr("list documents", err)
	}
	for _, slot := range models.CredentialSlots {
		if path := client.CredentialPath(slot); path != nil && *path != "" {
			keys = append(keys, *path)
		}
	}
	if len(keys) > 0 {
		if err := s.store.Remove(ctx, keys...); err != nil {
			slog.Error("failed to remove client blobs", "client_id", id, "count", len(keys), "error", err)
		}
	}
	// sweeps blobs no row points at anymore, such as credentials a failed replace left behind
	if err := s.store.RemovePrefix(ctx, id.String()+"/"); err != nil {
		slog.Error("failed to remove client folder", "client_id", id, "error", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("client_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", id).Delete(&models.Document{}).Error; err != nil {
			return err
		}
		if err := tx.Where("kind = ? AND subject = ?", models.SessionClient, id.String()).Delete(&models.Session{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Client{}, "id = ?", id).Error
	})
	if err != nil {
		return storeErr("delete client", err)
	}

	publish(ctx, s.pub, tableClients, feed.Delete, id, nil, client)
	slog.Info("client deleted", "client_id", id, "actor", p.Email, "blobs", len(keys))
	return nil
}

func (s *ClientService) GetClient(ctx context.Context, p policy.Principal, id uuid.UUID) (*models.Client, error) {
	if err := authorize(p, policy.ViewClients, policy.Client(id)); err != nil {
		return nil, err
	}
	return loadClient(ctx, s.db, id)
}

// ListClients returns every client, newest first, to admins and only the caller's
// own record to a client.
func (s *ClientService) ListClients(ctx context.Context, p policy.Principal) ([]models.Client, error) {
	if p.IsClient() {
		client, err := s.GetClient(ctx, p, p.ClientID)
		if err != nil {
			return nil, err
		}
		return []models.Client{*client}, nil
	}

	if err := authorize(p, policy.ViewClients, policy.Resource{}); err != nil {
		return nil, err
	}

	var clients []models.Client
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&clients).Error; err != nil {
		return nil, storeErr("list clients", err)
	}
	return clients, nil
}

// validate normalizes and checks a client request. existing is nil on create.
func (s *ClientService) validate(ctx context.Context, req *dto.ClientRequest, existing *models.Client) (*models.Client, error) {
	email := normalizeEmail(req.Email)
	rfc := normalizeRFC(req.RFC)

	switch {
	case strings.TrimSpace(req.CompanyName) == "":
		return nil, invalid("company name is required")
	case strings.TrimSpace(req.LegalName) == "":
		return nil, invalid("legal name is required")
	case email == "" || !strings.Contains(email, "@"):
		return nil, invalid("a valid email is required")
	case len(rfc) < 12 || len(rfc) > 13:
		return nil, invalid("rfc must have 12 or 13 characters")
	case req.Password != "" && len(req.Password) < minPasswordLength:
		return nil, invalid("password must be at least %d characters", minPasswordLength)
	}

	except := uuid.Nil
	client := &models.Client{}
	if existing != nil {
		except = existing.ID
		updated := *existing
		client = &updated
	}

	taken, err := emailInUse(ctx, s.db, email, except)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	taken, err = rfcInUse(ctx, s.db, rfc, except)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrRFCTaken
	}

	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		client.PasswordHash = string(hash)
	}

	client.CompanyName = strings.TrimSpace(req.CompanyName)
	client.LegalName = strings.TrimSpace(req.LegalName)
	client.Location = strings.TrimSpace(req.Location)
	client.Email = email
	client.Phone = strings.TrimSpace(req.Phone)
	client.RFC = rfc
	client.Contact.FirstName = strings.TrimSpace(req.Admin.FirstName)
	client.Contact.PaternalLastName = strings.TrimSpace(req.Admin.PaternalLastName)
	client.Contact.MaternalLastName = strings.TrimSpace(req.Admin.MaternalLastName)
	client.Contact.Phone = strings.TrimSpace(req.Admin.Phone)
	return client, nil
}
