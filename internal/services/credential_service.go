package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/feed"
	"github.com/grupokali/portal/internal/models"
	"github.com/grupokali/portal/internal/policy"
	"github.com/grupokali/portal/internal/storage"
	"gorm.io/gorm"
)

// CredentialService manages the four credential files kept per client. Each slot is
// replaced on its own.
type CredentialService struct {
	db      *gorm.DB
	store   storage.Store
	pub     feed.Publisher
	maxSize int
}

func NewCredentialService(db *gorm.DB, store storage.Store, pub feed.Publisher, maxSize int) *CredentialService {
	return &CredentialService{db: db, store: store, pub: pub, maxSize: maxSize}
}

// credentialKey namespaces a credential blob by owner, slot and upload time.
func credentialKey(clientID uuid.UUID, slot models.CredentialSlot, fileName string, at time.Time) string {
	return fmt.Sprintf("%s/credentials/%s_%d_%s", clientID, slot, at.UnixNano(), storage.SafeFileName(fileName))
}

// credentialFileName recovers the uploaded file name from a credential key.
func credentialFileName(key string) string {
	base := path.Base(key)
	parts := strings.SplitN(base, "_", 3)
	// slot names contain one underscore themselves: company_efirma_<nanos>_<name>
	if len(parts) == 3 {
		if rest := strings.SplitN(parts[2], "_", 2); len(rest) == 2 {
			return rest[1]
		}
	}
	return base
}

// uploadName keeps the name a file was uploaded under, minus any client-side directories.
func uploadName(fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// ReplaceCredential stores a new file for slot and points the client at it. The old
// blob is removed first on a best-effort basis; a failed upload leaves the stored
// reference untouched.
func (s *CredentialService) ReplaceCredential(ctx context.Context, p policy.Principal, clientID uuid.UUID, slot models.CredentialSlot, file dto.Upload) (string, error) {
	if err := authorize(p, policy.ReplaceCredential, policy.Client(clientID)); err != nil {
		return "", err
	}
	if !slot.Valid() {
		return "", invalid("unknown credential slot %q", slot)
	}
	if len(file.Data) == 0 {
		return "", invalid("file is empty")
	}
	if s.maxSize > 0 && len(file.Data) > s.maxSize {
		return "", invalid("file exceeds %d bytes", s.maxSize)
	}

	client, err := loadClient(ctx, s.db, clientID)
	if err != nil {
		return "", err
	}
	old := *client

	if prev := client.CredentialPath(slot); prev != nil && *prev != "" {
		if err := s.store.Remove(ctx, *prev); err != nil {
			slog.Warn("failed to remove previous credential", "client_id", clientID, "slot", slot, "key", *prev, "error", err)
		}
	}

	key := credentialKey(clientID, slot, file.FileName, time.Now().UTC())
	if err := s.store.Upload(ctx, key, file.Data, file.ContentType); err != nil {
		return "", blobErr("upload credential", err)
	}

	updates := map[string]any{
		models.CredentialColumn(slot):     key,
		models.CredentialNameColumn(slot): uploadName(file.FileName),
	}
	if err := s.db.WithContext(ctx).Model(&models.Client{}).Where("id = ?", clientID).Updates(updates).Error; err != nil {
		if rmErr := s.store.Remove(ctx, key); rmErr != nil {
			slog.Error("failed to remove orphaned credential", "key", key, "error", rmErr)
		}
		return "", storeErr("save credential reference", err)
	}

	client.SetCredentialPath(slot, &key)
	client.SetCredentialName(slot, uploadName(file.FileName))
	publish(ctx, s.pub, tableClients, feed.Update, clientID, client, &old)
	return key, nil
}

// DownloadCredential returns the slot's file under its original name.
func (s *CredentialService) DownloadCredential(ctx context.Context, p policy.Principal, clientID uuid.UUID, slot models.CredentialSlot) (*dto.Download, error) {
	if err := authorize(p, policy.DownloadCredential, policy.Client(clientID)); err != nil {
		return nil, err
	}
	if !slot.Valid() {
		return nil, invalid("unknown credential slot %q", slot)
	}

	client, err := loadClient(ctx, s.db, clientID)
	if err != nil {
		return nil, err
	}

	key := client.CredentialPath(slot)
	if key == nil || *key == "" {
		return nil, fmt.Errorf("credential %s: %w", slot, ErrNotFound)
	}

	data, err := s.store.Download(ctx, *key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("credential %s: %w", slot, ErrNotFound)
		}
		return nil, blobErr("download credential", err)
	}
	name := client.CredentialName(slot)
	if name == "" {
		name = credentialFileName(*key)
	}
	return &dto.Download{FileName: name, Data: data}, nil
}
