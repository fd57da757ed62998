package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/feed"
	"github.com/grupokali/portal/internal/models"
	"github.com/grupokali/portal/internal/policy"
	"github.com/grupokali/portal/internal/saga"
	"github.com/grupokali/portal/internal/storage"
	"gorm.io/gorm"
)

type DocumentService struct {
	db      *gorm.DB
	store   storage.Store
	pub     feed.Publisher
	maxSize int
}

func NewDocumentService(db *gorm.DB, store storage.Store, pub feed.Publisher, maxSize int) *DocumentService {
	return &DocumentService{db: db, store: store, pub: pub, maxSize: maxSize}
}

func documentKey(clientID uuid.UUID, folder models.DocumentFolder, fileName string, at time.Time) string {
	return fmt.Sprintf("%s/%s/%d_%s", clientID, folder, at.UnixNano(), storage.SafeFileName(fileName))
}

// UploadDocument writes the blob, then the metadata row. If the row cannot be
// written the blob is removed again. uploaded_by comes from the caller's identity.
func (s *DocumentService) UploadDocument(ctx context.Context, p policy.Principal, clientID uuid.UUID, folder models.DocumentFolder, file dto.Upload) (*models.Document, error) {
	if err := authorize(p, policy.UploadDocument, policy.Client(clientID)); err != nil {
		return nil, err
	}

	if folder == "" {
		folder = models.FolderGeneral
	}
	if !folder.Valid() {
		return nil, invalid("unknown folder %q", folder)
	}
	if file.FileName == "" {
		return nil, invalid("file name is required")
	}
	if len(file.Data) == 0 {
		return nil, invalid("file is empty")
	}
	if s.maxSize > 0 && len(file.Data) > s.maxSize {
		return nil, invalid("file exceeds %d bytes", s.maxSize)
	}
	if _, err := loadClient(ctx, s.db, clientID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := models.Document{
		ClientID:    clientID,
		FileName:    file.FileName,
		FilePath:    documentKey(clientID, folder, file.FileName, now),
		Folder:      folder,
		UploadedBy:  p.Party(),
		ContentType: file.ContentType,
		Size:        int64(len(file.Data)),
		UploadedAt:  now,
	}

	err := saga.Run(ctx, "upload document",
		saga.Step{
			Name: "upload blob",
			Do: func(ctx context.Context) error {
				return blobErr("upload document", s.store.Upload(ctx, doc.FilePath, file.Data, file.ContentType))
			},
			Compensate: func(ctx context.Context) error {
				return s.store.Remove(ctx, doc.FilePath)
			},
		},
		saga.Step{
			Name: "insert metadata",
			Do: func(ctx context.Context) error {
				return storeErr("insert document", s.db.WithContext(ctx).Create(&doc).Error)
			},
		},
	)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.pub, tableDocuments, feed.Insert, clientID, &doc, nil)
	return &doc, nil
}

// DeleteDocument removes the blob first. If that fails the row is left as is so the
// delete can be retried.
func (s *DocumentService) DeleteDocument(ctx context.Context, p policy.Principal, id uuid.UUID) error {
	doc, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(p, policy.DeleteDocument, policy.Resource{ClientID: doc.ClientID, UploadedBy: doc.UploadedBy}); err != nil {
		return err
	}

	if err := s.store.Remove(ctx, doc.FilePath); err != nil {
		return blobErr("remove document", err)
	}

	if err := s.db.WithContext(ctx).Delete(&models.Document{}, "id = ?", id).Error; err != nil {
		return storeErr("delete document", err)
	}

	publish(ctx, s.pub, tableDocuments, feed.Delete, doc.ClientID, nil, doc)
	return nil
}

func (s *DocumentService) DownloadDocument(ctx context.Context, p policy.Principal, id uuid.UUID) (*dto.Download, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(p, policy.DownloadDocument, policy.Client(doc.ClientID)); err != nil {
		return nil, err
	}

	data, err := s.store.Download(ctx, doc.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("document blob: %w", ErrNotFound)
		}
		return nil, blobErr("download document", err)
	}
	return &dto.Download{FileName: doc.FileName, ContentType: doc.ContentType, Data: data}, nil
}

// ListDocuments returns the client's documents, newest first. An empty folder
// lists every folder.
func (s *DocumentService) ListDocuments(ctx context.Context, p policy.Principal, clientID uuid.UUID, folder models.DocumentFolder) ([]models.Document, error) {
	if err := authorize(p, policy.ViewDocuments, policy.Client(clientID)); err != nil {
		return nil, err
	}
	if folder != "" && !folder.Valid() {
		return nil, invalid("unknown folder %q", folder)
	}

	q := s.db.WithContext(ctx).Where("client_id = ?", clientID)
	if folder != "" {
		q = q.Where("folder = ?", folder)
	}

	var docs []models.Document
	if err := q.Order("uploaded_at DESC").Find(&docs).Error; err != nil {
		return nil, storeErr("list documents", err)
	}
	return docs, nil
}

func (s *DocumentService) load(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	if err := s.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("load document", err)
	}
	return &doc, nil
}
