package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/grupokali/portal/internal/feed"
	"github.com/grupokali/portal/internal/models"
	"gorm.io/gorm"
)

// Table names carried by change events. They are logical names and do not
// include the configured table prefix.
const (
	tableClients   = "clients"
	tableTasks     = "tasks"
	tableDocuments = "documents"
	tableMessages  = "messages"
	tableAdmins    = "admins"
)

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
func normalizeRFC(s string) string   { return strings.ToUpper(strings.TrimSpace(s)) }

func publish(ctx context.Context, pub feed.Publisher, table string, typ feed.EventType, clientID uuid.UUID, newRow, oldRow any) {
	ev, err := feed.NewEvent(table, typ, clientID, newRow, oldRow)
	if err != nil {
		slog.Error("failed to build change event", "table", table, "error", err)
		return
	}
	pub.Publish(ctx, ev)
}

// emailInUse checks the union of client and admin identities. exceptClient lets a
// client keep its own address on update.
func emailInUse(ctx context.Context, db *gorm.DB, email string, exceptClient uuid.UUID) (bool, error) {
	var n int64
	q := db.WithContext(ctx).Model(&models.Client{}).Where("LOWER(email) = ?", email)
	if exceptClient != uuid.Nil {
		q = q.Where("id <> ?", exceptClient)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, storeErr("check client email", err)
	}
	if n > 0 {
		return true, nil
	}

	if err := db.WithContext(ctx).Model(&models.Admin{}).Where("LOWER(email) = ?", email).Count(&n).Error; err != nil {
		return false, storeErr("check admin email", err)
	}
	return n > 0, nil
}

func rfcInUse(ctx context.Context, db *gorm.DB, rfc string, exceptClient uuid.UUID) (bool, error) {
	var n int64
	q := db.WithContext(ctx).Model(&models.Client{}).Where("UPPER(rfc) = ?", rfc)
	if exceptClient != uuid.Nil {
		q = q.Where("id <> ?", exceptClient)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, storeErr("check rfc", err)
	}
	return n > 0, nil
}

func loadClient(ctx context.Context, db *gorm.DB, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := db.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("load client", err)
	}
	return &client, nil
}

func revokeSessions(tx *gorm.DB, kind models.SessionKind, subject string) error {
	return tx.Model(&models.Session{}).
		Where("kind = ? AND subject = ? AND revoked = ?", kind, subject, false).
		Update("revoked", true).Error
}
