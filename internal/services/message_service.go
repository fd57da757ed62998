package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grupokali/portal/internal/config"
	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/feed"
	"github.com/grupokali/portal/internal/models"
	"github.com/grupokali/portal/internal/policy"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxMessageLength = 4000

type MessageService struct {
	db             *gorm.DB
	pub            feed.Publisher
	autoReply      string
	autoReplyDelay time.Duration
	schedule       func(time.Duration, func())
}

func NewMessageService(db *gorm.DB, pub feed.Publisher, cfg *config.Config) *MessageService {
	return &MessageService{
		db:             db,
		pub:            pub,
		autoReply:      strings.TrimSpace(cfg.AutoReplyMessage),
		autoReplyDelay: cfg.AutoReplyDelay,
		schedule: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// SendMessage appends to the client's thread. The sender is the caller's side, never
// a request field. A client message schedules the automatic acknowledgement when one
// is configured.
func (s *MessageService) SendMessage(ctx context.Context, p policy.Principal, clientID uuid.UUID, req *dto.SendMessageRequest) (*models.Message, error) {
	if err := authorize(p, policy.SendMessage, policy.Client(clientID)); err != nil {
		return nil, err
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, invalid("message is empty")
	}
	if len(content) > maxMessageLength {
		return nil, invalid("message exceeds %d characters", maxMessageLength)
	}
	if _, err := loadClient(ctx, s.db, clientID); err != nil {
		return nil, err
	}

	msg, err := s.append(ctx, clientID, p.Party(), content)
	if err != nil {
		return nil, err
	}

	if p.IsClient() && s.autoReply != "" {
		s.schedule(s.autoReplyDelay, func() {
			if _, err := s.append(context.Background(), clientID, models.PartyAdmin, s.autoReply); err != nil {
				slog.Error("auto reply failed", "client_id", clientID, "error", err)
			}
		})
	}
	return msg, nil
}

// ListMessages returns the thread in timestamp order.
func (s *MessageService) ListMessages(ctx context.Context, p policy.Principal, clientID uuid.UUID) ([]models.Message, error) {
	if err := authorize(p, policy.ViewMessages, policy.Client(clientID)); err != nil {
		return nil, err
	}

	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}}).
		Find(&messages).Error
	if err != nil {
		return nil, storeErr("list messages", err)
	}
	return messages, nil
}

// append stamps the message strictly after the newest one in the thread, at the
// store's microsecond precision, and inserts it.
func (s *MessageService) append(ctx context.Context, clientID uuid.UUID, sender models.Party, content string) (*models.Message, error) {
	msg := models.Message{ClientID: clientID, Sender: sender, Content: content}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ts := time.Now().UTC().Truncate(time.Microsecond)

		var latest models.Message
		err := tx.Where("client_id = ?", clientID).Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).Limit(1).Take(&latest).Error
		switch {
		case err == nil:
			if prev := latest.Timestamp.UTC(); !ts.After(prev) {
				ts = prev.Add(time.Microsecond)
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		msg.Timestamp = ts
		return tx.Create(&msg).Error
	})
	if err != nil {
		return nil, storeErr("append message", err)
	}

	publish(ctx, s.pub, tableMessages, feed.Insert, clientID, &msg, nil)
	return &msg, nil
}
