package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grupokali/portal/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const batchSize = 50

// PGHandler is an slog.Handler that batches ERROR+ logs into system_logs.
type PGHandler struct {
	db     *gorm.DB
	attrs  []slog.Attr
	state  *pgState
	ticker *time.Ticker
}

type pgState struct {
	mu      sync.Mutex
	buffer  []models.SystemLog
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func NewPGHandler(db *gorm.DB, interval time.Duration) *PGHandler {
	h := &PGHandler{
		db: db,
		state: &pgState{
			buffer:  make([]models.SystemLog, 0, batchSize),
			done:    make(chan struct{}),
			stopped: make(chan struct{}),
		},
		ticker: time.NewTicker(interval),
	}
	go h.flushLoop()
	return h
}

func (h *PGHandler) flushLoop() {
	defer close(h.state.stopped)
	for {
		select {
		case <-h.ticker.C:
			h.flush()
		case <-h.state.done:
			h.flush()
			return
		}
	}
}

func (h *PGHandler) flush() {
	h.state.mu.Lock()
	if len(h.state.buffer) == 0 {
		h.state.mu.Unlock()
		return
	}
	batch := h.state.buffer
	h.state.buffer = make([]models.SystemLog, 0, batchSize)
	h.state.mu.Unlock()

	if err := h.db.CreateInBatches(batch, batchSize).Error; err != nil {
		// Goes to stdout only; this handler ignores its own failures.
		slog.Warn("failed to flush system logs to DB", "error", err, "count", len(batch))
	}
}

// Stop flushes what is buffered, ends the background loop and waits for it.
func (h *PGHandler) Stop() {
	h.state.once.Do(func() {
		h.ticker.Stop()
		close(h.state.done)
	})
	<-h.state.stopped
}

// Enabled only handles ERROR and above.
func (h *PGHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *PGHandler) Handle(_ context.Context, record slog.Record) error {
	entry := models.SystemLog{
		ID:        uuid.New(),
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
	}

	extra := make(map[string]interface{})
	apply := func(a slog.Attr) bool {
		switch a.Key {
		case "request_id":
			entry.RequestID = a.Value.String()
		case "actor_email", "email":
			s := a.Value.String()
			entry.ActorEmail = &s
		case "client_id":
			s := a.Value.String()
			entry.ClientID = &s
		case "action":
			entry.Action = a.Value.String()
		case "error":
			entry.Error = a.Value.String()
		default:
			extra[a.Key] = a.Value.Any()
		}
		return true
	}
	for _, a := range h.attrs {
		apply(a)
	}
	record.Attrs(apply)

	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = datatypes.JSON(b)
		}
	}

	h.state.mu.Lock()
	h.state.buffer = append(h.state.buffer, entry)
	needFlush := len(h.state.buffer) >= batchSize
	h.state.mu.Unlock()

	if needFlush {
		go h.flush()
	}
	return nil
}

func (h *PGHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &PGHandler{db: h.db, attrs: merged, state: h.state, ticker: h.ticker}
}

func (h *PGHandler) WithGroup(name string) slog.Handler {
	return h
}
