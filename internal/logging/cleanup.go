package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/grupokali/portal/internal/models"
	"gorm.io/gorm"
)

// Purger removes expired rows of some other kind alongside the log cleanup.
type Purger func(ctx context.Context, cutoff time.Time) (int64, error)

// StartCleanup runs a daily goroutine that deletes system_logs older than retention
// and calls purgeSessions with the current time.
func StartCleanup(db *gorm.DB, retention time.Duration, purgeSessions Purger, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				Cleanup(context.Background(), db, retention, purgeSessions, time.Now())
			case <-done:
				return
			}
		}
	}()
}

// Cleanup performs a single pass.
func Cleanup(ctx context.Context, db *gorm.DB, retention time.Duration, purgeSessions Purger, now time.Time) {
	cutoff := now.Add(-retention)
	result := db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		slog.Error("log cleanup failed", "error", result.Error)
	} else if result.RowsAffected > 0 {
		slog.Info("log cleanup completed", "deleted", result.RowsAffected)
	}

	if purgeSessions == nil {
		return
	}
	n, err := purgeSessions(ctx, now)
	if err != nil {
		slog.Error("session cleanup failed", "error", err)
	} else if n > 0 {
		slog.Info("session cleanup completed", "deleted", n)
	}
}
