package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/grupokali/portal/internal/database"
	"github.com/grupokali/portal/internal/dto"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db   *gorm.DB
	firm string
}

func NewHealthHandler(db *gorm.DB, firm string) *HealthHandler {
	return &HealthHandler{db: db, firm: firm}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := database.Ping(h.db); err != nil {
		dbStatus = "unhealthy"
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Firm:      h.firm,
	})
}
