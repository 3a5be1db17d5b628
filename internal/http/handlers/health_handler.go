package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/proposal-backend/internal/ai"
)

// HealthHandler отвечает на проверки живости сервиса и его зависимостей.
type HealthHandler struct {
	db       *sqlx.DB
	aiClient *ai.Client
}

// NewHealthHandler создаёт хэндлер.
func NewHealthHandler(db *sqlx.DB, aiClient *ai.Client) *HealthHandler {
	return &HealthHandler{db: db, aiClient: aiClient}
}

// Health обрабатывает GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	dbStatus := "ok"
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		dbStatus = "unavailable"
	}

	aiStatus := "ok"
	if !h.aiClient.Health(c.Request.Context()) {
		aiStatus = "unavailable"
	}

	status := http.StatusOK
	if dbStatus != "ok" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":     "ok",
		"database":   dbStatus,
		"ai_service": aiStatus,
	})
}
