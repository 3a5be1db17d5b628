package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/proposal-backend/internal/models"
	"github.com/ignatzorin/proposal-backend/internal/service"
)

// SchemaHandler предоставляет HTTP слой для управления схемами.
type SchemaHandler struct {
	schemas *service.SchemaService
}

// NewSchemaHandler создаёт хэндлер.
func NewSchemaHandler(schemas *service.SchemaService) *SchemaHandler {
	return &SchemaHandler{schemas: schemas}
}

type schemaRequest struct {
	Name          string              `json:"name" binding:"required"`
	Version       string              `json:"version"`
	Description   string              `json:"description"`
	Sections      []models.SectionDef `json:"sections" binding:"required"`
	GlobalRules   []models.Rule       `json:"global_rules"`
	ChangeSummary string              `json:"change_summary"`
}

// Create обрабатывает POST /schemas.
func (h *SchemaHandler) Create(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req schemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schema, err := h.schemas.Create(c.Request.Context(), actor, service.SchemaInput{
		Name:        req.Name,
		Version:     req.Version,
		Description: req.Description,
		Sections:    req.Sections,
		GlobalRules: req.GlobalRules,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"schema": schema})
}

// Update обрабатывает PUT /schemas/:id.
func (h *SchemaHandler) Update(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	id := uuid.MustParse(c.Param("id"))

	var req schemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.schemas.Update(c.Request.Context(), actor, id, service.SchemaInput{
		Name:          req.Name,
		Version:       req.Version,
		Description:   req.Description,
		Sections:      req.Sections,
		GlobalRules:   req.GlobalRules,
		ChangeSummary: req.ChangeSummary,
	})
	if err != nil {
		c.Error(err)
		return
	}

	resp := gin.H{"schema": result.Schema}
	if result.Warning != "" {
		resp["warning"] = result.Warning
	}

	c.JSON(http.StatusOK, resp)
}

// List обрабатывает GET /schemas.
func (h *SchemaHandler) List(c *gin.Context) {
	schemas, err := h.schemas.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"schemas": schemas})
}

// Get обрабатывает GET /schemas/:id.
func (h *SchemaHandler) Get(c *gin.Context) {
	id := uuid.MustParse(c.Param("id"))

	schema, err := h.schemas.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"schema": schema})
}

// Delete обрабатывает DELETE /schemas/:id.
func (h *SchemaHandler) Delete(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	id := uuid.MustParse(c.Param("id"))

	if err := h.schemas.Delete(c.Request.Context(), actor, id); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "схема деактивирована"})
}

// ListVersions обрабатывает GET /schemas/:id/versions.
func (h *SchemaHandler) ListVersions(c *gin.Context) {
	id := uuid.MustParse(c.Param("id"))

	versions, err := h.schemas.ListVersions(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

// SyncStatus обрабатывает GET /schemas/sync/status.
func (h *SchemaHandler) SyncStatus(c *gin.Context) {
	status, err := h.schemas.SyncStatus(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// SyncAll обрабатывает POST /schemas/sync.
func (h *SchemaHandler) SyncAll(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	result, err := h.schemas.SyncAll(c.Request.Context(), actor)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}
