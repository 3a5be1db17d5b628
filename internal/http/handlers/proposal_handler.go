package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/proposal-backend/internal/models"
	"github.com/ignatzorin/proposal-backend/internal/service"
)

// ProposalHandler предоставляет HTTP слой для работы с предложениями.
type ProposalHandler struct {
	proposals *service.ProposalService
}

// NewProposalHandler создаёт хэндлер.
func NewProposalHandler(proposals *service.ProposalService) *ProposalHandler {
	return &ProposalHandler{proposals: proposals}
}

// Create обрабатывает POST /proposals. Запрос идёт до сервиса генерации,
// поэтому ответ может занять минуты.
func (h *ProposalHandler) Create(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		Title              string    `json:"title" binding:"required"`
		SchemaID           uuid.UUID `json:"schema_id" binding:"required"`
		SurveyNotes        string    `json:"survey_notes" binding:"required"`
		Attachments        []string  `json:"attachments"`
		AdditionalGuidance string    `json:"additional_guidance"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	details, err := h.proposals.Create(c.Request.Context(), actor, service.CreateProposalInput{
		Title:              req.Title,
		SchemaID:           req.SchemaID,
		SurveyNotes:        req.SurveyNotes,
		Attachments:        req.Attachments,
		AdditionalGuidance: req.AdditionalGuidance,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"proposal": details})
}

// List обрабатывает GET /proposals.
func (h *ProposalHandler) List(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	summaries, err := h.proposals.List(c.Request.Context(), actor, service.ListProposalsInput{
		Status: c.Query("status"),
		Search: c.Query("search"),
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposals": summaries})
}

// Get обрабатывает GET /proposals/:id.
func (h *ProposalHandler) Get(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	details, err := h.proposals.Get(c.Request.Context(), actor, uuid.MustParse(c.Param("id")))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposal": details})
}

// Update обрабатывает PUT /proposals/:id.
func (h *ProposalHandler) Update(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		Title             *string                    `json:"title"`
		Sections          *[]models.GeneratedSection `json:"sections"`
		SurveyNotes       *string                    `json:"survey_notes"`
		Attachments       *[]string                  `json:"attachments"`
		ChangeDescription string                     `json:"change_description"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proposal, err := h.proposals.Update(c.Request.Context(), actor, uuid.MustParse(c.Param("id")), service.UpdateProposalInput{
		Title:             req.Title,
		Sections:          req.Sections,
		SurveyNotes:       req.SurveyNotes,
		Attachments:       req.Attachments,
		ChangeDescription: req.ChangeDescription,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposal": proposal})
}

// Regenerate обрабатывает POST /proposals/:id/regenerate.
func (h *ProposalHandler) Regenerate(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		SectionType        string `json:"section_type"`
		AdditionalGuidance string `json:"additional_guidance"`
	}

	// Тело опционально: без него перегенерируется всё предложение.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	proposal, err := h.proposals.Regenerate(c.Request.Context(), actor, uuid.MustParse(c.Param("id")), req.SectionType, req.AdditionalGuidance)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposal": proposal})
}

// Submit обрабатывает POST /proposals/:id/submit.
func (h *ProposalHandler) Submit(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	proposal, err := h.proposals.Submit(c.Request.Context(), actor, uuid.MustParse(c.Param("id")))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposal": proposal})
}

// Approve обрабатывает POST /proposals/:id/approve.
func (h *ProposalHandler) Approve(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		Comments string `json:"comments"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	proposal, err := h.proposals.Approve(c.Request.Context(), actor, uuid.MustParse(c.Param("id")), req.Comments)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposal": proposal})
}

// Reject обрабатывает POST /proposals/:id/reject.
func (h *ProposalHandler) Reject(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		Comments string `json:"comments" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proposal, err := h.proposals.Reject(c.Request.Context(), actor, uuid.MustParse(c.Param("id")), req.Comments)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposal": proposal})
}

// Delete обрабатывает DELETE /proposals/:id.
func (h *ProposalHandler) Delete(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	if err := h.proposals.Delete(c.Request.Context(), actor, uuid.MustParse(c.Param("id"))); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "предложение удалено"})
}

// GetVersions обрабатывает GET /proposals/:id/versions.
func (h *ProposalHandler) GetVersions(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	versions, err := h.proposals.GetVersions(c.Request.Context(), actor, uuid.MustParse(c.Param("id")))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

// Export обрабатывает GET /proposals/:id/export — отдаёт готовый .docx файл.
func (h *ProposalHandler) Export(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	result, err := h.proposals.Export(c.Request.Context(), actor, uuid.MustParse(c.Param("id")))
	if err != nil {
		c.Error(err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", result.Content)
}
