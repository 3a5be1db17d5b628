package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/proposal-backend/internal/logger"
	"github.com/ignatzorin/proposal-backend/internal/models"
)

// GenerateDraftRequest описывает запрос на генерацию черновика предложения.
type GenerateDraftRequest struct {
	ProposalID         uuid.UUID `json:"proposal_id"`
	SchemaID           uuid.UUID `json:"schema_id"`
	SurveyNotes        string    `json:"survey_notes"`
	Attachments        []string  `json:"attachments,omitempty"`
	AdditionalGuidance string    `json:"additional_guidance,omitempty"`
}

// GenerateDraftResponse описывает ответ сервиса генерации.
type GenerateDraftResponse struct {
	DraftID        string                    `json:"draft_id"`
	ProposalID     uuid.UUID                 `json:"proposal_id"`
	SchemaID       uuid.UUID                 `json:"schema_id"`
	SchemaVersion  string                    `json:"schema_version"`
	Sections       []models.GeneratedSection `json:"sections"`
	ModelVersion   string                    `json:"model_version"`
	RulesEnforced  int                       `json:"rules_enforced"`
	TokenUsage     int                       `json:"token_usage"`
	EstimatedCost  float64                   `json:"estimated_cost"`
	ProcessingTime float64                   `json:"processing_time"`
	AllRulesPassed bool                      `json:"all_rules_passed"`
}

// KnownSchema — запись из списка схем, о которых знает сервис генерации.
type KnownSchema struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Sections    int    `json:"sections"`
	GlobalRules int    `json:"global_rules"`
	IsActive    bool   `json:"is_active"`
}

// Client общается с внешним сервисом генерации предложений.
// Сервис генерации не имеет доступа к базе: он только формирует контент,
// сохранение — задача нашего слоя.
type Client struct {
	baseURL string
	// Обычные запросы (выгрузка схем, сверка, health) быстрые,
	// генерация черновика идёт минутами — поэтому два http клиента.
	httpClient     *http.Client
	generateClient *http.Client
}

// NewClient создаёт экземпляр клиента.
func NewClient(baseURL string, requestTimeout, generateTimeout time.Duration) *Client {
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}
	if generateTimeout <= 0 {
		generateTimeout = 3 * time.Minute
	}

	return &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		httpClient:     &http.Client{Timeout: requestTimeout},
		generateClient: &http.Client{Timeout: generateTimeout},
	}
}

// GenerateDraft запрашивает генерацию секций по заметкам опроса.
// Повторных попыток нет: при ошибке вызывающий слой решает, что делать.
func (c *Client) GenerateDraft(ctx context.Context, req GenerateDraftRequest) (*GenerateDraftResponse, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("ai: baseURL не задан")
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"proposal_id":         req.ProposalID,
			"schema_id":           req.SchemaID,
			"survey_notes_length": len(req.SurveyNotes),
		}).Info("ai: отправляем запрос генерации")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ai/generate-draft", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.generateClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ai: запрос генерации не выполнен: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("ai: код ответа %d: %s", resp.StatusCode, readErrorDetail(resp))
	}

	var result GenerateDraftResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ai: не удалось разобрать ответ генерации: %w", err)
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"proposal_id":        req.ProposalID,
			"sections_generated": len(result.Sections),
			"rules_enforced":     result.RulesEnforced,
			"all_rules_passed":   result.AllRulesPassed,
			"processing_time":    result.ProcessingTime,
		}).Info("ai: генерация завершена")
	}

	return &result, nil
}

// UploadSchema выгружает полное определение схемы в сервис генерации.
// Вызывается при каждом создании и обновлении схемы: сервис генерации
// должен знать правила до того, как по схеме будет создано предложение.
func (c *Client) UploadSchema(ctx context.Context, schema *models.Schema) error {
	if c.baseURL == "" {
		return fmt.Errorf("ai: baseURL не задан")
	}

	payload := map[string]any{
		"schema_data": map[string]any{
			"id":           schema.ID,
			"name":         schema.Name,
			"version":      schema.Version,
			"description":  schema.Description,
			"sections":     schema.Sections,
			"global_rules": schema.GlobalRules,
			"created_by":   schema.CreatedBy,
			"created_at":   schema.CreatedAt,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ai/schemas", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ai: выгрузка схемы не выполнена: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("ai: код ответа %d: %s", resp.StatusCode, readErrorDetail(resp))
	}

	return nil
}

// ListSchemas возвращает схемы, о которых знает сервис генерации.
// Используется для сверки после частичных сбоев синхронизации.
func (c *Client) ListSchemas(ctx context.Context) ([]KnownSchema, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("ai: baseURL не задан")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/ai/schemas", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ai: запрос списка схем не выполнен: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("ai: код ответа %d: %s", resp.StatusCode, readErrorDetail(resp))
	}

	var result struct {
		Schemas []KnownSchema `json:"schemas"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ai: не удалось разобрать список схем: %w", err)
	}

	return result.Schemas, nil
}

// Health проверяет доступность сервиса генерации.
func (c *Client) Health(ctx context.Context) bool {
	if c.baseURL == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/ai/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	var result struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}

	return result.Status == "healthy"
}

// readErrorDetail пытается извлечь поле detail из тела ошибки.
func readErrorDetail(resp *http.Response) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Detail == "" {
		return "нет деталей"
	}
	return body.Detail
}
