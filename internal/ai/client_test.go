package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/proposal-backend/internal/models"
)

func newTestClient(url string) *Client {
	return NewClient(url, 5*time.Second, 5*time.Second)
}

func TestClient_GenerateDraft(t *testing.T) {
	proposalID := uuid.New()
	schemaID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/ai/generate-draft", r.URL.Path)

		var req GenerateDraftRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, proposalID, req.ProposalID)
		assert.Equal(t, "заметки", req.SurveyNotes)

		json.NewEncoder(w).Encode(GenerateDraftResponse{
			DraftID:    "draft-1",
			ProposalID: proposalID,
			SchemaID:   schemaID,
			Sections: []models.GeneratedSection{
				{Type: "intro", Content: "текст", ConfidenceScore: 0.9, Order: 1},
			},
			RulesEnforced:  3,
			AllRulesPassed: true,
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.GenerateDraft(context.Background(), GenerateDraftRequest{
		ProposalID:  proposalID,
		SchemaID:    schemaID,
		SurveyNotes: "заметки",
	})

	assert.NoError(t, err)
	assert.Len(t, resp.Sections, 1)
	assert.Equal(t, "intro", resp.Sections[0].Type)
	assert.True(t, resp.AllRulesPassed)
}

func TestClient_GenerateDraft_ErrorDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"detail": "schema not found"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GenerateDraft(context.Background(), GenerateDraftRequest{ProposalID: uuid.New()})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "schema not found")
}

func TestClient_UploadSchema_WrapsPayload(t *testing.T) {
	schemaID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/schemas", r.URL.Path)

		var payload map[string]json.RawMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		// Схема уходит обёрнутой в schema_data.
		assert.Contains(t, payload, "schema_data")

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.UploadSchema(context.Background(), &models.Schema{
		ID:       schemaID,
		Name:     "Стандартное КП",
		Version:  "1.0.0",
		Sections: []models.SectionDef{{ID: "section-1", Name: "intro"}},
	})

	assert.NoError(t, err)
}

func TestClient_ListSchemas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		json.NewEncoder(w).Encode(map[string]any{
			"schemas": []KnownSchema{
				{ID: uuid.NewString(), Name: "Схема А", Sections: 3},
				{ID: uuid.NewString(), Name: "Схема Б", Sections: 5},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	schemas, err := client.ListSchemas(context.Background())

	assert.NoError(t, err)
	assert.Len(t, schemas, 2)
	assert.Equal(t, "Схема А", schemas[0].Name)
}

func TestClient_Health(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}))
	defer healthy.Close()

	degraded := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "degraded"})
	}))
	defer degraded.Close()

	assert.True(t, newTestClient(healthy.URL).Health(context.Background()))
	assert.False(t, newTestClient(degraded.URL).Health(context.Background()))
	assert.False(t, newTestClient("").Health(context.Background()))
}
