package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/proposal-backend/internal/config"
	"github.com/ignatzorin/proposal-backend/internal/http/handlers"
	"github.com/ignatzorin/proposal-backend/internal/models"
	"github.com/ignatzorin/proposal-backend/internal/service"
)

func newTestRouter() (*gin.Engine, *service.TokenManager) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Env:             "test",
		AllowedOrigins:  []string{"*"},
		RateLimitLimit:  100,
		RateLimitPeriod: time.Minute,
	}
	tokens := service.NewTokenManager("router-test-secret", time.Hour)

	engine := SetupRouter(
		cfg,
		&handlers.AuthHandler{},
		&handlers.SchemaHandler{},
		&handlers.ProposalHandler{},
		&handlers.UserHandler{},
		&handlers.HealthHandler{},
		tokens,
	)

	return engine, tokens
}

func issueToken(t *testing.T, tokens *service.TokenManager, role string) string {
	t.Helper()

	token, _, err := tokens.Generate(&models.User{
		ID:    uuid.New(),
		Email: role + "@example.com",
		Role:  role,
	})
	assert.NoError(t, err)

	return token
}

func doRequest(engine *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	return w
}

func TestRouter_SyncRoutesRequireAdmin(t *testing.T) {
	engine, tokens := newTestRouter()
	userToken := issueToken(t, tokens, models.RoleUser)

	assert.Equal(t, http.StatusUnauthorized, doRequest(engine, http.MethodGet, "/api/schemas/sync/status", "").Code)
	assert.Equal(t, http.StatusForbidden, doRequest(engine, http.MethodGet, "/api/schemas/sync/status", userToken).Code)
	assert.Equal(t, http.StatusForbidden, doRequest(engine, http.MethodPost, "/api/schemas/sync", userToken).Code)
}

func TestRouter_UserAdminRoutesRequireAdmin(t *testing.T) {
	engine, tokens := newTestRouter()
	userToken := issueToken(t, tokens, models.RoleUser)

	assert.Equal(t, http.StatusForbidden, doRequest(engine, http.MethodGet, "/api/users", userToken).Code)
	assert.Equal(t, http.StatusForbidden, doRequest(engine, http.MethodPut, "/api/users/"+uuid.NewString()+"/assign-schema", userToken).Code)
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	engine, _ := newTestRouter()

	assert.Equal(t, http.StatusUnauthorized, doRequest(engine, http.MethodGet, "/api/proposals", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(engine, http.MethodGet, "/api/users/"+uuid.NewString(), "").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(engine, http.MethodGet, "/api/schemas", "").Code)
}
