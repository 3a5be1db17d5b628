package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/proposal-backend/internal/http/middleware"
	"github.com/ignatzorin/proposal-backend/internal/models"
)

var errActorNotFound = errors.New("субъект запроса не найден в контексте")

// currentActor извлекает субъекта запроса, положенного AuthMiddleware.
func currentActor(c *gin.Context) (models.Actor, error) {
	raw, exists := c.Get(middleware.ContextActorKey)
	if !exists {
		return models.Actor{}, errActorNotFound
	}

	actor, ok := raw.(models.Actor)
	if !ok {
		return models.Actor{}, errActorNotFound
	}

	return actor, nil
}
