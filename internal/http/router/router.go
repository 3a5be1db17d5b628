package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/proposal-backend/internal/config"
	"github.com/ignatzorin/proposal-backend/internal/http/handlers"
	"github.com/ignatzorin/proposal-backend/internal/http/middleware"
	"github.com/ignatzorin/proposal-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	schemaHandler *handlers.SchemaHandler,
	proposalHandler *handlers.ProposalHandler,
	userHandler *handlers.UserHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(middleware.AuthMiddleware(tokenManager))
	{
		protectedAuth.GET("/me", authHandler.Me)
	}

	// Схемы: чтение доступно всем авторизованным, изменения — администраторам.
	schemas := api.Group("/schemas")
	schemas.Use(middleware.AuthMiddleware(tokenManager))
	{
		schemas.GET("", schemaHandler.List)
		schemas.GET("/:id", middleware.UUIDValidator("id"), schemaHandler.Get)
		schemas.GET("/:id/versions", middleware.UUIDValidator("id"), schemaHandler.ListVersions)

		// Инструменты досинхронизации с генератором доступны только администраторам.
		admin := schemas.Group("")
		admin.Use(middleware.AdminOnly())
		{
			admin.POST("", schemaHandler.Create)
			admin.GET("/sync/status", schemaHandler.SyncStatus)
			admin.POST("/sync", schemaHandler.SyncAll)
			admin.PUT("/:id", middleware.UUIDValidator("id"), schemaHandler.Update)
			admin.DELETE("/:id", middleware.UUIDValidator("id"), schemaHandler.Delete)
		}
	}

	// Предложения: права владельца и администратора проверяет сервисный слой,
	// approve/reject дополнительно закрыты админским гейтом.
	proposals := api.Group("/proposals")
	proposals.Use(middleware.AuthMiddleware(tokenManager))
	{
		proposals.POST("", proposalHandler.Create)
		proposals.GET("", proposalHandler.List)
		proposals.GET("/:id", middleware.UUIDValidator("id"), proposalHandler.Get)
		proposals.PUT("/:id", middleware.UUIDValidator("id"), proposalHandler.Update)
		proposals.DELETE("/:id", middleware.UUIDValidator("id"), proposalHandler.Delete)
		proposals.POST("/:id/regenerate", middleware.UUIDValidator("id"), proposalHandler.Regenerate)
		proposals.POST("/:id/submit", middleware.UUIDValidator("id"), proposalHandler.Submit)
		proposals.GET("/:id/versions", middleware.UUIDValidator("id"), proposalHandler.GetVersions)
		proposals.GET("/:id/export", middleware.UUIDValidator("id"), proposalHandler.Export)

		review := proposals.Group("")
		review.Use(middleware.AdminOnly())
		{
			review.POST("/:id/approve", middleware.UUIDValidator("id"), proposalHandler.Approve)
			review.POST("/:id/reject", middleware.UUIDValidator("id"), proposalHandler.Reject)
		}
	}

	// Справочник пользователей: свою карточку и статистику видит каждый,
	// список и назначение схемы — администраторы.
	users := api.Group("/users")
	users.Use(middleware.AuthMiddleware(tokenManager))
	{
		users.GET("/:id", middleware.UUIDValidator("id"), userHandler.Get)
		users.GET("/:id/stats", middleware.UUIDValidator("id"), userHandler.Stats)

		usersAdmin := users.Group("")
		usersAdmin.Use(middleware.AdminOnly())
		{
			usersAdmin.GET("", userHandler.List)
			usersAdmin.PUT("/:id/assign-schema", middleware.UUIDValidator("id"), userHandler.AssignSchema)
		}
	}

	return r
}
