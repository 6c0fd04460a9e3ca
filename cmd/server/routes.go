package main

import (
	"github.com/coyote/taskboard/internal/config"
	"github.com/coyote/taskboard/internal/handlers"
	"github.com/coyote/taskboard/internal/metrics"
	"github.com/coyote/taskboard/internal/middleware"
	"github.com/coyote/taskboard/pkg/logger"
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all HTTP routes on the given Gin engine. The
// returned limiter must be stopped on shutdown.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) *middleware.RateLimiter {
	r.Use(middleware.RequestID(), logger.GinLogger(), logger.GinRecovery())
	r.Use(metrics.GinMiddleware())
	r.Use(middleware.CORS(cfg.Server.AllowOrigins))

	authLimiter := middleware.NewRateLimiter(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst)

	healthHandler := handlers.NewHealthHandler(svc.db, svc.taskQueue)
	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics())

	api := r.Group("/api/v1")
	api.Use(middleware.AuditLog())
	{
		authHandler := handlers.NewAuthHandler(svc.auth, svc.users)
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/email-verification", authHandler.VerifyEmail)
			auth.GET("/password-reset/:email", authHandler.SendPasswordReset)
			auth.POST("/password-reset", authHandler.ResetPassword)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthRequired(svc.auth))
		{
			protected.GET("/user/me", handlers.Me)

			boardHandler := handlers.NewBoardHandler(svc.boards)
			protected.POST("/board", boardHandler.Create)
			protected.GET("/board", boardHandler.List)
			protected.GET("/board/:board_id", boardHandler.Get)
			protected.PUT("/board/:board_id", boardHandler.Update)
			protected.DELETE("/board/:board_id", boardHandler.Delete)

			protected.GET("/board/:board_id/user", boardHandler.ListMembers)
			protected.POST("/board/:board_id/user/:user_id", boardHandler.AddMember)
			protected.PUT("/board/:board_id/user/:user_id", boardHandler.UpdateMember)
			protected.DELETE("/board/:board_id/user/:user_id", boardHandler.RemoveMember)

			cardHandler := handlers.NewCardHandler(svc.cards)
			protected.POST("/board/:board_id/card", cardHandler.Create)
			protected.GET("/board/:board_id/card", cardHandler.List)
			protected.GET("/board/:board_id/card/:card_id", cardHandler.Get)
			protected.PUT("/board/:board_id/card/:card_id", cardHandler.Update)
			protected.DELETE("/board/:board_id/card/:card_id", cardHandler.Delete)

			reminderHandler := handlers.NewReminderHandler(svc.reminders)
			protected.POST("/task/card-start-reminder", reminderHandler.CardStart)
			protected.POST("/task/card-finish-reminder", reminderHandler.CardFinish)
		}
	}

	return authLimiter
}
