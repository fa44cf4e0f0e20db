package handlers

import (
	"github.com/SAP-F-2025/mastery-service/internal/services"
	"github.com/SAP-F-2025/mastery-service/internal/utils"
	"github.com/SAP-F-2025/mastery-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	sessionHandler *SessionHandler
	profileHandler *ProfileHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	v *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(serviceManager.Session(), v, logger),
		profileHandler: NewProfileHandler(serviceManager.Profile(), logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "mastery-service",
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Mastery session routes
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.StartSession)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.DELETE("/:id", hm.sessionHandler.AbandonSession)
			sessions.POST("/:id/answers", hm.sessionHandler.SubmitAnswer)
			sessions.POST("/:id/submit", hm.sessionHandler.SubmitQuiz)
			sessions.POST("/:id/advance", hm.sessionHandler.AdvanceRemediation)
			sessions.POST("/:id/retry-generation", hm.sessionHandler.RetryGeneration)
			sessions.GET("/:id/report", hm.sessionHandler.GetReport)
		}

		// Weakness profile routes
		profiles := v1.Group("/profiles")
		{
			profiles.GET("/:user_id", hm.profileHandler.GetProfile)
			profiles.GET("/:user_id/weak-topics", hm.profileHandler.GetWeakTopics)
			profiles.GET("/:user_id/export", hm.profileHandler.ExportProfile)
		}
	}
}
