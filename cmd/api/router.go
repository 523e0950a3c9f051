package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authDelivery "statuspulse-backend/internal/auth/delivery"
	reportDelivery "statuspulse-backend/internal/report/delivery"
	"statuspulse-backend/pkg/config"
)

func SetupRoutes(r *gin.Engine, reportHandler *reportDelivery.ReportHandler, cfg *config.Config) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Report routes (protected)
		projects := api.Group("/projects")
		projects.Use(authDelivery.AuthMiddleware(cfg.JWTSecret))
		{
			projects.POST("/:id/report/generate", reportHandler.GenerateReport)
			projects.GET("/:id/report/preview", reportHandler.PreviewReport)
			projects.GET("/:id/report/last", reportHandler.LastReport)
		}
	}
}
