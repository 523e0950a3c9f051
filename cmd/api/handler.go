package api

import (
	"github.com/gin-gonic/gin"

	reportDelivery "statuspulse-backend/internal/report/delivery"
	"statuspulse-backend/pkg/config"
)

type Handler struct {
	reportHandler *reportDelivery.ReportHandler
	config        *config.Config
}

func NewHandler(reportHandler *reportDelivery.ReportHandler, cfg *config.Config) *Handler {
	return &Handler{
		reportHandler: reportHandler,
		config:        cfg,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Setup routes
	SetupRoutes(r, h.reportHandler, h.config)

	return r.Run(addr)
}
