package api

import (
	"github.com/gin-gonic/gin"

	"github.com/doli-systems/attachment-gateway/internal/api/handlers"
)

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-UserToken")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	}
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handler) {
	r.Use(corsMiddleware())

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)

		// Attachment pipeline
		api.GET("/attachments", h.ListAttachments)                        // preview list for a parent record
		api.POST("/attachments/upload", h.UploadAttachments)              // submit a batch
		api.POST("/attachments/refresh", h.RefreshAttachments)            // re-fetch canonical list
		api.DELETE("/attachments/:localId", h.DeleteAttachment)           // delete one
		api.GET("/attachments/:localId/download", h.DownloadAttachment)   // raw bytes, decoded name

		// Notification stack
		api.GET("/notifications", h.ListNotifications)
		api.DELETE("/notifications/:id", h.DismissNotification)
	}
}
