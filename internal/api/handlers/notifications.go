package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListNotifications returns the process-wide toast stack in display order.
func (h *Handler) ListNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"toasts": h.toasts.Active()})
}

// DismissNotification removes one toast; dismissing twice is a no-op.
func (h *Handler) DismissNotification(c *gin.Context) {
	h.toasts.Dismiss(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"dismissed": true})
}
