package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/doli-systems/attachment-gateway/internal/services"
	"github.com/doli-systems/attachment-gateway/internal/toast"
)

// Handler exposes the pipeline to the UI shell.
type Handler struct {
	registry *services.Registry
	toasts   *toast.Queue
	readOnly bool
}

func New(registry *services.Registry, toasts *toast.Queue, readOnly bool) *Handler {
	return &Handler{registry: registry, toasts: toasts, readOnly: readOnly}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// sessionFromQuery resolves the parent record identity from query params and
// returns its session. Writes the error response itself on bad input.
func (h *Handler) sessionFromQuery(c *gin.Context) (*services.Session, bool) {
	tableName := c.Query("table_name")
	recordID := c.Query("table_sys_id")
	if tableName == "" || recordID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "table_name and table_sys_id are required"})
		return nil, false
	}
	return h.registry.Session(tableName, recordID), true
}

func (h *Handler) rejectWhenReadOnly(c *gin.Context) bool {
	if h.readOnly {
		c.JSON(http.StatusForbidden, gin.H{"error": "attachments are read-only"})
		return true
	}
	return false
}
