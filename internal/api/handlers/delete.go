package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/doli-systems/attachment-gateway/internal/services"
)

// DeleteAttachment removes one preview and, when it is remotely stored,
// deletes the upstream record. The preview disappears immediately; a remote
// failure surfaces as a toast, not a restored card.
func (h *Handler) DeleteAttachment(c *gin.Context) {
	if h.rejectWhenReadOnly(c) {
		return
	}

	session, ok := h.sessionFromQuery(c)
	if !ok {
		return
	}
	localID := c.Param("localId")

	err := session.Delete(c.Request.Context(), localID)
	if errors.Is(err, services.ErrUnknownAttachment) {
		c.JSON(http.StatusNotFound, gin.H{"error": "attachment not found"})
		return
	}

	// A remote failure was already toasted and the optimistic removal stands.
	previews, loading := session.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"deleted":  err == nil,
		"previews": previews,
		"loading":  loading,
	})
}
