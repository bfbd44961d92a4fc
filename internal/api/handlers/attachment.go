package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListAttachments returns the preview list for a parent record, loading it
// from the upstream service on first sight of that record.
func (h *Handler) ListAttachments(c *gin.Context) {
	session, ok := h.sessionFromQuery(c)
	if !ok {
		return
	}

	previews, loading := session.Snapshot()
	if len(previews) == 0 && !loading {
		// First touch: fetch the canonical list. Failure is already toasted;
		// the shell still gets a consistent (empty) list.
		_ = session.Load(c.Request.Context())
		previews, loading = session.Snapshot()
	}

	c.JSON(http.StatusOK, gin.H{
		"previews": previews,
		"loading":  loading,
	})
}

// RefreshAttachments re-fetches the canonical attachment list.
func (h *Handler) RefreshAttachments(c *gin.Context) {
	session, ok := h.sessionFromQuery(c)
	if !ok {
		return
	}
	_ = session.Load(c.Request.Context())
	previews, loading := session.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"previews": previews,
		"loading":  loading,
	})
}
