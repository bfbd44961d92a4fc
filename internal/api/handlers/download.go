package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DownloadAttachment streams the raw bytes of a stored attachment under its
// decoded (original) filename.
func (h *Handler) DownloadAttachment(c *gin.Context) {
	session, ok := h.sessionFromQuery(c)
	if !ok {
		return
	}
	localID := c.Param("localId")

	name, body, err := session.Download(c.Request.Context(), localID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "attachment not available: " + err.Error()})
		return
	}
	defer body.Close()

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", "application/octet-stream")

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		// Headers are gone already; nothing to do but log via gin's recovery.
		return
	}
}
