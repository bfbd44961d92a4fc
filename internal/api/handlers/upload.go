package handlers

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/doli-systems/attachment-gateway/internal/models"
)

// UploadAttachments accepts one batch of files (multipart fields "files",
// fallback "file") for a parent record and submits it to the pipeline. The
// response returns as soon as the optimistic previews exist; upload outcomes
// arrive through the notification stack and the next list fetch.
func (h *Handler) UploadAttachments(c *gin.Context) {
	if h.rejectWhenReadOnly(c) {
		return
	}

	tableName := c.PostForm("table_name")
	recordID := c.PostForm("table_sys_id")
	if tableName == "" || recordID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "table_name and table_sys_id are required"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse multipart form: " + err.Error()})
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	files := make([]models.IncomingFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, incomingFromHeader(fh))
	}

	session := h.registry.Session(tableName, recordID)
	result := session.ProcessFiles(c.Request.Context(), files)
	previews, loading := session.Snapshot()

	c.JSON(http.StatusAccepted, gin.H{
		"accepted":   result.Accepted,
		"rejected":   result.Rejected,
		"duplicates": result.Duplicates,
		"previews":   previews,
		"loading":    loading,
	})
}

func incomingFromHeader(fh *multipart.FileHeader) models.IncomingFile {
	return models.IncomingFile{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
