package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Preview statuses. A preview is created as StatusUploading, flips to
// StatusDone via the post-batch refresh, or to StatusError on upload failure.
// Error is terminal; nothing transitions a preview out of it automatically.
const (
	StatusUploading = "uploading"
	StatusDone      = "done"
	StatusError     = "error"
)

// Preview is the client-local projection of an attachment, renderable while
// the upload is still in flight. LocalID exists for the preview's whole
// lifetime; RemoteID only once the upstream service confirmed storage.
type Preview struct {
	LocalID     string `json:"local_id"`
	RemoteID    string `json:"remote_id,omitempty"`
	StoredName  string `json:"stored_name,omitempty"`
	DisplayName string `json:"display_name"`
	SizeBytes   int64  `json:"size_bytes"`
	SizeLabel   string `json:"size_label"`
	FileType    string `json:"file_type"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	UploadedOn  string `json:"uploaded_on,omitempty"`
}

// Saved reports whether the preview is backed by a remote record.
func (p Preview) Saved() bool {
	return p.RemoteID != ""
}

// FileTypeFor buckets a filename into a coarse display category.
func FileTypeFor(fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	switch ext {
	case "jpg", "jpeg", "png", "gif", "webp", "svg", "bmp":
		return "image"
	case "pdf":
		return "pdf"
	case "doc", "docx":
		return "doc"
	case "xls", "xlsx", "csv":
		return "sheet"
	case "zip", "rar", "7z", "tar", "gz":
		return "archive"
	case "txt", "log", "md":
		return "text"
	case "xml", "json", "js", "ts", "html", "css", "py", "java":
		return "code"
	default:
		return "other"
	}
}

// FormatSize renders a byte count the way the UI shows it.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.2f MB", float64(bytes)/(1024*1024))
	}
}
