package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doli-systems/attachment-gateway/internal/api"
	"github.com/doli-systems/attachment-gateway/internal/api/handlers"
	"github.com/doli-systems/attachment-gateway/internal/models"
	"github.com/doli-systems/attachment-gateway/internal/remote"
	"github.com/doli-systems/attachment-gateway/internal/services"
	"github.com/doli-systems/attachment-gateway/internal/toast"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubUpstream is a minimal upstream attachment service: a fixed record list,
// accept-all uploads, accept-all deletes.
func stubUpstream(t *testing.T, records string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/now/attachment":
			_, _ = fmt.Fprintf(w, `{"result":[%s]}`, records)
		case r.Method == http.MethodPost:
			_, _ = w.Write([]byte(`{"result":{"sys_id":"att_new","file_name":"a.pdf"}}`))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			_, _ = w.Write([]byte("file bytes"))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestRouter(t *testing.T, upstream *httptest.Server, readOnly bool) (*gin.Engine, *toast.Queue) {
	t.Helper()
	queue := toast.NewQueue(time.Minute)
	t.Cleanup(queue.Close)
	client := remote.NewClient(remote.Options{BaseURL: upstream.URL})
	registry := services.NewRegistry("pdf", client, queue, nil)
	h := handlers.New(registry, queue, readOnly)

	r := gin.New()
	api.RegisterRoutes(r, h)
	return r, queue
}

func doRequest(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type listResponse struct {
	Previews []models.Preview `json:"previews"`
	Loading  bool             `json:"loading"`
}

func TestHealthCheck(t *testing.T) {
	r, _ := newTestRouter(t, stubUpstream(t, ""), false)
	w := doRequest(r, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListRequiresRecordIdentity(t *testing.T) {
	r, _ := newTestRouter(t, stubUpstream(t, ""), false)
	w := doRequest(r, httptest.NewRequest(http.MethodGet, "/api/attachments?table_name=incident", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "table_sys_id")
}

func TestListLoadsOnFirstTouch(t *testing.T) {
	records := `{"sys_id":"att1","file_name":"r#$klarf.DOLI","size_bytes":"9","content_type":"text/plain","sys_created_on":"2026-08-01 10:00:00","sys_created_by":"jsmith"}`
	r, _ := newTestRouter(t, stubUpstream(t, records), false)

	w := doRequest(r, httptest.NewRequest(http.MethodGet, "/api/attachments?table_name=incident&table_sys_id=rec1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Previews, 1)
	assert.Equal(t, "r.klarf", resp.Previews[0].DisplayName)
	assert.Equal(t, "r#$klarf.DOLI", resp.Previews[0].StoredName)
	assert.Equal(t, models.StatusDone, resp.Previews[0].Status)
	assert.False(t, resp.Loading)
}

func multipartBatch(t *testing.T, field string, names ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("table_name", "incident"))
	require.NoError(t, writer.WriteField("table_sys_id", "rec1"))
	for _, name := range names {
		part, err := writer.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("contents of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestUploadAcceptsBatchAndReportsFiltered(t *testing.T) {
	r, queue := newTestRouter(t, stubUpstream(t, ""), false)

	body, contentType := multipartBatch(t, "files", "a.pdf", "tool.exe")
	req := httptest.NewRequest(http.MethodPost, "/api/attachments/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := doRequest(r, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		Accepted   []models.Preview `json:"accepted"`
		Rejected   []string         `json:"rejected"`
		Duplicates []string         `json:"duplicates"`
		Previews   []models.Preview `json:"previews"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Accepted, 1)
	assert.Equal(t, "a.pdf", resp.Accepted[0].DisplayName)
	assert.Equal(t, models.StatusUploading, resp.Accepted[0].Status)
	assert.Equal(t, 50, resp.Accepted[0].Progress)
	assert.Equal(t, []string{"tool.exe"}, resp.Rejected)
	assert.Empty(t, resp.Duplicates)
	require.Len(t, resp.Previews, 1)

	// the rejection was toasted for the notification stack
	var sawRejection bool
	for _, item := range queue.Active() {
		if item.Kind == toast.KindError {
			sawRejection = true
			assert.Contains(t, item.Text, `"tool.exe" is not allowed`)
		}
	}
	assert.True(t, sawRejection)
}

func TestUploadFallsBackToSingularFileField(t *testing.T) {
	r, _ := newTestRouter(t, stubUpstream(t, ""), false)

	body, contentType := multipartBatch(t, "file", "a.pdf")
	req := httptest.NewRequest(http.MethodPost, "/api/attachments/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := doRequest(r, req)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestUploadWithoutFiles(t *testing.T) {
	r, _ := newTestRouter(t, stubUpstream(t, ""), false)

	body, contentType := multipartBatch(t, "files")
	req := httptest.NewRequest(http.MethodPost, "/api/attachments/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := doRequest(r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no files provided")
}

func TestReadOnlyModeBlocksMutations(t *testing.T) {
	r, _ := newTestRouter(t, stubUpstream(t, ""), true)

	body, contentType := multipartBatch(t, "files", "a.pdf")
	req := httptest.NewRequest(http.MethodPost, "/api/attachments/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := doRequest(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(r, httptest.NewRequest(http.MethodDelete,
		"/api/attachments/att1?table_name=incident&table_sys_id=rec1", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteUnknownAttachment(t *testing.T) {
	r, _ := newTestRouter(t, stubUpstream(t, ""), false)
	w := doRequest(r, httptest.NewRequest(http.MethodDelete,
		"/api/attachments/nope?table_name=incident&table_sys_id=rec1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteRemovesLoadedAttachment(t *testing.T) {
	records := `{"sys_id":"att1","file_name":"notes.pdf","size_bytes":"9","content_type":"application/pdf","sys_created_on":"2026-08-01 10:00:00","sys_created_by":"jsmith"}`
	r, _ := newTestRouter(t, stubUpstream(t, records), false)

	// first touch loads the record
	w := doRequest(r, httptest.NewRequest(http.MethodGet, "/api/attachments?table_name=incident&table_sys_id=rec1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, httptest.NewRequest(http.MethodDelete,
		"/api/attachments/att1?table_name=incident&table_sys_id=rec1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Deleted  bool             `json:"deleted"`
		Previews []models.Preview `json:"previews"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Deleted)
	assert.Empty(t, resp.Previews)
}

func TestDownloadSetsDecodedDisposition(t *testing.T) {
	records := `{"sys_id":"att1","file_name":"r#$klarf.DOLI","size_bytes":"10","content_type":"text/plain","sys_created_on":"2026-08-01 10:00:00","sys_created_by":"jsmith"}`
	r, _ := newTestRouter(t, stubUpstream(t, records), false)

	w := doRequest(r, httptest.NewRequest(http.MethodGet, "/api/attachments?table_name=incident&table_sys_id=rec1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, httptest.NewRequest(http.MethodGet,
		"/api/attachments/att1/download?table_name=incident&table_sys_id=rec1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="r.klarf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "file bytes", w.Body.String())
}

func TestNotificationsListAndDismiss(t *testing.T) {
	r, queue := newTestRouter(t, stubUpstream(t, ""), false)
	id := queue.Error("something failed")

	w := doRequest(r, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "something failed")

	w = doRequest(r, httptest.NewRequest(http.MethodDelete, "/api/notifications/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	assert.NotContains(t, w.Body.String(), "something failed")
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newTestRouter(t, stubUpstream(t, ""), false)
	w := doRequest(r, httptest.NewRequest(http.MethodOptions, "/api/attachments", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
