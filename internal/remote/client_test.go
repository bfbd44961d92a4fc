package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Options{
		BaseURL: server.URL,
		TokenProvider: func(ctx context.Context) string {
			return TokenFromContext(ctx)
		},
	})
}

func TestListParsesDisplayValuePayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Contains(t, r.URL.RawQuery, "sysparm_display_value=true")
		assert.Equal(t, "tok-123", r.Header.Get("X-UserToken"))
		// display-value mode renders size_bytes as a string
		_, _ = w.Write([]byte(`{"result":[{"sys_id":"att1","file_name":"r#$klarf.DOLI","size_bytes":"2048","content_type":"text/plain","sys_created_on":"2026-08-01 10:00:00","sys_created_by":"jsmith"}]}`))
	})

	ctx := WithToken(context.Background(), "tok-123")
	records, err := client.List(ctx, "incident", "rec1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "att1", records[0].ID)
	assert.Equal(t, "r#$klarf.DOLI", records[0].FileName)
	assert.Equal(t, int64(2048), records[0].SizeBytes)
	assert.Equal(t, "jsmith", records[0].CreatedBy)
}

func TestListToleratesUnparsableSize(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":[{"sys_id":"att1","file_name":"big.pdf","size_bytes":"1,024"}]}`))
	})

	records, err := client.List(context.Background(), "incident", "rec1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	// grouped rendering does not parse; the row is kept with size 0
	assert.Equal(t, int64(0), records[0].SizeBytes)
}

func TestListSurfacesStatusAndBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"Insufficient rights"}}`))
	})

	_, err := client.List(context.Background(), "incident", "rec1")
	require.Error(t, err)
	assert.Equal(t, `403: {"error":{"message":"Insufficient rights"}}`, err.Error())
}

func TestUploadSendsMultipartForm(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/now/attachment/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "incident", r.FormValue("table_name"))
		assert.Equal(t, "rec1", r.FormValue("table_sys_id"))

		file, header, err := r.FormFile("uploadFile")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "r#$klarf.DOLI", header.Filename)
		assert.Equal(t, "text/plain", header.Header.Get("Content-Type"))
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "wafer data", string(content))

		_, _ = w.Write([]byte(`{"result":{"sys_id":"att9","file_name":"r#$klarf.DOLI"}}`))
	})

	result, err := client.Upload(context.Background(), "incident", "rec1",
		"r#$klarf.DOLI", "text/plain", strings.NewReader("wafer data"))
	require.NoError(t, err)
	assert.Equal(t, "att9", result.ID)
	assert.Equal(t, "r#$klarf.DOLI", result.FileName)
}

func TestDeleteAccepts200And204(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNoContent} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			w.WriteHeader(status)
		})
		assert.NoError(t, client.Delete(context.Background(), "att1"))
	}
}

func TestDeleteSurfacesFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("gone"))
	})
	err := client.Delete(context.Background(), "att1")
	require.Error(t, err)
	assert.Equal(t, "404: gone", err.Error())
}

func TestDownloadStreamsBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/now/attachment/att1/file", r.URL.Path)
		_, _ = w.Write([]byte("raw bytes"))
	})

	body, err := client.Download(context.Background(), "att1")
	require.NoError(t, err)
	defer body.Close()
	content, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "raw bytes", string(content))
}

func TestDownloadFailureSynthesizesClassifiableError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := client.Download(context.Background(), "att1")
	require.Error(t, err)
	assert.Equal(t, `500: {"error":{"message":"Download failed"}}`, err.Error())
}

func TestMissingTokenSendsNoHeader(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["X-Usertoken"]
		assert.False(t, present)
		_, _ = w.Write([]byte(`{"result":[]}`))
	})
	_, err := client.List(context.Background(), "incident", "rec1")
	assert.NoError(t, err)
}
