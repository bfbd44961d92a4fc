// Package remote talks to the upstream attachment REST service. Every
// non-2xx response is surfaced as an error of the form "<status>: <body>",
// which is the exact shape the errmsg classifier expects.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// TokenProvider yields the session token attached to every upstream call.
// The gateway forwards the caller's token when one came in with the request
// and falls back to the configured token otherwise.
type TokenProvider func(ctx context.Context) string

// Options configures a Client.
type Options struct {
	BaseURL       string
	TokenProvider TokenProvider
	HTTPClient    *http.Client
}

// Client is the HTTP client for the attachment service.
type Client struct {
	baseURL       string
	tokenProvider TokenProvider
	httpClient    *http.Client
}

// NewClient builds a client. A nil HTTPClient gets a sane default; requests
// otherwise run to completion or native network failure (no retries, no
// client-side timeout on uploads beyond the transport's own).
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	tokenProvider := opts.TokenProvider
	if tokenProvider == nil {
		tokenProvider = func(context.Context) string { return "" }
	}
	return &Client{
		baseURL:       strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		tokenProvider: tokenProvider,
		httpClient:    httpClient,
	}
}

// UploadResult is the created-record response from an upload.
type UploadResult struct {
	ID       string `json:"sys_id"`
	FileName string `json:"file_name"`
}

type listEnvelope struct {
	Result []attachmentWire `json:"result"`
}

type uploadEnvelope struct {
	Result UploadResult `json:"result"`
}

// attachmentWire mirrors the list payload; with the display-value flag set
// the service renders size_bytes as a string.
type attachmentWire struct {
	SysID       string `json:"sys_id"`
	FileName    string `json:"file_name"`
	SizeBytes   string `json:"size_bytes"`
	ContentType string `json:"content_type"`
	CreatedOn   string `json:"sys_created_on"`
	CreatedBy   string `json:"sys_created_by"`
}

// Record is one authoritative attachment row.
type Record struct {
	ID          string
	FileName    string
	SizeBytes   int64
	ContentType string
	CreatedOn   string
	CreatedBy   string
}

// List fetches the attachments of one parent record.
func (c *Client) List(ctx context.Context, tableName, recordID string) ([]Record, error) {
	query := fmt.Sprintf("table_sys_id=%s^table_name=%s", recordID, tableName)
	fields := "sys_id,file_name,size_bytes,content_type,sys_created_on,sys_created_by"
	endpoint := fmt.Sprintf("%s/api/now/attachment?sysparm_query=%s&sysparm_fields=%s&sysparm_display_value=true",
		c.baseURL, url.QueryEscape(query), fields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(ctx, req)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode attachment list: %w", err)
	}
	records := make([]Record, 0, len(envelope.Result))
	for _, w := range envelope.Result {
		// size_bytes comes back display-rendered; anything that is not a
		// plain integer (e.g. locale grouping) is kept as 0.
		size, _ := strconv.ParseInt(strings.TrimSpace(w.SizeBytes), 10, 64)
		records = append(records, Record{
			ID:          w.SysID,
			FileName:    w.FileName,
			SizeBytes:   size,
			ContentType: w.ContentType,
			CreatedOn:   w.CreatedOn,
			CreatedBy:   w.CreatedBy,
		})
	}
	return records, nil
}

// Upload sends one file as a multipart POST and returns the created record.
// fileName is the (possibly encoded) stored name; content is consumed fully.
func (c *Client) Upload(ctx context.Context, tableName, recordID, fileName, contentType string, content io.Reader) (UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("table_name", tableName); err != nil {
		return UploadResult{}, err
	}
	if err := writer.WriteField("table_sys_id", recordID); err != nil {
		return UploadResult{}, err
	}
	part, err := createFilePart(writer, "uploadFile", fileName, contentType)
	if err != nil {
		return UploadResult{}, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return UploadResult{}, fmt.Errorf("read upload content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return UploadResult{}, err
	}

	endpoint := c.baseURL + "/api/now/attachment/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return UploadResult{}, err
	}
	c.setHeaders(ctx, req)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	body, err := c.do(req)
	if err != nil {
		return UploadResult{}, err
	}
	var envelope uploadEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return UploadResult{}, fmt.Errorf("decode upload response: %w", err)
	}
	return envelope.Result, nil
}

// Delete removes an attachment by id. The service signals success with
// either 200 or 204.
func (c *Client) Delete(ctx context.Context, attachmentID string) error {
	endpoint := c.baseURL + "/api/now/attachment/" + url.PathEscape(attachmentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	c.setHeaders(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("%d: %s", resp.StatusCode, body)
}

// Download streams the raw bytes of an attachment. The caller closes the
// returned reader. A non-2xx status is reported with a synthesized JSON body
// so the classifier wording matches the other call sites.
func (c *Client) Download(ctx context.Context, attachmentID string) (io.ReadCloser, error) {
	endpoint := c.baseURL + "/api/now/attachment/" + url.PathEscape(attachmentID) + "/file"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf(`%d: {"error":{"message":"Download failed"}}`, resp.StatusCode)
	}
	return resp.Body, nil
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request) {
	if token := c.tokenProvider(ctx); token != "" {
		req.Header.Set("X-UserToken", token)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%d: %s", resp.StatusCode, body)
	}
	if readErr != nil {
		return nil, readErr
	}
	return body, nil
}

func createFilePart(w *multipart.Writer, field, fileName, contentType string) (io.Writer, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, fileName))
	header.Set("Content-Type", contentType)
	return w.CreatePart(header)
}
