// Package services runs the upload pipeline for parent records: allowlist and
// duplicate filtering, concurrent fan-out to the upstream attachment service,
// per-file toasts, and the single end-of-batch list refresh.
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/doli-systems/attachment-gateway/internal/errmsg"
	"github.com/doli-systems/attachment-gateway/internal/filename"
	"github.com/doli-systems/attachment-gateway/internal/models"
	"github.com/doli-systems/attachment-gateway/internal/remote"
	"github.com/doli-systems/attachment-gateway/internal/toast"
	"github.com/doli-systems/attachment-gateway/internal/validation"
)

// Progress values for the preview lifecycle. Uploading previews seed at 50,
// errors reset to 0, confirmed records show 100.
const (
	progressUploading = 50
	progressError     = 0
	progressDone      = 100
)

// ErrUnknownAttachment is returned when a local id does not match any
// tracked preview.
var ErrUnknownAttachment = errors.New("unknown attachment")

// Session holds the preview state of one parent record. Every mutation of
// the preview list is a full read-modify-write under the session lock; the
// toast queue is shared across all sessions.
type Session struct {
	tableName  string
	recordID   string
	extensions string

	remote *remote.Client
	toasts *toast.Queue
	events *EventPublisher

	mu       sync.Mutex
	previews []models.Preview
	loading  bool
}

// NewSession builds a session for one parent record. extensions is the
// free-text allowlist configuration; it is re-parsed on every batch.
func NewSession(tableName, recordID, extensions string, client *remote.Client, toasts *toast.Queue, events *EventPublisher) *Session {
	return &Session{
		tableName:  tableName,
		recordID:   recordID,
		extensions: extensions,
		remote:     client,
		toasts:     toasts,
		events:     events,
	}
}

// Snapshot returns the current preview list and loading flag.
func (s *Session) Snapshot() ([]models.Preview, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Preview, len(s.previews))
	copy(out, s.previews)
	return out, s.loading
}

// Load fetches the canonical attachment list and replaces the preview list
// wholesale. Failure empties the previews and reports through the toast
// queue; the error is also returned for logging.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	records, err := s.remote.List(ctx, s.tableName, s.recordID)
	if err != nil {
		s.mu.Lock()
		s.previews = nil
		s.loading = false
		s.mu.Unlock()
		s.toasts.Error(errmsg.Friendly(err, "Failed to load attachments"))
		return err
	}

	previews := previewsFromRecords(records)
	s.mu.Lock()
	s.previews = previews
	s.loading = false
	s.mu.Unlock()
	return nil
}

// BatchResult is the synchronous outcome of submitting a batch: which files
// were filtered out and which previews were created. Done is closed once all
// surviving uploads settled and the end-of-batch refresh finished.
type BatchResult struct {
	Accepted   []models.Preview
	Rejected   []string
	Duplicates []string

	done chan struct{}
}

// Done reports batch settlement (uploads plus the converging refresh).
func (b *BatchResult) Done() <-chan struct{} {
	return b.done
}

// ProcessFiles runs one batch through the pipeline. It returns as soon as the
// optimistic previews exist; uploads continue in the background and are not
// cancelled when ctx's request ends. One file's failure never aborts its
// siblings, and the refresh fires exactly once per batch.
func (s *Session) ProcessFiles(ctx context.Context, files []models.IncomingFile) *BatchResult {
	result := &BatchResult{done: make(chan struct{})}

	allowed := validation.ParseAllowed(s.extensions)
	accepted, rejected := validation.PartitionByExtension(files, allowed)
	if len(rejected) > 0 {
		s.toasts.Error(validation.RejectionMessage(rejected, allowed))
		for _, f := range rejected {
			result.Rejected = append(result.Rejected, f.Name)
		}
	}

	// Duplicate check and preview creation happen under the same lock so two
	// concurrent submissions cannot both pass the check with the same name.
	s.mu.Lock()
	unique, duplicates := validation.PartitionByDuplicate(accepted, s.previews)
	entries := make([]models.Preview, 0, len(unique))
	for _, f := range unique {
		entries = append(entries, models.Preview{
			LocalID:     "local_" + uuid.NewString(),
			DisplayName: f.Name,
			SizeBytes:   f.Size,
			SizeLabel:   models.FormatSize(f.Size),
			FileType:    models.FileTypeFor(f.Name),
			Status:      models.StatusUploading,
			Progress:    progressUploading,
		})
	}
	s.previews = append(s.previews, entries...)
	s.mu.Unlock()

	if len(duplicates) > 0 {
		s.toasts.Error(validation.DuplicateMessage(duplicates))
		for _, f := range duplicates {
			result.Duplicates = append(result.Duplicates, f.Name)
		}
	}
	result.Accepted = entries

	if len(unique) == 0 {
		close(result.done)
		return result
	}

	// Uploads run to completion even if the submitting request goes away.
	go s.runBatch(context.WithoutCancel(ctx), entries, unique, result)
	return result
}

func (s *Session) runBatch(ctx context.Context, entries []models.Preview, files []models.IncomingFile, result *BatchResult) {
	defer close(result.done)

	var succeeded atomic.Int64
	var wg sync.WaitGroup
	for i := range files {
		wg.Add(1)
		go func(entry models.Preview, f models.IncomingFile) {
			defer wg.Done()
			uploaded, err := s.uploadOne(ctx, f)
			if err != nil {
				log.Printf("[UPLOAD] %q failed: %v", f.Name, err)
				s.toasts.Error(errmsg.Friendly(err, fmt.Sprintf("Failed to upload %q", f.Name)))
				s.markUploadError(entry.LocalID)
				s.events.UploadFailed(s.tableName, s.recordID, f.Name, err.Error())
				return
			}
			succeeded.Add(1)
			s.toasts.Success(fmt.Sprintf("%q uploaded successfully.", f.Name))
			s.events.Uploaded(s.tableName, s.recordID, uploaded.ID, uploaded.FileName, f.Size)
		}(entries[i], files[i])
	}
	wg.Wait()

	// Exactly one refresh per batch, success or failure. A refresh failure is
	// its own notification and does not roll back the uploads; when nothing in
	// the batch was stored there is no "upload succeeded" to report, so the
	// refresh failure stays silent.
	records, err := s.remote.List(ctx, s.tableName, s.recordID)
	if err != nil {
		log.Printf("[UPLOAD] post-batch refresh failed: %v", err)
		if succeeded.Load() > 0 {
			s.toasts.Error(errmsg.ListRefreshFailed)
		}
		return
	}
	previews := previewsFromRecords(records)
	s.mu.Lock()
	s.previews = previews
	s.loading = false
	s.mu.Unlock()
}

// uploadOne pushes a single file upstream. Files with a reserved extension
// are read fully into memory and re-wrapped as text/plain under the encoded
// name so the upstream MIME sniffer accepts them; everything else streams
// through with its original name and type.
func (s *Session) uploadOne(ctx context.Context, f models.IncomingFile) (remote.UploadResult, error) {
	content, err := f.Open()
	if err != nil {
		return remote.UploadResult{}, fmt.Errorf("open %q: %w", f.Name, err)
	}
	defer content.Close()

	storedName := filename.Encode(f.Name)
	contentType := f.ContentType
	var body io.Reader = content
	if filename.IsReserved(filename.Ext(f.Name)) {
		data, err := io.ReadAll(content)
		if err != nil {
			return remote.UploadResult{}, fmt.Errorf("read %q: %w", f.Name, err)
		}
		body = bytes.NewReader(data)
		contentType = "text/plain"
	}
	return s.remote.Upload(ctx, s.tableName, s.recordID, storedName, contentType, body)
}

func (s *Session) markUploadError(localID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.previews {
		if s.previews[i].LocalID == localID {
			s.previews[i].Status = models.StatusError
			s.previews[i].Progress = progressError
			return
		}
	}
}

// Delete removes the preview immediately and then deletes the remote record
// when one exists. A remote failure is toasted but the preview is not
// restored.
func (s *Session) Delete(ctx context.Context, localID string) error {
	s.mu.Lock()
	idx := -1
	for i := range s.previews {
		if s.previews[i].LocalID == localID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownAttachment, localID)
	}
	p := s.previews[idx]
	s.previews = append(s.previews[:idx], s.previews[idx+1:]...)
	s.mu.Unlock()

	if !p.Saved() {
		return nil
	}
	if err := s.remote.Delete(ctx, p.RemoteID); err != nil {
		log.Printf("[DELETE] %q failed: %v", p.DisplayName, err)
		s.toasts.Error(errmsg.Friendly(err, fmt.Sprintf("Failed to delete %q", p.DisplayName)))
		return err
	}
	s.toasts.Success(fmt.Sprintf("%q deleted successfully.", p.DisplayName))
	s.events.Deleted(s.tableName, s.recordID, p.RemoteID, p.DisplayName)
	return nil
}

// Download streams an attachment's bytes and returns the decoded filename to
// serve it under. The caller closes the reader.
func (s *Session) Download(ctx context.Context, localID string) (string, io.ReadCloser, error) {
	s.mu.Lock()
	var found *models.Preview
	for i := range s.previews {
		if s.previews[i].LocalID == localID {
			p := s.previews[i]
			found = &p
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownAttachment, localID)
	}
	if !found.Saved() {
		return "", nil, fmt.Errorf("attachment %q is not stored remotely yet", found.DisplayName)
	}

	body, err := s.remote.Download(ctx, found.RemoteID)
	if err != nil {
		s.toasts.Error(errmsg.Friendly(err, fmt.Sprintf("Failed to download %q", found.DisplayName)))
		return "", nil, err
	}
	name := found.StoredName
	if name == "" {
		name = found.DisplayName
	}
	return filename.Decode(name), body, nil
}

func previewsFromRecords(records []remote.Record) []models.Preview {
	previews := make([]models.Preview, 0, len(records))
	for _, r := range records {
		decoded := filename.Decode(r.FileName)
		previews = append(previews, models.Preview{
			LocalID:     r.ID,
			RemoteID:    r.ID,
			StoredName:  r.FileName,
			DisplayName: decoded,
			SizeBytes:   r.SizeBytes,
			SizeLabel:   models.FormatSize(r.SizeBytes),
			FileType:    models.FileTypeFor(decoded),
			Status:      models.StatusDone,
			Progress:    progressDone,
			UploadedOn:  r.CreatedOn,
		})
	}
	return previews
}
