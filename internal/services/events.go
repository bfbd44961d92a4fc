package services

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// EventPublisher pushes attachment lifecycle events to NATS JetStream so
// other services can observe attachment activity. A nil publisher is valid
// and silently drops events; the pipeline never depends on the broker.
type EventPublisher struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

// ConnectEvents connects to NATS and ensures the attachment-events stream
// exists.
func ConnectEvents(url string) (*EventPublisher, error) {
	opts := []nats.Option{
		nats.Name("attachment-gateway"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("[NATS] disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[NATS] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Println("[NATS] connection closed")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	if _, err := js.StreamInfo("attachment-events"); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     "attachment-events",
			Subjects: []string{"attachments.*"},
			Storage:  nats.FileStorage,
			MaxAge:   30 * 24 * time.Hour,
		})
		if err != nil {
			log.Printf("[NATS] warning: failed to ensure stream: %v", err)
		}
	}

	log.Println("[NATS] connected and JetStream initialized")
	return &EventPublisher{nc: nc, js: js}, nil
}

// Close drains the connection.
func (p *EventPublisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	p.nc.Close()
}

// Uploaded publishes attachments.uploaded after a confirmed store.
func (p *EventPublisher) Uploaded(tableName, recordID, attachmentID, storedName string, size int64) {
	p.publish("attachments.uploaded", map[string]interface{}{
		"action":        "uploaded",
		"table_name":    tableName,
		"table_sys_id":  recordID,
		"attachment_id": attachmentID,
		"stored_name":   storedName,
		"size":          size,
		"at":            time.Now().UTC().Format(time.RFC3339),
	})
}

// UploadFailed publishes attachments.upload_failed with the raw reason.
func (p *EventPublisher) UploadFailed(tableName, recordID, fileName, reason string) {
	p.publish("attachments.upload_failed", map[string]interface{}{
		"action":       "upload_failed",
		"table_name":   tableName,
		"table_sys_id": recordID,
		"file_name":    fileName,
		"reason":       reason,
		"at":           time.Now().UTC().Format(time.RFC3339),
	})
}

// Deleted publishes attachments.deleted after a confirmed remote delete.
func (p *EventPublisher) Deleted(tableName, recordID, attachmentID, fileName string) {
	p.publish("attachments.deleted", map[string]interface{}{
		"action":        "deleted",
		"table_name":    tableName,
		"table_sys_id":  recordID,
		"attachment_id": attachmentID,
		"file_name":     fileName,
		"at":            time.Now().UTC().Format(time.RFC3339),
	})
}

func (p *EventPublisher) publish(subject string, payload map[string]interface{}) {
	if p == nil || p.js == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[NATS] marshal %s: %v", subject, err)
		return
	}
	if _, err := p.js.Publish(subject, data, nats.MsgId(uuid.NewString())); err != nil {
		log.Printf("[NATS] publish failed subject=%s err=%v", subject, err)
	}
}
