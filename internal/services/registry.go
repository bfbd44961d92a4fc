package services

import (
	"sync"

	"github.com/doli-systems/attachment-gateway/internal/remote"
	"github.com/doli-systems/attachment-gateway/internal/toast"
)

// Registry hands out one Session per parent record, created lazily. All
// sessions share the same remote client, toast queue, and event publisher.
type Registry struct {
	extensions string
	remote     *remote.Client
	toasts     *toast.Queue
	events     *EventPublisher

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry builds a registry with the shared dependencies.
func NewRegistry(extensions string, client *remote.Client, toasts *toast.Queue, events *EventPublisher) *Registry {
	return &Registry{
		extensions: extensions,
		remote:     client,
		toasts:     toasts,
		events:     events,
		sessions:   make(map[string]*Session),
	}
}

// Session returns the session for a parent record, creating it on first use.
func (r *Registry) Session(tableName, recordID string) *Session {
	key := tableName + "/" + recordID
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		return s
	}
	s := NewSession(tableName, recordID, r.extensions, r.remote, r.toasts, r.events)
	r.sessions[key] = s
	return s
}
