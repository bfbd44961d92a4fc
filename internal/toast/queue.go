// Package toast holds the process-wide notification stack. The queue outlives
// any single batch and is shared by every session, so it is constructed once
// in main and injected, never kept as package state.
package toast

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Toast kinds.
const (
	KindSuccess = "success"
	KindError   = "error"
)

// DefaultDwell is how long a toast stays up before it dismisses itself.
const DefaultDwell = 15 * time.Second

// Toast is one transient notification. Insertion order is display order.
type Toast struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Queue is an ordered toast stack with per-toast dwell timers. All methods
// are safe for concurrent use.
type Queue struct {
	mu     sync.Mutex
	dwell  time.Duration
	toasts []Toast
	timers map[string]*time.Timer
}

// NewQueue builds a queue with the given dwell. Zero or negative dwell falls
// back to DefaultDwell.
func NewQueue(dwell time.Duration) *Queue {
	if dwell <= 0 {
		dwell = DefaultDwell
	}
	return &Queue{
		dwell:  dwell,
		timers: make(map[string]*time.Timer),
	}
}

// Success pushes a success toast and returns its id.
func (q *Queue) Success(text string) string {
	return q.push(KindSuccess, text)
}

// Error pushes an error toast and returns its id.
func (q *Queue) Error(text string) string {
	return q.push(KindError, text)
}

func (q *Queue) push(kind, text string) string {
	id := uuid.NewString()
	q.mu.Lock()
	q.toasts = append(q.toasts, Toast{ID: id, Kind: kind, Text: text})
	q.timers[id] = time.AfterFunc(q.dwell, func() { q.Dismiss(id) })
	q.mu.Unlock()
	return id
}

// Dismiss cancels the dwell timer and removes the toast. Dismissing an
// unknown or already-dismissed id is a no-op.
func (q *Queue) Dismiss(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if timer, ok := q.timers[id]; ok {
		timer.Stop()
		delete(q.timers, id)
	}
	for i, t := range q.toasts {
		if t.ID == id {
			q.toasts = append(q.toasts[:i], q.toasts[i+1:]...)
			break
		}
	}
}

// Active returns the current stack in display order.
func (q *Queue) Active() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Toast, len(q.toasts))
	copy(out, q.toasts)
	return out
}

// Close stops every pending timer. Used on shutdown and in tests.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
	q.toasts = nil
}
