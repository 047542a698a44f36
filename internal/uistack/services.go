package uistack

import (
	"sync"

	"skald.games/internal/protocol"
)

// ServiceQueue collects fire-and-forget requests for the frontend
// (speech, shutdown). Requests are independent of stack state and
// drained in enqueue order each tick.
type ServiceQueue struct {
	mu      sync.Mutex
	pending []protocol.ServiceRequest
}

func NewServiceQueue() *ServiceQueue { return &ServiceQueue{} }

func (q *ServiceQueue) Speak(text string, interrupt bool) {
	q.push(protocol.SpeakService(text, interrupt))
}

func (q *ServiceQueue) Shutdown() {
	q.push(protocol.ShutdownService())
}

func (q *ServiceQueue) push(r protocol.ServiceRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, r)
}

// Drain moves all pending requests out of the queue, preserving order.
func (q *ServiceQueue) Drain() []protocol.ServiceRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}
