// Package registry maps (queue, job name) pairs to their handlers. The
// registry is built explicitly at startup; an unregistered pair is a routing
// error the worker sends straight to the DLQ.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/bidmarket/notifier/internal/domain"
)

// JobHandler processes one decoded job.
type JobHandler func(ctx context.Context, job domain.Job) error

type key struct {
	queue string
	name  string
}

// QueueRegistry is a concurrency-safe lookup table of job handlers.
type QueueRegistry struct {
	mu       sync.RWMutex
	handlers map[key]JobHandler
}

func NewQueueRegistry() *QueueRegistry {
	return &QueueRegistry{handlers: make(map[key]JobHandler)}
}

// Register binds a handler to a (queue, job name) pair. Registering the same
// pair twice is a wiring bug and returns an error.
func (r *QueueRegistry) Register(queue, name string, handler JobHandler) error {
	if handler == nil {
		return fmt.Errorf("nil handler for %s/%s", queue, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{queue: queue, name: name}
	if _, exists := r.handlers[k]; exists {
		return fmt.Errorf("handler already registered for %s/%s", queue, name)
	}
	r.handlers[k] = handler
	return nil
}

// Lookup returns the handler for a (queue, job name) pair.
func (r *QueueRegistry) Lookup(queue, name string) (JobHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, exists := r.handlers[key{queue: queue, name: name}]
	if !exists {
		return nil, fmt.Errorf("no handler registered for %s/%s", queue, name)
	}
	return handler, nil
}

// Queues returns the distinct queue names with at least one handler.
func (r *QueueRegistry) Queues() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var queues []string
	for k := range r.handlers {
		if _, ok := seen[k.queue]; ok {
			continue
		}
		seen[k.queue] = struct{}{}
		queues = append(queues, k.queue)
	}
	return queues
}
