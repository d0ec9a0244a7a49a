package service

import (
	"sync"

	"github.com/bnema/backdrop/internal/pipeline"
)

// EventBus fans out job status transitions to subscribers (the SSE handler).
// Polling the status endpoint remains the contract; this is a supplementary
// observer and slow subscribers simply miss events.
type EventBus struct {
	subscribers map[string][]chan pipeline.Event
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan pipeline.Event),
	}
}

func (eb *EventBus) Subscribe(jobID string) chan pipeline.Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan pipeline.Event, 16)
	eb.subscribers[jobID] = append(eb.subscribers[jobID], ch)
	return ch
}

func (eb *EventBus) Unsubscribe(jobID string, ch chan pipeline.Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[jobID]
	for i, sub := range subs {
		if sub == ch {
			eb.subscribers[jobID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}

	if len(eb.subscribers[jobID]) == 0 {
		delete(eb.subscribers, jobID)
	}
}

func (eb *EventBus) Publish(jobID string, event pipeline.Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers[jobID] {
		select {
		case ch <- event:
		default:
			// Drop event if subscriber is slow
		}
	}
}

var _ pipeline.EventPublisher = (*EventBus)(nil)
