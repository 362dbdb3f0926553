package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event is one recorded fact about an expense lifecycle transition. By
// the time an event is published the aggregate write has already
// committed, so no subscriber can veto or roll it back.
type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
	Payload() interface{}
}

type BaseEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) EventID() string {
	return e.ID
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

func (e BaseEvent) Payload() interface{} {
	return e.Data
}

// Handler consumes one event. Errors are logged by the bus and never
// surface to the publisher.
type Handler func(ctx context.Context, event Event) error

// EventBus fans lifecycle events out to in-process subscribers.
// Delivery is asynchronous and detached from the publishing request:
// a subscriber keeps running after the HTTP response has been written.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
	logger      *slog.Logger
}

func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[string][]Handler),
		logger:      logger,
	}
}

func (eb *EventBus) Subscribe(eventType string, handler Handler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], handler)
	eb.logger.Info("event subscriber registered",
		"event_type", eventType,
		"subscribers", len(eb.subscribers[eventType]))
}

// Publish dispatches the event to every subscriber of its type, each on
// its own goroutine. The request context's values are kept but its
// cancellation is not; the response being written must not kill a
// subscriber mid-flight.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	eb.mu.RLock()
	subscribers := eb.subscribers[event.EventType()]
	eb.mu.RUnlock()

	if len(subscribers) == 0 {
		eb.logger.Debug("no subscribers for event type", "event_type", event.EventType())
		return nil
	}

	eb.logger.Info("publishing event",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"subscribers", len(subscribers))

	detached := context.WithoutCancel(ctx)
	for _, subscriber := range subscribers {
		go func(handle Handler) {
			if err := handle(detached, event); err != nil {
				eb.logger.Error("event subscriber failed",
					"event_type", event.EventType(),
					"event_id", event.EventID(),
					"error", err)
			}
		}(subscriber)
	}

	return nil
}
