package pipeline

import (
	"sync"
	"time"

	"lookout/internal/alerting"
	"lookout/internal/watchlist"
)

// EventType labels what a pipeline event carries.
type EventType string

const (
	// EventMatch is published for every sampled frame where at least one
	// face was found, alerting or not.
	EventMatch EventType = "match"

	// EventAlert is published when the decider emits an alert.
	EventAlert EventType = "alert"
)

// Event is one pipeline observation, consumed by the websocket hub and by
// tests.
type Event struct {
	Type     EventType             `json:"type"`
	Time     time.Time             `json:"time"`
	Faces    int                   `json:"faces"`
	Result   watchlist.MatchResult `json:"result"`
	Decision *alerting.Decision    `json:"decision,omitempty"`
}

// EventHandler consumes pipeline events. Handlers are called synchronously
// in publish order.
type EventHandler func(Event)

// EventBus provides pub/sub for pipeline events.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[*eventSubscription]bool
}

type eventSubscription struct {
	channel chan Event
	handler EventHandler
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[*eventSubscription]bool)}
}

// Subscribe registers a handler for all events. Returns an unsubscribe
// function.
func (b *EventBus) Subscribe(handler EventHandler) func() {
	sub := &eventSubscription{handler: handler}

	b.mu.Lock()
	b.subscribers[sub] = true
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, sub)
		b.mu.Unlock()
	}
}

// SubscribeChannel returns a buffered channel of events plus an unsubscribe
// function. Delivery to a full channel drops the event.
func (b *EventBus) SubscribeChannel(bufferSize int) (<-chan Event, func()) {
	if bufferSize <= 0 {
		bufferSize = 10
	}

	ch := make(chan Event, bufferSize)
	sub := &eventSubscription{channel: ch}

	b.mu.Lock()
	b.subscribers[sub] = true
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[sub]; ok {
			delete(b.subscribers, sub)
			close(ch)
		}
		b.mu.Unlock()
	}

	return ch, unsubscribe
}

// Publish sends an event to every subscriber. Handler subscribers run
// synchronously to preserve event ordering; channel subscribers get
// best-effort delivery.
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		if sub.handler != nil {
			sub.handler(event)
		} else if sub.channel != nil {
			select {
			case sub.channel <- event:
			default:
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *EventBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close unsubscribes everyone and closes channels.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subscribers {
		if sub.channel != nil {
			close(sub.channel)
		}
		delete(b.subscribers, sub)
	}
}
