package events

import (
	"sync"
	"time"

	"github.com/cuemby/tableside/pkg/metrics"
	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventMutationSucceeded EventType = "mutation.succeeded"
	EventMutationFailed    EventType = "mutation.failed"
	EventCacheRefreshed    EventType = "cache.refreshed"
	EventRefreshFailed     EventType = "cache.refresh_failed"
)

// Event is a notification about a mutation outcome or a cache refresh
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Message   string
	Metadata  map[string]string
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker fans events out to subscribers. A subscriber whose buffer is full
// misses the event; the broker never blocks on a slow reader.
type Broker struct {
	subscribers map[Subscriber]filter
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// filter is the set of event types a subscriber wants; empty means all
type filter map[EventType]struct{}

func (f filter) matches(t EventType) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[t]
	return ok
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]filter),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker. Stopping twice is a no-op.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

// Subscribe returns a channel receiving events of the given types, or of
// every type when none are given.
func (b *Broker) Subscribe(types ...EventType) Subscriber {
	f := make(filter, len(types))
	for _, t := range types {
		f[t] = struct{}{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = f
	return sub
}

// Unsubscribe removes a subscription and closes its channel
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	close(sub)
}

// Publish stamps the event and queues it for delivery
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub, f := range b.subscribers {
		if !f.matches(event.Type) {
			continue
		}
		select {
		case sub <- event:
		default:
			metrics.EventsDropped.WithLabelValues(string(event.Type)).Inc()
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
