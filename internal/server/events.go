// Package server fans server activity out to admin dashboard subscribers
// via the EventHub.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// EventKind labels what happened on the server.
type EventKind string

// Event kinds published by the supervisor and router.
const (
	EventJoin    EventKind = "join"
	EventLeave   EventKind = "leave"
	EventChat    EventKind = "chat"
	EventPrivate EventKind = "private"
	EventStatus  EventKind = "status"
	EventKick    EventKind = "kick"
	EventAdmin   EventKind = "admin"
)

// Event is one server activity record delivered to dashboard subscribers.
type Event struct {
	Time    time.Time `json:"time"`
	Kind    EventKind `json:"kind"`
	User    string    `json:"user,omitempty"`
	Message string    `json:"message,omitempty"`
}

const (
	publishQueueSize    = 128
	subscriberQueueSize = 64
)

// EventHub manages dashboard subscribers and event fan-out. Publishing
// never blocks the chat path: events are dropped when the hub or a
// subscriber falls behind. Fan-out iterates over a snapshot of the
// subscriber set so the lock is never held while a subscriber channel is
// full.
type EventHub struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}

	publish chan Event
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	log     logrus.FieldLogger
}

// NewEventHub creates a hub ready to accept subscribers. Run must be
// started in its own goroutine before events flow.
func NewEventHub(log logrus.FieldLogger) *EventHub {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventHub{
		subscribers: make(map[chan Event]struct{}),
		publish:     make(chan Event, publishQueueSize),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		log:         log,
	}
}

// Publish records a server event. It never blocks; when the hub's queue
// is saturated the event is dropped.
func (h *EventHub) Publish(kind EventKind, user, message string) {
	event := Event{
		Time:    time.Now(),
		Kind:    kind,
		User:    user,
		Message: message,
	}

	select {
	case h.publish <- event:
	default:
		h.log.WithField("kind", kind).Debug("event queue full; dropping event")
	}
}

// Subscribe registers a dashboard listener. The returned cancel function
// removes the subscription and closes the channel; it is safe to call
// more than once.
func (h *EventHub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberQueueSize)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			// Closing under the lock keeps fanOut from writing to a
			// closed channel.
			h.mu.Lock()
			delete(h.subscribers, ch)
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Run starts the hub's fan-out loop. It returns when Shutdown is called.
func (h *EventHub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.closeSubscribers()
			return
		case event := <-h.publish:
			h.fanOut(event)
		}
	}
}

// fanOut delivers one event to every subscriber. The sends are
// non-blocking, so holding the read lock here is cheap and prevents a
// racing unsubscribe from closing a channel mid-send.
func (h *EventHub) fanOut(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			// Slow subscriber; it misses this event rather than
			// stalling everyone else.
		}
	}
}

func (h *EventHub) closeSubscribers() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		delete(h.subscribers, ch)
		close(ch)
	}
}

// Shutdown stops the fan-out loop and closes all subscriber channels.
func (h *EventHub) Shutdown() {
	h.cancel()
	<-h.done
}
