package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Topic names an event stream.
type Topic string

const (
	TopicBPReading            Topic = "reading.bp.new"
	TopicBPError              Topic = "reading.bp.error"
	TopicHeartRate            Topic = "reading.hr.new"
	TopicNotificationsUpdated Topic = "notifications.updated"
)

// Event is a published payload together with its topic.
type Event struct {
	Topic   Topic
	Payload any
}

// Handler consumes events for a subscribed topic.
type Handler func(ctx context.Context, ev Event)

type subscription struct {
	id      int
	handler Handler
}

// Bus is an in-process publish/subscribe channel. Handlers run synchronously
// on the publishing goroutine, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic][]subscription
	nextID int
	logger *slog.Logger
}

// New creates an empty bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[Topic][]subscription),
		logger: logger,
	}
}

// Subscribe registers h for topic and returns a function that removes it.
func (b *Bus) Subscribe(topic Topic, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}
}

func (b *Bus) remove(topic Topic, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every handler subscribed to topic.
// A panicking handler is logged and does not affect the others.
func (b *Bus) Publish(ctx context.Context, topic Topic, payload any) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.RUnlock()

	ev := Event{Topic: topic, Payload: payload}
	for _, s := range subs {
		b.dispatch(ctx, s, ev)
	}
}

func (b *Bus) dispatch(ctx context.Context, s subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"topic", string(ev.Topic),
				"panic", fmt.Sprint(r),
			)
		}
	}()
	s.handler(ctx, ev)
}

// Subscribers returns the number of handlers registered for topic.
func (b *Bus) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
