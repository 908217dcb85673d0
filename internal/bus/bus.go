// Package bus implements the channel-scoped publish/subscribe fan-out
// used to push registry and alert changes to connected observers.
//
// Delivery is at-most-once and fire-and-forget: subscribers joining
// after a publish do not receive it, and a failing subscriber never
// fails the publisher. Deliver implementations must not block; the
// websocket gateway uses a buffered send that drops on overflow.
package bus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sentrahub/sentra/internal/logging"
	"github.com/sentrahub/sentra/internal/queue"
)

// Event is one published notification
type Event struct {
	Channel   string      `json:"channel"`
	Name      string      `json:"event"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Subscriber receives events for the channels it has joined
type Subscriber interface {
	// ID uniquely identifies the subscriber within the bus
	ID() string

	// Deliver hands an event to the subscriber. It must not block;
	// errors are logged by the bus and otherwise ignored.
	Deliver(evt Event) error
}

// Bus fans events out to channel subscribers. Safe for concurrent use.
type Bus struct {
	logger *logging.Logger

	mu       sync.RWMutex
	channels map[string]map[string]Subscriber

	// mirror, when set, re-publishes every event to an external broker
	// so out-of-process observers can follow along. Best effort.
	mirror        queue.Publisher
	mirrorSubject func(channel string) string
}

// New creates a bus with no external mirror
func New(logger *logging.Logger) *Bus {
	return &Bus{
		logger:   logger,
		channels: make(map[string]map[string]Subscriber),
	}
}

// WithMirror attaches a broker publisher; every event is also published
// on subject "sentra.events.<channel>"
func (b *Bus) WithMirror(pub queue.Publisher) *Bus {
	b.mirror = pub
	b.mirrorSubject = func(channel string) string {
		return "sentra.events." + channel
	}
	return b
}

// Join adds sub to channel. Joining twice replaces the previous handle.
func (b *Bus) Join(channel string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.channels[channel]
	if !ok {
		subs = make(map[string]Subscriber)
		b.channels[channel] = subs
	}
	subs[sub.ID()] = sub
}

// Leave removes the subscriber with the given id from channel.
// Unknown ids are a no-op.
func (b *Bus) Leave(channel, subscriberID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.channels[channel]
	if !ok {
		return
	}
	delete(subs, subscriberID)
	if len(subs) == 0 {
		delete(b.channels, channel)
	}
}

// LeaveAll removes the subscriber from every channel (observer disconnect)
func (b *Bus) LeaveAll(subscriberID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for channel, subs := range b.channels {
		delete(subs, subscriberID)
		if len(subs) == 0 {
			delete(b.channels, channel)
		}
	}
}

// Subscribers returns the number of subscribers currently joined to channel
func (b *Bus) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.channels[channel])
}

// Publish delivers the event to every subscriber joined to channel at
// the moment of publish. Errors from individual subscribers are logged
// and isolated; the publisher never observes them.
func (b *Bus) Publish(channel, name string, payload interface{}) {
	evt := Event{
		Channel:   channel,
		Name:      name,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	b.mu.RLock()
	targets := make([]Subscriber, 0, len(b.channels[channel]))
	for _, sub := range b.channels[channel] {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		b.deliver(sub, evt)
	}

	if b.mirror != nil {
		go b.mirrorPublish(evt)
	}
}

// deliver isolates one subscriber: a panic or error affects nobody else
func (b *Bus) deliver(sub Subscriber, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Subscriber panicked during delivery",
				"subscriber", sub.ID(), "event", evt.Name, "panic", r)
		}
	}()

	if err := sub.Deliver(evt); err != nil {
		b.logger.Warn("Event delivery failed",
			"subscriber", sub.ID(), "channel", evt.Channel, "event", evt.Name, "error", err)
	}
}

// mirrorPublish forwards the event to the external broker, best effort
func (b *Bus) mirrorPublish(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		b.logger.Error("Failed to marshal event for mirror", "event", evt.Name, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.mirror.Publish(ctx, b.mirrorSubject(evt.Channel), data); err != nil {
		b.logger.Warn("Failed to mirror event to broker",
			"channel", evt.Channel, "event", evt.Name, "error", err)
	}
}
