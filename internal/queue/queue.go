// Package queue abstracts the optional external message broker used to
// mirror bus events to out-of-process observers and to ingest detection
// events published by sensor nodes. Backends: in-memory (default for
// tests and single-process deployments), NATS JetStream, Redis Streams
// and Kafka.
package queue

import "context"

// Publisher publishes messages to a broker subject
type Publisher interface {
	// Publish publishes a message to a subject/topic
	Publish(ctx context.Context, subject string, data []byte) error

	// Close closes the connection
	Close() error
}

// MessageHandler handles incoming messages. Returning an error makes
// backends that support redelivery retry the message.
type MessageHandler func(data []byte) error

// Subscriber subscribes to messages from a broker subject
type Subscriber interface {
	// Subscribe subscribes to a subject/topic with a handler
	Subscribe(subject string, handler MessageHandler) error

	// Unsubscribe unsubscribes from a subject/topic
	Unsubscribe(subject string) error

	// Close closes the connection
	Close() error
}

// Queue combines Publisher and Subscriber
type Queue interface {
	Publisher
	Subscriber
}
