package queue

import "github.com/nats-io/nats.go"

// Test-only helpers to keep constructors unexported in production code.

func NewNATSQueue(url string) (*NATSQueue, error) {
	return newNATSQueue(url)
}

func NATSQueueFromConn(conn *nats.Conn) (*NATSQueue, error) {
	return natsQueueFromConn(conn)
}
