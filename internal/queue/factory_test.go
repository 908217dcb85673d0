package queue

import (
	"testing"

	"github.com/sentrahub/sentra/internal/config"
)

func TestNew_NoBroker(t *testing.T) {
	q, err := New(config.QueueConfig{Type: ""})
	if err != nil {
		t.Fatalf("Expected no error for empty type, got: %v", err)
	}
	if q != nil {
		t.Error("Expected nil queue when no broker is configured")
	}
}

func TestNew_Memory(t *testing.T) {
	q, err := New(config.QueueConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("Failed to create memory queue: %v", err)
	}
	defer func() { _ = q.Close() }()

	if _, ok := q.(*MemoryQueue); !ok {
		t.Errorf("Expected *MemoryQueue, got %T", q)
	}
}

func TestNew_CaseInsensitive(t *testing.T) {
	q, err := New(config.QueueConfig{Type: "MEMORY"})
	if err != nil {
		t.Fatalf("Expected type matching to be case-insensitive: %v", err)
	}
	defer func() { _ = q.Close() }()
}

func TestNew_Unsupported(t *testing.T) {
	if _, err := New(config.QueueConfig{Type: "rabbitmq"}); err == nil {
		t.Error("Expected error for unsupported queue type")
	}
}
