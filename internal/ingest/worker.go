package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/sentrahub/sentra/internal/logging"
	"github.com/sentrahub/sentra/internal/models"
	"github.com/sentrahub/sentra/internal/queue"
)

// DetectionSubject is the broker subject nodes publish detections on
const DetectionSubject = "sentra.detections"

// Worker consumes detection reports from the external broker and feeds
// them through the pipeline. Optional; the hub runs fine without a
// broker configured.
type Worker struct {
	logger   *logging.Logger
	queue    queue.Subscriber
	pipeline *Pipeline
}

// NewWorker creates a broker-fed detection worker
func NewWorker(q queue.Subscriber, pipeline *Pipeline, logger *logging.Logger) *Worker {
	return &Worker{
		logger:   logger,
		queue:    q,
		pipeline: pipeline,
	}
}

// Start subscribes to the detection subject. Returns immediately;
// messages are handled on the broker client's goroutines.
func (w *Worker) Start() error {
	if err := w.queue.Subscribe(DetectionSubject, w.handle); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", DetectionSubject, err)
	}

	w.logger.Info("Detection worker started", "subject", DetectionSubject)
	return nil
}

// Stop unsubscribes from the detection subject
func (w *Worker) Stop() error {
	return w.queue.Unsubscribe(DetectionSubject)
}

// handle processes one broker message. Malformed payloads and unknown
// nodes are logged and acknowledged; redelivery would not fix them.
func (w *Worker) handle(data []byte) error {
	var req models.DetectionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		w.logger.Warn("Discarding malformed detection message", "error", err)
		return nil
	}

	if _, err := w.pipeline.Process(&req); err != nil {
		w.logger.Warn("Discarding detection", "node_id", req.NodeID, "error", err)
	}
	return nil
}
