// Package ingest turns raw detection reports into registry credit,
// alert log entries and dashboard notifications. The websocket gateway
// and the broker worker both feed the same pipeline so a detection is
// handled identically regardless of how it arrived.
package ingest

import (
	"errors"
	"time"

	"github.com/sentrahub/sentra/internal/alerts"
	"github.com/sentrahub/sentra/internal/bus"
	"github.com/sentrahub/sentra/internal/logging"
	"github.com/sentrahub/sentra/internal/models"
	"github.com/sentrahub/sentra/internal/registry"
)

// ErrUnknownNode is returned for detections from unregistered nodes
var ErrUnknownNode = errors.New("detection from unknown node")

// FaceCounter reports how many identities are enrolled. Satisfied by
// recognition.IdentityStore.
type FaceCounter interface {
	Count() int
}

// Pipeline processes detection reports
type Pipeline struct {
	logger   *logging.Logger
	registry *registry.Registry
	alerts   *alerts.Log
	faces    FaceCounter
	events   *bus.Bus
}

// NewPipeline wires the detection path
func NewPipeline(reg *registry.Registry, log *alerts.Log, faces FaceCounter, events *bus.Bus, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		logger:   logger,
		registry: reg,
		alerts:   log,
		faces:    faces,
		events:   events,
	}
}

// Process credits the node, appends the alert and notifies dashboards.
// Detections from unknown nodes are rejected; a stale sensor cannot
// create registry entries through the detection path.
func (p *Pipeline) Process(req *models.DetectionRequest) (*models.Alert, error) {
	if req.NodeID == "" {
		return nil, errors.New("node_id is required")
	}

	node, ok := p.registry.RecordDetection(req.NodeID)
	if !ok {
		return nil, ErrUnknownNode
	}

	// Reported timestamps are advisory; malformed ones fall back to now
	var ts time.Time
	if req.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
			ts = parsed
		}
	}

	alert := p.alerts.Append(req.NodeID, node.Location, "face_detection", req.Faces, ts)

	if p.events != nil {
		p.events.Publish(bus.ChannelDashboard, bus.EventNewDetection, bus.DetectionPayload{
			Alert: alert,
			Node:  node,
			Stats: p.stats(),
		})
	}

	p.logger.Debug("Detection processed",
		"node_id", req.NodeID, "faces", len(req.Faces), "alert_id", alert.ID, "severity", alert.Severity)

	return alert, nil
}

func (p *Pipeline) stats() models.SystemStats {
	stats := models.SystemStats{
		ActiveNodes:     p.registry.OnlineCount(),
		TotalDetections: p.registry.TotalDetections(),
	}
	if p.faces != nil {
		stats.KnownFaces = p.faces.Count()
	}
	return stats
}
