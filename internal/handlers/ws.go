package handlers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/sentrahub/sentra/internal/bus"
	"github.com/sentrahub/sentra/internal/models"
)

// sendBuffer is the per-session outgoing queue. A session that cannot
// drain this many frames starts losing events rather than stalling the
// publishers.
const sendBuffer = 64

// wsFrame is one JSON message on the gateway socket, either direction
type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outFrame is an outgoing message before serialization
type outFrame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// wsSession is one connected socket. It implements bus.Subscriber so
// channel events flow straight to the peer.
type wsSession struct {
	id   string
	send chan outFrame
	done chan struct{}
}

func newWSSession() *wsSession {
	return &wsSession{
		id:   uuid.New().String(),
		send: make(chan outFrame, sendBuffer),
		done: make(chan struct{}),
	}
}

// ID implements bus.Subscriber
func (s *wsSession) ID() string {
	return s.id
}

// Deliver implements bus.Subscriber. Never blocks; a full buffer drops
// the event.
func (s *wsSession) Deliver(evt bus.Event) error {
	return s.push(outFrame{Event: evt.Name, Data: evt.Payload})
}

func (s *wsSession) push(frame outFrame) error {
	select {
	case <-s.done:
		return errors.New("session closed")
	case s.send <- frame:
		return nil
	default:
		return errors.New("send buffer full, frame dropped")
	}
}

// WebSocket serves one gateway connection. Sensor nodes use it to
// register, heartbeat and report detections; dashboards use it to
// follow fleet events live.
func (h *Handler) WebSocket(conn *websocket.Conn) {
	sess := newWSSession()
	defer h.closeSession(sess)

	go h.writeLoop(conn, sess)

	_ = sess.push(outFrame{
		Event: bus.EventConnectionConfirmed,
		Data:  map[string]string{"session_id": sess.id},
	})

	h.logger.Info("Gateway session opened", "session", sess.id)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.logger.Warn("Discarding malformed gateway frame", "session", sess.id, "error", err)
			continue
		}

		h.dispatch(sess, frame)
	}
}

// writeLoop serializes outgoing frames for one session
func (h *Handler) writeLoop(conn *websocket.Conn, sess *wsSession) {
	for {
		select {
		case <-sess.done:
			return
		case frame := <-sess.send:
			if err := conn.WriteJSON(frame); err != nil {
				h.logger.Debug("Gateway write failed", "session", sess.id, "error", err)
				return
			}
		}
	}
}

// closeSession tears down subscriptions and marks the session's nodes
// offline
func (h *Handler) closeSession(sess *wsSession) {
	close(sess.done)
	h.events.LeaveAll(sess.id)
	h.registry.DropSession(sess.id)
	h.logger.Info("Gateway session closed", "session", sess.id)
}

// dispatch routes one inbound frame
func (h *Handler) dispatch(sess *wsSession, frame wsFrame) {
	switch frame.Event {
	case "register_node":
		var req models.RegisterNodeRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil || req.ID == "" {
			h.logger.Warn("Invalid register_node frame", "session", sess.id)
			return
		}
		h.registry.RegisterLive(&req, sess.id)
		h.events.Join(bus.ChannelNodes, sess)

	case "heartbeat", "keep_alive":
		var req struct {
			NodeID string `json:"node_id"`
		}
		if err := json.Unmarshal(frame.Data, &req); err != nil || req.NodeID == "" {
			return
		}
		h.registry.Heartbeat(req.NodeID)

	case "detection_event":
		var req models.DetectionRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			h.logger.Warn("Invalid detection_event frame", "session", sess.id)
			return
		}
		alert, err := h.pipeline.Process(&req)
		if err != nil {
			h.logger.Warn("Detection rejected", "session", sess.id, "node_id", req.NodeID, "error", err)
			return
		}
		_ = sess.push(outFrame{
			Event: "detection_processed",
			Data: map[string]interface{}{
				"alert_id": alert.ID,
				"severity": alert.Severity,
			},
		})

	case "join_dashboard":
		h.events.Join(bus.ChannelDashboard, sess)
		_ = sess.push(outFrame{
			Event: bus.EventDashboardJoined,
			Data: map[string]interface{}{
				"stats": models.SystemStats{
					KnownFaces:      h.identities.Count(),
					ActiveNodes:     h.registry.OnlineCount(),
					TotalDetections: h.registry.TotalDetections(),
				},
				"nodes":  h.registry.List(),
				"alerts": h.alerts.List(defaultAlertLimit),
			},
		})

	case "ping":
		_ = sess.push(outFrame{
			Event: bus.EventPong,
			Data:  map[string]string{"timestamp": time.Now().Format(time.RFC3339)},
		})

	default:
		h.logger.Debug("Unknown gateway event", "session", sess.id, "event", frame.Event)
	}
}
