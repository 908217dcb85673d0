package bus

import "github.com/sentrahub/sentra/internal/models"

// Channels are the fixed fan-out groups observers can join
const (
	// ChannelDashboard receives registry, alert and stats updates
	ChannelDashboard = "dashboard"

	// ChannelNodes receives updates intended for sensor nodes
	ChannelNodes = "nodes"
)

// Event names published on the dashboard channel
const (
	EventNodeRegistered    = "node_registered"
	EventNodeUpdated       = "node_updated"
	EventNodeRemoved       = "node_removed"
	EventNodeStatusChanged = "node_status_changed"
	EventNewDetection      = "new_detection"
	EventSystemUpdate      = "system_update"
)

// Event names published on the nodes channel
const (
	EventFaceDatabaseUpdated = "face_database_updated"
)

// Transport-level event names, sent point-to-point to a single session
// rather than through a channel
const (
	EventConnectionConfirmed = "connection_confirmed"
	EventDashboardJoined     = "dashboard_joined"
	EventPong                = "pong"
)

// StatusChangePayload is the node_status_changed payload. NodeID and
// Status are duplicated at the top level so consumers tracking only the
// transition do not need to unpack the full node.
type StatusChangePayload struct {
	NodeID string            `json:"node_id"`
	Status models.NodeStatus `json:"status"`
	Node   *models.Node      `json:"node"`
}

// DetectionPayload is the new_detection payload
type DetectionPayload struct {
	Alert *models.Alert      `json:"alert"`
	Node  *models.Node       `json:"node"`
	Stats models.SystemStats `json:"stats"`
}

// FaceDatabasePayload is the face_database_updated payload sent to
// nodes so they can refresh their local face caches
type FaceDatabasePayload struct {
	Action string `json:"action"` // "added" or "removed"
	Name   string `json:"name"`
	Total  int    `json:"total"`
}

// SystemUpdatePayload is the system_update payload
type SystemUpdatePayload struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}
