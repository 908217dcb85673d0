package models

import "time"

// NodeStatus represents the liveness state of a sensor node
type NodeStatus string

const (
	// NodeOffline means the node has not been heard from recently
	NodeOffline NodeStatus = "offline"

	// NodeOnline means the node is heartbeating or was reachable on probe
	NodeOnline NodeStatus = "online"

	// NodeRestarting means a restart command was issued and the node
	// has not come back yet
	NodeRestarting NodeStatus = "restarting"
)

// Valid reports whether s is a known node status
func (s NodeStatus) Valid() bool {
	switch s {
	case NodeOffline, NodeOnline, NodeRestarting:
		return true
	}
	return false
}

// Node represents a registered sensor node (camera)
type Node struct {
	ID       string     `json:"id"`
	Location string     `json:"location"`
	Kind     string     `json:"kind"`              // e.g. "camera"
	Address  string     `json:"address,omitempty"` // upstream stream URL
	Status   NodeStatus `json:"status"`

	// ConnectionRef is the live transport session that registered this
	// node. Empty for nodes added through the management API.
	ConnectionRef string `json:"connection_ref,omitempty"`

	RegisteredAt time.Time `json:"registered_at"`
	LastSeen     time.Time `json:"last_seen"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`

	Stats NodeStats `json:"stats"`
}

// NodeStats holds per-node detection counters
type NodeStats struct {
	TotalDetections int64 `json:"total_detections"`
	DetectionsToday int64 `json:"detections_today"`
}

// Clone returns a copy of the node safe to hand out of the registry lock
func (n *Node) Clone() *Node {
	c := *n
	return &c
}
