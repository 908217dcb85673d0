package models

import "time"

// AlertSeverity classifies a detection alert
type AlertSeverity string

const (
	// SeverityInfo means at least one detected face matched a known identity
	SeverityInfo AlertSeverity = "info"

	// SeverityWarning means every detected face was unknown
	SeverityWarning AlertSeverity = "warning"
)

// BoundingBox is a face location within a frame, in pixel coordinates
type BoundingBox struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Face is a single detected face with its resolved identity.
// Name is UnknownIdentity when the face matched nothing.
type Face struct {
	Name string      `json:"name"`
	Box  BoundingBox `json:"box"`
}

// UnknownIdentity is the name assigned to faces that match no known identity
const UnknownIdentity = "unknown"

// Known reports whether the face resolved to a registered identity
func (f Face) Known() bool {
	return f.Name != "" && f.Name != UnknownIdentity
}

// Alert is one recorded detection event. IDs are assigned at insertion
// and ascend by insertion order, not necessarily by timestamp.
type Alert struct {
	ID            int64         `json:"id"`
	Timestamp     time.Time     `json:"timestamp"`
	NodeID        string        `json:"node_id"`
	Location      string        `json:"location"`
	DetectedFaces []Face        `json:"detected_faces"`
	Kind          string        `json:"kind"` // e.g. "face_detection"
	Severity      AlertSeverity `json:"severity"`
}

// SystemStats is derived state recomputed on demand from the registry
// and the identity store
type SystemStats struct {
	KnownFaces      int   `json:"known_faces"`
	ActiveNodes     int   `json:"active_nodes"`
	TotalDetections int64 `json:"total_detections"`
}
