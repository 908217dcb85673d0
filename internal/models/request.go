package models

// RegisterNodeRequest is the body for POST /v1/nodes
type RegisterNodeRequest struct {
	ID       string `json:"id"`
	Location string `json:"location"`
	Kind     string `json:"kind"`
	Address  string `json:"address,omitempty"`
}

// UpdateNodeRequest is the body for PUT /v1/nodes/:id.
// Pointers distinguish "not sent" from "set to empty".
type UpdateNodeRequest struct {
	Location *string `json:"location,omitempty"`
	Kind     *string `json:"kind,omitempty"`
	Address  *string `json:"address,omitempty"`
}

// DetectionRequest is a detection event reported by a node, either over
// the websocket gateway or the broker ingest subject
type DetectionRequest struct {
	NodeID    string `json:"node_id"`
	Faces     []Face `json:"faces"`
	Timestamp string `json:"timestamp,omitempty"`
}

// RegisterFaceRequest is the body for POST /v1/faces
type RegisterFaceRequest struct {
	Name  string `json:"name"`
	Image string `json:"image"` // base64, optionally a data URL
}

// RecognizeRequest is the body for POST /v1/faces/recognize and
// POST /v1/faces/detect
type RecognizeRequest struct {
	Image string `json:"image"`
}
