package models

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// NodeResponse wraps a single node
type NodeResponse struct {
	Node *Node `json:"node"`
}

// NodeListResponse is the GET /v1/nodes payload. Online/offline counts
// are included so dashboards do not need a second round trip.
type NodeListResponse struct {
	Nodes   []*Node `json:"nodes"`
	Total   int     `json:"total"`
	Online  int     `json:"online"`
	Offline int     `json:"offline"`
}

// AlertListResponse is the GET /v1/alerts payload
type AlertListResponse struct {
	Alerts []*Alert `json:"alerts"`
	Count  int      `json:"count"`
}

// StatsResponse is the GET /v1/stats payload
type StatsResponse struct {
	Stats SystemStats `json:"stats"`
}

// ProbeResponse is the GET /v1/nodes/:id/stream payload
type ProbeResponse struct {
	Status    NodeStatus `json:"status"`
	NodeID    string     `json:"node_id"`
	StreamURL string     `json:"stream_url"`
	ProxyURL  string     `json:"proxy_url"`
}

// FaceListResponse is the GET /v1/faces payload
type FaceListResponse struct {
	Names []string `json:"names"`
	Total int      `json:"total"`
}

// RecognizeResponse is the POST /v1/faces/recognize payload
type RecognizeResponse struct {
	Faces []Face `json:"faces"`
}

// DetectResponse is the POST /v1/faces/detect payload
type DetectResponse struct {
	Boxes []BoundingBox `json:"boxes"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
