// Package store persists best-effort snapshots of the hub's in-memory
// state: the node registry, the newest alerts and the known identities.
//
// Persistence is never authoritative. A missing, truncated or corrupt
// snapshot loads as empty state, and a failed write is logged by the
// caller and swallowed; the in-memory copy keeps serving.
package store

import "github.com/sentrahub/sentra/internal/models"

// Store is a durable snapshot backend
type Store interface {
	// SaveNodes writes the full node map
	SaveNodes(nodes map[string]*models.Node) error

	// LoadNodes reads the node map; absence yields an empty map, not an error
	LoadNodes() (map[string]*models.Node, error)

	// SaveAlerts writes the newest alerts, newest first
	SaveAlerts(alerts []*models.Alert) error

	// LoadAlerts reads the alert snapshot, newest first
	LoadAlerts() ([]*models.Alert, error)

	// SaveIdentities writes the known identity set
	SaveIdentities(identities []*models.Identity) error

	// LoadIdentities reads the known identity set
	LoadIdentities() ([]*models.Identity, error)

	// Close releases backend resources
	Close() error
}
