// Package registry tracks the sensor-node fleet: which nodes exist,
// where they are, whether they are alive, and how many detections each
// has produced. The in-memory map is the source of truth; snapshots to
// the store are best effort and never block a mutation.
package registry

import (
	"time"

	"github.com/sentrahub/sentra/internal/bus"
	"github.com/sentrahub/sentra/internal/config"
	"github.com/sentrahub/sentra/internal/logging"
	"github.com/sentrahub/sentra/internal/models"
	"github.com/sentrahub/sentra/internal/store"

	"sync"
)

// Registry is the authoritative node table. Safe for concurrent use.
type Registry struct {
	cfg    config.RegistryConfig
	logger *logging.Logger
	events *bus.Bus
	store  store.Store

	mu    sync.RWMutex
	nodes map[string]*models.Node

	// now is replaceable in tests
	now func() time.Time
}

// New creates a registry and loads any persisted nodes. Loaded nodes
// always start offline with their session reference cleared; liveness
// must be re-proven after a hub restart.
func New(cfg config.RegistryConfig, st store.Store, events *bus.Bus, logger *logging.Logger) (*Registry, error) {
	r := &Registry{
		cfg:    cfg,
		logger: logger,
		events: events,
		store:  st,
		nodes:  make(map[string]*models.Node),
		now:    time.Now,
	}

	if st != nil {
		nodes, err := st.LoadNodes()
		if err != nil {
			return nil, err
		}
		for id, node := range nodes {
			node.Status = models.NodeOffline
			node.ConnectionRef = ""
			r.nodes[id] = node
		}
		if len(nodes) > 0 {
			logger.Info("Loaded persisted nodes", "count", len(nodes))
		}
	}

	return r, nil
}

// Register adds a node through the management API. The node starts
// offline until it heartbeats or a probe finds it reachable.
func (r *Registry) Register(req *models.RegisterNodeRequest) (*models.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[req.ID]; exists {
		return nil, ErrNodeExists
	}

	now := r.now()
	node := &models.Node{
		ID:           req.ID,
		Location:     req.Location,
		Kind:         req.Kind,
		Address:      req.Address,
		Status:       models.NodeOffline,
		RegisteredAt: now,
		LastSeen:     now,
	}
	r.nodes[req.ID] = node

	r.persistLocked()
	r.publish(bus.EventNodeRegistered, node.Clone())

	r.logger.Info("Node registered", "node_id", node.ID, "location", node.Location)
	return node.Clone(), nil
}

// RegisterLive adds or re-adds a node announcing itself over a live
// session. Unlike Register it is idempotent and the node comes up
// online immediately, bound to the session that announced it.
func (r *Registry) RegisterLive(req *models.RegisterNodeRequest, connectionRef string) *models.Node {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	node, exists := r.nodes[req.ID]
	if !exists {
		node = &models.Node{
			ID:           req.ID,
			RegisteredAt: now,
		}
		r.nodes[req.ID] = node
	}

	if req.Location != "" {
		node.Location = req.Location
	}
	if req.Kind != "" {
		node.Kind = req.Kind
	}
	if req.Address != "" {
		node.Address = req.Address
	}
	node.Status = models.NodeOnline
	node.ConnectionRef = connectionRef
	node.LastSeen = now
	node.UpdatedAt = now

	r.persistLocked()
	r.publish(bus.EventNodeRegistered, node.Clone())

	r.logger.Info("Node registered over live session",
		"node_id", node.ID, "session", connectionRef)
	return node.Clone()
}

// Update applies a partial update to a node's descriptive fields
func (r *Registry) Update(id string, req *models.UpdateNodeRequest) (*models.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.nodes[id]
	if !ok {
		return nil, ErrNodeNotFound
	}

	if req.Location != nil {
		node.Location = *req.Location
	}
	if req.Kind != nil {
		node.Kind = *req.Kind
	}
	if req.Address != nil {
		node.Address = *req.Address
	}
	node.UpdatedAt = r.now()

	r.persistLocked()
	r.publish(bus.EventNodeUpdated, node.Clone())

	return node.Clone(), nil
}

// Remove deletes a node from the fleet
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[id]; !ok {
		return ErrNodeNotFound
	}
	delete(r.nodes, id)

	r.persistLocked()
	r.publish(bus.EventNodeRemoved, map[string]string{"node_id": id})

	r.logger.Info("Node removed", "node_id", id)
	return nil
}

// Heartbeat refreshes a node's liveness. A heartbeat from an unknown
// node is ignored; nodes must register before heartbeating.
func (r *Registry) Heartbeat(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.nodes[id]
	if !ok {
		return
	}

	node.LastSeen = r.now()
	if node.Status != models.NodeOnline {
		node.Status = models.NodeOnline
		r.publishStatus(node.Clone())
	}
	r.persistLocked()
}

// SetStatus forces a node's status, publishing the change if it differs
func (r *Registry) SetStatus(id string, status models.NodeStatus) (*models.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.nodes[id]
	if !ok {
		return nil, ErrNodeNotFound
	}

	if node.Status != status {
		node.Status = status
		node.UpdatedAt = r.now()
		r.persistLocked()
		r.publishStatus(node.Clone())
	}

	return node.Clone(), nil
}

// Toggle flips a node between online and offline. A restarting node
// toggles to offline.
func (r *Registry) Toggle(id string) (*models.Node, error) {
	r.mu.RLock()
	node, ok := r.nodes[id]
	if !ok {
		r.mu.RUnlock()
		return nil, ErrNodeNotFound
	}
	current := node.Status
	r.mu.RUnlock()

	next := models.NodeOffline
	if current == models.NodeOffline {
		next = models.NodeOnline
	}
	return r.SetStatus(id, next)
}

// Restart marks a node restarting, then after the configured delay
// demotes it to offline unless it has already come back online or been
// removed in the meantime.
func (r *Registry) Restart(id string) (*models.Node, error) {
	node, err := r.SetStatus(id, models.NodeRestarting)
	if err != nil {
		return nil, err
	}

	time.AfterFunc(r.cfg.RestartDelay, func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		n, ok := r.nodes[id]
		if !ok || n.Status != models.NodeRestarting {
			return
		}
		n.Status = models.NodeOffline
		n.UpdatedAt = r.now()
		r.persistLocked()
		r.publishStatus(n.Clone())
		r.logger.Info("Node did not return from restart", "node_id", id)
	})

	r.logger.Info("Node restart issued", "node_id", id)
	return node, nil
}

// RecordDetection credits a detection to the node and refreshes its
// liveness. Unknown nodes are ignored so a stale sensor cannot create
// phantom registry entries.
func (r *Registry) RecordDetection(id string) (*models.Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.nodes[id]
	if !ok {
		return nil, false
	}

	node.Stats.TotalDetections++
	node.Stats.DetectionsToday++
	node.LastSeen = r.now()

	r.persistLocked()
	return node.Clone(), true
}

// DropSession marks every node bound to the given live session offline.
// Called when a node's transport connection closes.
func (r *Registry) DropSession(connectionRef string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	for _, node := range r.nodes {
		if node.ConnectionRef != connectionRef {
			continue
		}
		node.ConnectionRef = ""
		if node.Status == models.NodeOnline {
			node.Status = models.NodeOffline
			node.UpdatedAt = r.now()
			changed = true
			r.publishStatus(node.Clone())
			r.logger.Info("Node session dropped", "node_id", node.ID, "session", connectionRef)
		}
	}

	if changed {
		r.persistLocked()
	}
}

// Get returns a copy of the node
func (r *Registry) Get(id string) (*models.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, ok := r.nodes[id]
	if !ok {
		return nil, ErrNodeNotFound
	}
	return node.Clone(), nil
}

// List returns copies of every node, ordering unspecified
func (r *Registry) List() []*models.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Node, 0, len(r.nodes))
	for _, node := range r.nodes {
		out = append(out, node.Clone())
	}
	return out
}

// OnlineCount returns the number of nodes currently online
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, node := range r.nodes {
		if node.Status == models.NodeOnline {
			count++
		}
	}
	return count
}

// TotalDetections sums detection counters across the fleet
func (r *Registry) TotalDetections() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, node := range r.nodes {
		total += node.Stats.TotalDetections
	}
	return total
}

// ResetDailyCounters zeroes every node's per-day detection counter
func (r *Registry) ResetDailyCounters() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, node := range r.nodes {
		node.Stats.DetectionsToday = 0
	}
	r.persistLocked()
}

// Snapshot persists the current node table synchronously. The monitor
// calls this at the end of each sweep.
func (r *Registry) Snapshot() error {
	if r.store == nil {
		return nil
	}

	r.mu.RLock()
	nodes := make(map[string]*models.Node, len(r.nodes))
	for id, node := range r.nodes {
		nodes[id] = node.Clone()
	}
	r.mu.RUnlock()

	return r.store.SaveNodes(nodes)
}

// persistLocked snapshots the node table without blocking the caller.
// Must be called with the write lock held.
func (r *Registry) persistLocked() {
	if r.store == nil {
		return
	}

	nodes := make(map[string]*models.Node, len(r.nodes))
	for id, node := range r.nodes {
		nodes[id] = node.Clone()
	}

	go func() {
		if err := r.store.SaveNodes(nodes); err != nil {
			r.logger.Warn("Failed to persist node snapshot", "error", err)
		}
	}()
}

// publish sends a dashboard event if a bus is attached
func (r *Registry) publish(name string, payload interface{}) {
	if r.events == nil {
		return
	}
	r.events.Publish(bus.ChannelDashboard, name, payload)
}

// publishStatus announces a status transition. The node must already be
// a clone; it escapes to subscribers.
func (r *Registry) publishStatus(node *models.Node) {
	r.publish(bus.EventNodeStatusChanged, bus.StatusChangePayload{
		NodeID: node.ID,
		Status: node.Status,
		Node:   node,
	})
}
