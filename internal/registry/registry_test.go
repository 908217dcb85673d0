package registry

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sentrahub/sentra/internal/bus"
	"github.com/sentrahub/sentra/internal/config"
	"github.com/sentrahub/sentra/internal/logging"
	"github.com/sentrahub/sentra/internal/models"
	"github.com/sentrahub/sentra/internal/store"
)

func testConfig() config.RegistryConfig {
	return config.RegistryConfig{
		HeartbeatTimeout: 30 * time.Second,
		MonitorInterval:  10 * time.Second,
		RestartDelay:     50 * time.Millisecond,
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(testConfig(), nil, nil, logging.NewDevelopment())
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	return r
}

func registerReq(id string) *models.RegisterNodeRequest {
	return &models.RegisterNodeRequest{
		ID:       id,
		Location: "entrance",
		Kind:     "camera",
		Address:  "http://192.168.1.10:8080",
	}
}

func TestRegistry_Register(t *testing.T) {
	r := newTestRegistry(t)

	node, err := r.Register(registerReq("cam-1"))
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	if node.Status != models.NodeOffline {
		t.Errorf("API-registered node should start offline, got %s", node.Status)
	}
	if node.RegisteredAt.IsZero() || node.LastSeen.IsZero() {
		t.Error("Expected registration timestamps to be set")
	}
	if node.ConnectionRef != "" {
		t.Error("API-registered node should have no session reference")
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := newTestRegistry(t)

	if _, err := r.Register(registerReq("cam-1")); err != nil {
		t.Fatalf("First register failed: %v", err)
	}

	_, err := r.Register(registerReq("cam-1"))
	if !errors.Is(err, ErrNodeExists) {
		t.Errorf("Expected ErrNodeExists, got %v", err)
	}
}

func TestRegistry_RegisterLive(t *testing.T) {
	r := newTestRegistry(t)

	node := r.RegisterLive(registerReq("cam-1"), "session-abc")
	if node.Status != models.NodeOnline {
		t.Errorf("Live-registered node should be online, got %s", node.Status)
	}
	if node.ConnectionRef != "session-abc" {
		t.Errorf("Expected session reference to be recorded, got %q", node.ConnectionRef)
	}

	// Re-announcing is idempotent and rebinds the session
	again := r.RegisterLive(&models.RegisterNodeRequest{ID: "cam-1"}, "session-def")
	if again.ConnectionRef != "session-def" {
		t.Errorf("Expected session to be rebound, got %q", again.ConnectionRef)
	}
	if again.Location != "entrance" {
		t.Errorf("Sparse re-announce should keep existing fields, got %q", again.Location)
	}
	if len(r.List()) != 1 {
		t.Errorf("Expected 1 node, got %d", len(r.List()))
	}
}

func TestRegistry_Update(t *testing.T) {
	r := newTestRegistry(t)
	_, _ = r.Register(registerReq("cam-1"))

	loc := "garage"
	node, err := r.Update("cam-1", &models.UpdateNodeRequest{Location: &loc})
	if err != nil {
		t.Fatalf("Failed to update: %v", err)
	}
	if node.Location != "garage" {
		t.Errorf("Expected location 'garage', got %q", node.Location)
	}
	if node.Kind != "camera" {
		t.Errorf("Unsent fields should be untouched, got kind %q", node.Kind)
	}
	if node.UpdatedAt.IsZero() {
		t.Error("Expected UpdatedAt to be set")
	}
}

func TestRegistry_UpdateNotFound(t *testing.T) {
	r := newTestRegistry(t)
	loc := "garage"
	if _, err := r.Update("ghost", &models.UpdateNodeRequest{Location: &loc}); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Expected ErrNodeNotFound, got %v", err)
	}
}

func TestRegistry_Remove(t *testing.T) {
	r := newTestRegistry(t)
	_, _ = r.Register(registerReq("cam-1"))

	if err := r.Remove("cam-1"); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}
	if _, err := r.Get("cam-1"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Expected node to be gone, got %v", err)
	}
	if err := r.Remove("cam-1"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Expected ErrNodeNotFound on second remove, got %v", err)
	}
}

func TestRegistry_Heartbeat(t *testing.T) {
	r := newTestRegistry(t)
	_, _ = r.Register(registerReq("cam-1"))

	r.Heartbeat("cam-1")

	node, _ := r.Get("cam-1")
	if node.Status != models.NodeOnline {
		t.Errorf("Heartbeat should promote node to online, got %s", node.Status)
	}
}

func TestRegistry_HeartbeatUnknownNode(t *testing.T) {
	r := newTestRegistry(t)

	// Must not create a phantom entry
	r.Heartbeat("ghost")

	if len(r.List()) != 0 {
		t.Error("Heartbeat from unknown node must not create a registry entry")
	}
}

func TestRegistry_Toggle(t *testing.T) {
	r := newTestRegistry(t)
	_, _ = r.Register(registerReq("cam-1"))

	node, err := r.Toggle("cam-1")
	if err != nil {
		t.Fatalf("Failed to toggle: %v", err)
	}
	if node.Status != models.NodeOnline {
		t.Errorf("Expected online after first toggle, got %s", node.Status)
	}

	node, _ = r.Toggle("cam-1")
	if node.Status != models.NodeOffline {
		t.Errorf("Expected offline after second toggle, got %s", node.Status)
	}
}

func TestRegistry_RestartDemotesAfterDelay(t *testing.T) {
	r := newTestRegistry(t)
	_, _ = r.Register(registerReq("cam-1"))
	_, _ = r.SetStatus("cam-1", models.NodeOnline)

	node, err := r.Restart("cam-1")
	if err != nil {
		t.Fatalf("Failed to restart: %v", err)
	}
	if node.Status != models.NodeRestarting {
		t.Errorf("Expected restarting, got %s", node.Status)
	}

	time.Sleep(150 * time.Millisecond)

	node, _ = r.Get("cam-1")
	if node.Status != models.NodeOffline {
		t.Errorf("Node should be demoted to offline after the restart delay, got %s", node.Status)
	}
}

func TestRegistry_RestartCancelledByHeartbeat(t *testing.T) {
	r := newTestRegistry(t)
	_, _ = r.Register(registerReq("cam-1"))

	if _, err := r.Restart("cam-1"); err != nil {
		t.Fatalf("Failed to restart: %v", err)
	}

	// The node comes back before the delay expires
	r.Heartbeat("cam-1")

	time.Sleep(150 * time.Millisecond)

	node, _ := r.Get("cam-1")
	if node.Status != models.NodeOnline {
		t.Errorf("Returned node should stay online, got %s", node.Status)
	}
}

func TestRegistry_RestartThenRemove(t *testing.T) {
	r := newTestRegistry(t)
	_, _ = r.Register(registerReq("cam-1"))

	if _, err := r.Restart("cam-1"); err != nil {
		t.Fatalf("Failed to restart: %v", err)
	}
	if err := r.Remove("cam-1"); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}

	// The delayed demotion must not resurrect the node
	time.Sleep(150 * time.Millisecond)
	if len(r.List()) != 0 {
		t.Error("Removed node must not reappear after the restart delay")
	}
}

func TestRegistry_RecordDetection(t *testing.T) {
	r := newTestRegistry(t)
	_, _ = r.Register(registerReq("cam-1"))

	node, ok := r.RecordDetection("cam-1")
	if !ok {
		t.Fatal("Expected detection to be recorded")
	}
	if node.Stats.TotalDetections != 1 || node.Stats.DetectionsToday != 1 {
		t.Errorf("Expected counters 1/1, got %d/%d",
			node.Stats.TotalDetections, node.Stats.DetectionsToday)
	}

	if _, ok := r.RecordDetection("ghost"); ok {
		t.Error("Detection from unknown node must be rejected")
	}

	if got := r.TotalDetections(); got != 1 {
		t.Errorf("Expected fleet total 1, got %d", got)
	}
}

func TestRegistry_ResetDailyCounters(t *testing.T) {
	r := newTestRegistry(t)
	_, _ = r.Register(registerReq("cam-1"))
	_, _ = r.RecordDetection("cam-1")
	_, _ = r.RecordDetection("cam-1")

	r.ResetDailyCounters()

	node, _ := r.Get("cam-1")
	if node.Stats.DetectionsToday != 0 {
		t.Errorf("Expected daily counter reset, got %d", node.Stats.DetectionsToday)
	}
	if node.Stats.TotalDetections != 2 {
		t.Errorf("Total counter must survive the daily reset, got %d", node.Stats.TotalDetections)
	}
}

func TestRegistry_DropSession(t *testing.T) {
	r := newTestRegistry(t)
	r.RegisterLive(registerReq("cam-1"), "session-abc")
	r.RegisterLive(registerReq("cam-2"), "session-other")

	r.DropSession("session-abc")

	node, _ := r.Get("cam-1")
	if node.Status != models.NodeOffline {
		t.Errorf("Node bound to the dropped session should go offline, got %s", node.Status)
	}
	if node.ConnectionRef != "" {
		t.Error("Session reference should be cleared")
	}

	other, _ := r.Get("cam-2")
	if other.Status != models.NodeOnline {
		t.Errorf("Other sessions must be unaffected, got %s", other.Status)
	}
}

func TestRegistry_OnlineCount(t *testing.T) {
	r := newTestRegistry(t)
	_, _ = r.Register(registerReq("cam-1"))
	_, _ = r.Register(registerReq("cam-2"))
	r.Heartbeat("cam-2")

	if got := r.OnlineCount(); got != 1 {
		t.Errorf("Expected 1 online node, got %d", got)
	}
}

func TestRegistry_LoadedNodesStartOffline(t *testing.T) {
	dir := t.TempDir()
	st, err := store.NewFileStore(dir, false)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	logger := logging.NewDevelopment()
	events := bus.New(logger)

	r1, err := New(testConfig(), st, events, logger)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	r1.RegisterLive(registerReq("cam-1"), "session-abc")

	if err := r1.Snapshot(); err != nil {
		t.Fatalf("Failed to snapshot: %v", err)
	}

	r2, err := New(testConfig(), st, events, logger)
	if err != nil {
		t.Fatalf("Failed to reload registry: %v", err)
	}

	node, err := r2.Get("cam-1")
	if err != nil {
		t.Fatalf("Expected persisted node to load: %v", err)
	}
	if node.Status != models.NodeOffline {
		t.Errorf("Loaded node must start offline, got %s", node.Status)
	}
	if node.ConnectionRef != "" {
		t.Error("Loaded node must have its session reference cleared")
	}
}

func TestRegistry_HeartbeatAndDetectionPersist(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir(), false)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	logger := logging.NewDevelopment()
	r, err := New(testConfig(), st, nil, logger)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}

	_, _ = r.Register(registerReq("cam-1"))
	r.Heartbeat("cam-1")
	if _, ok := r.RecordDetection("cam-1"); !ok {
		t.Fatal("Failed to record detection")
	}

	// Persistence is async; poll until the snapshot reflects the counter
	deadline := time.After(2 * time.Second)
	for {
		nodes, err := st.LoadNodes()
		if err == nil {
			if node := nodes["cam-1"]; node != nil && node.Stats.TotalDetections == 1 && !node.LastSeen.IsZero() {
				return
			}
		}
		select {
		case <-deadline:
			t.Fatal("Heartbeat/detection mutations were not persisted in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestRegistry_PublishesStatusChanges(t *testing.T) {
	logger := logging.NewDevelopment()
	events := bus.New(logger)

	r, err := New(testConfig(), nil, events, logger)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}

	sub := &captureSubscriber{id: "dash"}
	events.Join(bus.ChannelDashboard, sub)

	_, _ = r.Register(registerReq("cam-1"))
	_, _ = r.SetStatus("cam-1", models.NodeOnline)

	names := sub.names()
	if len(names) != 2 {
		t.Fatalf("Expected 2 events, got %d: %v", len(names), names)
	}
	if names[0] != bus.EventNodeRegistered || names[1] != bus.EventNodeStatusChanged {
		t.Errorf("Unexpected event sequence: %v", names)
	}
}

func TestRegistry_StatusChangePayload(t *testing.T) {
	logger := logging.NewDevelopment()
	events := bus.New(logger)

	r, err := New(testConfig(), nil, events, logger)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}

	sub := &captureSubscriber{id: "dash"}
	events.Join(bus.ChannelDashboard, sub)

	_, _ = r.Register(registerReq("cam-1"))
	_, _ = r.SetStatus("cam-1", models.NodeOnline)

	evt, ok := sub.lastNamed(bus.EventNodeStatusChanged)
	if !ok {
		t.Fatal("Expected a node_status_changed event")
	}

	payload, ok := evt.Payload.(bus.StatusChangePayload)
	if !ok {
		t.Fatalf("Expected StatusChangePayload, got %T", evt.Payload)
	}
	if payload.NodeID != "cam-1" || payload.Status != models.NodeOnline {
		t.Errorf("Unexpected transition fields: %+v", payload)
	}
	if payload.Node == nil || payload.Node.Status != models.NodeOnline {
		t.Error("Payload should embed the updated node")
	}

	// Dashboard consumers read node_id/status/node off the wire
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		t.Fatalf("Failed to unmarshal payload: %v", err)
	}
	for _, key := range []string{"node_id", "status", "node"} {
		if _, present := keys[key]; !present {
			t.Errorf("Payload missing %q key: %s", key, data)
		}
	}
}

type captureSubscriber struct {
	id string

	mu     sync.Mutex
	events []bus.Event
}

func (s *captureSubscriber) ID() string { return s.id }

func (s *captureSubscriber) Deliver(evt bus.Event) error {
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
	return nil
}

func (s *captureSubscriber) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Name
	}
	return out
}

func (s *captureSubscriber) lastNamed(name string) (bus.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Name == name {
			return s.events[i], true
		}
	}
	return bus.Event{}, false
}
