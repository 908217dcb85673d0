package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sentrahub/sentra/internal/alerts"
	"github.com/sentrahub/sentra/internal/bus"
	"github.com/sentrahub/sentra/internal/config"
	"github.com/sentrahub/sentra/internal/ingest"
	"github.com/sentrahub/sentra/internal/logging"
	"github.com/sentrahub/sentra/internal/models"
	"github.com/sentrahub/sentra/internal/recognition"
	"github.com/sentrahub/sentra/internal/registry"
	"github.com/sentrahub/sentra/internal/stream"
)

// stubEngine is a deterministic recognition engine for handler tests
type stubEngine struct {
	boxes     []models.BoundingBox
	embedding []float64
	matchName string
}

func (e *stubEngine) Detect(img image.Image) []models.BoundingBox {
	return e.boxes
}

func (e *stubEngine) Embed(img image.Image, box models.BoundingBox) []float64 {
	return e.embedding
}

func (e *stubEngine) Match(embedding []float64, known []*models.Identity, tolerance float64) (string, bool) {
	if e.matchName == "" {
		return "", false
	}
	return e.matchName, true
}

// testEnv bundles everything a handler test needs
type testEnv struct {
	app        *fiber.App
	handler    *Handler
	registry   *registry.Registry
	alerts     *alerts.Log
	identities *recognition.IdentityStore
	engine     *stubEngine
	events     *bus.Bus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logging.NewDevelopment()
	events := bus.New(logger)

	reg, err := registry.New(config.RegistryConfig{
		HeartbeatTimeout: 30 * time.Second,
		MonitorInterval:  10 * time.Second,
		RestartDelay:     50 * time.Millisecond,
	}, nil, events, logger)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}

	alertLog, err := alerts.New(config.AlertsConfig{MemoryLimit: 100, SnapshotLimit: 10}, nil, logger)
	if err != nil {
		t.Fatalf("Failed to create alert log: %v", err)
	}

	identities, err := recognition.NewIdentityStore(nil, events, logger)
	if err != nil {
		t.Fatalf("Failed to create identity store: %v", err)
	}

	engine := &stubEngine{}
	proxy := stream.NewProxy(config.StreamConfig{
		ProbeTimeout: 500 * time.Millisecond,
		RelayTimeout: 500 * time.Millisecond,
		ChunkSize:    8192,
	}, reg, logger)
	pipeline := ingest.NewPipeline(reg, alertLog, identities, events, logger)

	h := New(logger, reg, alertLog, identities, engine, proxy, pipeline, events,
		config.RecognitionConfig{Tolerance: 0.6})

	app := fiber.New()
	app.Get("/health", h.Health)
	app.Post("/v1/nodes", h.RegisterNode)
	app.Get("/v1/nodes", h.ListNodes)
	app.Get("/v1/nodes/:id", h.GetNode)
	app.Put("/v1/nodes/:id", h.UpdateNode)
	app.Delete("/v1/nodes/:id", h.DeleteNode)
	app.Post("/v1/nodes/:id/heartbeat", h.Heartbeat)
	app.Post("/v1/nodes/:id/restart", h.RestartNode)
	app.Post("/v1/nodes/:id/toggle_status", h.ToggleNodeStatus)
	app.Get("/v1/nodes/:id/stream", h.NodeStream)
	app.Get("/v1/alerts", h.ListAlerts)
	app.Get("/v1/stats", h.Stats)
	app.Post("/v1/faces", h.RegisterFace)
	app.Get("/v1/faces", h.ListFaces)
	app.Delete("/v1/faces/:name", h.DeleteFace)
	app.Post("/v1/faces/recognize", h.RecognizeFaces)
	app.Post("/v1/faces/detect", h.DetectFaces)

	return &testEnv{
		app:        app,
		handler:    h,
		registry:   reg,
		alerts:     alertLog,
		identities: identities,
		engine:     engine,
		events:     events,
	}
}

// doJSON performs a request with an optional JSON body and decodes the
// response into out when out is non-nil
func (e *testEnv) doJSON(t *testing.T, method, path string, body, out interface{}) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.app.Test(req)
	if err != nil {
		t.Fatalf("Failed to perform request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("Failed to read response body: %v", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				t.Fatalf("Failed to unmarshal response: %v (body: %s)", err, data)
			}
		}
	}

	return resp.StatusCode
}
