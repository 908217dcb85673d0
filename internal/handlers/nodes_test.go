package handlers

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrahub/sentra/internal/models"
)

func TestHandler_RegisterNode(t *testing.T) {
	env := newTestEnv(t)

	var resp models.NodeResponse
	status := env.doJSON(t, "POST", "/v1/nodes", models.RegisterNodeRequest{
		ID:       "cam-1",
		Location: "entrance",
		Kind:     "camera",
		Address:  "http://192.168.1.10:8080",
	}, &resp)

	require.Equal(t, fiber.StatusCreated, status)
	require.NotNil(t, resp.Node)
	assert.Equal(t, "cam-1", resp.Node.ID)
	assert.Equal(t, models.NodeOffline, resp.Node.Status)
}

func TestHandler_RegisterNode_InvalidID(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		id   string
	}{
		{"empty", ""},
		{"spaces", "cam 1"},
		{"slash", "cam/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp models.ErrorResponse
			status := env.doJSON(t, "POST", "/v1/nodes",
				models.RegisterNodeRequest{ID: tt.id}, &resp)
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, "INVALID_NODE_ID", resp.Error.Code)
		})
	}
}

func TestHandler_RegisterNode_Duplicate(t *testing.T) {
	env := newTestEnv(t)

	req := models.RegisterNodeRequest{ID: "cam-1"}
	require.Equal(t, fiber.StatusCreated, env.doJSON(t, "POST", "/v1/nodes", req, nil))

	var resp models.ErrorResponse
	status := env.doJSON(t, "POST", "/v1/nodes", req, &resp)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "NODE_EXISTS", resp.Error.Code)
}

func TestHandler_ListNodes(t *testing.T) {
	env := newTestEnv(t)
	env.doJSON(t, "POST", "/v1/nodes", models.RegisterNodeRequest{ID: "cam-1"}, nil)
	env.doJSON(t, "POST", "/v1/nodes", models.RegisterNodeRequest{ID: "cam-2"}, nil)
	env.registry.Heartbeat("cam-2")

	var resp models.NodeListResponse
	status := env.doJSON(t, "GET", "/v1/nodes", nil, &resp)

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.Online)
	assert.Equal(t, 1, resp.Offline)
	assert.Len(t, resp.Nodes, 2)
}

func TestHandler_GetNode(t *testing.T) {
	env := newTestEnv(t)
	env.doJSON(t, "POST", "/v1/nodes", models.RegisterNodeRequest{ID: "cam-1", Location: "garage"}, nil)

	var resp models.NodeResponse
	status := env.doJSON(t, "GET", "/v1/nodes/cam-1", nil, &resp)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "garage", resp.Node.Location)

	var errResp models.ErrorResponse
	status = env.doJSON(t, "GET", "/v1/nodes/ghost", nil, &errResp)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NODE_NOT_FOUND", errResp.Error.Code)
}

func TestHandler_UpdateNode(t *testing.T) {
	env := newTestEnv(t)
	env.doJSON(t, "POST", "/v1/nodes", models.RegisterNodeRequest{ID: "cam-1", Location: "entrance"}, nil)

	loc := "roof"
	var resp models.NodeResponse
	status := env.doJSON(t, "PUT", "/v1/nodes/cam-1", models.UpdateNodeRequest{Location: &loc}, &resp)

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "roof", resp.Node.Location)
}

func TestHandler_DeleteNode(t *testing.T) {
	env := newTestEnv(t)
	env.doJSON(t, "POST", "/v1/nodes", models.RegisterNodeRequest{ID: "cam-1"}, nil)

	status := env.doJSON(t, "DELETE", "/v1/nodes/cam-1", nil, nil)
	require.Equal(t, fiber.StatusNoContent, status)

	status = env.doJSON(t, "DELETE", "/v1/nodes/cam-1", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestHandler_RestartNode(t *testing.T) {
	env := newTestEnv(t)
	env.doJSON(t, "POST", "/v1/nodes", models.RegisterNodeRequest{ID: "cam-1"}, nil)

	var resp models.NodeResponse
	status := env.doJSON(t, "POST", "/v1/nodes/cam-1/restart", nil, &resp)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.NodeRestarting, resp.Node.Status)

	// After the delay the node is demoted to offline
	assert.Eventually(t, func() bool {
		node, err := env.registry.Get("cam-1")
		return err == nil && node.Status == models.NodeOffline
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_ToggleNodeStatus(t *testing.T) {
	env := newTestEnv(t)
	env.doJSON(t, "POST", "/v1/nodes", models.RegisterNodeRequest{ID: "cam-1"}, nil)

	var resp models.NodeResponse
	status := env.doJSON(t, "POST", "/v1/nodes/cam-1/toggle_status", nil, &resp)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.NodeOnline, resp.Node.Status)

	status = env.doJSON(t, "POST", "/v1/nodes/cam-1/toggle_status", nil, &resp)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.NodeOffline, resp.Node.Status)
}

func TestHandler_Heartbeat(t *testing.T) {
	env := newTestEnv(t)
	env.doJSON(t, "POST", "/v1/nodes", models.RegisterNodeRequest{ID: "cam-1"}, nil)

	status := env.doJSON(t, "POST", "/v1/nodes/cam-1/heartbeat", nil, nil)
	require.Equal(t, fiber.StatusNoContent, status)

	node, err := env.registry.Get("cam-1")
	require.NoError(t, err)
	assert.Equal(t, models.NodeOnline, node.Status)

	// Unknown nodes are silently accepted
	status = env.doJSON(t, "POST", "/v1/nodes/ghost/heartbeat", nil, nil)
	assert.Equal(t, fiber.StatusNoContent, status)
	assert.Len(t, env.registry.List(), 1)
}
