package handlers

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrahub/sentra/internal/models"
)

func TestHandler_NodeStream_UnknownNode(t *testing.T) {
	env := newTestEnv(t)

	var resp models.ErrorResponse
	status := env.doJSON(t, "GET", "/v1/nodes/ghost/stream", nil, &resp)

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NODE_NOT_FOUND", resp.Error.Code)
}

func TestHandler_NodeStream_NoAddress(t *testing.T) {
	env := newTestEnv(t)
	env.doJSON(t, "POST", "/v1/nodes", models.RegisterNodeRequest{ID: "cam-1"}, nil)

	var resp models.ErrorResponse
	status := env.doJSON(t, "GET", "/v1/nodes/cam-1/stream", nil, &resp)

	require.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NO_STREAM_ADDRESS", resp.Error.Code)
}
