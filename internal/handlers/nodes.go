package handlers

import (
	"errors"
	"regexp"

	"github.com/gofiber/fiber/v2"

	"github.com/sentrahub/sentra/internal/models"
	"github.com/sentrahub/sentra/internal/registry"
)

var nodeIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// RegisterNode registers a node through the management API.
// The node starts offline until it heartbeats or a probe succeeds.
func (h *Handler) RegisterNode(c *fiber.Ctx) error {
	var req models.RegisterNodeRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_REQUEST",
			"Invalid request body: "+err.Error())
	}

	if !nodeIDRegex.MatchString(req.ID) {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_NODE_ID",
			"Node id must contain only alphanumeric characters, underscores, and hyphens")
	}
	if len(req.ID) > 64 {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_NODE_ID",
			"Node id must not exceed 64 characters")
	}

	node, err := h.registry.Register(&req)
	if err != nil {
		if errors.Is(err, registry.ErrNodeExists) {
			return errorJSON(c, fiber.StatusConflict, "NODE_EXISTS",
				"node "+req.ID+" is already registered")
		}
		h.logger.Error("Failed to register node", "error", err, "node_id", req.ID)
		return errorJSON(c, fiber.StatusInternalServerError, "INTERNAL_ERROR",
			"Failed to register node")
	}

	return c.Status(fiber.StatusCreated).JSON(models.NodeResponse{Node: node})
}

// ListNodes lists the fleet with online/offline counts
func (h *Handler) ListNodes(c *fiber.Ctx) error {
	nodes := h.registry.List()

	online := 0
	for _, node := range nodes {
		if node.Status == models.NodeOnline {
			online++
		}
	}

	return c.JSON(models.NodeListResponse{
		Nodes:   nodes,
		Total:   len(nodes),
		Online:  online,
		Offline: len(nodes) - online,
	})
}

// GetNode returns a single node
func (h *Handler) GetNode(c *fiber.Ctx) error {
	node, err := h.registry.Get(c.Params("id"))
	if err != nil {
		return h.nodeError(c, err)
	}
	return c.JSON(models.NodeResponse{Node: node})
}

// UpdateNode applies a partial update to a node
func (h *Handler) UpdateNode(c *fiber.Ctx) error {
	var req models.UpdateNodeRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_REQUEST",
			"Invalid request body: "+err.Error())
	}

	node, err := h.registry.Update(c.Params("id"), &req)
	if err != nil {
		return h.nodeError(c, err)
	}
	return c.JSON(models.NodeResponse{Node: node})
}

// DeleteNode removes a node from the fleet
func (h *Handler) DeleteNode(c *fiber.Ctx) error {
	if err := h.registry.Remove(c.Params("id")); err != nil {
		return h.nodeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RestartNode issues a restart: the node goes to restarting and is
// demoted to offline if it does not come back within the delay
func (h *Handler) RestartNode(c *fiber.Ctx) error {
	node, err := h.registry.Restart(c.Params("id"))
	if err != nil {
		return h.nodeError(c, err)
	}
	return c.JSON(models.NodeResponse{Node: node})
}

// ToggleNodeStatus flips a node between online and offline
func (h *Handler) ToggleNodeStatus(c *fiber.Ctx) error {
	node, err := h.registry.Toggle(c.Params("id"))
	if err != nil {
		return h.nodeError(c, err)
	}
	return c.JSON(models.NodeResponse{Node: node})
}

// Heartbeat refreshes a node's liveness over HTTP. Unknown nodes get
// 204 as well; heartbeats are fire-and-forget for the sender.
func (h *Handler) Heartbeat(c *fiber.Ctx) error {
	h.registry.Heartbeat(c.Params("id"))
	return c.SendStatus(fiber.StatusNoContent)
}

// nodeError maps registry errors to response codes
func (h *Handler) nodeError(c *fiber.Ctx, err error) error {
	if errors.Is(err, registry.ErrNodeNotFound) {
		return errorJSON(c, fiber.StatusNotFound, "NODE_NOT_FOUND",
			"node "+c.Params("id")+" not found")
	}

	h.logger.Error("Node operation failed", "error", err, "node_id", c.Params("id"))
	return errorJSON(c, fiber.StatusInternalServerError, "INTERNAL_ERROR",
		"Node operation failed")
}
