package handlers

import (
	"bufio"
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/sentrahub/sentra/internal/registry"
	"github.com/sentrahub/sentra/internal/stream"
)

// NodeStream probes a node's feed and reports reachability. The probe
// verdict also updates the node's registry status.
func (h *Handler) NodeStream(c *fiber.Ctx) error {
	nodeID := c.Params("id")

	probe, err := h.proxy.Probe(nodeID)
	if err != nil {
		return h.streamError(c, nodeID, err)
	}
	return c.JSON(probe)
}

// ProxyStream relays the node's feed to the client. The response
// streams until the client disconnects or the upstream ends.
func (h *Handler) ProxyStream(c *fiber.Ctx) error {
	nodeID := c.Params("id")

	feed, err := h.proxy.Open(c.Context(), nodeID)
	if err != nil {
		return h.streamError(c, nodeID, err)
	}

	contentType := feed.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Set(fiber.HeaderContentType, contentType)

	proxy := h.proxy
	logger := h.logger
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// Client disconnects surface as write errors inside Relay
		if err := proxy.Relay(context.Background(), feed, flushWriter{w}); err != nil {
			logger.Warn("Stream relay ended with error", "node_id", nodeID, "error", err)
		}
	}))

	return nil
}

// flushWriter flushes after every chunk so frames reach the client
// without buffering delay
type flushWriter struct {
	w *bufio.Writer
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	return n, f.w.Flush()
}

// streamError maps probe/relay failures to response codes
func (h *Handler) streamError(c *fiber.Ctx, nodeID string, err error) error {
	if errors.Is(err, registry.ErrNodeNotFound) {
		return errorJSON(c, fiber.StatusNotFound, "NODE_NOT_FOUND",
			"node "+nodeID+" not found")
	}
	if errors.Is(err, stream.ErrNoAddress) {
		return errorJSON(c, fiber.StatusNotFound, "NO_STREAM_ADDRESS",
			"node "+nodeID+" has no stream address")
	}

	var perr *stream.ProxyError
	if errors.As(err, &perr) {
		switch perr.Kind {
		case stream.KindTimeout:
			return errorJSON(c, fiber.StatusGatewayTimeout, "UPSTREAM_TIMEOUT",
				"node feed timed out")
		case stream.KindRefused, stream.KindBadStatus:
			return errorJSON(c, fiber.StatusBadGateway, "UPSTREAM_ERROR",
				perr.Error())
		default:
			return errorJSON(c, fiber.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE",
				"node feed unavailable")
		}
	}

	h.logger.Error("Stream operation failed", "error", err, "node_id", nodeID)
	return errorJSON(c, fiber.StatusInternalServerError, "INTERNAL_ERROR",
		"Stream operation failed")
}
