// Package stream proxies sensor node video feeds through the hub so
// dashboards never talk to nodes directly. The hub probes a node's
// address to judge reachability and relays the raw byte stream on
// demand.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/sentrahub/sentra/internal/config"
	"github.com/sentrahub/sentra/internal/logging"
	"github.com/sentrahub/sentra/internal/models"
	"github.com/sentrahub/sentra/internal/registry"
)

// ErrNoAddress is returned for nodes registered without a stream address
var ErrNoAddress = errors.New("node has no stream address")

// ErrorKind classifies an upstream failure so the handler can map it to
// a distinct status code
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindRefused     ErrorKind = "refused"
	KindBadStatus   ErrorKind = "bad_status"
	KindUnavailable ErrorKind = "unavailable"
)

// ProxyError is an upstream failure with its classification
type ProxyError struct {
	Kind ErrorKind
	Err  error
}

func (e *ProxyError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Kind, e.Err)
}

func (e *ProxyError) Unwrap() error {
	return e.Err
}

// classify maps a transport error to its ProxyError kind
func classify(err error) *ProxyError {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return &ProxyError{Kind: KindTimeout, Err: err}
	case errors.Is(err, os.ErrDeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return &ProxyError{Kind: KindTimeout, Err: err}
	case errors.Is(err, os.ErrInvalid):
		return &ProxyError{Kind: KindUnavailable, Err: err}
	default:
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return &ProxyError{Kind: KindRefused, Err: err}
		}
		return &ProxyError{Kind: KindUnavailable, Err: err}
	}
}

// Proxy probes and relays node video feeds
type Proxy struct {
	cfg      config.StreamConfig
	logger   *logging.Logger
	registry *registry.Registry

	probeClient *http.Client
	relayClient *http.Client
}

// NewProxy creates a stream proxy backed by the registry
func NewProxy(cfg config.StreamConfig, reg *registry.Registry, logger *logging.Logger) *Proxy {
	return &Proxy{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		probeClient: &http.Client{
			Timeout: cfg.ProbeTimeout,
		},
		relayClient: &http.Client{
			// No overall timeout: relays run as long as the client
			// watches. Connect and header delays are bounded instead.
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: cfg.RelayTimeout,
				}).DialContext,
				ResponseHeaderTimeout: cfg.RelayTimeout,
			},
		},
	}
}

// StreamURL resolves the effective feed URL for an address. Plain
// host:8080 endpoints without a path serve their feed at /video, so the
// path is appended for them.
func StreamURL(address string) string {
	u, err := url.Parse(address)
	if err != nil {
		return address
	}
	if (u.Path == "" || u.Path == "/") && strings.HasSuffix(u.Host, ":8080") {
		u.Path = "/video"
		return u.String()
	}
	return address
}

// Probe checks whether the node's address answers HTTP and records the
// verdict in the registry. Returns the probe result for the caller.
func (p *Proxy) Probe(nodeID string) (*models.ProbeResponse, error) {
	node, err := p.registry.Get(nodeID)
	if err != nil {
		return nil, err
	}
	if node.Address == "" {
		return nil, ErrNoAddress
	}

	status := models.NodeOffline
	resp, err := p.probeClient.Get(node.Address)
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode < 500 {
			status = models.NodeOnline
		}
	}

	if _, err := p.registry.SetStatus(nodeID, status); err != nil {
		return nil, err
	}

	return &models.ProbeResponse{
		Status:    status,
		NodeID:    nodeID,
		StreamURL: StreamURL(node.Address),
		ProxyURL:  "/v1/nodes/" + nodeID + "/proxy_stream",
	}, nil
}

// Feed is an open upstream stream ready to be copied to a client
type Feed struct {
	NodeID      string
	URL         string
	ContentType string

	body io.ReadCloser
}

// Close releases the upstream connection
func (f *Feed) Close() error {
	return f.body.Close()
}

// Open connects to the node's feed and returns it once upstream headers
// have arrived, so the caller can propagate the content type before any
// body bytes flow.
func (p *Proxy) Open(ctx context.Context, nodeID string) (*Feed, error) {
	node, err := p.registry.Get(nodeID)
	if err != nil {
		return nil, err
	}
	if node.Address == "" {
		return nil, ErrNoAddress
	}

	feedURL := StreamURL(node.Address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, &ProxyError{Kind: KindUnavailable, Err: err}
	}

	resp, err := p.relayClient.Do(req)
	if err != nil {
		perr := classify(err)
		p.logger.Warn("Stream relay connect failed",
			"node_id", nodeID, "url", feedURL, "kind", string(perr.Kind), "error", err)
		return nil, perr
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &ProxyError{
			Kind: KindBadStatus,
			Err:  fmt.Errorf("upstream returned %d", resp.StatusCode),
		}
	}

	p.logger.Info("Stream relay started", "node_id", nodeID, "url", feedURL)

	return &Feed{
		NodeID:      nodeID,
		URL:         feedURL,
		ContentType: resp.Header.Get("Content-Type"),
		body:        resp.Body,
	}, nil
}

// Relay copies the feed into sink in fixed-size chunks until the
// context is cancelled, the client goes away, the upstream ends, or the
// chunk cap is reached. Closes the feed.
func (p *Proxy) Relay(ctx context.Context, feed *Feed, sink io.Writer) error {
	defer feed.Close()

	buf := make([]byte, p.cfg.ChunkSize)
	var chunks int64
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, readErr := feed.body.Read(buf)
		if n > 0 {
			if _, werr := sink.Write(buf[:n]); werr != nil {
				// Client went away; not an upstream fault
				return nil
			}
			chunks++
			if p.cfg.MaxChunks > 0 && chunks >= p.cfg.MaxChunks {
				p.logger.Warn("Stream relay chunk cap reached", "node_id", feed.NodeID, "chunks", chunks)
				return nil
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return classify(readErr)
		}
	}
}
