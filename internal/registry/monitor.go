package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sentrahub/sentra/internal/config"
	"github.com/sentrahub/sentra/internal/logging"
	"github.com/sentrahub/sentra/internal/models"
)

// Monitor periodically sweeps the registry and demotes online nodes
// that have been silent longer than the heartbeat timeout. Restarting
// nodes are left alone; the restart delay handles them.
type Monitor struct {
	registry *Registry
	cfg      config.RegistryConfig
	logger   *logging.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewMonitor creates a liveness monitor for the registry
func NewMonitor(registry *Registry, cfg config.RegistryConfig, logger *logging.Logger) *Monitor {
	return &Monitor{
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start launches the sweep loop. Returns immediately.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.run(ctx)

	m.logger.Info("Liveness monitor started",
		"interval", m.cfg.MonitorInterval, "timeout", m.cfg.HeartbeatTimeout)
}

// Stop terminates the sweep loop and waits for it to exit
func (m *Monitor) Stop() {
	m.once.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
		m.wg.Wait()
	})
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.MonitorInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.sweepSafely(); err != nil {
				failures++
				m.logger.Warn("Liveness sweep failed",
					"error", err, "consecutive_failures", failures)

				// Back off briefly on a failed cycle; after repeated
				// failures hold off for the long cooldown so a broken
				// store backend is not hammered every interval.
				pause := m.cfg.MonitorFailureBackoff
				if m.cfg.MonitorMaxFailures > 0 && failures >= m.cfg.MonitorMaxFailures {
					pause = m.cfg.MonitorCooldown
					failures = 0
				}
				if pause > 0 {
					select {
					case <-ctx.Done():
						return
					case <-time.After(pause):
					}
				}
				continue
			}
			failures = 0
		}
	}
}

// sweepSafely contains a panicking cycle so a broken store or
// subscriber cannot take the monitor loop down with it
func (m *Monitor) sweepSafely() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("sweep panicked: %v", rec)
		}
	}()
	return m.sweep()
}

// sweep demotes silent nodes and persists the table if anything changed
func (m *Monitor) sweep() error {
	r := m.registry
	now := r.now()
	cutoff := now.Add(-m.cfg.HeartbeatTimeout)

	r.mu.Lock()
	var demoted []*models.Node
	for _, node := range r.nodes {
		if node.Status != models.NodeOnline {
			continue
		}

		// A node with no recorded last-seen gets the benefit of the
		// doubt once: stamp it now and let the next sweep judge it.
		if node.LastSeen.IsZero() {
			node.LastSeen = now
			continue
		}

		if node.LastSeen.Before(cutoff) {
			node.Status = models.NodeOffline
			node.UpdatedAt = now
			demoted = append(demoted, node.Clone())
		}
	}
	r.mu.Unlock()

	for _, node := range demoted {
		m.logger.Info("Node timed out",
			"node_id", node.ID, "last_seen", node.LastSeen)
		r.publishStatus(node)
	}

	if len(demoted) == 0 {
		return nil
	}
	return r.Snapshot()
}
