// Package alerts keeps the bounded, newest-first log of detection
// events. The log lives in memory; only the newest slice is snapshotted
// to the store, so old alerts age out of durability first.
package alerts

import (
	"sync"
	"time"

	"github.com/sentrahub/sentra/internal/config"
	"github.com/sentrahub/sentra/internal/logging"
	"github.com/sentrahub/sentra/internal/models"
	"github.com/sentrahub/sentra/internal/store"
)

// Log is the in-memory alert history, newest first. Safe for
// concurrent use.
type Log struct {
	cfg    config.AlertsConfig
	logger *logging.Logger
	store  store.Store

	mu      sync.RWMutex
	entries []*models.Alert
	nextID  int64

	// now is replaceable in tests
	now func() time.Time
}

// New creates an alert log and loads any persisted snapshot. IDs
// continue from the highest persisted ID so references stay unique
// across hub restarts.
func New(cfg config.AlertsConfig, st store.Store, logger *logging.Logger) (*Log, error) {
	l := &Log{
		cfg:    cfg,
		logger: logger,
		store:  st,
		nextID: 1,
		now:    time.Now,
	}

	if st != nil {
		entries, err := st.LoadAlerts()
		if err != nil {
			return nil, err
		}
		if len(entries) > cfg.MemoryLimit {
			entries = entries[:cfg.MemoryLimit]
		}
		l.entries = entries
		for _, a := range entries {
			if a.ID >= l.nextID {
				l.nextID = a.ID + 1
			}
		}
		if len(entries) > 0 {
			logger.Info("Loaded persisted alerts", "count", len(entries))
		}
	}

	return l, nil
}

// Append records a detection. Severity is derived from the faces: a
// single known face makes the alert informational, an all-unknown set
// is a warning. Returns the stored alert with its assigned ID.
func (l *Log) Append(nodeID, location, kind string, faces []models.Face, ts time.Time) *models.Alert {
	if ts.IsZero() {
		ts = l.now()
	}
	if kind == "" {
		kind = "face_detection"
	}

	severity := models.SeverityWarning
	for _, f := range faces {
		if f.Known() {
			severity = models.SeverityInfo
			break
		}
	}

	l.mu.Lock()
	alert := &models.Alert{
		ID:            l.nextID,
		Timestamp:     ts,
		NodeID:        nodeID,
		Location:      location,
		DetectedFaces: faces,
		Kind:          kind,
		Severity:      severity,
	}
	l.nextID++

	l.entries = append([]*models.Alert{alert}, l.entries...)
	if len(l.entries) > l.cfg.MemoryLimit {
		l.entries = l.entries[:l.cfg.MemoryLimit]
	}

	snapshot := l.snapshotLocked()
	l.mu.Unlock()

	l.persist(snapshot)

	return alert
}

// List returns up to limit alerts, newest first. A non-positive limit
// returns everything.
func (l *Log) List(limit int) []*models.Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.entries)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]*models.Alert, n)
	copy(out, l.entries[:n])
	return out
}

// Count returns the number of alerts currently held in memory
func (l *Log) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// snapshotLocked copies the newest persisted slice. Caller holds the lock.
func (l *Log) snapshotLocked() []*models.Alert {
	n := len(l.entries)
	if n > l.cfg.SnapshotLimit {
		n = l.cfg.SnapshotLimit
	}
	snapshot := make([]*models.Alert, n)
	copy(snapshot, l.entries[:n])
	return snapshot
}

// persist writes the snapshot without blocking the appender
func (l *Log) persist(snapshot []*models.Alert) {
	if l.store == nil {
		return
	}

	go func() {
		if err := l.store.SaveAlerts(snapshot); err != nil {
			l.logger.Warn("Failed to persist alert snapshot", "error", err)
		}
	}()
}
