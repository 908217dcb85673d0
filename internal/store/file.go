package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/snappy"

	"github.com/sentrahub/sentra/internal/models"
)

const (
	nodesFile      = "nodes.json"
	alertsFile     = "alerts.json"
	identitiesFile = "identities.json"

	// compressedExt marks snappy-compressed snapshot files
	compressedExt = ".sz"
)

// FileStore persists snapshots as JSON files in a single directory.
// Writes go through a temp file plus rename so a crash mid-write never
// leaves a torn snapshot behind.
type FileStore struct {
	dir      string
	compress bool
}

// NewFileStore creates the data directory if needed
func NewFileStore(dir string, compress bool) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	return &FileStore{dir: dir, compress: compress}, nil
}

func (s *FileStore) path(name string) string {
	p := filepath.Join(s.dir, name)
	if s.compress {
		p += compressedExt
	}
	return p
}

// write marshals v and atomically replaces the snapshot file
func (s *FileStore) write(name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	if s.compress {
		data = snappy.Encode(nil, data)
	}

	target := s.path(name)
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", target, err)
	}

	return nil
}

// read unmarshals the snapshot into v. Absence and corruption both
// report ok=false with a nil error so callers fall back to empty state.
func (s *FileStore) read(name string, v interface{}) (ok bool, err error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", name, err)
	}

	if len(data) == 0 {
		return false, nil
	}

	if s.compress {
		data, err = snappy.Decode(nil, data)
		if err != nil {
			// Corrupt snapshot; start empty rather than fail startup
			return false, nil
		}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, nil
	}

	return true, nil
}

// SaveNodes writes the full node map
func (s *FileStore) SaveNodes(nodes map[string]*models.Node) error {
	return s.write(nodesFile, nodes)
}

// LoadNodes reads the node map; absence yields an empty map
func (s *FileStore) LoadNodes() (map[string]*models.Node, error) {
	nodes := make(map[string]*models.Node)
	if _, err := s.read(nodesFile, &nodes); err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = make(map[string]*models.Node)
	}
	return nodes, nil
}

// SaveAlerts writes the newest alerts, newest first
func (s *FileStore) SaveAlerts(alerts []*models.Alert) error {
	return s.write(alertsFile, alerts)
}

// LoadAlerts reads the alert snapshot, newest first
func (s *FileStore) LoadAlerts() ([]*models.Alert, error) {
	var alerts []*models.Alert
	if _, err := s.read(alertsFile, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// SaveIdentities writes the known identity set
func (s *FileStore) SaveIdentities(identities []*models.Identity) error {
	return s.write(identitiesFile, identities)
}

// LoadIdentities reads the known identity set
func (s *FileStore) LoadIdentities() ([]*models.Identity, error) {
	var identities []*models.Identity
	if _, err := s.read(identitiesFile, &identities); err != nil {
		return nil, err
	}
	return identities, nil
}

// Close is a no-op for the file store
func (s *FileStore) Close() error {
	return nil
}
