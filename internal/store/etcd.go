package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/sentrahub/sentra/internal/models"
)

const (
	nodesKey      = "/sentra/nodes"
	alertsKey     = "/sentra/alerts"
	identitiesKey = "/sentra/identities"
)

// EtcdStore persists snapshots as JSON values in etcd. Useful when the
// hub host has no durable disk, or when an operator wants snapshots
// visible to external tooling.
type EtcdStore struct {
	client  *clientv3.Client
	timeout time.Duration
}

// NewEtcdStore connects to etcd
func NewEtcdStore(endpoints []string, dialTimeout, opTimeout time.Duration) (*EtcdStore, error) {
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &EtcdStore{client: client, timeout: opTimeout}, nil
}

// NewEtcdStoreWithClient wraps an existing client (used in tests)
func NewEtcdStoreWithClient(client *clientv3.Client, opTimeout time.Duration) *EtcdStore {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &EtcdStore{client: client, timeout: opTimeout}
}

func (s *EtcdStore) put(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.client.Put(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to store %s in etcd: %w", key, err)
	}

	return nil
}

// get unmarshals the value at key into v. A missing key or an
// unparseable value reports ok=false so callers start empty.
func (s *EtcdStore) get(key string, v interface{}) (ok bool, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	resp, err := s.client.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to get %s from etcd: %w", key, err)
	}

	if len(resp.Kvs) == 0 {
		return false, nil
	}

	if err := json.Unmarshal(resp.Kvs[0].Value, v); err != nil {
		return false, nil
	}

	return true, nil
}

// SaveNodes writes the full node map
func (s *EtcdStore) SaveNodes(nodes map[string]*models.Node) error {
	return s.put(nodesKey, nodes)
}

// LoadNodes reads the node map; absence yields an empty map
func (s *EtcdStore) LoadNodes() (map[string]*models.Node, error) {
	nodes := make(map[string]*models.Node)
	if _, err := s.get(nodesKey, &nodes); err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = make(map[string]*models.Node)
	}
	return nodes, nil
}

// SaveAlerts writes the newest alerts, newest first
func (s *EtcdStore) SaveAlerts(alerts []*models.Alert) error {
	return s.put(alertsKey, alerts)
}

// LoadAlerts reads the alert snapshot, newest first
func (s *EtcdStore) LoadAlerts() ([]*models.Alert, error) {
	var alerts []*models.Alert
	if _, err := s.get(alertsKey, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// SaveIdentities writes the known identity set
func (s *EtcdStore) SaveIdentities(identities []*models.Identity) error {
	return s.put(identitiesKey, identities)
}

// LoadIdentities reads the known identity set
func (s *EtcdStore) LoadIdentities() ([]*models.Identity, error) {
	var identities []*models.Identity
	if _, err := s.get(identitiesKey, &identities); err != nil {
		return nil, err
	}
	return identities, nil
}

// Close closes the etcd client
func (s *EtcdStore) Close() error {
	return s.client.Close()
}
