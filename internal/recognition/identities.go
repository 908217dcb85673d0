package recognition

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sentrahub/sentra/internal/bus"
	"github.com/sentrahub/sentra/internal/logging"
	"github.com/sentrahub/sentra/internal/models"
	"github.com/sentrahub/sentra/internal/store"
)

var (
	// ErrIdentityExists is returned when enrolling a name already known,
	// compared case-insensitively
	ErrIdentityExists = errors.New("identity already registered")

	// ErrIdentityNotFound is returned when removing an unknown name
	ErrIdentityNotFound = errors.New("identity not found")
)

// IdentityStore holds the known identities. Enrollment and removal
// notify connected nodes so they can refresh their local face caches.
type IdentityStore struct {
	logger *logging.Logger
	events *bus.Bus
	store  store.Store

	mu         sync.RWMutex
	identities []*models.Identity

	now func() time.Time
}

// NewIdentityStore creates the store and loads any persisted identities
func NewIdentityStore(st store.Store, events *bus.Bus, logger *logging.Logger) (*IdentityStore, error) {
	s := &IdentityStore{
		logger: logger,
		events: events,
		store:  st,
		now:    time.Now,
	}

	if st != nil {
		identities, err := st.LoadIdentities()
		if err != nil {
			return nil, err
		}
		s.identities = identities
		if len(identities) > 0 {
			logger.Info("Loaded persisted identities", "count", len(identities))
		}
	}

	return s, nil
}

// Add enrolls a new identity. Names are unique case-insensitively.
func (s *IdentityStore) Add(name string, embedding []float64) (*models.Identity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("identity name is required")
	}

	s.mu.Lock()
	for _, id := range s.identities {
		if strings.EqualFold(id.Name, name) {
			s.mu.Unlock()
			return nil, ErrIdentityExists
		}
	}

	identity := &models.Identity{
		Name:      name,
		Embedding: embedding,
		CreatedAt: s.now(),
	}
	s.identities = append(s.identities, identity)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snapshot)
	s.notify("added", name)

	s.logger.Info("Identity enrolled", "name", name)
	return identity, nil
}

// Remove deletes an identity by name, case-insensitively
func (s *IdentityStore) Remove(name string) error {
	s.mu.Lock()
	idx := -1
	for i, id := range s.identities {
		if strings.EqualFold(id.Name, name) {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrIdentityNotFound
	}

	s.identities = append(s.identities[:idx], s.identities[idx+1:]...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snapshot)
	s.notify("removed", name)

	s.logger.Info("Identity removed", "name", name)
	return nil
}

// Names returns the enrolled names, sorted
func (s *IdentityStore) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.identities))
	for _, id := range s.identities {
		names = append(names, id.Name)
	}
	s.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Count returns the number of enrolled identities
func (s *IdentityStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.identities)
}

// Identities returns a copy of the known identity set for matching
func (s *IdentityStore) Identities() []*models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// snapshotLocked copies the identity slice. Caller holds a lock.
func (s *IdentityStore) snapshotLocked() []*models.Identity {
	out := make([]*models.Identity, len(s.identities))
	copy(out, s.identities)
	return out
}

// persist writes the identity snapshot without blocking the caller
func (s *IdentityStore) persist(snapshot []*models.Identity) {
	if s.store == nil {
		return
	}

	go func() {
		if err := s.store.SaveIdentities(snapshot); err != nil {
			s.logger.Warn("Failed to persist identity snapshot", "error", err)
		}
	}()
}

// notify tells nodes to refresh their face caches and dashboards to
// refresh derived stats
func (s *IdentityStore) notify(action, name string) {
	if s.events == nil {
		return
	}
	s.events.Publish(bus.ChannelNodes, bus.EventFaceDatabaseUpdated, bus.FaceDatabasePayload{
		Action: action,
		Name:   name,
		Total:  s.Count(),
	})
	s.events.Publish(bus.ChannelDashboard, bus.EventSystemUpdate, bus.SystemUpdatePayload{
		Type: "face_database_" + action,
		Data: map[string]string{"name": name},
	})
}
