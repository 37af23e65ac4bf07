package store

import (
	"context"
	"sort"
	"sync"

	"diagramai/pkg/domain"
)

// MemoryStore keeps users and diagrams in-process. Used by tests and local
// development without Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	email    map[string]string // email -> user ID
	diagrams map[string]domain.Diagram
	order    []string // insertion order of diagram IDs
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		email:    make(map[string]string),
		diagrams: make(map[string]domain.Diagram),
	}
}

// SaveUser stores or replaces a user.
func (m *MemoryStore) SaveUser(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(_ context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(_ context.Context, id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// SaveDiagram stores a diagram record and tracks insertion order.
func (m *MemoryStore) SaveDiagram(_ context.Context, d domain.Diagram) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.diagrams[d.ID]; !exists {
		m.order = append(m.order, d.ID)
	}
	m.diagrams[d.ID] = d
	return nil
}

// ListDiagramsByOwner returns the owner's diagrams newest-first.
func (m *MemoryStore) ListDiagramsByOwner(_ context.Context, ownerID string, limit int) ([]domain.Diagram, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Diagram, 0, len(m.order))
	for _, id := range m.order {
		d, ok := m.diagrams[id]
		if !ok || d.OwnerID != ownerID {
			continue
		}
		res = append(res, d)
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// GetDiagram returns a diagram by ID.
func (m *MemoryStore) GetDiagram(_ context.Context, id string) (domain.Diagram, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.diagrams[id]
	return d, ok, nil
}

// DeleteDiagram removes an owner's diagram.
func (m *MemoryStore) DeleteDiagram(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.diagrams[id]
	if !ok || d.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(m.diagrams, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}
