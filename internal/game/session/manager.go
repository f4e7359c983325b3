package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Manager tracks all live desks. At most one desk may be open per owner so
// that two connections never overwrite each other's persisted macros.
// All methods are safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	desks   map[uuid.UUID]*Desk
	byOwner map[string]uuid.UUID
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		desks:   make(map[uuid.UUID]*Desk),
		byOwner: make(map[string]uuid.UUID),
	}
}

// Add registers desk.
//
// Precondition: desk must be non-nil.
// Postcondition: Returns an error if a desk for the same owner is already open.
func (m *Manager) Add(desk *Desk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byOwner[desk.Owner()]; exists {
		return fmt.Errorf("owner %q already connected", desk.Owner())
	}
	m.desks[desk.ID()] = desk
	m.byOwner[desk.Owner()] = desk.ID()
	return nil
}

// Remove unregisters the desk with the given ID.
//
// Postcondition: Returns an error if no such desk is registered.
func (m *Manager) Remove(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	desk, exists := m.desks[id]
	if !exists {
		return fmt.Errorf("session %s not found", id)
	}
	delete(m.desks, id)
	delete(m.byOwner, desk.Owner())
	return nil
}

// Get returns the desk with the given ID.
//
// Postcondition: Returns (desk, true) if found, or (nil, false) otherwise.
func (m *Manager) Get(id uuid.UUID) (*Desk, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	desk, ok := m.desks[id]
	return desk, ok
}

// ByOwner returns the open desk for owner.
//
// Postcondition: Returns (desk, true) if found, or (nil, false) otherwise.
func (m *Manager) ByOwner(owner string) (*Desk, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byOwner[owner]
	if !ok {
		return nil, false
	}
	return m.desks[id], true
}

// Count returns the number of open desks.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.desks)
}
