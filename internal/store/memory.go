package store

import (
	"context"
	"sync"

	"github.com/listenupapp/plantcare/internal/domain"
)

// Memory is an in-process Store. Nothing survives a restart.
type Memory struct {
	mu       sync.RWMutex
	plants   []domain.Plant
	revision uint64
	session  *domain.User
	closed   bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{plants: []domain.Plant{}}
}

// LoadPlants implements Store.
func (m *Memory) LoadPlants(_ context.Context) (*PlantSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return &PlantSnapshot{Plants: ClonePlants(m.plants), Revision: m.revision}, nil
}

// SavePlants implements Store.
func (m *Memory) SavePlants(_ context.Context, plants []domain.Plant, expected uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	if m.revision != expected {
		return 0, ErrRevisionConflict
	}
	next := ClonePlants(plants)
	for i := range next {
		next[i].Normalize()
	}
	m.plants = next
	m.revision++
	return m.revision, nil
}

// LoadSession implements Store.
func (m *Memory) LoadSession(_ context.Context) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.session == nil {
		return nil, nil
	}
	u := *m.session
	return &u, nil
}

// SaveSession implements Store.
func (m *Memory) SaveSession(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if user == nil {
		m.session = nil
		return nil
	}
	u := *user
	m.session = &u
	return nil
}

// ClearSession implements Store.
func (m *Memory) ClearSession(ctx context.Context) error {
	return m.SaveSession(ctx, nil)
}

// Ping implements Pinger.
func (m *Memory) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// Close implements Store.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
