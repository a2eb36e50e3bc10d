// Package mock provides an in-memory descriptor store for testing.
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/kozaktomas/face-auth/internal/database"
	"github.com/kozaktomas/face-auth/internal/facematch"
	"github.com/rs/zerolog"
)

// Store is an in-memory implementation of the descriptor store.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	users  []database.UserRecord
	closed bool

	// Error injection
	EnsureSchemaError error
	SaveError         error
	LoadError         error
	CountError        error

	// Call counters
	EnsureSchemaCalls int
	SaveCalls         int
}

// NewStore creates an empty mock store.
func NewStore() *Store {
	return &Store{nextID: 1}
}

// AddUser inserts a user directly and returns its id.
func (m *Store) AddUser(displayName string, accessLevel int, descriptor database.Descriptor) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(displayName, accessLevel, descriptor)
}

func (m *Store) insert(displayName string, accessLevel int, descriptor database.Descriptor) int64 {
	id := m.nextID
	m.nextID++
	m.users = append(m.users, database.UserRecord{
		Identity: database.Identity{
			ID:          id,
			DisplayName: displayName,
			AccessLevel: accessLevel,
		},
		Descriptor: slices.Clone(descriptor),
	})
	return id
}

// Users returns a copy of all stored users.
func (m *Store) Users() []database.UserRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.users)
}

// Closed reports whether Close was called.
func (m *Store) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// EnsureSchema records the call.
func (m *Store) EnsureSchema(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnsureSchemaCalls++
	return m.EnsureSchemaError
}

// Save stores a user and returns its id.
func (m *Store) Save(ctx context.Context, displayName string, accessLevel int, descriptor database.Descriptor) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveError != nil {
		return 0, m.SaveError
	}
	return m.insert(displayName, accessLevel, descriptor), nil
}

// LoadAll returns every user in insertion order.
func (m *Store) LoadAll(ctx context.Context) ([]database.StoredDescriptor, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.StoredDescriptor, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, database.StoredDescriptor{
			Descriptor: slices.Clone(u.Descriptor),
			Identity:   u.Identity,
		})
	}
	return result, nil
}

// FindNearest runs the real matcher over the in-memory users.
func (m *Store) FindNearest(ctx context.Context, candidate database.Descriptor, tolerance float64) (facematch.Result, error) {
	return facematch.FindNearest(ctx, m, candidate, tolerance, zerolog.Nop())
}

// Count returns the number of stored users.
func (m *Store) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

// Close marks the store closed.
func (m *Store) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
