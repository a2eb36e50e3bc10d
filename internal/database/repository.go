package database

import (
	"context"
)

// DescriptorLoader provides bulk read access to enrolled descriptors
type DescriptorLoader interface {
	// LoadAll returns every enrolled descriptor ordered by id. Records whose
	// descriptor is null or malformed are left out. An empty store yields an
	// empty slice and no error.
	LoadAll(ctx context.Context) ([]StoredDescriptor, error)
}

// DescriptorWriter provides write access to the descriptor store
type DescriptorWriter interface {
	// EnsureSchema creates the usuarios table if it does not exist. Safe to
	// call on every startup and before every write.
	EnsureSchema(ctx context.Context) error
	// Save appends a new user and returns the id assigned by the store
	Save(ctx context.Context, displayName string, accessLevel int, descriptor Descriptor) (int64, error)
	// Count returns the number of enrolled users
	Count(ctx context.Context) (int, error)
	// Close releases any resources held by the store
	Close() error
}
