// Package objectstore abstracts the bucket that holds backup files.
package objectstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a requested object does not exist.
	ErrNotFound = errors.New("object not found")
)

// Store defines the interface for the backup bucket. Object names are full
// paths within the bucket (e.g. "backups/2025-01-01T00-00-00-000Z/users.json").
type Store interface {
	// List returns the names of all objects whose name starts with prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Put writes an object, overwriting any existing object with that name.
	Put(ctx context.Context, name string, data []byte) error

	// Get downloads an object's content. Returns ErrNotFound if it does
	// not exist.
	Get(ctx context.Context, name string) ([]byte, error)
}
