package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
)

// DefaultProfileKey is the key the profile has always been stored under.
const DefaultProfileKey = "mcvsd-stats"

// BlobStore is a minimal key-value store for opaque values.
// Get returns ErrNotFound when the key is absent.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// StorageError is returned when a value could not be read or written.
type StorageError struct {
	Op      string // "get" or "set"
	Key     string
	Wrapped error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Wrapped)
}

func (e *StorageError) Unwrap() error {
	return e.Wrapped
}
