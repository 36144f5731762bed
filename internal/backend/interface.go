// Package backend opens the repository selected by DATA_BACKEND.
package backend

import (
	"context"

	"fincoach/internal/storage"
)

// BackendResult is an opened store and the function that releases it.
type BackendResult struct {
	Store   storage.Repository
	Cleanup func() error
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType names a storage implementation.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string { return string(bt) }

// Persistent reports whether data survives a restart.
func (bt BackendType) Persistent() bool { return bt == SQLiteBackend }

func (bt BackendType) valid() bool {
	return bt == SQLiteBackend || bt == MemoryBackend
}
