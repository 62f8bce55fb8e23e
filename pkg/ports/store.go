package ports

import (
	"context"

	"github.com/aretw0/signaltree/pkg/domain"
)

// Store is the host mutable store a signal runs against.
// Synchronous steps receive its Mutator side; every step can read it.
type Store interface {
	domain.StateReader
	domain.Mutator
}

// ReplayStore persists the async results of a run so that a later
// invocation (possibly in another process) can replay them.
type ReplayStore interface {
	// Save replaces the records stored under runKey.
	Save(ctx context.Context, runKey string, records []domain.ReplayRecord) error

	// Load retrieves the records for runKey.
	// Returns domain.ErrRunNotFound if nothing is stored.
	Load(ctx context.Context, runKey string) ([]domain.ReplayRecord, error)

	// Delete removes the records for runKey.
	Delete(ctx context.Context, runKey string) error

	// List returns the run keys that currently hold records.
	List(ctx context.Context) ([]string, error)
}
