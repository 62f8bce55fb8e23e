package domain

import "context"

// StateReader is the read side of the host store. Every step gets one.
type StateReader interface {
	// Get returns the value at a dotted path, or ErrKeyNotFound.
	Get(ctx context.Context, path string) (any, error)
}

// Mutator is the write side of the host store. Only synchronous steps get one.
type Mutator interface {
	Set(ctx context.Context, path string, value any) error
	Unset(ctx context.Context, path string) error
}
