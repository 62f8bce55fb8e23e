package domain

import (
	"context"
)

// StepFunc is the signature of a user-supplied step.
// The returned Output selects which output path (if any) fires next.
// A non-nil error fails the whole run.
type StepFunc func(ctx context.Context, sc *StepContext) (Output, error)

// Action is a named unit of work. The name is its stable identifier:
// every occurrence of the same Action in a description shares one registry slot.
type Action struct {
	Name string
	Fn   StepFunc

	// DefaultOutput is the output path used when the step returns Default(...).
	DefaultOutput string

	// Requires lists argument keys that must be present before the step runs.
	Requires []string
}

// ActionOption configures an Action.
type ActionOption func(*Action)

// WithDefaultOutput sets the output fired by Default(...).
func WithDefaultOutput(name string) ActionOption {
	return func(a *Action) {
		a.DefaultOutput = name
	}
}

// WithRequires declares argument keys the step depends on.
func WithRequires(keys ...string) ActionOption {
	return func(a *Action) {
		a.Requires = append(a.Requires, keys...)
	}
}

// NewAction creates an action bound to a step function.
func NewAction(name string, fn StepFunc, opts ...ActionOption) *Action {
	a := &Action{Name: name, Fn: fn}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Sync wraps a function that never selects an output.
// Handy for steps that only mutate the store.
func Sync(name string, fn func(ctx context.Context, sc *StepContext) error, opts ...ActionOption) *Action {
	return NewAction(name, func(ctx context.Context, sc *StepContext) (Output, error) {
		return NoOutput(), fn(ctx, sc)
	}, opts...)
}

// ActionResolver looks an action up by name. Used to resolve Ref items.
type ActionResolver func(name string) (*Action, bool)
