package domain

import (
	"errors"
	"fmt"
)

// ErrMutationForbidden is returned when an asynchronous step asks for a mutator.
var ErrMutationForbidden = errors.New("asynchronous steps cannot mutate the store")

// ErrMutatorClosed is returned when a mutator is used after its step returned.
var ErrMutatorClosed = errors.New("mutator used after step returned")

// ErrKeyNotFound is returned by stores when a path has no value.
var ErrKeyNotFound = errors.New("key not found")

// ErrRunNotFound is returned when no replay records exist for a run key.
var ErrRunNotFound = errors.New("run not found")

// DescriptionError reports a malformed description. It is raised before any
// store interaction.
type DescriptionError struct {
	Path   Path
	Reason string
}

func (e *DescriptionError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("invalid description: %s", e.Reason)
	}
	return fmt.Sprintf("invalid description at %s: %s", e.Path, e.Reason)
}

// SerializationError reports initial args that cannot be losslessly encoded.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("args are not serializable: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// StepExecutionError wraps a failure raised by a step.
type StepExecutionError struct {
	Path   Path
	Action string
	Err    error
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("step %q at %s failed: %v", e.Action, e.Path, e.Err)
}

func (e *StepExecutionError) Unwrap() error { return e.Err }

// MissingArgsError reports required argument keys absent from the bag.
type MissingArgsError struct {
	Action      string
	MissingKeys []string
}

func (e *MissingArgsError) Error() string {
	return fmt.Sprintf("action '%s' requires args that are missing: %v", e.Action, e.MissingKeys)
}
