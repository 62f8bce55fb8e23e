package domain

import (
	"log/slog"
	"slices"
)

// SignalInfo identifies the run a step belongs to.
type SignalInfo struct {
	Name  string `json:"name"`
	RunID string `json:"run_id"`
}

// StepContext is what a step sees when it is invoked.
type StepContext struct {
	// Args is a snapshot of the argument bag at invocation time.
	// Writing to it has no effect on the run; return a payload instead.
	Args map[string]any

	// Services is forwarded verbatim from the run options.
	Services any

	// State reads the host store.
	State StateReader

	Path    Path
	Signal  SignalInfo
	Async   bool
	Outputs []string
	Logger  *slog.Logger

	mutator Mutator
}

// NewStepContext returns a copy of base bound to a mutator.
// Pass a nil mutator for asynchronous steps.
func NewStepContext(base StepContext, m Mutator) *StepContext {
	sc := base
	sc.mutator = m
	return &sc
}

// Mutate returns the store mutator. Asynchronous steps get ErrMutationForbidden.
func (sc *StepContext) Mutate() (Mutator, error) {
	if sc.mutator == nil {
		return nil, ErrMutationForbidden
	}
	return sc.mutator, nil
}

// HasOutput reports whether the branch declares the named output.
func (sc *StepContext) HasOutput(name string) bool {
	return slices.Contains(sc.Outputs, name)
}

// To selects a named output. It is equivalent to the package-level To.
func (sc *StepContext) To(name string, args map[string]any) Output {
	return To(name, args)
}

// Arg returns an argument by key.
func (sc *StepContext) Arg(key string) (any, bool) {
	v, ok := sc.Args[key]
	return v, ok
}
