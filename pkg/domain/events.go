package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSignalStart EventType = "signal_start"
	EventSignalEnd   EventType = "signal_end"
	EventStepStart   EventType = "step_start"
	EventStepEnd     EventType = "step_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Signal    string    `json:"signal"`
	RunID     string    `json:"run_id"`
}

// SignalEvent marks the start or end of a run.
type SignalEvent struct {
	EventBase
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// StepEvent represents a step invocation.
type StepEvent struct {
	EventBase
	Path       Path           `json:"path"`
	Action     string         `json:"action"`
	Async      bool           `json:"async"`
	Replayed   bool           `json:"replayed,omitempty"`
	Input      map[string]any `json:"input,omitempty"`
	Output     map[string]any `json:"output,omitempty"`
	OutputPath string         `json:"output_path,omitempty"`
	Duration   time.Duration  `json:"duration,omitempty"`
	Err        error          `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Step hooks are called from the goroutines running concurrent members, so
// implementations must be safe for concurrent use.
type LifecycleHooks struct {
	OnSignalStart func(context.Context, *SignalEvent)
	OnSignalEnd   func(context.Context, *SignalEvent)
	OnStepStart   func(context.Context, *StepEvent)
	OnStepEnd     func(context.Context, *StepEvent)
}
