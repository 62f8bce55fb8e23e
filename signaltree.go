package signaltree

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/signaltree/internal/compiler"
	"github.com/aretw0/signaltree/internal/logging"
	"github.com/aretw0/signaltree/internal/runtime"
	"github.com/aretw0/signaltree/internal/validator"
	"github.com/aretw0/signaltree/pkg/domain"
	"github.com/aretw0/signaltree/pkg/ports"
	"github.com/aretw0/signaltree/pkg/registry"
	"github.com/google/uuid"
)

// Signal is a compiled, runnable description.
// It is safe to run the same Signal concurrently.
type Signal struct {
	name     string
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	registry *registry.Registry
	tree     *domain.StaticTree
	runtime  *runtime.Engine
}

// Option defines a functional option for configuring a Signal.
type Option func(*Signal)

// WithName labels the signal in results, events and logs.
func WithName(name string) Option {
	return func(s *Signal) {
		s.name = name
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Signal) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Signal) {
		s.hooks = hooks
	}
}

// WithRegistry resolves domain.Ref entries against r.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Signal) {
		s.registry = r
	}
}

// Create validates and compiles a description.
// Malformed descriptions fail here with a *domain.DescriptionError, before
// any store is touched.
func Create(desc domain.Sequence, opts ...Option) (*Signal, error) {
	s := &Signal{}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logging.NewNop()
	}

	var resolve domain.ActionResolver
	if s.registry != nil {
		resolve = s.registry.Resolver()
	}

	if err := validator.Analyze(desc, resolve); err != nil {
		return nil, err
	}
	tree, err := compiler.Compile(desc, resolve)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	s.tree = tree

	s.runtime = runtime.NewEngine(tree,
		runtime.WithName(s.name),
		runtime.WithLogger(s.logger),
		runtime.WithLifecycleHooks(s.hooks),
	)
	return s, nil
}

// MustCreate is Create for static descriptions; it panics on error.
func MustCreate(desc domain.Sequence, opts ...Option) *Signal {
	s, err := Create(desc, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the signal's label.
func (s *Signal) Name() string {
	return s.name
}

// Tree returns the compiled template for introspection.
func (s *Signal) Tree() *domain.StaticTree {
	return s.tree
}

type runConfig struct {
	runID    string
	services any
	replay   []domain.ReplayRecord
}

// RunOption configures a single run.
type RunOption func(*runConfig)

// WithServices forwards a dependency bag verbatim to every step.
func WithServices(services any) RunOption {
	return func(c *runConfig) {
		c.services = services
	}
}

// WithReplay passes the AsyncActionResults of an earlier run. Async steps
// whose path matches a record resolve from it instead of running.
func WithReplay(records []domain.ReplayRecord) RunOption {
	return func(c *runConfig) {
		c.replay = records
	}
}

// WithRunID sets the run identifier. A random UUID is used otherwise.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}

// Run executes the signal against store.
//
// args must be JSON-encodable; otherwise a *domain.SerializationError is
// returned and no step runs. On a step failure the partial result is
// returned alongside the error.
func (s *Signal) Run(ctx context.Context, store ports.Store, args map[string]any, opts ...RunOption) (*domain.SignalResult, error) {
	cfg := runConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.runID == "" {
		cfg.runID = uuid.NewString()
	}

	return s.runtime.Run(ctx, runtime.RunRequest{
		RunID:    cfg.runID,
		Store:    store,
		Services: cfg.services,
		Args:     args,
		Replay:   cfg.replay,
	})
}
