package runtime

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/signaltree/internal/logging"
	"github.com/aretw0/signaltree/pkg/domain"
	"github.com/aretw0/signaltree/pkg/ports"
)

// ErrStoreRequired is returned when Run is called without a host store.
var ErrStoreRequired = errors.New("runtime: a store is required")

// Engine interprets one compiled tree. It holds no per-run state and can
// serve any number of concurrent runs.
type Engine struct {
	tree   *domain.StaticTree
	name   string
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	now    func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithName sets the signal name reported in results, events and logs.
func WithName(name string) EngineOption {
	return func(e *Engine) {
		e.name = name
	}
}

// WithClock overrides the time source (useful in tests).
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine for a compiled tree.
func NewEngine(tree *domain.StaticTree, opts ...EngineOption) *Engine {
	e := &Engine{
		tree:   tree,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.name != "" {
		e.logger = e.logger.With("signal", e.name)
	}
	return e
}

// Tree returns the compiled template the engine runs.
func (e *Engine) Tree() *domain.StaticTree {
	return e.tree
}

// RunRequest carries everything a single run needs.
type RunRequest struct {
	RunID    string
	Store    ports.Store
	Services any
	Args     map[string]any
	Replay   []domain.ReplayRecord
}

// Run executes the tree once.
//
// On failure the partially annotated result is returned together with the
// error, with IsExecuting already cleared. A SerializationError is returned
// before any step runs and carries no result.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*domain.SignalResult, error) {
	if req.Store == nil {
		return nil, ErrStoreRequired
	}
	if err := checkSerializable(req.Args); err != nil {
		return nil, err
	}

	r := &run{
		engine:   e,
		store:    req.Store,
		services: req.Services,
		signal:   domain.SignalInfo{Name: e.name, RunID: req.RunID},
		args:     newArgBag(req.Args),
		replay:   indexReplay(req.Replay),
		logger:   e.logger.With("run_id", req.RunID),
	}

	result := &domain.SignalResult{
		Name:        e.name,
		RunID:       req.RunID,
		Branches:    domain.Instantiate(e.tree.Branches),
		IsExecuting: true,
		StartedAt:   e.now(),
	}

	r.emitSignal(ctx, domain.EventSignalStart, 0, nil)
	r.logger.DebugContext(ctx, "signal started", "replay_records", len(req.Replay))

	err := r.sequence(ctx, result.Branches)

	result.IsExecuting = false
	result.Duration = e.now().Sub(result.StartedAt)
	result.Args = r.args.snapshot()
	result.AsyncActionResults = r.results()

	r.emitSignal(ctx, domain.EventSignalEnd, result.Duration, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "signal failed", "error", err, "duration", result.Duration)
		return result, err
	}
	r.logger.DebugContext(ctx, "signal completed", "duration", result.Duration)
	return result, nil
}

// run is the per-invocation state. The template it reads is shared; every
// record it writes belongs to this run only.
type run struct {
	engine   *Engine
	store    ports.Store
	services any
	signal   domain.SignalInfo
	args     *argBag
	replay   map[string]domain.ReplayRecord
	logger   *slog.Logger

	// syncMu serializes synchronous steps, including those of sequences
	// nested inside concurrent groups.
	syncMu sync.Mutex

	recMu   sync.Mutex
	records []domain.ReplayRecord
}

func indexReplay(records []domain.ReplayRecord) map[string]domain.ReplayRecord {
	idx := make(map[string]domain.ReplayRecord, len(records))
	for _, rec := range records {
		idx[rec.Path.Key()] = rec
	}
	return idx
}

func (r *run) record(rec domain.ReplayRecord) {
	r.recMu.Lock()
	defer r.recMu.Unlock()
	r.records = append(r.records, rec)
}

// results returns the async records ordered by tree position.
func (r *run) results() []domain.ReplayRecord {
	r.recMu.Lock()
	defer r.recMu.Unlock()
	out := slices.Clone(r.records)
	slices.SortFunc(out, func(a, b domain.ReplayRecord) int {
		return a.Path.Compare(b.Path)
	})
	if out == nil {
		out = []domain.ReplayRecord{}
	}
	return out
}

func (r *run) emitSignal(ctx context.Context, typ domain.EventType, d time.Duration, err error) {
	var hook func(context.Context, *domain.SignalEvent)
	if typ == domain.EventSignalStart {
		hook = r.engine.hooks.OnSignalStart
	} else {
		hook = r.engine.hooks.OnSignalEnd
	}
	if hook == nil {
		return
	}
	hook(ctx, &domain.SignalEvent{
		EventBase: domain.EventBase{
			Timestamp: r.engine.now(),
			Type:      typ,
			Signal:    r.signal.Name,
			RunID:     r.signal.RunID,
		},
		Duration: d,
		Err:      err,
	})
}

func (r *run) emitStep(ctx context.Context, typ domain.EventType, b *domain.BranchRun, err error) {
	var hook func(context.Context, *domain.StepEvent)
	if typ == domain.EventStepStart {
		hook = r.engine.hooks.OnStepStart
	} else {
		hook = r.engine.hooks.OnStepEnd
	}
	if hook == nil {
		return
	}
	evt := &domain.StepEvent{
		EventBase: domain.EventBase{
			Timestamp: r.engine.now(),
			Type:      typ,
			Signal:    r.signal.Name,
			RunID:     r.signal.RunID,
		},
		Path:     b.Path,
		Action:   b.Action,
		Async:    b.Async,
		Replayed: b.Replayed,
		Input:    maps.Clone(b.Args),
		Err:      err,
	}
	if typ == domain.EventStepEnd {
		evt.Output = maps.Clone(b.Output)
		evt.OutputPath = b.OutputPath
		evt.Duration = b.Duration
	}
	hook(ctx, evt)
}
