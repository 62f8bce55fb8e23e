package runtime

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/aretw0/signaltree/pkg/domain"
)

// invoke runs (or replays) the step behind one branch and records the outcome
// on the branch. The returned output is already resolved against the
// action's default output name.
func (r *run) invoke(ctx context.Context, b *domain.BranchRun) (out domain.Output, err error) {
	action := r.engine.tree.Action(b.Template)

	b.Args = r.args.snapshot()
	b.IsExecuting = true
	b.StartedAt = r.engine.now()
	r.emitStep(ctx, domain.EventStepStart, b, nil)

	defer func() {
		b.IsExecuting = false
		b.Duration = r.engine.now().Sub(b.StartedAt)
		if err != nil {
			b.Error = err.Error()
		}
		r.emitStep(ctx, domain.EventStepEnd, b, err)
	}()

	if rec, ok := r.lookupReplay(b); ok {
		b.Replayed = true
		out = domain.Output{Path: rec.OutputPath, Args: maps.Clone(rec.Args), Fired: true}
		r.logger.DebugContext(ctx, "step replayed", "path", b.Path.String(), "action", b.Action, "output", rec.OutputPath)
	} else {
		if missing := r.args.missing(action.Requires); len(missing) > 0 {
			return domain.Output{}, r.fail(b, &domain.MissingArgsError{Action: action.Name, MissingKeys: missing})
		}
		out, err = r.call(ctx, action, b)
		if err != nil {
			r.logger.ErrorContext(ctx, "step failed", "path", b.Path.String(), "action", b.Action, "error", err)
			return domain.Output{}, r.fail(b, err)
		}
		out = out.Resolve(action.DefaultOutput)
	}

	r.args.merge(out.Args)

	b.HasExecuted = true
	b.Output = maps.Clone(out.Args)
	b.OutputPath = out.Path

	if b.Async {
		r.record(domain.ReplayRecord{
			OutputPath: out.Path,
			Path:       b.Path,
			Args:       maps.Clone(out.Args),
		})
	}
	return out, nil
}

func (r *run) lookupReplay(b *domain.BranchRun) (domain.ReplayRecord, bool) {
	if !b.Async || len(r.replay) == 0 {
		return domain.ReplayRecord{}, false
	}
	rec, ok := r.replay[b.Path.Key()]
	return rec, ok
}

func (r *run) fail(b *domain.BranchRun, err error) error {
	return &domain.StepExecutionError{Path: b.Path, Action: b.Action, Err: err}
}

// call invokes the user function. Synchronous steps hold the run's sync lock
// and get a mutator that stops working once they return. Panics are turned
// into errors.
func (r *run) call(ctx context.Context, action *domain.Action, b *domain.BranchRun) (out domain.Output, err error) {
	var m *stepMutator
	if !b.Async {
		r.syncMu.Lock()
		defer r.syncMu.Unlock()
		m = &stepMutator{target: r.store}
		defer m.close()
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	base := domain.StepContext{
		Args:     b.Args,
		Services: r.services,
		State:    readOnly{r.store},
		Path:     b.Path,
		Signal:   r.signal,
		Async:    b.Async,
		Outputs:  domain.SortedOutputNames(b.Outputs),
		Logger:   r.logger.With("path", b.Path.String(), "action", b.Action),
	}
	var sc *domain.StepContext
	if m != nil {
		sc = domain.NewStepContext(base, m)
	} else {
		sc = domain.NewStepContext(base, nil)
	}

	// The snapshot stored on the branch must not be affected by a step that
	// writes to its own Args.
	sc.Args = maps.Clone(b.Args)
	if sc.Args == nil {
		sc.Args = map[string]any{}
	}
	return action.Fn(ctx, sc)
}

// readOnly hides the Mutator side of the store from type assertions.
type readOnly struct {
	r domain.StateReader
}

func (ro readOnly) Get(ctx context.Context, path string) (any, error) {
	return ro.r.Get(ctx, path)
}

// stepMutator is handed to one synchronous step and closed when it returns.
type stepMutator struct {
	mu     sync.Mutex
	target domain.Mutator
	closed bool
}

func (m *stepMutator) Set(ctx context.Context, path string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.ErrMutatorClosed
	}
	return m.target.Set(ctx, path, value)
}

func (m *stepMutator) Unset(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.ErrMutatorClosed
	}
	return m.target.Unset(ctx, path)
}

func (m *stepMutator) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}
