package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/signaltree/pkg/domain"
)

// MergeHooks combines several hook sets; each callback fans out in order.
func MergeHooks(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var (
		signalStart []func(context.Context, *domain.SignalEvent)
		signalEnd   []func(context.Context, *domain.SignalEvent)
		stepStart   []func(context.Context, *domain.StepEvent)
		stepEnd     []func(context.Context, *domain.StepEvent)
	)
	for _, h := range sets {
		if h.OnSignalStart != nil {
			signalStart = append(signalStart, h.OnSignalStart)
		}
		if h.OnSignalEnd != nil {
			signalEnd = append(signalEnd, h.OnSignalEnd)
		}
		if h.OnStepStart != nil {
			stepStart = append(stepStart, h.OnStepStart)
		}
		if h.OnStepEnd != nil {
			stepEnd = append(stepEnd, h.OnStepEnd)
		}
	}
	return domain.LifecycleHooks{
		OnSignalStart: fanOut(signalStart),
		OnSignalEnd:   fanOut(signalEnd),
		OnStepStart:   fanOut(stepStart),
		OnStepEnd:     fanOut(stepEnd),
	}
}

func fanOut[E any](fns []func(context.Context, E)) func(context.Context, E) {
	switch len(fns) {
	case 0:
		return nil
	case 1:
		return fns[0]
	}
	return func(ctx context.Context, e E) {
		for _, fn := range fns {
			fn(ctx, e)
		}
	}
}

// LoggingHooks logs every lifecycle event at debug level (errors at error level).
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSignalStart: func(ctx context.Context, e *domain.SignalEvent) {
			logger.DebugContext(ctx, "signal_start", "signal", e.Signal, "run_id", e.RunID)
		},
		OnSignalEnd: func(ctx context.Context, e *domain.SignalEvent) {
			if e.Err != nil {
				logger.ErrorContext(ctx, "signal_end", "signal", e.Signal, "run_id", e.RunID, "duration", e.Duration, "error", e.Err)
				return
			}
			logger.DebugContext(ctx, "signal_end", "signal", e.Signal, "run_id", e.RunID, "duration", e.Duration)
		},
		OnStepStart: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_start", "path", e.Path.String(), "action", e.Action, "async", e.Async)
		},
		OnStepEnd: func(ctx context.Context, e *domain.StepEvent) {
			if e.Err != nil {
				logger.ErrorContext(ctx, "step_end", "path", e.Path.String(), "action", e.Action, "error", e.Err)
				return
			}
			logger.DebugContext(ctx, "step_end",
				"path", e.Path.String(),
				"action", e.Action,
				"output", e.OutputPath,
				"replayed", e.Replayed,
				"duration", e.Duration,
			)
		},
	}
}
