package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aretw0/signaltree"
	"github.com/aretw0/signaltree/internal/logging"
	"github.com/aretw0/signaltree/pkg/adapters/memory"
	"github.com/aretw0/signaltree/pkg/domain"
	"github.com/aretw0/signaltree/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	fetch := domain.NewAction("fetch", func(context.Context, *domain.StepContext) (domain.Output, error) {
		return domain.Default(map[string]any{"ok": true}), nil
	})
	fail := domain.Sync("fail", func(context.Context, *domain.StepContext) error {
		return errors.New("nope")
	})

	sig, err := signaltree.Create(domain.Sequence{domain.Parallel{domain.Do(fetch)}, domain.Do(fail)},
		signaltree.WithName("orders"),
		signaltree.WithLifecycleHooks(m.Hooks()),
	)
	require.NoError(t, err)

	first, err := sig.Run(context.Background(), memory.NewStore(nil), nil)
	require.Error(t, err)
	_, err = sig.Run(context.Background(), memory.NewStore(nil), nil, signaltree.WithReplay(first.AsyncActionResults))
	require.Error(t, err)

	expected := `
# HELP signaltree_steps_total Total number of step invocations by outcome.
# TYPE signaltree_steps_total counter
signaltree_steps_total{action="fail",async="false",signal="orders",status="error"} 2
signaltree_steps_total{action="fetch",async="true",signal="orders",status="ok"} 1
signaltree_steps_total{action="fetch",async="true",signal="orders",status="replayed"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(expected), "signaltree_steps_total"))

	expectedRuns := `
# HELP signaltree_runs_total Total number of signal runs by outcome.
# TYPE signaltree_runs_total counter
signaltree_runs_total{signal="orders",status="error"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(expectedRuns), "signaltree_runs_total"))
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)

	_, err = observability.NewMetrics(reg, observability.WithNamespace("other"))
	assert.NoError(t, err)
}

func TestMergeHooks(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnStepEnd: func(context.Context, *domain.StepEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{
		OnStepEnd:   func(context.Context, *domain.StepEvent) { calls = append(calls, "b") },
		OnStepStart: func(context.Context, *domain.StepEvent) { calls = append(calls, "start") },
	}

	merged := observability.MergeHooks(a, b)
	assert.Nil(t, merged.OnSignalStart)

	merged.OnStepStart(context.Background(), &domain.StepEvent{})
	merged.OnStepEnd(context.Background(), &domain.StepEvent{})
	assert.Equal(t, []string{"start", "a", "b"}, calls)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, slog.LevelDebug, logging.FormatText)

	sig := signaltree.MustCreate(domain.Sequence{
		domain.Do(domain.Sync("hello", func(context.Context, *domain.StepContext) error { return nil })),
	}, signaltree.WithLifecycleHooks(observability.LoggingHooks(logger)))

	_, err := sig.Run(context.Background(), memory.NewStore(nil), nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "signal_start")
	assert.Contains(t, out, "step_end")
	assert.Contains(t, out, "action=hello")
}
