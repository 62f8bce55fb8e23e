package signaltree_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/aretw0/signaltree"
	"github.com/aretw0/signaltree/pkg/adapters/memory"
	"github.com/aretw0/signaltree/pkg/domain"
	"github.com/aretw0/signaltree/pkg/registry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyStore fails the test if any store method is reached.
type spyStore struct {
	calls atomic.Int64
}

func (s *spyStore) Get(context.Context, string) (any, error) {
	s.calls.Add(1)
	return nil, domain.ErrKeyNotFound
}

func (s *spyStore) Set(context.Context, string, any) error {
	s.calls.Add(1)
	return nil
}

func (s *spyStore) Unset(context.Context, string) error {
	s.calls.Add(1)
	return nil
}

func TestCreate_RejectsMalformedDescriptions(t *testing.T) {
	route := domain.NewAction("route", func(context.Context, *domain.StepContext) (domain.Output, error) {
		return domain.NoOutput(), nil
	})

	tests := []struct {
		name string
		desc domain.Sequence
	}{
		{"nil entry", domain.Sequence{nil}},
		{"unresolved name", domain.Sequence{domain.Ref("not-a-function")}},
		{"nested group", domain.Sequence{domain.Parallel{domain.Parallel{}}}},
		{"nil description", nil},
		{"output names that alias another branch", domain.Sequence{&domain.Step{Action: route, Outputs: map[string]domain.Sequence{
			"a":             {&domain.Step{Action: route, Outputs: map[string]domain.Sequence{"x": nil}}},
			"a.0.outputs.x": {domain.Do(route)},
		}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := signaltree.Create(tt.desc)
			var derr *domain.DescriptionError
			require.ErrorAs(t, err, &derr)
			assert.Nil(t, sig)
		})
	}
}

func TestCreate_WithRegistry(t *testing.T) {
	reg := registry.NewRegistry()
	reg.RegisterFunc("hello", func(context.Context, *domain.StepContext) (domain.Output, error) {
		return domain.Default(map[string]any{"greeting": "hello"}), nil
	})

	sig, err := signaltree.Create(domain.Sequence{domain.Ref("hello")},
		signaltree.WithRegistry(reg),
		signaltree.WithName("greeter"),
	)
	require.NoError(t, err)
	assert.Equal(t, "greeter", sig.Name())
	require.Len(t, sig.Tree().Registry, 1)

	res, err := sig.Run(context.Background(), memory.NewStore(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Args["greeting"])
	assert.Equal(t, "greeter", res.Name)

	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err, "run id defaults to a uuid")
}

func TestRun_SerializationGuardNeverTouchesStore(t *testing.T) {
	var called atomic.Bool
	sig := signaltree.MustCreate(domain.Sequence{
		domain.Do(domain.Sync("touch", func(ctx context.Context, sc *domain.StepContext) error {
			called.Store(true)
			_, err := sc.State.Get(ctx, "x")
			return err
		})),
	})

	cyclic := map[string]any{}
	cyclic["loop"] = cyclic
	store := &spyStore{}

	_, err := sig.Run(context.Background(), store, cyclic)
	var serr *domain.SerializationError
	require.ErrorAs(t, err, &serr)
	assert.False(t, called.Load())
	assert.Zero(t, store.calls.Load())
}

func TestRun_ReplayAcrossRuns(t *testing.T) {
	var charges atomic.Int64
	charge := domain.NewAction("charge", func(context.Context, *domain.StepContext) (domain.Output, error) {
		charges.Add(1)
		return domain.To("paid", map[string]any{"receipt": "r-1"}), nil
	})
	var notified atomic.Int64
	notify := domain.Sync("notify", func(context.Context, *domain.StepContext) error {
		notified.Add(1)
		return nil
	})

	sig := signaltree.MustCreate(domain.Sequence{
		domain.Parallel{&domain.Step{Action: charge, Outputs: map[string]domain.Sequence{"paid": nil}}},
		domain.Do(notify),
	})
	store := memory.NewStore(nil)

	first, err := sig.Run(context.Background(), store, nil, signaltree.WithRunID("order-1"))
	require.NoError(t, err)
	assert.Equal(t, "order-1", first.RunID)

	second, err := sig.Run(context.Background(), store, nil, signaltree.WithReplay(first.AsyncActionResults))
	require.NoError(t, err)

	assert.Equal(t, int64(1), charges.Load())
	assert.Equal(t, int64(2), notified.Load())
	assert.Equal(t, "r-1", second.Args["receipt"])
}

func TestRun_ServicesAreForwarded(t *testing.T) {
	type mailer struct{ sent int }
	m := &mailer{}

	sig := signaltree.MustCreate(domain.Sequence{
		domain.Do(domain.Sync("mail", func(_ context.Context, sc *domain.StepContext) error {
			sc.Services.(*mailer).sent++
			return nil
		})),
	})

	_, err := sig.Run(context.Background(), memory.NewStore(nil), nil, signaltree.WithServices(m))
	require.NoError(t, err)
	assert.Equal(t, 1, m.sent)
}
