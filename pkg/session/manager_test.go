package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/signaltree"
	"github.com/aretw0/signaltree/pkg/adapters/memory"
	"github.com/aretw0/signaltree/pkg/adapters/redis"
	"github.com/aretw0/signaltree/pkg/domain"
	"github.com/aretw0/signaltree/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakySignal charges asynchronously, then fails the sync step until healed.
func flakySignal(t *testing.T, charges *atomic.Int64, healed *atomic.Bool) *signaltree.Signal {
	t.Helper()
	charge := domain.NewAction("charge", func(context.Context, *domain.StepContext) (domain.Output, error) {
		charges.Add(1)
		return domain.Default(map[string]any{"receipt": "r-1"}), nil
	})
	ship := domain.Sync("ship", func(context.Context, *domain.StepContext) error {
		if !healed.Load() {
			return errors.New("warehouse offline")
		}
		return nil
	})
	sig, err := signaltree.Create(domain.Sequence{domain.Parallel{domain.Do(charge)}, domain.Do(ship)})
	require.NoError(t, err)
	return sig
}

func TestManager_ResumesFailedRun(t *testing.T) {
	var charges atomic.Int64
	var healed atomic.Bool
	sig := flakySignal(t, &charges, &healed)

	replay := memory.NewReplayStore()
	mgr := session.NewManager(replay)
	ctx := context.Background()

	res, err := mgr.Run(ctx, "order-7", sig, memory.NewStore(nil), nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "order-7", res.RunID)

	pending, err := mgr.Pending(ctx, "order-7")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	keys, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"order-7"}, keys)

	healed.Store(true)
	res, err = mgr.Run(ctx, "order-7", sig, memory.NewStore(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, "r-1", res.Args["receipt"])
	assert.Equal(t, int64(1), charges.Load(), "the charge was replayed, not repeated")

	_, err = mgr.Pending(ctx, "order-7")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestManager_Discard(t *testing.T) {
	var charges atomic.Int64
	var healed atomic.Bool
	sig := flakySignal(t, &charges, &healed)

	mgr := session.NewManager(memory.NewReplayStore())
	ctx := context.Background()

	_, err := mgr.Run(ctx, "k", sig, memory.NewStore(nil), nil)
	require.Error(t, err)
	require.NoError(t, mgr.Discard(ctx, "k"))

	healed.Store(true)
	_, err = mgr.Run(ctx, "k", sig, memory.NewStore(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), charges.Load())
}

func TestManager_SerializesRunsPerKey(t *testing.T) {
	var active, maxActive atomic.Int64
	slow := domain.Sync("slow", func(context.Context, *domain.StepContext) error {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return nil
	})
	sig := signaltree.MustCreate(domain.Sequence{domain.Do(slow)})
	mgr := session.NewManager(memory.NewReplayStore())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Run(context.Background(), "same-key", sig, memory.NewStore(nil), nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), maxActive.Load())
}

func TestManager_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	var sawLock atomic.Bool
	probe := domain.Sync("probe", func(context.Context, *domain.StepContext) error {
		sawLock.Store(mr.Exists("runs:lock:run-1"))
		return nil
	})
	sig := signaltree.MustCreate(domain.Sequence{domain.Do(probe)})

	mgr := session.NewManager(
		redis.NewReplayStore(client),
		session.WithLocker(redis.NewLocker(client, "runs:")),
		session.WithLockTTL(5*time.Second),
	)

	_, err := mgr.Run(context.Background(), "run-1", sig, redis.NewFromClient(client), nil)
	require.NoError(t, err)
	assert.True(t, sawLock.Load())
	assert.False(t, mr.Exists("runs:lock:run-1"))
}
