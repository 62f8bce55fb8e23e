package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/signaltree/pkg/adapters/memory"
	"github.com/aretw0/signaltree/pkg/domain"
	"github.com/aretw0/signaltree/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunStoreContract(t, memory.NewStore(nil))
}

func TestMemoryReplayStore_Contract(t *testing.T) {
	ports.RunReplayStoreContract(t, memory.NewReplayStore())
}

func TestMemoryStore_NestedPaths(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(map[string]any{
		"user": map[string]any{"name": "ada"},
	})

	v, err := store.Get(ctx, "user.name")
	require.NoError(t, err)
	assert.Equal(t, "ada", v)

	require.NoError(t, store.Set(ctx, "user.profile.lang", "go"))
	v, err = store.Get(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":    "ada",
		"profile": map[string]any{"lang": "go"},
	}, v)

	// Mutating a returned map must not leak into the store.
	v.(map[string]any)["name"] = "grace"
	v, err = store.Get(ctx, "user.name")
	require.NoError(t, err)
	assert.Equal(t, "ada", v)

	_, err = store.Get(ctx, "user.name.first")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	require.NoError(t, store.Unset(ctx, "user.profile"))
	assert.Equal(t, map[string]any{"user": map[string]any{"name": "ada"}}, store.Snapshot())
}

func TestMemoryReplayStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewReplayStore()

	records := []domain.ReplayRecord{{OutputPath: "ok", Path: domain.Path{"0"}, Args: map[string]any{"n": 1}}}
	require.NoError(t, store.Save(ctx, "run", records))
	records[0].Args["n"] = 2

	loaded, err := store.Load(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded[0].Args["n"])
}
