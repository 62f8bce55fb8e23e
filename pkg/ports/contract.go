package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/signaltree/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunReplayStoreContract verifies that a ReplayStore implementation adheres
// to the interface contract.
func RunReplayStoreContract(t *testing.T, store ReplayStore) {
	ctx := context.Background()
	runKey := "contract-run-" + time.Now().Format("20060102150405")

	records := []domain.ReplayRecord{
		{OutputPath: "success", Path: domain.Path{"1", "0"}, Args: map[string]any{"user": "ada"}},
		{OutputPath: "", Path: domain.Path{"1", "1"}},
	}

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, runKey, records))

		loaded, err := store.Load(ctx, runKey)
		require.NoError(t, err)
		require.Len(t, loaded, 2)
		assert.Equal(t, "success", loaded[0].OutputPath)
		assert.True(t, loaded[0].Path.Equal(domain.Path{"1", "0"}))
		assert.Equal(t, "ada", loaded[0].Args["user"])
		assert.True(t, loaded[1].Path.Equal(domain.Path{"1", "1"}))
	})

	t.Run("Save Replaces", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, runKey, records[:1]))
		loaded, err := store.Load(ctx, runKey)
		require.NoError(t, err)
		assert.Len(t, loaded, 1)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runKey)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, runKey, records))
		require.NoError(t, store.Delete(ctx, runKey))

		_, err := store.Load(ctx, runKey)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runKey + "-1"
		id2 := runKey + "-2"
		_ = store.Save(ctx, id1, records)
		_ = store.Save(ctx, id2, records)
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, id1)
		assert.Contains(t, keys, id2)
	})
}

// RunStoreContract verifies that a host Store implementation adheres to the
// interface contract.
func RunStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "user.name", "ada"))

		v, err := store.Get(ctx, "user.name")
		require.NoError(t, err)
		assert.Equal(t, "ada", v)
	})

	t.Run("Get Missing", func(t *testing.T) {
		_, err := store.Get(ctx, "missing.key")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "counter", "1"))
		require.NoError(t, store.Set(ctx, "counter", "2"))
		v, err := store.Get(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, "2", v)
	})

	t.Run("Unset", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "tmp", true))
		require.NoError(t, store.Unset(ctx, "tmp"))
		_, err := store.Get(ctx, "tmp")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)

		// Unsetting a missing key is not an error.
		assert.NoError(t, store.Unset(ctx, "never.set"))
	})
}
