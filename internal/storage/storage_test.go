package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semidx/internal/ir"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStorePutGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	vec := ir.Vector{0.1, -0.5, 2.25, 0}
	require.NoError(t, store.Put(ctx, "model-a", "hash1", vec))

	got, ok, err := store.Get(ctx, "model-a", "hash1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, vec, got)
}

func TestStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.Get(context.Background(), "model-a", "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreKeyedByModel(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "model-a", "hash1", ir.Vector{1}))
	require.NoError(t, store.Put(ctx, "model-b", "hash1", ir.Vector{2}))

	a, ok, err := store.Get(ctx, "model-a", "hash1")
	require.NoError(t, err)
	require.True(t, ok)
	b, ok, err := store.Get(ctx, "model-b", "hash1")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, ir.Vector{1}, a)
	assert.Equal(t, ir.Vector{2}, b)
}

func TestStoreReplace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "m", "h", ir.Vector{1, 2}))
	require.NoError(t, store.Put(ctx, "m", "h", ir.Vector{3, 4}))

	got, ok, err := store.Get(ctx, "m", "h")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ir.Vector{3, 4}, got)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestVectorSerializationRoundTrip(t *testing.T) {
	vecs := []ir.Vector{
		nil,
		{},
		{0},
		{1.5, -2.25, 3.125},
	}
	for _, vec := range vecs {
		got := deserializeVector(serializeVector(vec))
		assert.Equal(t, len(vec), len(got))
		for i := range vec {
			assert.Equal(t, vec[i], got[i])
		}
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "m", "h", ir.Vector{7, 8, 9}))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	got, ok, err := store.Get(ctx, "m", "h")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ir.Vector{7, 8, 9}, got)
}
