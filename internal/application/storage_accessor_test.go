package application

import (
	"context"
	"testing"

	"github.com/pixzlo/pixzlo-bridge/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageAccessorRoundTrip(t *testing.T) {
	accessor := NewStorageAccessor(newMemoryStore(nil), nil)
	ctx := context.Background()

	_, ok := accessor.Get(ctx, "k")
	assert.False(t, ok)

	accessor.Set(ctx, "k", "v")
	value, ok := accessor.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", value)

	accessor.Remove(ctx, "k")
	_, ok = accessor.Get(ctx, "k")
	assert.False(t, ok)
}

func TestStorageAccessorSwallowsEngineFailures(t *testing.T) {
	store := mocks.NewMockKeyValueStore(t)
	store.EXPECT().Get(mockAnyContext(), "k").Return("", assert.AnError)
	store.EXPECT().Put(mockAnyContext(), "k", "v").Return(assert.AnError)
	store.EXPECT().Delete(mockAnyContext(), "k").Return(assert.AnError)
	accessor := NewStorageAccessor(store, nil)
	ctx := context.Background()

	_, ok := accessor.Get(ctx, "k")
	assert.False(t, ok)
	accessor.Set(ctx, "k", "v")
	accessor.Remove(ctx, "k")
}

func TestStorageAccessorEmptyValueIsAbsent(t *testing.T) {
	accessor := NewStorageAccessor(newMemoryStore(map[string]string{"k": ""}), nil)

	_, ok := accessor.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestStorageAccessorWithoutEngine(t *testing.T) {
	var nilAccessor *StorageAccessor
	accessor := NewStorageAccessor(nil, nil)
	ctx := context.Background()

	for _, a := range []*StorageAccessor{nilAccessor, accessor} {
		a.Set(ctx, "k", "v")
		a.Remove(ctx, "k")
		_, ok := a.Get(ctx, "k")
		assert.False(t, ok)
	}
}
