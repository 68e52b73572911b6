package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, time.Hour), mr
}

func TestStore_ReserveCompleteReplay(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	id, err := store.Reserve(ctx, "user-1", "key-1")
	require.NoError(t, err)
	assert.Empty(t, id, "first reservation owns the key")

	require.NoError(t, store.Complete(ctx, "user-1", "key-1", "txn-123"))

	id, err = store.Reserve(ctx, "user-1", "key-1")
	require.NoError(t, err)
	assert.Equal(t, "txn-123", id)
}

func TestStore_InFlight(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Reserve(ctx, "user-1", "key-1")
	require.NoError(t, err)

	_, err = store.Reserve(ctx, "user-1", "key-1")
	assert.ErrorIs(t, err, ErrInFlight)
}

func TestStore_ReleaseAllowsRetry(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Reserve(ctx, "user-1", "key-1")
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "user-1", "key-1"))

	id, err := store.Reserve(ctx, "user-1", "key-1")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestStore_KeysAreScoped(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Reserve(ctx, "user-1", "shared")
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, "user-1", "shared", "txn-a"))

	id, err := store.Reserve(ctx, "user-2", "shared")
	require.NoError(t, err)
	assert.Empty(t, id, "another user's key does not replay")
}

func TestStore_TTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, err := store.Reserve(ctx, "user-1", "key-1")
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, "user-1", "key-1", "txn-123"))

	mr.FastForward(2 * time.Hour)

	id, err := store.Reserve(ctx, "user-1", "key-1")
	require.NoError(t, err)
	assert.Empty(t, id, "expired keys are reusable")
}

func TestStore_Disabled(t *testing.T) {
	var store *Store
	ctx := context.Background()

	assert.Nil(t, NewStore(nil, time.Hour))

	id, err := store.Reserve(ctx, "user-1", "key-1")
	assert.NoError(t, err)
	assert.Empty(t, id)
	assert.NoError(t, store.Complete(ctx, "user-1", "key-1", "x"))
	assert.NoError(t, store.Release(ctx, "user-1", "key-1"))
}

func TestStore_EmptyKeyIsIgnored(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	id, err := store.Reserve(ctx, "user-1", "")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, mr.Keys())
}

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	t.Run("empty url disables", func(t *testing.T) {
		client, err := NewClient(ctx, "")
		assert.NoError(t, err)
		assert.Nil(t, client)
	})

	t.Run("connects to a live server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := NewClient(ctx, "redis://"+mr.Addr())
		require.NoError(t, err)
		require.NotNil(t, client)
		_ = client.Close()
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := NewClient(ctx, "::not a url")
		assert.Error(t, err)
	})
}
