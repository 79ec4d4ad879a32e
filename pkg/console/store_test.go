package console

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-spx-templategen/pkg/orchestrator"
)

func TestMemoryStoreKeepsOneResultPerSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2, time.Minute)

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNoResult)

	require.NoError(t, store.Set(ctx, "a", orchestrator.Result{Prompt: "first"}))
	require.NoError(t, store.Set(ctx, "a", orchestrator.Result{Prompt: "second"}))
	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Prompt)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Set(ctx, "b", orchestrator.Result{Prompt: "b"}))
	require.NoError(t, store.Set(ctx, "c", orchestrator.Result{Prompt: "c"}))
	assert.Equal(t, 2, store.Len())
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNoResult, "oldest session should be evicted")

	assert.Error(t, store.Set(ctx, "", orchestrator.Result{}))
}

func TestRedisStoreKey(t *testing.T) {
	store := NewRedisStore(NewRedisClient("127.0.0.1:6379", "", 0), "spx-templategen:", time.Hour)
	defer store.Close()

	assert.Equal(t, "spx-templategen:result:abc", store.Key(" abc "))
}

func TestRedisStoreUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	store := NewRedisStore(client, "test:", time.Minute)
	defer store.Close()

	ctx := context.Background()
	assert.Error(t, store.Ping(ctx))

	_, err := store.Get(ctx, "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoResult)

	assert.Error(t, store.Set(ctx, "abc", orchestrator.Result{Prompt: "x"}))
}
