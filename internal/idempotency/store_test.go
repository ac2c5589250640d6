package idempotency_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/db/dbtest"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/idempotency"
)

func TestMain(m *testing.M) {
	code := m.Run()
	dbtest.Shutdown()
	os.Exit(code)
}

func TestRedisStore_Lifecycle(t *testing.T) {
	client := dbtest.Redis(t)
	ctx := context.Background()
	require.NoError(t, client.FlushDB(ctx).Err())

	store := idempotency.NewRedisStore(client, time.Minute)
	key := uuid.Must(uuid.NewV4()).String() + ":retry-1"

	_, reserved, err := store.Reserve(ctx, key)
	require.NoError(t, err)
	assert.True(t, reserved)

	existing, reserved, err := store.Reserve(ctx, key)
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, uuid.Nil, existing, "first request still running")

	orderID := uuid.Must(uuid.NewV4())
	require.NoError(t, store.Complete(ctx, key, orderID))

	existing, reserved, err = store.Reserve(ctx, key)
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, orderID, existing)

	ttl, err := client.TTL(ctx, "idempotency:order:"+key).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute, "ttl %s", ttl)

	require.NoError(t, store.Release(ctx, key))
	_, reserved, err = store.Reserve(ctx, key)
	require.NoError(t, err)
	assert.True(t, reserved, "released key can be claimed again")
}

func TestRedisStore_MalformedValue(t *testing.T) {
	client := dbtest.Redis(t)
	ctx := context.Background()
	require.NoError(t, client.Set(ctx, "idempotency:order:broken", "not-a-uuid", time.Minute).Err())

	_, _, err := idempotency.NewRedisStore(client, time.Minute).Reserve(ctx, "broken")
	assert.Error(t, err)
}

func TestRedisStore_Unavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	store := idempotency.NewRedisStore(client, time.Minute)
	_, reserved, err := store.Reserve(context.Background(), "k")
	require.Error(t, err)
	assert.False(t, reserved)
	assert.Contains(t, err.Error(), "idempotency: failed to reserve key")
}
