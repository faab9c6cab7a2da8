//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisProductCache(t *testing.T) {
	client := startRedis(t)
	cache := NewRedisProductCacheWithClient(client, WithKeyPrefix("test:product:"))
	ctx := context.Background()

	got, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Set(ctx, createTestProduct(1, 25), 0))
	got, err = cache.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 25, got.WarehouseStock)
	assert.Equal(t, "B000TEST01", got.ASIN)

	ttl, err := client.TTL(ctx, "test:product:1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	h := NewStockInvalidationHandler(cache, nil)
	require.NoError(t, h.Handle(ctx, catalog.NewWarehouseStockRecalculatedEvent(1, 30)))
	got, err = cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisProductCache_CorruptedEntry(t *testing.T) {
	client := startRedis(t)
	cache := NewRedisProductCacheWithClient(client)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "wms:product:9", "not-json", time.Minute).Err())

	_, err := cache.Get(ctx, 9)
	assert.Error(t, err)

	exists, err := client.Exists(ctx, "wms:product:9").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)
}
