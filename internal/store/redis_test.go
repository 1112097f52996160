package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRedisStore(client, "apigw:", testLogger())
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, s := setupMiniRedis(t)

	_, err := s.GetCatalog(ctx, "T1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.PutCatalog(ctx, "T1", Catalog{}), ErrNotFound)
	assert.False(t, mr.Exists("apigw:tenant:T1:catalog"), "put must not create a tenant")

	require.NoError(t, s.CreateTenant(ctx, Tenant{ID: "T1"}))
	assert.ErrorIs(t, s.CreateTenant(ctx, Tenant{ID: "T1"}), ErrTenantExists)

	c, err := s.GetCatalog(ctx, "T1")
	require.NoError(t, err)
	assert.Empty(t, c)

	doc := Catalog{"orders": Section{"get-order": {URL: "/api/orders/:id", Method: "GET"}}}
	require.NoError(t, s.PutCatalog(ctx, "T1", doc))

	raw, err := mr.Get("apigw:tenant:T1:catalog")
	require.NoError(t, err)
	assert.JSONEq(t, `{"orders":{"get-order":{"url":"/api/orders/:id","method":"GET"}}}`, raw)

	c, err = s.GetCatalog(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, doc, c)

	require.NoError(t, s.DeleteTenant(ctx, "T1"))
	assert.ErrorIs(t, s.DeleteTenant(ctx, "T1"), ErrNotFound)
}

func TestRedisStore_MalformedDocument(t *testing.T) {
	ctx := context.Background()
	mr, s := setupMiniRedis(t)
	require.NoError(t, mr.Set("apigw:tenant:T1:catalog", "not-json"))

	c, err := s.GetCatalog(ctx, "T1")
	require.NoError(t, err)
	assert.Empty(t, c)
}

func TestRedisStore_Ping(t *testing.T) {
	mr, s := setupMiniRedis(t)
	require.NoError(t, s.Ping(context.Background()))

	mr.Close()
	assert.Error(t, s.Ping(context.Background()))
}

func TestOpenRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s, err := OpenRedis(context.Background(), RedisOptions{Addr: mr.Addr(), PoolSize: 4}, testLogger())
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.Ping(context.Background()))
}
