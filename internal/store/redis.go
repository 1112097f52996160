package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions configures the Redis client and its pool.
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	PoolTimeout time.Duration
	KeyPrefix   string
}

// RedisStore keeps each tenant's catalog as one JSON string under
// <prefix>tenant:<id>:catalog. Key existence is tenant existence.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// OpenRedis connects and verifies the connection with a ping.
func OpenRedis(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		PoolSize:    opts.PoolSize,
		PoolTimeout: opts.PoolTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStore(client, opts.KeyPrefix, logger), nil
}

func NewRedisStore(client *redis.Client, keyPrefix string, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, keyPrefix: keyPrefix, logger: logger}
}

func (s *RedisStore) catalogKey(tenantID string) string {
	return s.keyPrefix + "tenant:" + tenantID + ":catalog"
}

func (s *RedisStore) GetCatalog(ctx context.Context, tenantID string) (Catalog, error) {
	data, err := s.client.Get(ctx, s.catalogKey(tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return decodeCatalog(data, tenantID, s.logger), nil
}

// PutCatalog replaces the document only if the tenant key already exists.
func (s *RedisStore) PutCatalog(ctx context.Context, tenantID string, c Catalog) error {
	doc, err := encodeCatalog(c)
	if err != nil {
		return err
	}
	ok, err := s.client.SetXX(ctx, s.catalogKey(tenantID), doc, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) CreateTenant(ctx context.Context, t Tenant) error {
	ok, err := s.client.SetNX(ctx, s.catalogKey(t.ID), "{}", 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	if !ok {
		return ErrTenantExists
	}
	return nil
}

func (s *RedisStore) DeleteTenant(ctx context.Context, tenantID string) error {
	n, err := s.client.Del(ctx, s.catalogKey(tenantID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Backend = (*RedisStore)(nil)
