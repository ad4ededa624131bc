package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
)

type RedisSettingsCache struct {
	client *redis.Client
	key    string
	genKey string
}

func NewRedisSettingsCache(addr string, password string, db int) *RedisSettingsCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisSettingsCache{client: client, key: SettingsKey, genKey: SettingsGenerationKey}
}

func (c *RedisSettingsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisSettingsCache) Close() error {
	return c.client.Close()
}

func (c *RedisSettingsCache) Get(ctx context.Context) (*domain.Settings, int64, bool, error) {
	generation, err := c.generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}
	val, err := c.client.Get(ctx, c.entryKey(generation)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, generation, false, nil
	}
	if err != nil {
		return nil, generation, false, err
	}

	var settings domain.Settings
	if err := json.Unmarshal([]byte(val), &settings); err != nil {
		return nil, generation, false, err
	}
	return &settings, generation, true, nil
}

func (c *RedisSettingsCache) Set(ctx context.Context, generation int64, value *domain.Settings, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.entryKey(generation), payload, ttl).Err()
}

// Invalidate bumps the generation; stale entries expire with their TTL.
func (c *RedisSettingsCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, c.genKey).Err()
}

func (c *RedisSettingsCache) generation(ctx context.Context) (int64, error) {
	generation, err := c.client.Get(ctx, c.genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}

func (c *RedisSettingsCache) entryKey(generation int64) string {
	return c.key + ":" + strconv.FormatInt(generation, 10)
}
