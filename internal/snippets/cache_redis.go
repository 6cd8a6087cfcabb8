package snippets

import (
	"context"
	"errors"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var cacheJSON = jsoniter.ConfigCompatibleWithStandardLibrary

type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	p := strings.TrimSpace(prefix)
	if p == "" {
		p = "swiftsnip:cache:"
	}
	return &RedisCache{client: client, prefix: p}
}

func (c *RedisCache) keyByID(id string) string {
	return c.prefix + "snippet:" + id
}

func (c *RedisCache) keyList(key string) string {
	return c.prefix + "snippet:list:" + key
}

func (c *RedisCache) GetByID(ctx context.Context, id string) (*Snippet, bool, error) {
	var s Snippet
	ok, err := c.get(ctx, c.keyByID(id), &s)
	if !ok || err != nil {
		return nil, false, err
	}
	return &s, true, nil
}

func (c *RedisCache) SetByID(ctx context.Context, s *Snippet, ttl time.Duration) error {
	return c.set(ctx, c.keyByID(s.ID), s, ttl)
}

func (c *RedisCache) DeleteByID(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.keyByID(id)).Err()
}

func (c *RedisCache) GetList(ctx context.Context, key string) ([]*Snippet, bool, error) {
	var out []*Snippet
	ok, err := c.get(ctx, c.keyList(key), &out)
	if !ok || err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (c *RedisCache) SetList(ctx context.Context, key string, snippets []*Snippet, ttl time.Duration) error {
	return c.set(ctx, c.keyList(key), snippets, ttl)
}

func (c *RedisCache) DeleteList(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.keyList(key)).Err()
}

func (c *RedisCache) get(ctx context.Context, key string, dst any) (bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := cacheJSON.Unmarshal(val, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	payload, err := cacheJSON.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
