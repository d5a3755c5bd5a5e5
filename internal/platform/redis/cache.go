package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

// Cache stores JSON values under namespaced keys. Bumping a namespace's generation
// orphans every key written under the previous one, so invalidation never scans.
type Cache interface {
	GetJSON(ctx context.Context, ns, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, ns, key string, v any, ttl time.Duration) error
	Bump(ctx context.Context, ns string) error
	Close() error
}

type cache struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

// NewCache connects to addr. An empty addr yields a cache that always misses.
func NewCache(log *logger.Logger, addr string) (Cache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cacheLog := log.With("service", "RedisCache")

	addr = strings.TrimSpace(addr)
	if addr == "" {
		cacheLog.Warn("REDIS_ADDR not set; catalog caching disabled")
		return Nop(), nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &cache{log: cacheLog, rdb: rdb, prefix: "coursehub"}, nil
}

func (c *cache) genKey(ns string) string { return c.prefix + ":" + ns + ":gen" }

func (c *cache) generation(ctx context.Context, ns string) (int64, error) {
	raw, err := c.rdb.Get(ctx, c.genKey(ns)).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (c *cache) dataKey(ctx context.Context, ns, key string) (string, error) {
	gen, err := c.generation(ctx, ns)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:%d:%s", c.prefix, ns, gen, key), nil
}

func (c *cache) GetJSON(ctx context.Context, ns, key string, dest any) (bool, error) {
	k, err := c.dataKey(ctx, ns, key)
	if err != nil {
		return false, err
	}
	raw, err := c.rdb.Get(ctx, k).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", k, err)
	}
	return true, nil
}

func (c *cache) SetJSON(ctx context.Context, ns, key string, v any, ttl time.Duration) error {
	k, err := c.dataKey(ctx, ns, key)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, k, raw, ttl).Err()
}

func (c *cache) Bump(ctx context.Context, ns string) error {
	return c.rdb.Incr(ctx, c.genKey(ns)).Err()
}

func (c *cache) Close() error { return c.rdb.Close() }

type nopCache struct{}

// Nop returns a cache that stores nothing.
func Nop() Cache { return nopCache{} }

func (nopCache) GetJSON(context.Context, string, string, any) (bool, error) { return false, nil }
func (nopCache) SetJSON(context.Context, string, string, any, time.Duration) error {
	return nil
}
func (nopCache) Bump(context.Context, string) error { return nil }
func (nopCache) Close() error { return nil }
