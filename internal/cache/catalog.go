package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/pkg/logger"
)

// ErrCacheMiss is returned by the raw getters when the key is absent.
var ErrCacheMiss = errors.New("cache: miss")

var listCategories = []model.Category{model.CategoryAll, model.CategoryElectronics, model.CategoryFashions, model.CategoryBooks}

// CatalogCache is a read-through redis cache for product detail and category listings.
// A nil redis client turns every call into a direct load.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
	loads  atomic.Int64
}

func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CatalogCache{client: client, ttl: ttl}
}

func productKey(id string) string { return fmt.Sprintf("catalog:product:%s", id) }

func listKey(category model.Category) string {
	if category == "" {
		category = model.CategoryAll
	}
	return fmt.Sprintf("catalog:list:%s", category)
}

// Product returns the cached product or calls load once per key across concurrent callers.
func (c *CatalogCache) Product(ctx context.Context, id string, load func(context.Context) (*model.Product, error)) (*model.Product, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}
	var out model.Product
	if err := c.get(ctx, productKey(id), &out); err == nil {
		return &out, nil
	}
	v, err, _ := c.group.Do(productKey(id), func() (interface{}, error) {
		c.loads.Add(1)
		p, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.set(ctx, productKey(id), p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Product), nil
}

// Products returns the cached listing for a category.
func (c *CatalogCache) Products(ctx context.Context, category model.Category, load func(context.Context) ([]*model.Product, error)) ([]*model.Product, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}
	key := listKey(category)
	var out []*model.Product
	if err := c.get(ctx, key, &out); err == nil {
		return out, nil
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		c.loads.Add(1)
		rows, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, rows)
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Product), nil
}

// Invalidate drops the given products and every category listing.
func (c *CatalogCache) Invalidate(ctx context.Context, productIDs ...string) {
	if c == nil || c.client == nil {
		return
	}
	keys := make([]string, 0, len(productIDs)+len(listCategories))
	for _, id := range productIDs {
		keys = append(keys, productKey(id))
	}
	for _, cat := range listCategories {
		keys = append(keys, listKey(cat))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("catalog cache invalidate failed", zap.Error(err), zap.Strings("keys", keys))
	}
}

func (c *CatalogCache) get(ctx context.Context, key string, dst interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.misses.Add(1)
		return ErrCacheMiss
	}
	if err != nil {
		c.misses.Add(1)
		logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.misses.Add(1)
		return err
	}
	c.hits.Add(1)
	return nil
}

func (c *CatalogCache) set(ctx context.Context, key string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Stats summarises cache behaviour since start.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Loads  int64 `json:"loads"`
}

func (c *CatalogCache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Loads: c.loads.Load()}
}

// NewRedisClient builds a client and verifies connectivity.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}
