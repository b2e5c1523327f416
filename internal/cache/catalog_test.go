package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/storefront/internal/model"
)

func newTestCache(t *testing.T) (*CatalogCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCatalogCache(client, time.Minute), mr
}

func TestProductReadThrough(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	var calls atomic.Int32
	load := func(context.Context) (*model.Product, error) {
		calls.Add(1)
		return &model.Product{ID: "p1", Name: "Phone", Price: decimal.NewFromInt(100), Stock: 10}, nil
	}

	p, err := c.Product(ctx, "p1", load)
	require.NoError(t, err)
	assert.Equal(t, "Phone", p.Name)
	assert.True(t, mr.Exists("catalog:product:p1"))

	p, err = c.Product(ctx, "p1", load)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(p.Price))
	assert.Equal(t, int32(1), calls.Load())

	c.Invalidate(ctx, "p1")
	assert.False(t, mr.Exists("catalog:product:p1"))

	_, err = c.Product(ctx, "p1", load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Loads)
}

func TestProductsCollapsesConcurrentMisses(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) ([]*model.Product, error) {
		calls.Add(1)
		<-release
		return []*model.Product{{ID: "p1"}, {ID: "p2"}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := c.Products(ctx, model.CategoryBooks, load)
			assert.NoError(t, err)
			assert.Len(t, rows, 2)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestLoadErrorIsNotCached(t *testing.T) {
	c, mr := newTestCache(t)
	boom := errors.New("db down")

	_, err := c.Product(context.Background(), "p9", func(context.Context) (*model.Product, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("catalog:product:p9"))
}

func TestNilClientLoadsDirectly(t *testing.T) {
	c := NewCatalogCache(nil, 0)
	rows, err := c.Products(context.Background(), "", func(context.Context) ([]*model.Product, error) {
		return []*model.Product{{ID: "p1"}}, nil
	})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	c.Invalidate(context.Background(), "p1")
}
