package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gderossilive/devShopDemo/internal/entity"
	"github.com/gderossilive/devShopDemo/internal/usecase"
)

type stubCatalogRepo struct {
	featuredCalls int
	lastLimit     int
	categoryCalls int
}

func (r *stubCatalogRepo) ListFeaturedActive(_ context.Context, limit int) ([]entity.Product, error) {
	r.featuredCalls++
	r.lastLimit = limit
	return []entity.Product{{ID: 1, Name: "Featured", IsActive: true, IsFeatured: true}}, nil
}

func (r *stubCatalogRepo) ListActiveCategories(context.Context) ([]entity.Category, error) {
	r.categoryCalls++
	return []entity.Category{{ID: 1, Name: "Books", IsActive: true}}, nil
}

func (r *stubCatalogRepo) ListActiveByCategory(_ context.Context, categoryID *int64) ([]entity.Product, error) {
	if categoryID != nil && *categoryID == 1 {
		return []entity.Product{{ID: 2, Name: "Book", CategoryID: 1}}, nil
	}
	return []entity.Product{{ID: 2, Name: "Book"}, {ID: 3, Name: "Game"}}, nil
}

func (r *stubCatalogRepo) GetProduct(_ context.Context, id int64) (*entity.Product, error) {
	if id == 2 {
		return &entity.Product{ID: 2, Name: "Book"}, nil
	}
	return nil, entity.ErrNotFound
}

func (r *stubCatalogRepo) GetCategory(_ context.Context, id int64) (*entity.Category, error) {
	if id == 1 {
		return &entity.Category{ID: 1, Name: "Books"}, nil
	}
	return nil, entity.ErrNotFound
}

type memCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	err         error
	invalidated []string
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) SetJSON(_ context.Context, key string, v any) error {
	if c.err != nil {
		return c.err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = b
	c.mu.Unlock()
	return nil
}

func (c *memCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	c.invalidated = append(c.invalidated, keys...)
	return nil
}

func TestCatalog_FeaturedReadThrough(t *testing.T) {
	repo := &stubCatalogRepo{}
	cache := newMemCache()
	c := usecase.NewCatalog(repo, cache)
	ctx := context.Background()

	got, err := c.ListFeaturedActive(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, usecase.DefaultFeaturedLimit, repo.lastLimit)

	_, err = c.ListFeaturedActive(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.featuredCalls, "second read served from cache")

	_, err = c.ListFeaturedActive(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, usecase.MaxFeaturedLimit, repo.lastLimit)
}

func TestCatalog_CacheFailureFallsBack(t *testing.T) {
	repo := &stubCatalogRepo{}
	cache := newMemCache()
	cache.err = errors.New("redis: i/o timeout")
	c := usecase.NewCatalog(repo, cache)

	for i := 0; i < 2; i++ {
		got, err := c.ListActiveCategories(context.Background())
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
	assert.Equal(t, 2, repo.categoryCalls)
}

func TestCatalog_NoCache(t *testing.T) {
	repo := &stubCatalogRepo{}
	c := usecase.NewCatalog(repo, nil)

	_, err := c.ListActiveCategories(context.Background())
	require.NoError(t, err)
	assert.NoError(t, c.InvalidateListings(context.Background()))
}

func TestCatalog_InvalidateListings(t *testing.T) {
	repo := &stubCatalogRepo{}
	cache := newMemCache()
	c := usecase.NewCatalog(repo, cache)
	ctx := context.Background()

	_, err := c.ListActiveCategories(ctx)
	require.NoError(t, err)
	_, err = c.ListFeaturedActive(ctx, 6)
	require.NoError(t, err)

	require.NoError(t, c.InvalidateListings(ctx))
	assert.Empty(t, cache.data)
	assert.Contains(t, cache.invalidated, "catalog:categories")

	featuredKeys := 0
	for _, k := range cache.invalidated {
		if strings.HasPrefix(k, "catalog:featured:") {
			featuredKeys++
		}
	}
	assert.Equal(t, usecase.MaxFeaturedLimit, featuredKeys)

	_, err = c.ListActiveCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.categoryCalls)
}

func TestCatalog_ProductsByCategory(t *testing.T) {
	c := usecase.NewCatalog(&stubCatalogRepo{}, nil)
	ctx := context.Background()

	books := int64(1)
	listing, err := c.ListActiveByCategory(ctx, &books)
	require.NoError(t, err)
	assert.Equal(t, "Books", listing.CategoryName)
	assert.Len(t, listing.Products, 1)

	all, err := c.ListActiveByCategory(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all.CategoryName)
	assert.Len(t, all.Products, 2)

	missing := int64(77)
	none, err := c.ListActiveByCategory(ctx, &missing)
	require.NoError(t, err)
	assert.Empty(t, none.CategoryName)
	assert.NotNil(t, none.Products)
	assert.Empty(t, none.Products)
}

func TestCatalog_InvalidateStockListingsKeepsCategories(t *testing.T) {
	repo := &stubCatalogRepo{}
	cache := newMemCache()
	c := usecase.NewCatalog(repo, cache)
	ctx := context.Background()

	_, err := c.ListActiveCategories(ctx)
	require.NoError(t, err)
	_, err = c.ListFeaturedActive(ctx, 6)
	require.NoError(t, err)

	require.NoError(t, c.InvalidateStockListings(ctx))
	assert.NotContains(t, cache.invalidated, "catalog:categories")
	assert.Len(t, cache.invalidated, usecase.MaxFeaturedLimit)

	_, err = c.ListActiveCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.categoryCalls, "categories still cached")
	_, err = c.ListFeaturedActive(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.featuredCalls)
}

func TestCatalog_GetProduct(t *testing.T) {
	c := usecase.NewCatalog(&stubCatalogRepo{}, nil)

	p, err := c.GetProduct(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Book", p.Name)

	_, err = c.GetProduct(context.Background(), 3)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = c.GetProduct(context.Background(), 0)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}
