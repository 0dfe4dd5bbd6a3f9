package usecase

import (
	"context"
	"errors"
	"strconv"

	"github.com/gderossilive/devShopDemo/internal/entity"
	"github.com/gderossilive/devShopDemo/internal/logging"
	"github.com/gderossilive/devShopDemo/internal/observ"
)

const (
	DefaultFeaturedLimit = 6
	MaxFeaturedLimit     = 50

	cacheKeyCategories = "catalog:categories"
	cacheKeyFeatured   = "catalog:featured:"
)

// Catalog serves the read-only storefront listings. Listings go through the
// cache when one is configured; cache errors fall back to the store.
type Catalog struct {
	repo  CatalogRepo
	cache CatalogCache
}

func NewCatalog(repo CatalogRepo, cache CatalogCache) *Catalog {
	return &Catalog{repo: repo, cache: cache}
}

type ProductListing struct {
	CategoryName string           `json:"categoryName,omitempty"`
	Products     []entity.Product `json:"products"`
}

func (c *Catalog) ListFeaturedActive(ctx context.Context, limit int) ([]entity.Product, error) {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}
	if limit > MaxFeaturedLimit {
		limit = MaxFeaturedLimit
	}
	key := cacheKeyFeatured + strconv.Itoa(limit)
	var out []entity.Product
	if c.fromCache(ctx, key, &out) {
		return out, nil
	}
	out, err := c.repo.ListFeaturedActive(ctx, limit)
	if err != nil {
		return nil, err
	}
	c.toCache(ctx, key, out)
	return out, nil
}

func (c *Catalog) ListActiveCategories(ctx context.Context) ([]entity.Category, error) {
	var out []entity.Category
	if c.fromCache(ctx, cacheKeyCategories, &out) {
		return out, nil
	}
	out, err := c.repo.ListActiveCategories(ctx)
	if err != nil {
		return nil, err
	}
	c.toCache(ctx, cacheKeyCategories, out)
	return out, nil
}

// ListActiveByCategory lists active products by name; a nil categoryID lists
// all. An unknown category yields an empty listing with no name.
func (c *Catalog) ListActiveByCategory(ctx context.Context, categoryID *int64) (ProductListing, error) {
	var listing ProductListing
	if categoryID != nil {
		cat, err := c.repo.GetCategory(ctx, *categoryID)
		if errors.Is(err, entity.ErrNotFound) {
			return ProductListing{Products: []entity.Product{}}, nil
		}
		if err != nil {
			return ProductListing{}, err
		}
		listing.CategoryName = cat.Name
	}
	products, err := c.repo.ListActiveByCategory(ctx, categoryID)
	if err != nil {
		return ProductListing{}, err
	}
	listing.Products = products
	return listing, nil
}

func (c *Catalog) GetProduct(ctx context.Context, id int64) (*entity.Product, error) {
	if id <= 0 {
		return nil, entity.ErrInvalidProduct
	}
	return c.repo.GetProduct(ctx, id)
}

// InvalidateListings drops every cached listing. Called on catalog change events.
func (c *Catalog) InvalidateListings(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Invalidate(ctx, append(featuredKeys(), cacheKeyCategories)...)
}

// InvalidateStockListings drops the cached featured listings, which carry
// units in stock. Called after a purchase commits.
func (c *Catalog) InvalidateStockListings(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Invalidate(ctx, featuredKeys()...)
}

func featuredKeys() []string {
	keys := make([]string, 0, MaxFeaturedLimit+1)
	for limit := 1; limit <= MaxFeaturedLimit; limit++ {
		keys = append(keys, cacheKeyFeatured+strconv.Itoa(limit))
	}
	return keys
}

func (c *Catalog) fromCache(ctx context.Context, key string, dst any) bool {
	if c.cache == nil {
		return false
	}
	ok, err := c.cache.GetJSON(ctx, key, dst)
	if err != nil {
		logging.FromCtx(ctx).Warn("catalog cache read failed", "key", key, "err", err)
		return false
	}
	observ.ObserveCatalogCache(ok)
	return ok
}

func (c *Catalog) toCache(ctx context.Context, key string, v any) {
	if c.cache == nil {
		return
	}
	if err := c.cache.SetJSON(ctx, key, v); err != nil {
		logging.FromCtx(ctx).Warn("catalog cache write failed", "key", key, "err", err)
	}
}
