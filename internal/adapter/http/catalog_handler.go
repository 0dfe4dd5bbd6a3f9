package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gderossilive/devShopDemo/internal/entity"
	"github.com/gderossilive/devShopDemo/internal/usecase"
)

type CatalogReader interface {
	ListFeaturedActive(ctx context.Context, limit int) ([]entity.Product, error)
	ListActiveCategories(ctx context.Context) ([]entity.Category, error)
	ListActiveByCategory(ctx context.Context, categoryID *int64) (usecase.ProductListing, error)
	GetProduct(ctx context.Context, id int64) (*entity.Product, error)
}

type CatalogHandler struct {
	catalog CatalogReader
	timeout time.Duration
}

func NewCatalogHandler(catalog CatalogReader, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, timeout: timeout}
}

// GET /v1/catalog/featured?limit=
func (h *CatalogHandler) Featured(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(c, entity.ErrInvalidInput)
			return
		}
		limit = n
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ListFeaturedActive(ctx, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": nonNil(products)})
}

// GET /v1/catalog/categories
func (h *CatalogHandler) Categories(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	cats, err := h.catalog.ListActiveCategories(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": nonNil(cats)})
}

// GET /v1/catalog/products?categoryId=
func (h *CatalogHandler) Products(c *gin.Context) {
	var categoryID *int64
	if raw := c.Query("categoryId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(c, entity.ErrInvalidInput)
			return
		}
		categoryID = &id
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	listing, err := h.catalog.ListActiveByCategory(ctx, categoryID)
	if err != nil {
		writeError(c, err)
		return
	}
	listing.Products = nonNil(listing.Products)
	c.JSON(http.StatusOK, listing)
}

// GET /v1/catalog/products/:id
func (h *CatalogHandler) Product(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, entity.ErrInvalidProduct)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	p, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
