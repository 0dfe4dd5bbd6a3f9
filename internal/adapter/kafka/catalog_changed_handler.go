package kafka

import (
	"context"

	"github.com/gderossilive/devShopDemo/internal/logging"
	"github.com/gderossilive/devShopDemo/internal/usecase"
)

// ListingInvalidator is satisfied by usecase.Catalog.
type ListingInvalidator interface {
	InvalidateListings(ctx context.Context) error
}

// CatalogChangedHandler evicts cached storefront listings whenever catalog
// management reports a product or category change.
type CatalogChangedHandler struct {
	Catalog ListingInvalidator
}

func NewCatalogChangedHandler(c ListingInvalidator) *CatalogChangedHandler {
	return &CatalogChangedHandler{Catalog: c}
}

func (h *CatalogChangedHandler) Handle(ctx context.Context, ev usecase.CatalogChangedMsg) error {
	if err := h.Catalog.InvalidateListings(ctx); err != nil {
		return err
	}
	logging.FromCtx(ctx).Info("catalog listings invalidated",
		"product_id", ev.ProductID, "category_id", ev.CategoryID, "change", ev.Change)
	return nil
}
