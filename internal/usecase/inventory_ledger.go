package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/gderossilive/devShopDemo/internal/entity"
)

type InventoryLedger struct {
	now func() time.Time
}

func NewInventoryLedger(now func() time.Time) *InventoryLedger {
	if now == nil {
		now = time.Now
	}
	return &InventoryLedger{now: now}
}

// Reserve takes quantity units of a product inside tx. The check and the
// decrement are one conditional update; on refusal the row is re-read only to
// tell a missing product apart from a short one.
func (l *InventoryLedger) Reserve(ctx context.Context, tx Tx, productID int64, quantity int) error {
	if productID <= 0 {
		return entity.ErrInvalidProduct
	}
	if quantity <= 0 {
		return entity.ErrInvalidQuantity
	}

	ok, err := tx.DecrementStock(ctx, productID, quantity, l.now())
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	p, err := tx.ProductByID(ctx, productID, false)
	if errors.Is(err, entity.ErrNotFound) {
		return entity.ErrNotFound
	}
	if err != nil {
		return err
	}
	if !p.Purchasable() {
		return entity.ErrNotFound
	}
	return &entity.InsufficientStockError{
		ProductID: productID,
		Requested: quantity,
		Available: p.UnitsInStock,
	}
}
