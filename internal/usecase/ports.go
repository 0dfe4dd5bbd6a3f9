package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/gderossilive/devShopDemo/internal/entity"
)

// ErrDuplicateKey is returned by Tx inserts that hit a unique constraint.
var ErrDuplicateKey = errors.New("duplicate key")

// Tx is a request-scoped transaction handle. Every call made through it
// commits or rolls back together.
type Tx interface {
	// ProductByID returns entity.ErrNotFound for a missing row. With lock set
	// the row stays locked until the transaction ends where the store supports it.
	ProductByID(ctx context.Context, id int64, lock bool) (*entity.Product, error)
	// DecrementStock atomically subtracts qty when the product is active and
	// has at least qty units. It reports whether a row was updated.
	DecrementStock(ctx context.Context, id int64, qty int, now time.Time) (bool, error)

	CustomerByEmail(ctx context.Context, email string, lock bool) (*entity.Customer, error)
	InsertCustomer(ctx context.Context, c *entity.Customer) error

	InsertOrder(ctx context.Context, o *entity.Order) error
	InsertOrderDetail(ctx context.Context, d *entity.OrderDetail) error
}

// TxRunner runs fn inside one transaction: commit when fn returns nil,
// rollback otherwise. Driver errors come back classified as
// entity.ErrTransactionConflict or entity.ErrPersistence.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type CatalogRepo interface {
	ListFeaturedActive(ctx context.Context, limit int) ([]entity.Product, error)
	ListActiveCategories(ctx context.Context) ([]entity.Category, error)
	ListActiveByCategory(ctx context.Context, categoryID *int64) ([]entity.Product, error)
	GetProduct(ctx context.Context, id int64) (*entity.Product, error)
	GetCategory(ctx context.Context, id int64) (*entity.Category, error)
}

// CatalogCache is a best-effort read-through cache for listings.
type CatalogCache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Notifier hands a committed order to the notification side channel. It must
// not block on delivery.
// StockListings drops cached listings that show stock levels.
type StockListings interface {
	InvalidateStockListings(ctx context.Context) error
}

type Notifier interface {
	OrderPlaced(ctx context.Context, msg OrderPlacedMsg) error
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}
