package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gderossilive/devShopDemo/internal/entity"
	"github.com/gderossilive/devShopDemo/internal/logging"
	"github.com/gderossilive/devShopDemo/internal/observ"
)

var ErrDuplicateRequest = errors.New("duplicate purchase request in flight")

type PurchaseInput struct {
	ProductID      int64
	CustomerEmail  string
	Quantity       int
	IdempotencyKey string
}

type OrderConfirmation struct {
	OrderID       int64           `json:"orderId"`
	CustomerEmail string          `json:"customerEmail"`
	ProductName   string          `json:"productName"`
	Quantity      int             `json:"quantity"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	OrderDate     time.Time       `json:"orderDate"`
}

type PurchaseConfig struct {
	TxTimeout    time.Duration // per attempt
	MaxAttempts  int           // conflict retries included
	RetryBackoff time.Duration // first retry delay
}

func (c PurchaseConfig) withDefaults() PurchaseConfig {
	if c.TxTimeout <= 0 {
		c.TxTimeout = 5 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 50 * time.Millisecond
	}
	return c
}

type PurchaseOption func(*Purchase)

func WithClock(now func() time.Time) PurchaseOption {
	return func(p *Purchase) { p.now = now }
}

// WithStockListings evicts cached listings after each committed purchase.
func WithStockListings(l StockListings) PurchaseOption {
	return func(p *Purchase) { p.listings = l }
}

// Purchase turns one buy request into a committed order. Customer resolution,
// stock reservation and the order rows share a single transaction; the
// notification runs after commit and can never undo it.
type Purchase struct {
	store     TxRunner
	customers *CustomerDirectory
	ledger    *InventoryLedger
	notifier  Notifier
	idem      IdempotencyStore
	listings  StockListings
	cfg       PurchaseConfig
	now       func() time.Time
}

func NewPurchase(store TxRunner, notifier Notifier, idem IdempotencyStore, cfg PurchaseConfig, opts ...PurchaseOption) *Purchase {
	uc := &Purchase{
		store:    store,
		notifier: notifier,
		idem:     idem,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	uc.customers = NewCustomerDirectory(uc.now)
	uc.ledger = NewInventoryLedger(uc.now)
	return uc
}

func (uc *Purchase) Execute(ctx context.Context, in PurchaseInput) (OrderConfirmation, error) {
	ctx, span := observ.Tracer().Start(ctx, "purchase.execute", trace.WithAttributes(
		attribute.Int64("product.id", in.ProductID),
		attribute.Int("quantity", in.Quantity),
	))
	defer span.End()

	conf, attempts, err := uc.execute(ctx, in)
	observ.ObservePurchase(err, attempts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, observ.PurchaseOutcome(err))
		return OrderConfirmation{}, err
	}
	span.SetAttributes(attribute.Int64("order.id", conf.OrderID))
	return conf, nil
}

func (uc *Purchase) execute(ctx context.Context, in PurchaseInput) (OrderConfirmation, int, error) {
	if in.ProductID <= 0 {
		return OrderConfirmation{}, 0, entity.ErrInvalidProduct
	}
	if in.Quantity <= 0 {
		return OrderConfirmation{}, 0, entity.ErrInvalidQuantity
	}
	email, err := entity.NormalizeEmail(in.CustomerEmail)
	if err != nil {
		return OrderConfirmation{}, 0, err
	}
	log := logging.FromCtx(ctx).With("product_id", in.ProductID, "quantity", in.Quantity)

	key := in.IdempotencyKey
	if key != "" && uc.idem != nil {
		if conf, ok := uc.recall(ctx, email, key); ok {
			log.Info("purchase replayed from idempotency store", "order_id", conf.OrderID)
			return conf, 0, nil
		}
		locked, err := uc.idem.TryLock(ctx, email, key)
		switch {
		case err != nil:
			// Redis down: carry on without replay protection.
			log.Warn("idempotency lock unavailable", "err", err)
			key = ""
		case !locked:
			if conf, ok := uc.recall(ctx, email, key); ok {
				return conf, 0, nil
			}
			return OrderConfirmation{}, 0, ErrDuplicateRequest
		}
	} else {
		key = ""
	}

	conf, msg, attempts, err := uc.commitWithRetry(ctx, in, email)
	if err != nil {
		if key != "" {
			if rerr := uc.idem.Release(context.WithoutCancel(ctx), email, key); rerr != nil {
				log.Warn("idempotency release failed", "err", rerr)
			}
		}
		return OrderConfirmation{}, attempts, err
	}
	log.Info("purchase committed", "order_id", conf.OrderID, "total", conf.TotalAmount.StringFixed(2))

	if key != "" {
		if b, err := json.Marshal(conf); err == nil {
			if err := uc.idem.Remember(context.WithoutCancel(ctx), email, key, string(b)); err != nil {
				log.Warn("idempotency remember failed", "order_id", conf.OrderID, "err", err)
			}
		}
	}

	if uc.listings != nil {
		if err := uc.listings.InvalidateStockListings(context.WithoutCancel(ctx)); err != nil {
			log.Warn("stock listing eviction failed", "order_id", conf.OrderID, "err", err)
		}
	}

	uc.notify(ctx, msg)
	return conf, attempts, nil
}

func (uc *Purchase) recall(ctx context.Context, scope, key string) (OrderConfirmation, bool) {
	raw, ok, err := uc.idem.Recall(ctx, scope, key)
	if err != nil || !ok {
		return OrderConfirmation{}, false
	}
	var conf OrderConfirmation
	if err := json.Unmarshal([]byte(raw), &conf); err != nil {
		return OrderConfirmation{}, false
	}
	return conf, true
}

// commitWithRetry reruns the whole transaction when the store reports a
// conflict. Any other failure is final. A rerun that finds the stock gone
// surfaces as insufficient stock.
func (uc *Purchase) commitWithRetry(ctx context.Context, in PurchaseInput, email string) (OrderConfirmation, OrderPlacedMsg, int, error) {
	var (
		conf OrderConfirmation
		msg  OrderPlacedMsg
	)
	attempt := 0
	op := func() error {
		attempt++
		var err error
		conf, msg, err = uc.commitOnce(ctx, in, email)
		if err == nil {
			return nil
		}
		if errors.Is(err, entity.ErrTransactionConflict) {
			logging.FromCtx(ctx).Warn("purchase transaction conflict", "attempt", attempt, "err", err)
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = uc.cfg.RetryBackoff
	b.MaxInterval = 10 * uc.cfg.RetryBackoff
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(uc.cfg.MaxAttempts-1)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		switch {
		case errors.Is(err, entity.ErrTransactionConflict):
			err = fmt.Errorf("%w: gave up after %d attempts: %w", entity.ErrPersistence, attempt, err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			if !errors.Is(err, entity.ErrPersistence) {
				err = fmt.Errorf("%w: %w", entity.ErrPersistence, err)
			}
		}
		return OrderConfirmation{}, OrderPlacedMsg{}, attempt, err
	}
	return conf, msg, attempt, nil
}

func (uc *Purchase) commitOnce(ctx context.Context, in PurchaseInput, email string) (OrderConfirmation, OrderPlacedMsg, error) {
	txCtx, cancel := context.WithTimeout(ctx, uc.cfg.TxTimeout)
	defer cancel()

	var (
		conf OrderConfirmation
		msg  OrderPlacedMsg
	)
	err := uc.store.WithinTx(txCtx, func(ctx context.Context, tx Tx) error {
		product, err := tx.ProductByID(ctx, in.ProductID, true)
		if err != nil {
			return err
		}
		if !product.Purchasable() {
			return entity.ErrNotFound
		}

		customer, err := uc.customers.ResolveOrCreate(ctx, tx, email, entity.DefaultGuestFirstName, entity.DefaultGuestLastName)
		if err != nil {
			return err
		}

		if err := uc.ledger.Reserve(ctx, tx, product.ID, in.Quantity); err != nil {
			return err
		}

		now := uc.now()
		line := entity.NewOrderLine(product, in.Quantity, now)
		if err := line.Validate(); err != nil {
			return err
		}
		order, err := entity.NewCompletedOrder(customer.ID, []*entity.OrderDetail{line}, now)
		if err != nil {
			return err
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		line.OrderID = order.ID
		if err := tx.InsertOrderDetail(ctx, line); err != nil {
			return err
		}

		conf = OrderConfirmation{
			OrderID:       order.ID,
			CustomerEmail: customer.Email,
			ProductName:   product.Name,
			Quantity:      line.Quantity,
			TotalAmount:   order.TotalAmount,
			OrderDate:     order.OrderDate,
		}
		msg = OrderPlacedMsg{
			OrderID:           order.ID,
			CustomerEmail:     customer.Email,
			CustomerFirstName: customer.FirstName,
			CustomerLastName:  customer.LastName,
			ProductID:         product.ID,
			ProductName:       product.Name,
			Quantity:          line.Quantity,
			TotalAmount:       order.TotalAmount.StringFixed(2),
			OrderDate:         order.OrderDate,
		}
		return nil
	})
	return conf, msg, err
}

// notify is best-effort: errors and panics from the notifier are logged only.
func (uc *Purchase) notify(ctx context.Context, msg OrderPlacedMsg) {
	if uc.notifier == nil {
		return
	}
	log := logging.FromCtx(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.Error("order notifier panicked", "order_id", msg.OrderID, "panic", r)
		}
	}()
	if err := uc.notifier.OrderPlaced(context.WithoutCancel(ctx), msg); err != nil {
		log.Warn("order notification not dispatched", "order_id", msg.OrderID,
			"err", fmt.Errorf("%w: %w", entity.ErrNotification, err))
	}
}
