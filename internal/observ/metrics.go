package observ

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gderossilive/devShopDemo/internal/entity"
)

var (
	purchases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_purchases_total",
			Help: "Purchase attempts by outcome",
		},
		[]string{"outcome"},
	)

	purchaseAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shop_purchase_tx_attempts",
			Help:    "Transaction attempts needed per purchase",
			Buckets: []float64{1, 2, 3, 5, 8},
		},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_notifications_total",
			Help: "Order notifications by outcome",
		},
		[]string{"outcome"},
	)

	catalogCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_catalog_cache_total",
			Help: "Catalog cache lookups by result",
		},
		[]string{"result"},
	)
)

// Notification outcomes.
const (
	NotifySent    = "sent"
	NotifyFailed  = "failed"
	NotifyDropped = "dropped"
	NotifyPanic   = "panic"
)

// PurchaseOutcome maps a workflow result onto a low-cardinality label.
func PurchaseOutcome(err error) string {
	switch {
	case err == nil:
		return "committed"
	case errors.Is(err, entity.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, entity.ErrNotFound):
		return "not_found"
	case errors.Is(err, entity.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, entity.ErrTransactionConflict):
		return "conflict"
	case errors.Is(err, entity.ErrPersistence):
		return "persistence"
	default:
		return "other"
	}
}

func ObservePurchase(err error, attempts int) {
	purchases.WithLabelValues(PurchaseOutcome(err)).Inc()
	if attempts > 0 {
		purchaseAttempts.Observe(float64(attempts))
	}
}

func ObserveNotification(outcome string) {
	notifications.WithLabelValues(outcome).Inc()
}

func ObserveCatalogCache(hit bool) {
	if hit {
		catalogCache.WithLabelValues("hit").Inc()
		return
	}
	catalogCache.WithLabelValues("miss").Inc()
}
