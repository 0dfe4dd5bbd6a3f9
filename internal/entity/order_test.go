package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineTotal(t *testing.T) {
	cases := []struct {
		name     string
		price    string
		qty      int
		discount string
		want     string
	}{
		{"no discount", "19.99", 2, "0", "39.98"},
		{"single unit", "0.01", 1, "0", "0.01"},
		{"ten percent", "19.99", 3, "0.10", "53.97"},
		{"rounds half up", "0.05", 1, "0.50", "0.03"},
		{"free", "5.00", 4, "1", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := LineTotal(decimal.RequireFromString(tc.price), tc.qty, decimal.RequireFromString(tc.discount))
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestNewCompletedOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := &Product{ID: 1, Name: "Keyboard", UnitPrice: decimal.RequireFromString("19.99"), IsActive: true}

	line := NewOrderLine(p, 2, now)
	require.NoError(t, line.Validate())

	o, err := NewCompletedOrder(7, []*OrderDetail{line}, now)
	require.NoError(t, err)

	assert.Equal(t, int64(7), o.CustomerID)
	assert.Equal(t, OrderStatusCompleted, o.Status)
	assert.Equal(t, PaymentStatusPaid, o.PaymentStatus)
	assert.Equal(t, "39.98", o.TotalAmount.StringFixed(2))
	assert.Equal(t, "19.99", line.UnitPrice.StringFixed(2))
	assert.True(t, line.Discount.IsZero())
	assert.Equal(t, now, o.OrderDate)
}

func TestOrderLineSnapshotsPrice(t *testing.T) {
	p := &Product{ID: 1, UnitPrice: decimal.RequireFromString("19.99")}
	line := NewOrderLine(p, 1, time.Now())

	p.UnitPrice = decimal.RequireFromString("25.00")

	assert.Equal(t, "19.99", line.UnitPrice.StringFixed(2))
}

func TestNewCompletedOrder_NoLines(t *testing.T) {
	_, err := NewCompletedOrder(1, nil, time.Now())
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestOrderDetailValidate(t *testing.T) {
	d := &OrderDetail{Quantity: 0, UnitPrice: decimal.NewFromInt(1)}
	assert.ErrorIs(t, d.Validate(), ErrInvalidQuantity)

	d = &OrderDetail{Quantity: 1, UnitPrice: decimal.NewFromInt(-1)}
	assert.ErrorIs(t, d.Validate(), ErrInvalidInput)

	d = &OrderDetail{Quantity: 1, UnitPrice: decimal.NewFromInt(1), Discount: decimal.RequireFromString("1.5")}
	assert.ErrorIs(t, d.Validate(), ErrInvalidAmount)
}

func TestInsufficientStockError(t *testing.T) {
	var err error = &InsufficientStockError{ProductID: 1, Requested: 2, Available: 0}

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.False(t, Retryable(err))
	assert.Contains(t, err.Error(), "requested 2, available 0")

	var ise *InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, 0, ise.Available)
}
