package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusCompleted OrderStatus = "Completed"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
	PaymentStatusFailed  PaymentStatus = "Failed"
)

// Order is immutable once persisted.
type Order struct {
	ID            int64
	CustomerID    int64
	OrderDate     time.Time
	TotalAmount   decimal.Decimal
	Status        OrderStatus
	PaymentStatus PaymentStatus

	ShippingAddress string
	ShippingCity    string
	ShippingState   string
	ShippingZipCode string

	CreatedAt  time.Time
	ModifiedAt time.Time
}

type OrderDetail struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	// UnitPrice is the product price at purchase time, never a live reference.
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
	LineTotal decimal.Decimal
	CreatedAt time.Time
}

// LineTotal computes unitPrice * quantity * (1 - discount), rounded to cents.
func LineTotal(unitPrice decimal.Decimal, quantity int, discount decimal.Decimal) decimal.Decimal {
	gross := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	return gross.Mul(decimal.NewFromInt(1).Sub(discount)).Round(2)
}

// NewOrderLine builds the single order line for a purchase of quantity units of p.
func NewOrderLine(p *Product, quantity int, now time.Time) *OrderDetail {
	d := &OrderDetail{
		ProductID: p.ID,
		Quantity:  quantity,
		UnitPrice: p.UnitPrice,
		Discount:  decimal.Zero,
		CreatedAt: now,
	}
	d.LineTotal = LineTotal(d.UnitPrice, d.Quantity, d.Discount)
	return d
}

// NewCompletedOrder returns an order whose total is the sum of its lines.
// Payment is asserted as paid: no payment processor is consulted.
func NewCompletedOrder(customerID int64, lines []*OrderDetail, now time.Time) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrInvalidInput
	}
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal)
	}
	return &Order{
		CustomerID:    customerID,
		OrderDate:     now,
		TotalAmount:   total,
		Status:        OrderStatusCompleted,
		PaymentStatus: PaymentStatusPaid,
		CreatedAt:     now,
		ModifiedAt:    now,
	}, nil
}

func (d *OrderDetail) Validate() error {
	if d.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if d.UnitPrice.IsNegative() || d.Discount.IsNegative() || d.Discount.GreaterThan(decimal.NewFromInt(1)) {
		return ErrInvalidAmount
	}
	return nil
}
