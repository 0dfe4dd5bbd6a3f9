package repo

import (
	"context"
	"database/sql"

	"github.com/gderossilive/devShopDemo/internal/entity"
)

// SQLOrderRepo reads committed orders. Orders are never updated after the
// purchase transaction writes them.
type SQLOrderRepo struct{ db *sql.DB }

func NewSQLOrderRepo(db *sql.DB) *SQLOrderRepo { return &SQLOrderRepo{db: db} }

func (r *SQLOrderRepo) GetByID(ctx context.Context, id int64) (*entity.Order, []entity.OrderDetail, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT order_id,customer_id,order_date,total_amount,order_status,payment_status,
shipping_address,shipping_city,shipping_state,shipping_zip_code,created_date,modified_date
FROM orders WHERE order_id=?`, id)

	var (
		o                     entity.Order
		status, paymentStatus string
	)
	if err := row.Scan(&o.ID, &o.CustomerID, &o.OrderDate, &o.TotalAmount, &status, &paymentStatus,
		&o.ShippingAddress, &o.ShippingCity, &o.ShippingState, &o.ShippingZipCode, &o.CreatedAt, &o.ModifiedAt); err != nil {
		return nil, nil, classify("get order", err)
	}
	o.Status = entity.OrderStatus(status)
	o.PaymentStatus = entity.PaymentStatus(paymentStatus)

	rows, err := r.db.QueryContext(ctx, `
SELECT order_detail_id,order_id,product_id,quantity,unit_price,discount,line_total,created_date
FROM order_details WHERE order_id=? ORDER BY order_detail_id`, id)
	if err != nil {
		return nil, nil, classify("get order details", err)
	}
	defer rows.Close()

	var lines []entity.OrderDetail
	for rows.Next() {
		var d entity.OrderDetail
		if err := rows.Scan(&d.ID, &d.OrderID, &d.ProductID, &d.Quantity, &d.UnitPrice, &d.Discount,
			&d.LineTotal, &d.CreatedAt); err != nil {
			return nil, nil, classify("scan order detail", err)
		}
		lines = append(lines, d)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, classify("get order details", err)
	}
	return &o, lines, nil
}

func (r *SQLOrderRepo) CountByCustomerEmail(ctx context.Context, email string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM orders o JOIN customers c ON c.customer_id = o.customer_id
WHERE c.email = ?`, email).Scan(&n)
	if err != nil {
		return 0, classify("count orders", err)
	}
	return n, nil
}
