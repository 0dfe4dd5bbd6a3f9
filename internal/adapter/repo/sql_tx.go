package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/gderossilive/devShopDemo/internal/entity"
	"github.com/gderossilive/devShopDemo/internal/usecase"
)

const productColumns = `product_id, product_name, category_id, unit_price, units_in_stock,
description, image_url, is_active, is_featured, created_date, modified_date`

const customerColumns = `customer_id, first_name, last_name, email, phone, address, city,
state, zip_code, country, is_active, created_date, modified_date`

type rowScanner interface {
	Scan(dest ...any) error
}

// sqlTx is the request-scoped transaction handle handed to the workflow.
type sqlTx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *sqlTx) lockClause(lock bool) string {
	if lock && t.dialect == DialectMySQL {
		return " FOR UPDATE"
	}
	return ""
}

func (t *sqlTx) ProductByID(ctx context.Context, id int64, lock bool) (*entity.Product, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE product_id = ?`+t.lockClause(lock), id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, classify("select product", err)
	}
	return p, nil
}

func (t *sqlTx) DecrementStock(ctx context.Context, id int64, qty int, now time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
UPDATE products
SET units_in_stock = units_in_stock - ?, modified_date = ?
WHERE product_id = ? AND is_active = 1 AND units_in_stock >= ?`,
		qty, now, id, qty)
	if err != nil {
		return false, classify("decrement stock", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, classify("decrement stock", err)
	}
	return rows == 1, nil
}

func (t *sqlTx) CustomerByEmail(ctx context.Context, email string, lock bool) (*entity.Customer, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE email = ?`+t.lockClause(lock), email)
	c, err := scanCustomer(row)
	if err != nil {
		return nil, classify("select customer", err)
	}
	return c, nil
}

func (t *sqlTx) InsertCustomer(ctx context.Context, c *entity.Customer) error {
	res, err := t.tx.ExecContext(ctx, `
INSERT INTO customers (first_name,last_name,email,phone,address,city,state,zip_code,country,is_active,created_date,modified_date)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.FirstName, c.LastName, c.Email, c.Phone, c.Address, c.City, c.State, c.ZipCode, c.Country,
		c.IsActive, c.CreatedAt, c.ModifiedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return usecase.ErrDuplicateKey
		}
		return classify("insert customer", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return classify("insert customer", err)
	}
	c.ID = id
	return nil
}

func (t *sqlTx) InsertOrder(ctx context.Context, o *entity.Order) error {
	res, err := t.tx.ExecContext(ctx, `
INSERT INTO orders (customer_id,order_date,total_amount,order_status,payment_status,
shipping_address,shipping_city,shipping_state,shipping_zip_code,created_date,modified_date)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		o.CustomerID, o.OrderDate, o.TotalAmount.StringFixed(2), string(o.Status), string(o.PaymentStatus),
		o.ShippingAddress, o.ShippingCity, o.ShippingState, o.ShippingZipCode, o.CreatedAt, o.ModifiedAt)
	if err != nil {
		return classify("insert order", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return classify("insert order", err)
	}
	o.ID = id
	return nil
}

func (t *sqlTx) InsertOrderDetail(ctx context.Context, d *entity.OrderDetail) error {
	res, err := t.tx.ExecContext(ctx, `
INSERT INTO order_details (order_id,product_id,quantity,unit_price,discount,line_total,created_date)
VALUES (?,?,?,?,?,?,?)`,
		d.OrderID, d.ProductID, d.Quantity, d.UnitPrice.StringFixed(2), d.Discount.StringFixed(2),
		d.LineTotal.StringFixed(2), d.CreatedAt)
	if err != nil {
		return classify("insert order detail", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return classify("insert order detail", err)
	}
	d.ID = id
	return nil
}

var _ usecase.Tx = (*sqlTx)(nil)

func scanProduct(row rowScanner) (*entity.Product, error) {
	var p entity.Product
	if err := row.Scan(&p.ID, &p.Name, &p.CategoryID, &p.UnitPrice, &p.UnitsInStock,
		&p.Description, &p.ImageURL, &p.IsActive, &p.IsFeatured, &p.CreatedAt, &p.ModifiedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanCustomer(row rowScanner) (*entity.Customer, error) {
	var c entity.Customer
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Address, &c.City,
		&c.State, &c.ZipCode, &c.Country, &c.IsActive, &c.CreatedAt, &c.ModifiedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
