package repo

import (
	"context"
	"database/sql"

	"github.com/gderossilive/devShopDemo/internal/entity"
	"github.com/gderossilive/devShopDemo/internal/usecase"
)

type SQLCatalogRepo struct{ db *sql.DB }

func NewSQLCatalogRepo(db *sql.DB) *SQLCatalogRepo { return &SQLCatalogRepo{db: db} }

func (r *SQLCatalogRepo) ListFeaturedActive(ctx context.Context, limit int) ([]entity.Product, error) {
	return r.queryProducts(ctx, `
SELECT `+productColumns+`
FROM products WHERE is_active = 1 AND is_featured = 1
ORDER BY created_date DESC, product_id DESC
LIMIT ?`, limit)
}

func (r *SQLCatalogRepo) ListActiveByCategory(ctx context.Context, categoryID *int64) ([]entity.Product, error) {
	if categoryID == nil {
		return r.queryProducts(ctx, `
SELECT `+productColumns+`
FROM products WHERE is_active = 1
ORDER BY product_name ASC`)
	}
	return r.queryProducts(ctx, `
SELECT `+productColumns+`
FROM products WHERE is_active = 1 AND category_id = ?
ORDER BY product_name ASC`, *categoryID)
}

func (r *SQLCatalogRepo) ListActiveCategories(ctx context.Context) ([]entity.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT category_id, category_name, description, image_url, is_active, created_date, modified_date
FROM categories WHERE is_active = 1
ORDER BY category_name ASC`)
	if err != nil {
		return nil, classify("list categories", err)
	}
	defer rows.Close()

	out := []entity.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, classify("scan category", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list categories", err)
	}
	return out, nil
}

// GetProduct returns the product whether or not it is active; only a missing
// row is entity.ErrNotFound.
func (r *SQLCatalogRepo) GetProduct(ctx context.Context, id int64) (*entity.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE product_id = ?`, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, classify("get product", err)
	}
	return p, nil
}

func (r *SQLCatalogRepo) GetCategory(ctx context.Context, id int64) (*entity.Category, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT category_id, category_name, description, image_url, is_active, created_date, modified_date
FROM categories WHERE category_id = ?`, id)
	c, err := scanCategory(row)
	if err != nil {
		return nil, classify("get category", err)
	}
	return c, nil
}

func (r *SQLCatalogRepo) queryProducts(ctx context.Context, query string, args ...any) ([]entity.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list products", err)
	}
	defer rows.Close()

	out := []entity.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, classify("scan product", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list products", err)
	}
	return out, nil
}

func scanCategory(row rowScanner) (*entity.Category, error) {
	var c entity.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.ImageURL, &c.IsActive, &c.CreatedAt, &c.ModifiedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

var _ usecase.CatalogRepo = (*SQLCatalogRepo)(nil)
