package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is deactivated, never deleted.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	ModifiedAt  time.Time `json:"modifiedAt"`
}

type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	CategoryID   int64           `json:"categoryId"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	UnitsInStock int             `json:"unitsInStock"`
	Description  string          `json:"description,omitempty"`
	ImageURL     string          `json:"imageUrl,omitempty"`
	IsActive     bool            `json:"isActive"`
	IsFeatured   bool            `json:"isFeatured"`
	CreatedAt    time.Time       `json:"createdAt"`
	ModifiedAt   time.Time       `json:"modifiedAt"`
}

// Purchasable reports whether the product can take part in a purchase at all,
// regardless of the stock level.
func (p *Product) Purchasable() bool {
	return p != nil && p.IsActive
}
