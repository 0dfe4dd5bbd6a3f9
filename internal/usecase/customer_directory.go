package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gderossilive/devShopDemo/internal/entity"
)

// CustomerDirectory resolves customers by email. Existing records are returned
// as-is; contact fields are never merged.
type CustomerDirectory struct {
	now func() time.Time
}

func NewCustomerDirectory(now func() time.Time) *CustomerDirectory {
	if now == nil {
		now = time.Now
	}
	return &CustomerDirectory{now: now}
}

// ResolveOrCreate returns the customer for email, creating a guest record in tx
// when none exists. A duplicate-key error on insert means a concurrent request
// created the row first; that row is re-read and returned.
func (d *CustomerDirectory) ResolveOrCreate(ctx context.Context, tx Tx, email, firstName, lastName string) (*entity.Customer, error) {
	canon, err := entity.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	c, err := tx.CustomerByEmail(ctx, canon, false)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, entity.ErrNotFound) {
		return nil, err
	}

	c = entity.NewGuestCustomer(canon, firstName, lastName, d.now())
	if err := c.Validate(); err != nil {
		return nil, err
	}

	err = tx.InsertCustomer(ctx, c)
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, ErrDuplicateKey):
		existing, rerr := tx.CustomerByEmail(ctx, canon, true)
		if rerr != nil {
			return nil, fmt.Errorf("re-read customer after duplicate: %w", rerr)
		}
		return existing, nil
	default:
		return nil, err
	}
}
