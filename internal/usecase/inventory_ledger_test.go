package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gderossilive/devShopDemo/internal/entity"
	"github.com/gderossilive/devShopDemo/internal/usecase"
)

func TestInventoryLedger_Reserve(t *testing.T) {
	s := newStore(t)
	ledger := usecase.NewInventoryLedger(clock)
	pid := addProduct(t, s, "Widget", "1.00", 5, true)
	retired := addProduct(t, s, "Retired", "1.00", 5, false)

	reserve := func(id int64, qty int) error {
		return s.WithinTx(context.Background(), func(ctx context.Context, tx usecase.Tx) error {
			return ledger.Reserve(ctx, tx, id, qty)
		})
	}

	require.NoError(t, reserve(pid, 2))
	assert.Equal(t, 3, stock(t, s, pid))

	require.NoError(t, reserve(pid, 3))
	assert.Equal(t, 0, stock(t, s, pid))

	err := reserve(pid, 1)
	var se *entity.InsufficientStockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, pid, se.ProductID)
	assert.Equal(t, 1, se.Requested)
	assert.Equal(t, 0, se.Available)

	assert.ErrorIs(t, reserve(retired, 1), entity.ErrNotFound)
	assert.ErrorIs(t, reserve(9999, 1), entity.ErrNotFound)
	assert.ErrorIs(t, reserve(pid, 0), entity.ErrInvalidInput)
	assert.ErrorIs(t, reserve(0, 1), entity.ErrInvalidInput)
	assert.Equal(t, 5, stock(t, s, retired))
}
