package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/retail-ledger/internal/ledger/domain"
	"github.com/tair/retail-ledger/internal/ledger/inventory"
	"github.com/tair/retail-ledger/internal/ledger/ledgertest"
	"github.com/tair/retail-ledger/internal/ledger/repository/memory"
)

func TestDeduct(t *testing.T) {
	uow := memory.New()
	clock := ledgertest.NewClock(time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC))
	product := ledgertest.Product(t, uow, domain.Product{Name: "Beans", CurrentStock: 4})
	inactive := ledgertest.Product(t, uow, domain.Product{Name: "Retired", CurrentStock: 4, Status: domain.ProductStatusInactive})
	ctx := context.Background()

	err := uow.Do(ctx, func(repos domain.Repositories) error {
		store := inventory.NewStore(repos, clock)

		updated, err := store.Deduct(ctx, product.ID, 3, domain.StockChangeSale, "POS sale")
		require.NoError(t, err)
		assert.Equal(t, 1, updated.CurrentStock)

		_, err = store.Deduct(ctx, product.ID, 2, domain.StockChangeSale, "POS sale")
		var stockErr *domain.StockError
		require.True(t, errors.As(err, &stockErr))
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		assert.Equal(t, 1, stockErr.Available)

		_, err = store.Deduct(ctx, inactive.ID, 1, domain.StockChangeSale, "POS sale")
		assert.ErrorIs(t, err, domain.ErrInactiveProduct)

		_, err = store.Deduct(ctx, 404, 1, domain.StockChangeSale, "POS sale")
		assert.ErrorIs(t, err, domain.ErrProductNotFound)

		_, err = store.Deduct(ctx, product.ID, 0, domain.StockChangeSale, "POS sale")
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
		return nil
	})
	require.NoError(t, err)

	logs := ledgertest.Logs(t, uow, product.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, -3, logs[0].QuantityChange)
	assert.Equal(t, clock.Now(), logs[0].CreatedAt)
	assert.Empty(t, ledgertest.Logs(t, uow, inactive.ID))
}

func TestAdjust(t *testing.T) {
	uow := memory.New()
	product := ledgertest.Product(t, uow, domain.Product{Name: "Beans", CurrentStock: 4, Status: domain.ProductStatusInactive})
	ctx := context.Background()

	err := uow.Do(ctx, func(repos domain.Repositories) error {
		store := inventory.NewStore(repos, nil)

		updated, err := store.Adjust(ctx, product.ID, 6, "", "delivery")
		require.NoError(t, err)
		assert.Equal(t, 10, updated.CurrentStock, "inactive products can still be restocked")

		_, err = store.Adjust(ctx, product.ID, -11, domain.StockChangeWaste, "spoiled")
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)

		updated, err = store.Adjust(ctx, product.ID, -10, "", "count")
		require.NoError(t, err)
		assert.Equal(t, 0, updated.CurrentStock)
		return nil
	})
	require.NoError(t, err)

	logs := ledgertest.Logs(t, uow, product.ID)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.StockChangeAdjustment, logs[0].Type)
	assert.Equal(t, domain.StockChangeRestock, logs[1].Type)
}
