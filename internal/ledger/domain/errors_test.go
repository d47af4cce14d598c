package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	stock := &StockError{Kind: ErrInsufficientStock, ProductID: 4, ProductName: "Milk", Requested: 3, Available: 1}
	wrapped := fmt.Errorf("checkout: %w", stock)

	assert.True(t, IsStockConflict(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))

	var target *StockError
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, uint(4), target.ProductID)
	assert.Equal(t, "ledger: insufficient stock: Milk (id 4) requested 3, available 1", stock.Error())

	inactive := &StockError{Kind: ErrInactiveProduct, ProductID: 2, ProductName: "Soap"}
	assert.Equal(t, "ledger: product is inactive: Soap (id 2)", inactive.Error())
	assert.True(t, IsStockConflict(inactive))

	assert.True(t, IsNotFound(ErrStaffNotFound))
	assert.True(t, errors.Is(ErrBundleNotFound, ErrNotFound))
	assert.True(t, IsStockConflict(ErrInvalidStatusTransition))
	assert.True(t, IsValidation(fmt.Errorf("%w: x", ErrInvalidInput)))
	assert.False(t, IsValidation(errors.New("boom")))
}
