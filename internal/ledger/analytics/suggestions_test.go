package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

func TestUnitsSold(t *testing.T) {
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sales := []domain.Sale{
		{CreatedAt: since.Add(-time.Second), Items: []domain.SaleItem{{ProductID: 1, Quantity: 9}}},
		{CreatedAt: since, Items: []domain.SaleItem{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}}},
		{CreatedAt: since.AddDate(0, 0, 3), Items: []domain.SaleItem{{ProductID: 1, Quantity: 3}}},
	}

	assert.Equal(t, map[uint]int{1: 5, 2: 1}, UnitsSold(sales, since))
}

func TestSuggestReorders(t *testing.T) {
	products := []domain.Product{
		{ID: 1, Name: "Fast", CurrentStock: 5, MinStock: 2},
		{ID: 2, Name: "Watch", CurrentStock: 9, MinStock: 2},
		{ID: 3, Name: "Plenty", CurrentStock: 50, MinStock: 2},
		{ID: 4, Name: "Idle low", CurrentStock: 2, MinStock: 5, Unit: "kg"},
		{ID: 5, Name: "Idle fine", CurrentStock: 20, MinStock: 5},
	}
	sold := map[uint]int{1: 30, 2: 30, 3: 30}

	got := SuggestReorders(products, sold)
	require.Len(t, got, 3)

	assert.Equal(t, uint(1), got[0].ProductID)
	assert.Equal(t, 1.0, got[0].DailyVelocity)
	require.NotNil(t, got[0].DaysUntilOut)
	assert.Equal(t, 5.0, *got[0].DaysUntilOut)
	assert.Equal(t, 14, got[0].SuggestedQuantity)

	assert.Equal(t, uint(2), got[1].ProductID)
	assert.Equal(t, 9.0, *got[1].DaysUntilOut)
	assert.Zero(t, got[1].SuggestedQuantity)

	assert.Equal(t, uint(4), got[2].ProductID)
	assert.Nil(t, got[2].DaysUntilOut)
	assert.Equal(t, 10, got[2].SuggestedQuantity)
	assert.Equal(t, "kg", got[2].Unit)
}

func TestSuggestReorders_Empty(t *testing.T) {
	got := SuggestReorders(nil, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSuggestPrices(t *testing.T) {
	now := time.Date(2024, 3, 14, 22, 0, 0, 0, time.UTC)
	soon := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	later := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)

	products := []domain.Product{
		{ID: 1, Name: "Yoghurt", SellingPrice: d("10"), CurrentStock: 4, MinStock: 5, ExpiryDate: &soon, Status: domain.ProductStatusActive},
		{ID: 2, Name: "Bread", SellingPrice: d("3.25"), CurrentStock: 20, MinStock: 5, Status: domain.ProductStatusActive},
		{ID: 3, Name: "Tea", SellingPrice: d("8"), CurrentStock: 20, MinStock: 5, Status: domain.ProductStatusActive},
		{ID: 4, Name: "Retired", SellingPrice: d("8"), CurrentStock: 20, MinStock: 5, Status: domain.ProductStatusInactive},
		{ID: 5, Name: "Jam", SellingPrice: d("12"), CurrentStock: 10, MinStock: 5, ExpiryDate: &later, Status: domain.ProductStatusActive},
		{ID: 6, Name: "Empty", SellingPrice: d("5"), CurrentStock: 0, MinStock: 5, ExpiryDate: &soon, Status: domain.ProductStatusActive},
	}
	sold := map[uint]int{3: 3}

	got := SuggestPrices(now, products, sold)
	require.Len(t, got, 3)

	assert.Equal(t, uint(1), got[0].ProductID)
	assert.Equal(t, ReasonExpiringSoon, got[0].Reason)
	assertMoney(t, "7.50", got[0].SuggestedPrice)
	require.NotNil(t, got[0].DaysToExpiry)
	assert.Equal(t, 6, *got[0].DaysToExpiry)

	assert.Equal(t, uint(2), got[1].ProductID)
	assert.Equal(t, ReasonSlowMoving, got[1].Reason)
	assertMoney(t, "2.93", got[1].SuggestedPrice)
	assert.Nil(t, got[1].DaysToExpiry)

	assert.Equal(t, uint(5), got[2].ProductID)
	assert.Equal(t, ReasonSlowMoving, got[2].Reason)
	assertMoney(t, "10.80", got[2].SuggestedPrice)
}

func TestStockAuditReport(t *testing.T) {
	products := []domain.Product{
		{ID: 1, Name: "Tea"},
		{ID: 2, Name: "Milk"},
		{ID: 3, Name: "Glassware"},
		{ID: 4, Name: "Unmoved"},
	}
	logs := []domain.StockLog{
		{ProductID: 1, QuantityChange: -98, Type: domain.StockChangeSale},
		{ProductID: 1, QuantityChange: -2, Type: domain.StockChangeWaste},

		{ProductID: 2, QuantityChange: -40, Type: domain.StockChangeSaleBundle},
		{ProductID: 2, QuantityChange: -50, Type: domain.StockChangeOnlineOrder},
		{ProductID: 2, QuantityChange: -5, Type: domain.StockChangeWaste},
		{ProductID: 2, QuantityChange: -5, Type: domain.StockChangeAdjustment},
		{ProductID: 2, QuantityChange: 3, Type: domain.StockChangeAdjustment},
		{ProductID: 2, QuantityChange: 100, Type: domain.StockChangeRestock},

		{ProductID: 3, QuantityChange: -1, Type: domain.StockChangeWaste},
		{ProductID: 4, QuantityChange: 10, Type: domain.StockChangeRestock},
	}

	got := StockAuditReport(products, logs)
	require.Len(t, got, 2)

	assert.Equal(t, uint(3), got[0].ProductID)
	assert.Equal(t, 100.0, got[0].LossRate)

	assert.Equal(t, uint(2), got[1].ProductID)
	assert.Equal(t, 90, got[1].TotalSold)
	assert.Equal(t, 10, got[1].TotalManualLoss)
	assert.Equal(t, 10.0, got[1].LossRate)
}

func TestReconcile(t *testing.T) {
	products := []domain.Product{
		{ID: 1, Name: "Balanced", InitialStock: 10, CurrentStock: 7},
		{ID: 2, Name: "Drifted", InitialStock: 5, CurrentStock: 9},
		{ID: 3, Name: "Untouched", InitialStock: 4, CurrentStock: 4},
	}

	got := Reconcile(products, map[uint]int{1: -3, 2: 2})
	require.Len(t, got, 1)
	assert.Equal(t, Discrepancy{
		ProductID:    2,
		ProductName:  "Drifted",
		InitialStock: 5,
		LoggedDelta:  2,
		Expected:     7,
		CurrentStock: 9,
	}, got[0])
}
