package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

func TestWriteSales(t *testing.T) {
	orderID := uint(9)
	bundleID := uint(3)
	sales := []*domain.SaleView{
		{
			ID:            42,
			CustomerName:  "Hana",
			CashierName:   "Nour Adel",
			Subtotal:      decimal.RequireFromString("35"),
			Discount:      decimal.RequireFromString("4.5"),
			Total:         decimal.RequireFromString("30.5"),
			PaymentMethod: "CASH",
			Channel:       domain.ChannelPOS,
			CreatedAt:     time.Date(2024, 3, 14, 9, 15, 0, 0, time.UTC),
			Items: []domain.SaleItemView{
				{ProductID: 1, ProductName: "Tea", Quantity: 2, UnitPrice: decimal.RequireFromString("10"), Total: decimal.RequireFromString("20")},
				{ProductID: 2, ProductName: "Cup", BundleID: &bundleID, Quantity: 2, UnitPrice: decimal.Zero, Total: decimal.Zero},
			},
		},
		{
			ID:                   43,
			ExternalCustomerName: "Salma H.",
			Subtotal:             decimal.RequireFromString("150"),
			Total:                decimal.RequireFromString("150"),
			PaymentMethod:        "CASH",
			Channel:              domain.ChannelOnline,
			SourceOrderID:        &orderID,
			CreatedAt:            time.Date(2024, 3, 14, 11, 40, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSales(&buf, sales))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{salesSheet, itemsSheet}, f.GetSheetList())

	rows, err := f.GetRows(salesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, salesHeadings, rows[0])
	assert.Equal(t, []string{"42", "2024-03-14 09:15:00", "POS", "Hana", "Nour Adel", "CASH", "35", "4.5", "30.5"}, rows[1])
	assert.Equal(t, "Salma H.", rows[2][3])
	assert.Equal(t, "ONLINE", rows[2][2])
	assert.Equal(t, "9", rows[2][9])

	items, err := f.GetRows(itemsSheet)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"42", "1", "Tea", "", "2", "10", "20"}, items[1])
	assert.Equal(t, "3", items[2][3])
}

func TestWriteSales_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSales(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(salesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
