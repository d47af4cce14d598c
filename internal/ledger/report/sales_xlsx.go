// Package report renders ledger data into spreadsheet exports.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

const (
	salesSheet = "Sales"
	itemsSheet = "Items"

	// ContentType is the MIME type of an XLSX workbook
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	salesHeadings = []string{"Sale ID", "Date", "Channel", "Customer", "Cashier", "Payment", "Subtotal", "Discount", "Total", "Order ID"}
	itemsHeadings = []string{"Sale ID", "Product ID", "Product", "Bundle ID", "Quantity", "Unit Price", "Line Total"}
)

// WriteSales writes one row per sale and one row per sale item as an XLSX workbook
func WriteSales(w io.Writer, sales []*domain.SaleView) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", salesSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return err
	}
	if err := writeRow(f, salesSheet, 1, toCells(salesHeadings)); err != nil {
		return err
	}
	if err := writeRow(f, itemsSheet, 1, toCells(itemsHeadings)); err != nil {
		return err
	}

	itemRow := 2
	for i, sale := range sales {
		customer := sale.CustomerName
		if customer == "" {
			customer = sale.ExternalCustomerName
		}
		var orderID interface{}
		if sale.SourceOrderID != nil {
			orderID = *sale.SourceOrderID
		}

		row := []interface{}{
			sale.ID,
			sale.CreatedAt.Format("2006-01-02 15:04:05"),
			string(sale.Channel),
			customer,
			sale.CashierName,
			sale.PaymentMethod,
			sale.Subtotal.InexactFloat64(),
			sale.Discount.InexactFloat64(),
			sale.Total.InexactFloat64(),
			orderID,
		}
		if err := writeRow(f, salesSheet, i+2, row); err != nil {
			return err
		}

		for _, item := range sale.Items {
			var bundleID interface{}
			if item.BundleID != nil {
				bundleID = *item.BundleID
			}
			line := []interface{}{
				sale.ID,
				item.ProductID,
				item.ProductName,
				bundleID,
				item.Quantity,
				item.UnitPrice.InexactFloat64(),
				item.Total.InexactFloat64(),
			}
			if err := writeRow(f, itemsSheet, itemRow, line); err != nil {
				return err
			}
			itemRow++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toCells(headings []string) []interface{} {
	out := make([]interface{}, len(headings))
	for i, h := range headings {
		out[i] = h
	}
	return out
}
