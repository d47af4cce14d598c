package analytics

import (
	"math"
	"sort"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

// LossRateThreshold is the loss rate, in percent, above which a product is reported
const LossRateThreshold = 2.0

// LossReport compares units sold against units written off for one product
type LossReport struct {
	ProductID       uint    `json:"product_id"`
	ProductName     string  `json:"product_name"`
	TotalSold       int     `json:"total_sold"`
	TotalManualLoss int     `json:"total_manual_loss"`
	LossRate        float64 `json:"loss_rate"`
}

// Discrepancy is a product whose stock disagrees with its audit trail
type Discrepancy struct {
	ProductID    uint   `json:"product_id"`
	ProductName  string `json:"product_name"`
	InitialStock int    `json:"initial_stock"`
	LoggedDelta  int    `json:"logged_delta"`
	Expected     int    `json:"expected"`
	CurrentStock int    `json:"current_stock"`
}

// StockAuditReport lists products losing more than LossRateThreshold percent
// of outbound units to waste or negative adjustments, worst first.
func StockAuditReport(products []domain.Product, logs []domain.StockLog) []LossReport {
	sold := make(map[uint]int)
	lost := make(map[uint]int)
	for _, entry := range logs {
		switch {
		case entry.Type.IsSale():
			sold[entry.ProductID] += abs(entry.QuantityChange)
		case entry.Type == domain.StockChangeWaste,
			entry.Type == domain.StockChangeAdjustment && entry.QuantityChange < 0:
			lost[entry.ProductID] += abs(entry.QuantityChange)
		}
	}

	out := []LossReport{}
	for i := range products {
		p := &products[i]
		s, l := sold[p.ID], lost[p.ID]
		if s+l == 0 {
			continue
		}
		rate := float64(l) / float64(s+l) * 100
		if rate <= LossRateThreshold {
			continue
		}
		out = append(out, LossReport{
			ProductID:       p.ID,
			ProductName:     p.Name,
			TotalSold:       s,
			TotalManualLoss: l,
			LossRate:        math.Round(rate*100) / 100,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LossRate != out[j].LossRate {
			return out[i].LossRate > out[j].LossRate
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// Reconcile checks currentStock == initialStock + sum of logged deltas.
// deltas maps product id to that sum.
func Reconcile(products []domain.Product, deltas map[uint]int) []Discrepancy {
	out := []Discrepancy{}
	for i := range products {
		p := &products[i]
		expected := p.InitialStock + deltas[p.ID]
		if expected == p.CurrentStock {
			continue
		}
		out = append(out, Discrepancy{
			ProductID:    p.ID,
			ProductName:  p.Name,
			InitialStock: p.InitialStock,
			LoggedDelta:  deltas[p.ID],
			Expected:     expected,
			CurrentStock: p.CurrentStock,
		})
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
