// Package loyalty updates a customer's running purchase statistics.
package loyalty

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

const (
	// PointsPerThreshold are earned for every Threshold of cumulative purchases.
	PointsPerThreshold = 30
	Threshold          = 1000
)

// Points recomputes the balance from cumulative purchases
func Points(totalPurchases decimal.Decimal) int {
	if totalPurchases.IsNegative() {
		return 0
	}
	tiers := totalPurchases.Div(decimal.NewFromInt(Threshold)).Floor().IntPart()
	return int(tiers) * PointsPerThreshold
}

// Accrue applies one completed sale to c. The point balance never decreases.
func Accrue(c *domain.Customer, saleTotal decimal.Decimal, leadingCategory string, at time.Time) {
	c.TotalPurchases = c.TotalPurchases.Add(saleTotal)

	if points := Points(c.TotalPurchases); points > c.LoyaltyPoints {
		c.LoyaltyPoints = points
	}

	c.VisitCount++
	visitedAt := at
	c.LastVisitAt = &visitedAt

	previous := c.AvgTicketSize.Mul(decimal.NewFromInt(int64(c.VisitCount - 1)))
	c.AvgTicketSize = domain.RoundMoney(previous.Add(saleTotal).Div(decimal.NewFromInt(int64(c.VisitCount))))

	if leadingCategory != "" {
		c.FavoriteCategory = leadingCategory
	}
}
