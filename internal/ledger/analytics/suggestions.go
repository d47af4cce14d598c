package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

const (
	VelocityWindowDays = 30
	ReorderCoverDays   = 14
	reorderUrgentDays  = 7
	reorderWatchDays   = 10
	SlowMovingDays     = 15
	expiryDiscountDays = 15
)

// Price suggestion reasons
const (
	ReasonExpiringSoon = "EXPIRING_SOON"
	ReasonSlowMoving   = "SLOW_MOVING"
)

var (
	expiryDiscount     = decimal.RequireFromString("0.25")
	slowMovingDiscount = decimal.RequireFromString("0.10")
)

// ReorderSuggestion is a restock proposal. DaysUntilOut is nil for products
// that did not sell in the velocity window.
type ReorderSuggestion struct {
	ProductID         uint     `json:"product_id"`
	ProductName       string   `json:"product_name"`
	Unit              string   `json:"unit,omitempty"`
	CurrentStock      int      `json:"current_stock"`
	DailyVelocity     float64  `json:"daily_velocity"`
	DaysUntilOut      *float64 `json:"days_until_out"`
	SuggestedQuantity int      `json:"suggested_quantity"`
}

// PriceSuggestion proposes a markdown for a product at risk of not selling
type PriceSuggestion struct {
	ProductID      uint            `json:"product_id"`
	ProductName    string          `json:"product_name"`
	CurrentStock   int             `json:"current_stock"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	SuggestedPrice decimal.Decimal `json:"suggested_price"`
	Reason         string          `json:"reason"`
	DaysToExpiry   *int            `json:"days_to_expiry,omitempty"`
}

// UnitsSold totals sold quantities per product for sales at or after since
func UnitsSold(sales []domain.Sale, since time.Time) map[uint]int {
	out := make(map[uint]int)
	for i := range sales {
		if sales[i].CreatedAt.Before(since) {
			continue
		}
		for _, item := range sales[i].Items {
			out[item.ProductID] += item.Quantity
		}
	}
	return out
}

// SuggestReorders projects stock-outs from the 30-day sales velocity.
// sold maps product id to units sold in that window.
func SuggestReorders(products []domain.Product, sold map[uint]int) []ReorderSuggestion {
	out := []ReorderSuggestion{}
	for i := range products {
		p := &products[i]
		velocity := float64(sold[p.ID]) / VelocityWindowDays

		var daysUntilOut *float64
		if velocity > 0 {
			d := float64(p.CurrentStock) / velocity
			daysUntilOut = &d
		}

		suggested := 0
		switch {
		case daysUntilOut != nil && *daysUntilOut < reorderUrgentDays:
			suggested = int(math.Ceil(velocity * ReorderCoverDays))
		case p.IsLowStock() && velocity == 0:
			suggested = p.MinStock * 2
		}

		if suggested <= 0 && (daysUntilOut == nil || *daysUntilOut >= reorderWatchDays) {
			continue
		}

		s := ReorderSuggestion{
			ProductID:         p.ID,
			ProductName:       p.Name,
			Unit:              p.Unit,
			CurrentStock:      p.CurrentStock,
			DailyVelocity:     math.Round(velocity*100) / 100,
			SuggestedQuantity: suggested,
		}
		if daysUntilOut != nil {
			rounded := math.Round(*daysUntilOut*10) / 10
			s.DaysUntilOut = &rounded
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DaysUntilOut, out[j].DaysUntilOut
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	return out
}

// SuggestPrices proposes markdowns for active, in-stock products. Expiry
// risk takes precedence over slow movement. sold maps product id to units
// sold in the last SlowMovingDays.
func SuggestPrices(now time.Time, products []domain.Product, sold map[uint]int) []PriceSuggestion {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	out := []PriceSuggestion{}
	for i := range products {
		p := &products[i]
		if !p.IsActive() || p.CurrentStock <= 0 {
			continue
		}

		if p.ExpiryDate != nil {
			ey, em, ed := p.ExpiryDate.In(now.Location()).Date()
			days := int(time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC).Sub(today).Hours() / 24)
			if days < expiryDiscountDays {
				out = append(out, PriceSuggestion{
					ProductID:      p.ID,
					ProductName:    p.Name,
					CurrentStock:   p.CurrentStock,
					CurrentPrice:   p.SellingPrice,
					SuggestedPrice: markdown(p.SellingPrice, expiryDiscount),
					Reason:         ReasonExpiringSoon,
					DaysToExpiry:   &days,
				})
				continue
			}
		}

		if sold[p.ID] == 0 && p.CurrentStock > p.MinStock {
			out = append(out, PriceSuggestion{
				ProductID:      p.ID,
				ProductName:    p.Name,
				CurrentStock:   p.CurrentStock,
				CurrentPrice:   p.SellingPrice,
				SuggestedPrice: markdown(p.SellingPrice, slowMovingDiscount),
				Reason:         ReasonSlowMoving,
			})
		}
	}
	return out
}

func markdown(price, rate decimal.Decimal) decimal.Decimal {
	return domain.RoundMoney(price.Sub(price.Mul(rate)))
}
