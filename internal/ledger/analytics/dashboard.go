// Package analytics derives dashboard figures from a snapshot of the ledger.
// Everything here is pure: the same snapshot and reference time always
// produce the same result.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

const (
	// DefaultTopProducts is the top-N used when a snapshot does not set one
	DefaultTopProducts = 10
	// RecentSalesCount is the number of latest sales shown on the dashboard
	RecentSalesCount = 5
	// DailySeriesDays is the length of the daily revenue series, today included
	DailySeriesDays = 7
	// HeatMapDays is the rolling window of the weekday x hour heat map
	HeatMapDays = 30
	// ExpiringSoonDays is the horizon of the expiring-soon count
	ExpiringSoonDays = 7
	// StagnantAfterDays and StagnantMinVisits define a lapsed regular customer
	StagnantAfterDays = 30
	StagnantMinVisits = 3
)

// Snapshot is the committed ledger state a dashboard is computed from.
// Sales must cover NewWindows(now).LoadFrom() up to the end of today.
type Snapshot struct {
	Sales         []domain.Sale
	Products      []domain.Product
	LowStock      []domain.Product
	Expiring      []domain.Product
	Stagnant      []domain.Customer
	Staff         []domain.Staff
	Customers     []domain.Customer
	MonthExpenses decimal.Decimal
	TopN          int
}

// ChannelTotals is revenue and transaction count for one channel
type ChannelTotals struct {
	Revenue      decimal.Decimal `json:"revenue"`
	Transactions int             `json:"transactions"`
}

// PeriodTotals splits a period's totals by channel
type PeriodTotals struct {
	Revenue      decimal.Decimal `json:"revenue"`
	Transactions int             `json:"transactions"`
	POS          ChannelTotals   `json:"pos"`
	Online       ChannelTotals   `json:"online"`
}

func (p *PeriodTotals) add(sale *domain.Sale) {
	p.Revenue = p.Revenue.Add(sale.Total)
	p.Transactions++
	ch := &p.POS
	if sale.Channel == domain.ChannelOnline {
		ch = &p.Online
	}
	ch.Revenue = ch.Revenue.Add(sale.Total)
	ch.Transactions++
}

type TopProduct struct {
	ProductID     uint            `json:"product_id"`
	ProductName   string          `json:"product_name"`
	TotalQuantity int             `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

type DailySale struct {
	Date             string          `json:"date"`
	TransactionCount int             `json:"transaction_count"`
	TotalSales       decimal.Decimal `json:"total_sales"`
}

type HourlySale struct {
	Hour             int             `json:"hour"`
	TransactionCount int             `json:"transaction_count"`
	TotalSales       decimal.Decimal `json:"total_sales"`
}

// HeatMapPoint counts sales in one ISO weekday (1 = Monday) and hour
type HeatMapPoint struct {
	DayOfWeek int `json:"day_of_week"`
	Hour      int `json:"hour"`
	Count     int `json:"count"`
}

type CategoryAnalytic struct {
	Category      string          `json:"category"`
	TotalQuantity int             `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
}

type EmployeePerformance struct {
	StaffID          uint            `json:"staff_id"`
	FullName         string          `json:"full_name"`
	TransactionCount int             `json:"transaction_count"`
	TotalSales       decimal.Decimal `json:"total_sales"`
}

type RecentSale struct {
	ID            uint            `json:"id"`
	Channel       domain.Channel  `json:"channel"`
	CustomerName  string          `json:"customer_name,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Dashboard is the full set of derived KPIs
type Dashboard struct {
	GeneratedAt       time.Time             `json:"generated_at"`
	Today             PeriodTotals          `json:"today"`
	Month             PeriodTotals          `json:"month"`
	AverageBasket     decimal.Decimal       `json:"average_basket"`
	GrossProfitToday  decimal.Decimal       `json:"gross_profit_today"`
	GrossProfitMonth  decimal.Decimal       `json:"gross_profit_month"`
	ExpensesMonth     decimal.Decimal       `json:"expenses_month"`
	NetProfitMonth    decimal.Decimal       `json:"net_profit_month"`
	TopProducts       []TopProduct          `json:"top_products"`
	DailySales        []DailySale           `json:"daily_sales"`
	HourlySales       []HourlySale          `json:"hourly_sales"`
	HeatMap           []HeatMapPoint        `json:"heat_map"`
	Categories        []CategoryAnalytic    `json:"categories"`
	HealthScore       int                   `json:"health_score"`
	Leaderboard       []EmployeePerformance `json:"leaderboard"`
	RecentSales       []RecentSale          `json:"recent_sales"`
	LowStockCount     int                   `json:"low_stock_count"`
	OutOfStockCount   int                   `json:"out_of_stock_count"`
	ExpiringSoonCount int                   `json:"expiring_soon_count"`
	StagnantCustomers int                   `json:"stagnant_customers"`
	LowStockProducts  []domain.Product      `json:"low_stock_products"`
}

// Windows are the period boundaries derived from a reference time
type Windows struct {
	TodayStart time.Time
	TodayEnd   time.Time
	MonthStart time.Time
	WeekStart  time.Time
	HeatStart  time.Time
}

// NewWindows computes boundaries in now's location
func NewWindows(now time.Time) Windows {
	y, m, d := now.Date()
	loc := now.Location()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return Windows{
		TodayStart: today,
		TodayEnd:   today.AddDate(0, 0, 1),
		MonthStart: time.Date(y, m, 1, 0, 0, 0, 0, loc),
		WeekStart:  today.AddDate(0, 0, -(DailySeriesDays - 1)),
		HeatStart:  now.AddDate(0, 0, -HeatMapDays),
	}
}

// LoadFrom is the earliest sale time any dashboard figure needs
func (w Windows) LoadFrom() time.Time {
	from := w.MonthStart
	if w.HeatStart.Before(from) {
		from = w.HeatStart
	}
	if w.WeekStart.Before(from) {
		from = w.WeekStart
	}
	return from
}

// Compute derives the dashboard. Missing data yields zeros and empty slices.
func Compute(now time.Time, snap Snapshot) Dashboard {
	w := NewWindows(now)
	loc := now.Location()

	products := make(map[uint]*domain.Product, len(snap.Products))
	for i := range snap.Products {
		products[snap.Products[i].ID] = &snap.Products[i]
	}

	dash := Dashboard{
		GeneratedAt:      now,
		GrossProfitToday: decimal.Zero,
		GrossProfitMonth: decimal.Zero,
		ExpensesMonth:    snap.MonthExpenses,
		TopProducts:      []TopProduct{},
		HourlySales:      []HourlySale{},
		HeatMap:          []HeatMapPoint{},
		Categories:       []CategoryAnalytic{},
		Leaderboard:      []EmployeePerformance{},
		RecentSales:      []RecentSale{},
		LowStockProducts: []domain.Product{},
	}

	daily := make(map[string]*DailySale, DailySeriesDays)
	hourly := make(map[int]*HourlySale)
	heat := make(map[[2]int]int)
	top := make(map[uint]*TopProduct)
	categories := make(map[string]*CategoryAnalytic)
	leaders := make(map[uint]*EmployeePerformance)

	for i := range snap.Sales {
		sale := &snap.Sales[i]
		at := sale.CreatedAt.In(loc)
		if at.Before(w.LoadFrom()) || !at.Before(w.TodayEnd) {
			continue
		}

		inToday := !at.Before(w.TodayStart)
		inMonth := !at.Before(w.MonthStart)

		if inToday {
			dash.Today.add(sale)
			h := hourly[at.Hour()]
			if h == nil {
				h = &HourlySale{Hour: at.Hour(), TotalSales: decimal.Zero}
				hourly[at.Hour()] = h
			}
			h.TransactionCount++
			h.TotalSales = h.TotalSales.Add(sale.Total)
		}
		if !at.Before(w.WeekStart) {
			key := at.Format("2006-01-02")
			ds := daily[key]
			if ds == nil {
				ds = &DailySale{Date: key, TotalSales: decimal.Zero}
				daily[key] = ds
			}
			ds.TransactionCount++
			ds.TotalSales = ds.TotalSales.Add(sale.Total)
		}
		if !at.Before(w.HeatStart) {
			heat[[2]int{isoWeekday(at), at.Hour()}]++
		}
		if !inMonth {
			continue
		}

		dash.Month.add(sale)
		if sale.CashierID != nil {
			lp := leaders[*sale.CashierID]
			if lp == nil {
				lp = &EmployeePerformance{StaffID: *sale.CashierID, TotalSales: decimal.Zero}
				leaders[*sale.CashierID] = lp
			}
			lp.TransactionCount++
			lp.TotalSales = lp.TotalSales.Add(sale.Total)
		}

		for _, item := range sale.Items {
			product := products[item.ProductID]
			profit := itemProfit(item, product)
			dash.GrossProfitMonth = dash.GrossProfitMonth.Add(profit)
			if inToday {
				dash.GrossProfitToday = dash.GrossProfitToday.Add(profit)
			}

			tp := top[item.ProductID]
			if tp == nil {
				tp = &TopProduct{ProductID: item.ProductID, TotalRevenue: decimal.Zero}
				if product != nil {
					tp.ProductName = product.Name
				}
				top[item.ProductID] = tp
			}
			tp.TotalQuantity += item.Quantity
			tp.TotalRevenue = tp.TotalRevenue.Add(item.Total)

			category := "Uncategorized"
			if product != nil && product.Category != "" {
				category = product.Category
			}
			ca := categories[category]
			if ca == nil {
				ca = &CategoryAnalytic{Category: category, TotalRevenue: decimal.Zero, TotalProfit: decimal.Zero}
				categories[category] = ca
			}
			ca.TotalQuantity += item.Quantity
			ca.TotalRevenue = ca.TotalRevenue.Add(item.Total)
			ca.TotalProfit = ca.TotalProfit.Add(profit)
		}
	}

	if dash.Today.Transactions > 0 {
		dash.AverageBasket = domain.RoundMoney(dash.Today.Revenue.Div(decimal.NewFromInt(int64(dash.Today.Transactions))))
	}
	dash.NetProfitMonth = dash.GrossProfitMonth.Sub(snap.MonthExpenses)

	dash.TopProducts = topProducts(top, snap.TopN)
	dash.DailySales = dailySeries(daily, w)
	for _, h := range hourly {
		dash.HourlySales = append(dash.HourlySales, *h)
	}
	sort.Slice(dash.HourlySales, func(i, j int) bool { return dash.HourlySales[i].Hour < dash.HourlySales[j].Hour })

	for cell, count := range heat {
		dash.HeatMap = append(dash.HeatMap, HeatMapPoint{DayOfWeek: cell[0], Hour: cell[1], Count: count})
	}
	sort.Slice(dash.HeatMap, func(i, j int) bool {
		if dash.HeatMap[i].DayOfWeek != dash.HeatMap[j].DayOfWeek {
			return dash.HeatMap[i].DayOfWeek < dash.HeatMap[j].DayOfWeek
		}
		return dash.HeatMap[i].Hour < dash.HeatMap[j].Hour
	})

	for _, ca := range categories {
		dash.Categories = append(dash.Categories, *ca)
	}
	sort.Slice(dash.Categories, func(i, j int) bool {
		if !dash.Categories[i].TotalRevenue.Equal(dash.Categories[j].TotalRevenue) {
			return dash.Categories[i].TotalRevenue.GreaterThan(dash.Categories[j].TotalRevenue)
		}
		return dash.Categories[i].Category < dash.Categories[j].Category
	})

	dash.Leaderboard = leaderboard(leaders, snap.Staff)
	dash.RecentSales = recentSales(snap.Sales, snap.Customers)

	for _, p := range snap.Products {
		if p.IsActive() && p.CurrentStock == 0 {
			dash.OutOfStockCount++
		}
	}
	if snap.LowStock != nil {
		dash.LowStockProducts = snap.LowStock
	}
	dash.LowStockCount = len(snap.LowStock)
	dash.ExpiringSoonCount = len(snap.Expiring)
	dash.StagnantCustomers = len(snap.Stagnant)
	dash.HealthScore = HealthScore(dash.LowStockCount, dash.StagnantCustomers, dash.ExpiringSoonCount)
	return dash
}

// itemProfit is quantity x (unit price - purchase price). Bundle lines carry a
// zero unit price, so their cost shows up as a negative contribution.
func itemProfit(item domain.SaleItem, product *domain.Product) decimal.Decimal {
	cost := decimal.Zero
	if product != nil {
		cost = product.PurchasePrice
	}
	return item.UnitPrice.Sub(cost).Mul(decimal.NewFromInt(int64(item.Quantity)))
}

func isoWeekday(t time.Time) int {
	if t.Weekday() == time.Sunday {
		return 7
	}
	return int(t.Weekday())
}

func topProducts(top map[uint]*TopProduct, n int) []TopProduct {
	if n <= 0 {
		n = DefaultTopProducts
	}
	out := make([]TopProduct, 0, len(top))
	for _, tp := range top {
		out = append(out, *tp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TotalRevenue.Equal(out[j].TotalRevenue) {
			return out[i].TotalRevenue.GreaterThan(out[j].TotalRevenue)
		}
		if out[i].TotalQuantity != out[j].TotalQuantity {
			return out[i].TotalQuantity > out[j].TotalQuantity
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// dailySeries emits one point per day, oldest first, zero-filled
func dailySeries(daily map[string]*DailySale, w Windows) []DailySale {
	out := make([]DailySale, 0, DailySeriesDays)
	for day := w.WeekStart; day.Before(w.TodayEnd); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		if ds, ok := daily[key]; ok {
			out = append(out, *ds)
			continue
		}
		out = append(out, DailySale{Date: key, TotalSales: decimal.Zero})
	}
	return out
}

func leaderboard(leaders map[uint]*EmployeePerformance, staff []domain.Staff) []EmployeePerformance {
	names := make(map[uint]string, len(staff))
	for i := range staff {
		names[staff[i].ID] = staff[i].DisplayName()
	}
	out := make([]EmployeePerformance, 0, len(leaders))
	for id, lp := range leaders {
		entry := *lp
		entry.FullName = names[id]
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TotalSales.Equal(out[j].TotalSales) {
			return out[i].TotalSales.GreaterThan(out[j].TotalSales)
		}
		if out[i].TransactionCount != out[j].TransactionCount {
			return out[i].TransactionCount > out[j].TransactionCount
		}
		return out[i].StaffID < out[j].StaffID
	})
	return out
}

func latestSales(sales []domain.Sale) []*domain.Sale {
	sorted := make([]*domain.Sale, 0, len(sales))
	for i := range sales {
		sorted = append(sorted, &sales[i])
	}
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	if len(sorted) > RecentSalesCount {
		sorted = sorted[:RecentSalesCount]
	}
	return sorted
}

func recentSales(sales []domain.Sale, customers []domain.Customer) []RecentSale {
	names := make(map[uint]string, len(customers))
	for i := range customers {
		names[customers[i].ID] = customers[i].Name
	}

	latest := latestSales(sales)
	out := make([]RecentSale, 0, len(latest))
	for _, sale := range latest {
		rs := RecentSale{
			ID:            sale.ID,
			Channel:       sale.Channel,
			CustomerName:  sale.ExternalCustomerName,
			Subtotal:      sale.Subtotal,
			Discount:      sale.Discount,
			Total:         sale.Total,
			PaymentMethod: sale.PaymentMethod,
			CreatedAt:     sale.CreatedAt,
		}
		if sale.CustomerID != nil {
			if name, ok := names[*sale.CustomerID]; ok {
				rs.CustomerName = name
			}
		}
		out = append(out, rs)
	}
	return out
}

// RecentCustomerIDs lists the customers referenced by the latest sales
func RecentCustomerIDs(sales []domain.Sale) []uint {
	seen := make(map[uint]bool)
	var ids []uint
	for _, sale := range latestSales(sales) {
		if sale.CustomerID != nil && !seen[*sale.CustomerID] {
			seen[*sale.CustomerID] = true
			ids = append(ids, *sale.CustomerID)
		}
	}
	return ids
}
