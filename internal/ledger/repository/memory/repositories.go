package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

type productRepo struct{ r *repositories }

func (p productRepo) Create(_ context.Context, product *domain.Product) error {
	p.r.with(func(st *state) {
		product.ID = st.next("products")
		if product.Status == "" {
			product.Status = domain.ProductStatusActive
		}
		product.InitialStock = product.CurrentStock
		if product.CreatedAt.IsZero() {
			product.CreatedAt = p.r.now()
		}
		product.UpdatedAt = product.CreatedAt
		st.products[product.ID] = *product
	})
	return nil
}

func (p productRepo) FindByID(_ context.Context, id uint) (*domain.Product, error) {
	var (
		product domain.Product
		ok      bool
	)
	p.r.with(func(st *state) { product, ok = st.products[id] })
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &product, nil
}

func (p productRepo) FindByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	var found *domain.Product
	p.r.with(func(st *state) {
		for _, product := range st.products {
			if product.Barcode == barcode {
				product := product
				found = &product
				return
			}
		}
	})
	if found == nil {
		return nil, domain.ErrProductNotFound
	}
	return found, nil
}

func (p productRepo) FindByIDs(_ context.Context, ids []uint) ([]domain.Product, error) {
	return p.filter(func(product domain.Product) bool {
		for _, id := range ids {
			if product.ID == id {
				return true
			}
		}
		return false
	}), nil
}

func (p productRepo) FindAll(_ context.Context) ([]domain.Product, error) {
	return p.filter(func(domain.Product) bool { return true }), nil
}

func (p productRepo) FindLowStock(_ context.Context) ([]domain.Product, error) {
	return p.filter(func(product domain.Product) bool {
		return product.IsActive() && product.IsLowStock()
	}), nil
}

func (p productRepo) FindExpiringBefore(_ context.Context, cutoff time.Time) ([]domain.Product, error) {
	return p.filter(func(product domain.Product) bool {
		return product.IsActive() && product.ExpiresWithin(cutoff)
	}), nil
}

func (p productRepo) Deduct(_ context.Context, id uint, qty int) (int64, error) {
	var affected int64
	p.r.with(func(st *state) {
		product, ok := st.products[id]
		if !ok || !product.IsActive() || product.CurrentStock < qty {
			return
		}
		product.CurrentStock -= qty
		product.UpdatedAt = p.r.now()
		st.products[id] = product
		affected = 1
	})
	return affected, nil
}

func (p productRepo) Adjust(_ context.Context, id uint, delta int) (int64, error) {
	var affected int64
	p.r.with(func(st *state) {
		product, ok := st.products[id]
		if !ok || product.CurrentStock+delta < 0 {
			return
		}
		product.CurrentStock += delta
		product.UpdatedAt = p.r.now()
		st.products[id] = product
		affected = 1
	})
	return affected, nil
}

func (p productRepo) filter(keep func(domain.Product) bool) []domain.Product {
	var out []domain.Product
	p.r.with(func(st *state) {
		for _, product := range st.products {
			if keep(product) {
				out = append(out, product)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type stockLogRepo struct{ r *repositories }

func (s stockLogRepo) Append(_ context.Context, entry *domain.StockLog) error {
	var err error
	s.r.with(func(st *state) {
		if entry.SourceEventID != nil && st.hasEvent(*entry.SourceEventID) {
			err = fmt.Errorf("stock log for event %s already exists", *entry.SourceEventID)
			return
		}
		entry.ID = st.next("stock_logs")
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = s.r.now()
		}
		st.logs = append(st.logs, *entry)
	})
	return err
}

func (s stockLogRepo) ExistsForEvent(_ context.Context, eventID string) (bool, error) {
	var found bool
	s.r.with(func(st *state) { found = st.hasEvent(eventID) })
	return found, nil
}

func (st *state) hasEvent(eventID string) bool {
	for _, entry := range st.logs {
		if entry.SourceEventID != nil && *entry.SourceEventID == eventID {
			return true
		}
	}
	return false
}

func (s stockLogRepo) FindByProductID(_ context.Context, productID uint) ([]domain.StockLog, error) {
	var out []domain.StockLog
	s.r.with(func(st *state) {
		for i := len(st.logs) - 1; i >= 0; i-- {
			if st.logs[i].ProductID == productID {
				out = append(out, st.logs[i])
			}
		}
	})
	return out, nil
}

func (s stockLogRepo) FindAll(_ context.Context) ([]domain.StockLog, error) {
	var out []domain.StockLog
	s.r.with(func(st *state) { out = append(out, st.logs...) })
	return out, nil
}

func (s stockLogRepo) SumByProduct(_ context.Context) (map[uint]int, error) {
	sums := make(map[uint]int)
	s.r.with(func(st *state) {
		for _, entry := range st.logs {
			sums[entry.ProductID] += entry.QuantityChange
		}
	})
	return sums, nil
}

type saleRepo struct{ r *repositories }

func (s saleRepo) Create(_ context.Context, sale *domain.Sale) error {
	var err error
	s.r.with(func(st *state) {
		if sale.SourceOrderID != nil {
			for _, existing := range st.sales {
				if existing.SourceOrderID != nil && *existing.SourceOrderID == *sale.SourceOrderID {
					err = fmt.Errorf("duplicate sale for order %d", *sale.SourceOrderID)
					return
				}
			}
		}
		sale.ID = st.next("sales")
		if sale.CreatedAt.IsZero() {
			sale.CreatedAt = s.r.now()
		}
		for i := range sale.Items {
			sale.Items[i].ID = st.next("sale_items")
			sale.Items[i].SaleID = sale.ID
		}
		stored := *sale
		stored.Items = append([]domain.SaleItem(nil), sale.Items...)
		st.sales[sale.ID] = stored
	})
	return err
}

func (s saleRepo) FindByID(_ context.Context, id uint) (*domain.Sale, error) {
	var (
		sale domain.Sale
		ok   bool
	)
	s.r.with(func(st *state) { sale, ok = st.sales[id] })
	if !ok {
		return nil, domain.ErrSaleNotFound
	}
	sale.Items = append([]domain.SaleItem(nil), sale.Items...)
	return &sale, nil
}

func (s saleRepo) FindBySourceOrderID(_ context.Context, orderID uint) (*domain.Sale, error) {
	found := s.filter(func(sale domain.Sale) bool {
		return sale.SourceOrderID != nil && *sale.SourceOrderID == orderID
	})
	if len(found) == 0 {
		return nil, domain.ErrSaleNotFound
	}
	return &found[0], nil
}

func (s saleRepo) FindBetween(_ context.Context, from, to time.Time) ([]domain.Sale, error) {
	return s.filter(func(sale domain.Sale) bool {
		return !sale.CreatedAt.Before(from) && sale.CreatedAt.Before(to)
	}), nil
}

func (s saleRepo) List(_ context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	sales := s.filter(func(sale domain.Sale) bool {
		if !filter.From.IsZero() && sale.CreatedAt.Before(filter.From) {
			return false
		}
		if !filter.To.IsZero() && !sale.CreatedAt.Before(filter.To) {
			return false
		}
		return filter.Channel == "" || sale.Channel == filter.Channel
	})

	// newest first
	for i, j := 0, len(sales)-1; i < j; i, j = i+1, j-1 {
		sales[i], sales[j] = sales[j], sales[i]
	}
	limit := filter.EffectiveLimit()
	if len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

// filter returns matching sales oldest first
func (s saleRepo) filter(keep func(domain.Sale) bool) []domain.Sale {
	var out []domain.Sale
	s.r.with(func(st *state) {
		for _, sale := range st.sales {
			if keep(sale) {
				sale.Items = append([]domain.SaleItem(nil), sale.Items...)
				out = append(out, sale)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

type bundleRepo struct{ r *repositories }

func (b bundleRepo) Create(_ context.Context, bundle *domain.Bundle) error {
	b.r.with(func(st *state) {
		bundle.ID = st.next("bundles")
		if bundle.Status == "" {
			bundle.Status = domain.ProductStatusActive
		}
		if bundle.CreatedAt.IsZero() {
			bundle.CreatedAt = b.r.now()
		}
		for i := range bundle.Items {
			bundle.Items[i].ID = st.next("bundle_items")
			bundle.Items[i].BundleID = bundle.ID
		}
		stored := *bundle
		stored.Items = append([]domain.BundleItem(nil), bundle.Items...)
		st.bundles[bundle.ID] = stored
	})
	return nil
}

func (b bundleRepo) FindByID(_ context.Context, id uint) (*domain.Bundle, error) {
	var (
		bundle domain.Bundle
		ok     bool
	)
	b.r.with(func(st *state) { bundle, ok = st.bundles[id] })
	if !ok {
		return nil, domain.ErrBundleNotFound
	}
	bundle.Items = append([]domain.BundleItem(nil), bundle.Items...)
	return &bundle, nil
}

type customerRepo struct{ r *repositories }

func (c customerRepo) Create(_ context.Context, customer *domain.Customer) error {
	var err error
	c.r.with(func(st *state) {
		if customer.Phone != nil {
			for _, existing := range st.customers {
				if existing.Phone != nil && *existing.Phone == *customer.Phone {
					err = fmt.Errorf("%w: phone %s is already registered", domain.ErrInvalidInput, *customer.Phone)
					return
				}
			}
		}
		customer.ID = st.next("customers")
		if customer.CreatedAt.IsZero() {
			customer.CreatedAt = c.r.now()
		}
		customer.UpdatedAt = customer.CreatedAt
		st.customers[customer.ID] = *customer
	})
	return err
}

func (c customerRepo) FindByID(_ context.Context, id uint) (*domain.Customer, error) {
	var (
		customer domain.Customer
		ok       bool
	)
	c.r.with(func(st *state) { customer, ok = st.customers[id] })
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return &customer, nil
}

// FindByIDForUpdate needs no row lock: the unit of work is already exclusive.
func (c customerRepo) FindByIDForUpdate(ctx context.Context, id uint) (*domain.Customer, error) {
	return c.FindByID(ctx, id)
}

func (c customerRepo) FindByPhone(_ context.Context, phone string) (*domain.Customer, error) {
	var found *domain.Customer
	c.r.with(func(st *state) {
		for _, customer := range st.customers {
			if customer.Phone != nil && *customer.Phone == phone {
				customer := customer
				found = &customer
				return
			}
		}
	})
	if found == nil {
		return nil, domain.ErrCustomerNotFound
	}
	return found, nil
}

func (c customerRepo) FindStagnant(_ context.Context, lastVisitBefore time.Time, minVisits int) ([]domain.Customer, error) {
	var out []domain.Customer
	c.r.with(func(st *state) {
		for _, customer := range st.customers {
			if customer.IsStagnant(lastVisitBefore, minVisits) {
				out = append(out, customer)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c customerRepo) Update(_ context.Context, customer *domain.Customer) error {
	var err error
	c.r.with(func(st *state) {
		if _, ok := st.customers[customer.ID]; !ok {
			err = domain.ErrCustomerNotFound
			return
		}
		customer.UpdatedAt = c.r.now()
		st.customers[customer.ID] = *customer
	})
	return err
}

type staffRepo struct{ r *repositories }

func (s staffRepo) Create(_ context.Context, staff *domain.Staff) error {
	s.r.with(func(st *state) {
		staff.ID = st.next("staff")
		st.staff[staff.ID] = *staff
	})
	return nil
}

func (s staffRepo) FindByID(_ context.Context, id uint) (*domain.Staff, error) {
	var (
		staff domain.Staff
		ok    bool
	)
	s.r.with(func(st *state) { staff, ok = st.staff[id] })
	if !ok {
		return nil, domain.ErrStaffNotFound
	}
	return &staff, nil
}

func (s staffRepo) FindAll(_ context.Context) ([]domain.Staff, error) {
	var out []domain.Staff
	s.r.with(func(st *state) {
		for _, staff := range st.staff {
			out = append(out, staff)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type orderRepo struct{ r *repositories }

func (o orderRepo) Create(_ context.Context, order *domain.DeliveryOrder) error {
	o.r.with(func(st *state) {
		order.ID = st.next("delivery_orders")
		if order.Status == "" {
			order.Status = domain.OrderStatusPending
		}
		if order.CreatedAt.IsZero() {
			order.CreatedAt = o.r.now()
		}
		order.UpdatedAt = order.CreatedAt
		for i := range order.Items {
			order.Items[i].ID = st.next("delivery_order_items")
			order.Items[i].OrderID = order.ID
		}
		stored := *order
		stored.Items = append([]domain.DeliveryOrderItem(nil), order.Items...)
		st.orders[order.ID] = stored
	})
	return nil
}

func (o orderRepo) FindByID(_ context.Context, id uint) (*domain.DeliveryOrder, error) {
	var (
		order domain.DeliveryOrder
		ok    bool
	)
	o.r.with(func(st *state) { order, ok = st.orders[id] })
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	order.Items = append([]domain.DeliveryOrderItem(nil), order.Items...)
	return &order, nil
}

func (o orderRepo) FindByStatus(_ context.Context, status domain.OrderStatus) ([]domain.DeliveryOrder, error) {
	var out []domain.DeliveryOrder
	o.r.with(func(st *state) {
		for _, order := range st.orders {
			if status == "" || order.Status == status {
				order.Items = append([]domain.DeliveryOrderItem(nil), order.Items...)
				out = append(out, order)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (o orderRepo) UpdateStatus(_ context.Context, id uint, status domain.OrderStatus, at time.Time) error {
	var err error
	o.r.with(func(st *state) {
		order, ok := st.orders[id]
		if !ok {
			err = domain.ErrOrderNotFound
			return
		}
		order.Status = status
		order.UpdatedAt = at
		st.orders[id] = order
	})
	return err
}

type expenseRepo struct{ r *repositories }

func (e expenseRepo) Create(_ context.Context, expense *domain.Expense) error {
	e.r.with(func(st *state) {
		expense.ID = st.next("expenses")
		if expense.Category == "" {
			expense.Category = domain.ExpenseOther
		}
		if expense.CreatedAt.IsZero() {
			expense.CreatedAt = e.r.now()
		}
		st.expenses = append(st.expenses, *expense)
	})
	return nil
}

func (e expenseRepo) SumBetween(_ context.Context, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	e.r.with(func(st *state) {
		for _, expense := range st.expenses {
			if !expense.CreatedAt.Before(from) && expense.CreatedAt.Before(to) {
				total = total.Add(expense.Amount)
			}
		}
	})
	return total, nil
}
