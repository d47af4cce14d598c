// Package memory is an in-process ledger store. A unit of work holds the
// store lock for its whole duration and restores a snapshot on error.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

type state struct {
	seq       map[string]uint
	products  map[uint]domain.Product
	logs      []domain.StockLog
	sales     map[uint]domain.Sale
	bundles   map[uint]domain.Bundle
	customers map[uint]domain.Customer
	staff     map[uint]domain.Staff
	orders    map[uint]domain.DeliveryOrder
	expenses  []domain.Expense
}

func newState() *state {
	return &state{
		seq:       make(map[string]uint),
		products:  make(map[uint]domain.Product),
		sales:     make(map[uint]domain.Sale),
		bundles:   make(map[uint]domain.Bundle),
		customers: make(map[uint]domain.Customer),
		staff:     make(map[uint]domain.Staff),
		orders:    make(map[uint]domain.DeliveryOrder),
	}
}

func (s *state) next(table string) uint {
	s.seq[table]++
	return s.seq[table]
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.seq {
		c.seq[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	c.logs = append([]domain.StockLog(nil), s.logs...)
	for k, v := range s.sales {
		v.Items = append([]domain.SaleItem(nil), v.Items...)
		c.sales[k] = v
	}
	for k, v := range s.bundles {
		v.Items = append([]domain.BundleItem(nil), v.Items...)
		c.bundles[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.staff {
		c.staff[k] = v
	}
	for k, v := range s.orders {
		v.Items = append([]domain.DeliveryOrderItem(nil), v.Items...)
		c.orders[k] = v
	}
	c.expenses = append([]domain.Expense(nil), s.expenses...)
	return c
}

// Store implements domain.UnitOfWork in memory
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		st:  newState(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Do runs fn with exclusive access. The state is rolled back if fn fails.
func (s *Store) Do(ctx context.Context, fn func(repos domain.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(&repositories{store: s, locked: true}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// Reader returns repositories that lock per call
func (s *Store) Reader() domain.Repositories {
	return &repositories{store: s}
}

type repositories struct {
	store  *Store
	locked bool
}

// with runs fn against the state, taking the lock unless the caller holds it.
func (r *repositories) with(fn func(st *state)) {
	if !r.locked {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
	}
	fn(r.store.st)
}

func (r *repositories) now() time.Time {
	return r.store.now()
}

func (r *repositories) Products() domain.ProductRepository { return productRepo{r} }
func (r *repositories) StockLogs() domain.StockLogRepository { return stockLogRepo{r} }
func (r *repositories) Sales() domain.SaleRepository { return saleRepo{r} }
func (r *repositories) Bundles() domain.BundleRepository { return bundleRepo{r} }
func (r *repositories) Customers() domain.CustomerRepository { return customerRepo{r} }
func (r *repositories) Staff() domain.StaffRepository { return staffRepo{r} }
func (r *repositories) Orders() domain.DeliveryOrderRepository { return orderRepo{r} }
func (r *repositories) Expenses() domain.ExpenseRepository { return expenseRepo{r} }
