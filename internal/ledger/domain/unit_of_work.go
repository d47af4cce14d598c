package domain

import (
	"context"
	"time"
)

// Repositories is the set of repositories bound to one storage session.
// Inside UnitOfWork.Do they all share the same transaction.
type Repositories interface {
	Products() ProductRepository
	StockLogs() StockLogRepository
	Sales() SaleRepository
	Bundles() BundleRepository
	Customers() CustomerRepository
	Staff() StaffRepository
	Orders() DeliveryOrderRepository
	Expenses() ExpenseRepository
}

// UnitOfWork runs fn atomically. Any error returned by fn rolls back
// every write made through the repositories it was handed.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos Repositories) error) error
	// Reader returns repositories outside any write transaction.
	Reader() Repositories
}

// Clock supplies "now"
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location
type SystemClock struct {
	Location *time.Location
}

// Now returns the current time in the clock's location
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// Models lists every persisted entity for migrations
func Models() []interface{} {
	return []interface{}{
		&Product{},
		&StockLog{},
		&Staff{},
		&Customer{},
		&Bundle{},
		&BundleItem{},
		&Sale{},
		&SaleItem{},
		&DeliveryOrder{},
		&DeliveryOrderItem{},
		&Expense{},
	}
}
