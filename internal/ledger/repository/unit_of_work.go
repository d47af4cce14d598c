package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

// GormRepositories binds every ledger repository to one *gorm.DB,
// which is either the pool or an open transaction.
type GormRepositories struct {
	products  *GormProductRepository
	stockLogs *GormStockLogRepository
	sales     *GormSaleRepository
	bundles   *GormBundleRepository
	customers *GormCustomerRepository
	staff     *GormStaffRepository
	orders    *GormDeliveryOrderRepository
	expenses  *GormExpenseRepository
}

func NewGormRepositories(db *gorm.DB) *GormRepositories {
	return &GormRepositories{
		products:  NewGormProductRepository(db),
		stockLogs: NewGormStockLogRepository(db),
		sales:     NewGormSaleRepository(db),
		bundles:   NewGormBundleRepository(db),
		customers: NewGormCustomerRepository(db),
		staff:     NewGormStaffRepository(db),
		orders:    NewGormDeliveryOrderRepository(db),
		expenses:  NewGormExpenseRepository(db),
	}
}

func (r *GormRepositories) Products() domain.ProductRepository { return r.products }
func (r *GormRepositories) StockLogs() domain.StockLogRepository { return r.stockLogs }
func (r *GormRepositories) Sales() domain.SaleRepository { return r.sales }
func (r *GormRepositories) Bundles() domain.BundleRepository { return r.bundles }
func (r *GormRepositories) Customers() domain.CustomerRepository { return r.customers }
func (r *GormRepositories) Staff() domain.StaffRepository { return r.staff }
func (r *GormRepositories) Orders() domain.DeliveryOrderRepository { return r.orders }
func (r *GormRepositories) Expenses() domain.ExpenseRepository { return r.expenses }

// GormUnitOfWork maps one unit of work onto one database transaction
type GormUnitOfWork struct {
	db *gorm.DB
}

func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

func (u *GormUnitOfWork) Do(ctx context.Context, fn func(repos domain.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormRepositories(tx))
	})
}

func (u *GormUnitOfWork) Reader() domain.Repositories {
	return NewGormRepositories(u.db)
}

// AutoMigrate creates or updates every ledger table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(domain.Models()...)
}
