package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

type GormBundleRepository struct {
	db *gorm.DB
}

func NewGormBundleRepository(db *gorm.DB) *GormBundleRepository {
	return &GormBundleRepository{db: db}
}

func (r *GormBundleRepository) Create(ctx context.Context, bundle *domain.Bundle) error {
	if bundle.Status == "" {
		bundle.Status = domain.ProductStatusActive
	}
	return r.db.WithContext(ctx).Create(bundle).Error
}

func (r *GormBundleRepository) FindByID(ctx context.Context, id uint) (*domain.Bundle, error) {
	var bundle domain.Bundle
	err := r.db.WithContext(ctx).Preload("Items").First(&bundle, id).Error
	if err != nil {
		return nil, notFound(err, domain.ErrBundleNotFound)
	}
	return &bundle, nil
}

type GormStaffRepository struct {
	db *gorm.DB
}

func NewGormStaffRepository(db *gorm.DB) *GormStaffRepository {
	return &GormStaffRepository{db: db}
}

func (r *GormStaffRepository) Create(ctx context.Context, staff *domain.Staff) error {
	return r.db.WithContext(ctx).Create(staff).Error
}

func (r *GormStaffRepository) FindByID(ctx context.Context, id uint) (*domain.Staff, error) {
	var staff domain.Staff
	err := r.db.WithContext(ctx).First(&staff, id).Error
	if err != nil {
		return nil, notFound(err, domain.ErrStaffNotFound)
	}
	return &staff, nil
}

func (r *GormStaffRepository) FindAll(ctx context.Context) ([]domain.Staff, error) {
	var staff []domain.Staff
	err := r.db.WithContext(ctx).Order("id").Find(&staff).Error
	return staff, err
}

type GormExpenseRepository struct {
	db *gorm.DB
}

func NewGormExpenseRepository(db *gorm.DB) *GormExpenseRepository {
	return &GormExpenseRepository{db: db}
}

func (r *GormExpenseRepository) Create(ctx context.Context, expense *domain.Expense) error {
	if expense.Category == "" {
		expense.Category = domain.ExpenseOther
	}
	return r.db.WithContext(ctx).Create(expense).Error
}

func (r *GormExpenseRepository) SumBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	row := r.db.WithContext(ctx).Model(&domain.Expense{}).
		Select("SUM(amount)").
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
