package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if product.Status == "" {
		product.Status = domain.ProductStatusActive
	}
	product.InitialStock = product.CurrentStock
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *GormProductRepository) FindByID(ctx context.Context, id uint) (*domain.Product, error) {
	var product domain.Product
	err := r.db.WithContext(ctx).First(&product, id).Error
	if err != nil {
		return nil, notFound(err, domain.ErrProductNotFound)
	}
	return &product, nil
}

func (r *GormProductRepository) FindByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	var product domain.Product
	err := r.db.WithContext(ctx).Where("barcode = ?", barcode).First(&product).Error
	if err != nil {
		return nil, notFound(err, domain.ErrProductNotFound)
	}
	return &product, nil
}

func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uint) ([]domain.Product, error) {
	var products []domain.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}

func (r *GormProductRepository) FindAll(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := r.db.WithContext(ctx).Order("id").Find(&products).Error
	return products, err
}

func (r *GormProductRepository) FindLowStock(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := r.db.WithContext(ctx).
		Where("status = ? AND current_stock <= min_stock", domain.ProductStatusActive).
		Order("current_stock").
		Find(&products).Error
	return products, err
}

func (r *GormProductRepository) FindExpiringBefore(ctx context.Context, cutoff time.Time) ([]domain.Product, error) {
	var products []domain.Product
	err := r.db.WithContext(ctx).
		Where("status = ? AND expiry_date IS NOT NULL AND expiry_date <= ?", domain.ProductStatusActive, cutoff.UTC()).
		Order("expiry_date").
		Find(&products).Error
	return products, err
}

// Deduct decrements stock only when the product is active and holds at least qty units.
func (r *GormProductRepository) Deduct(ctx context.Context, id uint, qty int) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ? AND status = ? AND current_stock >= ?", id, domain.ProductStatusActive, qty).
		Update("current_stock", gorm.Expr("current_stock - ?", qty))
	return result.RowsAffected, result.Error
}

// Adjust applies a signed delta only when the result stays non-negative.
func (r *GormProductRepository) Adjust(ctx context.Context, id uint, delta int) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ? AND current_stock + ? >= 0", id, delta).
		Update("current_stock", gorm.Expr("current_stock + ?", delta))
	return result.RowsAffected, result.Error
}

func notFound(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
