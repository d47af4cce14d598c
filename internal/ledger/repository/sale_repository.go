package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

type GormSaleRepository struct {
	db *gorm.DB
}

func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// Create inserts the sale and its items in one statement batch.
func (r *GormSaleRepository) Create(ctx context.Context, sale *domain.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *GormSaleRepository) FindByID(ctx context.Context, id uint) (*domain.Sale, error) {
	var sale domain.Sale
	err := r.db.WithContext(ctx).Preload("Items").First(&sale, id).Error
	if err != nil {
		return nil, notFound(err, domain.ErrSaleNotFound)
	}
	return &sale, nil
}

func (r *GormSaleRepository) FindBySourceOrderID(ctx context.Context, orderID uint) (*domain.Sale, error) {
	var sale domain.Sale
	err := r.db.WithContext(ctx).Preload("Items").Where("source_order_id = ?", orderID).First(&sale).Error
	if err != nil {
		return nil, notFound(err, domain.ErrSaleNotFound)
	}
	return &sale, nil
}

func (r *GormSaleRepository) FindBetween(ctx context.Context, from, to time.Time) ([]domain.Sale, error) {
	var sales []domain.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Order("created_at, id").
		Find(&sales).Error
	return sales, err
}

func (r *GormSaleRepository) List(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	limit := filter.EffectiveLimit()

	q := r.db.WithContext(ctx).Preload("Items")
	if !filter.From.IsZero() {
		q = q.Where("created_at >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		q = q.Where("created_at < ?", filter.To.UTC())
	}
	if filter.Channel != "" {
		q = q.Where("channel = ?", filter.Channel)
	}

	var sales []domain.Sale
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&sales).Error
	return sales, err
}
