package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

type GormDeliveryOrderRepository struct {
	db *gorm.DB
}

func NewGormDeliveryOrderRepository(db *gorm.DB) *GormDeliveryOrderRepository {
	return &GormDeliveryOrderRepository{db: db}
}

func (r *GormDeliveryOrderRepository) Create(ctx context.Context, order *domain.DeliveryOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *GormDeliveryOrderRepository) FindByID(ctx context.Context, id uint) (*domain.DeliveryOrder, error) {
	var order domain.DeliveryOrder
	err := r.db.WithContext(ctx).Preload("Items").First(&order, id).Error
	if err != nil {
		return nil, notFound(err, domain.ErrOrderNotFound)
	}
	return &order, nil
}

func (r *GormDeliveryOrderRepository) FindByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.DeliveryOrder, error) {
	var orders []domain.DeliveryOrder
	q := r.db.WithContext(ctx).Preload("Items")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("created_at DESC, id DESC").Find(&orders).Error
	return orders, err
}

func (r *GormDeliveryOrderRepository) UpdateStatus(ctx context.Context, id uint, status domain.OrderStatus, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.DeliveryOrder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": at.UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
