package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

type GormStockLogRepository struct {
	db *gorm.DB
}

func NewGormStockLogRepository(db *gorm.DB) *GormStockLogRepository {
	return &GormStockLogRepository{db: db}
}

func (r *GormStockLogRepository) Append(ctx context.Context, entry *domain.StockLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *GormStockLogRepository) FindByProductID(ctx context.Context, productID uint) ([]domain.StockLog, error) {
	var logs []domain.StockLog
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Find(&logs).Error
	return logs, err
}

func (r *GormStockLogRepository) FindAll(ctx context.Context) ([]domain.StockLog, error) {
	var logs []domain.StockLog
	err := r.db.WithContext(ctx).Order("id").Find(&logs).Error
	return logs, err
}

func (r *GormStockLogRepository) ExistsForEvent(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.StockLog{}).
		Where("source_event_id = ?", eventID).
		Count(&count).Error
	return count > 0, err
}

func (r *GormStockLogRepository) SumByProduct(ctx context.Context) (map[uint]int, error) {
	var rows []struct {
		ProductID uint
		Total     int
	}
	err := r.db.WithContext(ctx).Model(&domain.StockLog{}).
		Select("product_id, COALESCE(SUM(quantity_change), 0) AS total").
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	sums := make(map[uint]int, len(rows))
	for _, row := range rows {
		sums[row.ProductID] = row.Total
	}
	return sums, nil
}
