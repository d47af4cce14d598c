package domain

import (
	"context"
	"time"
)

// StockChangeType tags the cause of a stock movement
type StockChangeType string

const (
	StockChangeSale        StockChangeType = "SALE"
	StockChangeSaleBundle  StockChangeType = "SALE_BUNDLE"
	StockChangeOnlineOrder StockChangeType = "ONLINE_ORDER"
	StockChangeRestock     StockChangeType = "RESTOCK"
	StockChangeAdjustment  StockChangeType = "ADJUSTMENT"
	StockChangeWaste       StockChangeType = "WASTE"
)

// Valid reports whether t is a known change type
func (t StockChangeType) Valid() bool {
	switch t {
	case StockChangeSale, StockChangeSaleBundle, StockChangeOnlineOrder,
		StockChangeRestock, StockChangeAdjustment, StockChangeWaste:
		return true
	}
	return false
}

// IsSale reports whether the change is an outbound sale of any channel
func (t StockChangeType) IsSale() bool {
	return t == StockChangeSale || t == StockChangeSaleBundle || t == StockChangeOnlineOrder
}

// StockLog is one immutable entry of the stock audit trail
type StockLog struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	ProductID      uint            `json:"product_id" gorm:"not null;index"`
	QuantityChange int             `json:"quantity_change" gorm:"not null"`
	Type           StockChangeType `json:"type" gorm:"type:varchar(16);not null;index"`
	Reason         string          `json:"reason"`
	SourceEventID  *string         `json:"source_event_id,omitempty" gorm:"size:64;uniqueIndex"`
	CreatedAt      time.Time       `json:"created_at" gorm:"index"`
}

// TableName specifies the table name
func (StockLog) TableName() string {
	return "stock_logs"
}

// StockLogRepository is append-only: there is no update or delete.
type StockLogRepository interface {
	Append(ctx context.Context, entry *StockLog) error
	FindByProductID(ctx context.Context, productID uint) ([]StockLog, error)
	FindAll(ctx context.Context) ([]StockLog, error)
	SumByProduct(ctx context.Context) (map[uint]int, error)
	ExistsForEvent(ctx context.Context, eventID string) (bool, error)
}
