package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Bundle is a fixed-price offer of several products
type Bundle struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	Name      string          `json:"name" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Status    ProductStatus   `json:"status" gorm:"type:varchar(16);not null;default:'ACTIVE'"`
	Items     []BundleItem    `json:"items" gorm:"foreignKey:BundleID"`
	CreatedAt time.Time       `json:"created_at"`
}

// TableName specifies the table name
func (Bundle) TableName() string {
	return "bundles"
}

// IsActive reports whether the bundle can be sold
func (b *Bundle) IsActive() bool {
	return b.Status == ProductStatusActive
}

// BundleItem is one product and quantity inside a bundle
type BundleItem struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	BundleID  uint `json:"bundle_id" gorm:"not null;index"`
	ProductID uint `json:"product_id" gorm:"not null"`
	Quantity  int  `json:"quantity" gorm:"not null"`
}

// TableName specifies the table name
func (BundleItem) TableName() string {
	return "bundle_items"
}

// BundleRepository defines the contract for bundle data access
type BundleRepository interface {
	Create(ctx context.Context, bundle *Bundle) error
	FindByID(ctx context.Context, id uint) (*Bundle, error)
}
