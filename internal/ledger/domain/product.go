package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus is the lifecycle state of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusInactive ProductStatus = "INACTIVE"
)

var hundred = decimal.NewFromInt(100)

// Product represents a sellable item and its stock level
type Product struct {
	ID                 uint            `json:"id" gorm:"primaryKey"`
	Name               string          `json:"name" gorm:"not null"`
	Barcode            string          `json:"barcode,omitempty" gorm:"index"`
	Category           string          `json:"category" gorm:"index"`
	PurchasePrice      decimal.Decimal `json:"purchase_price" gorm:"type:numeric(12,2);not null;default:0"`
	SellingPrice       decimal.Decimal `json:"selling_price" gorm:"type:numeric(12,2);not null;default:0"`
	CurrentStock       int             `json:"current_stock" gorm:"not null;default:0;check:current_stock >= 0"`
	InitialStock       int             `json:"initial_stock" gorm:"not null;default:0"`
	MinStock           int             `json:"min_stock" gorm:"not null;default:5"`
	Unit               string          `json:"unit,omitempty"`
	Status             ProductStatus   `json:"status" gorm:"type:varchar(16);not null;default:'ACTIVE';index"`
	ExpiryDate         *time.Time      `json:"expiry_date,omitempty"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage" gorm:"type:numeric(5,2);not null;default:0"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// TableName specifies the table name
func (Product) TableName() string {
	return "products"
}

// IsActive reports whether the product can be sold
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// IsLowStock reports whether stock is at or below the minimum threshold
func (p *Product) IsLowStock() bool {
	return p.CurrentStock <= p.MinStock
}

// ProfitMargin is the per-unit margin at current prices
func (p *Product) ProfitMargin() decimal.Decimal {
	return p.SellingPrice.Sub(p.PurchasePrice)
}

// EffectivePrice is the selling price after the product discount.
// The discount is clamped to [0, 100] and the result rounded half-up to cents.
func (p *Product) EffectivePrice() decimal.Decimal {
	disc := p.DiscountPercentage
	if disc.IsNegative() {
		disc = decimal.Zero
	}
	if disc.GreaterThan(hundred) {
		disc = hundred
	}
	factor := decimal.NewFromInt(1).Sub(disc.Div(hundred))
	return RoundMoney(p.SellingPrice.Mul(factor))
}

// ExpiresWithin reports whether the product expires on or before cutoff
func (p *Product) ExpiresWithin(cutoff time.Time) bool {
	return p.ExpiryDate != nil && !p.ExpiryDate.After(cutoff)
}

// RoundMoney rounds half away from zero to two decimal places
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ProductRepository defines the contract for product data access.
// Deduct and Adjust are conditional single-row updates and return the
// number of affected rows so the caller can classify a miss.
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, id uint) (*Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*Product, error)
	FindByIDs(ctx context.Context, ids []uint) ([]Product, error)
	FindAll(ctx context.Context) ([]Product, error)
	FindLowStock(ctx context.Context) ([]Product, error)
	FindExpiringBefore(ctx context.Context, cutoff time.Time) ([]Product, error)
	Deduct(ctx context.Context, id uint, qty int) (int64, error)
	Adjust(ctx context.Context, id uint, delta int) (int64, error)
}
