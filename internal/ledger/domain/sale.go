package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Channel is the origin of a sale
type Channel string

const (
	ChannelPOS    Channel = "POS"
	ChannelOnline Channel = "ONLINE"
)

// DefaultPaymentMethod is used when a sale request names none
const DefaultPaymentMethod = "CASH"

// Sale is one committed transaction in the ledger. Subtotal is the item
// totals plus bundle prices plus DeliveryFee; only online sales carry a fee.
type Sale struct {
	ID                      uint            `json:"id" gorm:"primaryKey"`
	CustomerID              *uint           `json:"customer_id,omitempty" gorm:"index"`
	CashierID               *uint           `json:"cashier_id,omitempty" gorm:"index"`
	Subtotal                decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null"`
	Discount                decimal.Decimal `json:"discount" gorm:"type:numeric(12,2);not null;default:0"`
	DeliveryFee             decimal.Decimal `json:"delivery_fee" gorm:"type:numeric(12,2);not null;default:0"`
	Total                   decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null"`
	PaymentMethod           string          `json:"payment_method" gorm:"type:varchar(32);not null;default:'CASH'"`
	Channel                 Channel         `json:"channel" gorm:"type:varchar(16);not null;default:'POS';index"`
	SourceOrderID           *uint           `json:"source_order_id,omitempty" gorm:"uniqueIndex"`
	ExternalCustomerName    string          `json:"external_customer_name,omitempty"`
	ExternalCustomerPhone   string          `json:"external_customer_phone,omitempty"`
	ExternalCustomerAddress string          `json:"external_customer_address,omitempty"`
	CreatedAt               time.Time       `json:"created_at" gorm:"index"`
	Items                   []SaleItem      `json:"items" gorm:"foreignKey:SaleID"`
}

// TableName specifies the table name
func (Sale) TableName() string {
	return "sales"
}

// SaleItem is one line of a sale. Bundle lines carry a zero price.
type SaleItem struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	SaleID    uint            `json:"sale_id" gorm:"not null;index"`
	ProductID uint            `json:"product_id" gorm:"not null;index"`
	BundleID  *uint           `json:"bundle_id,omitempty" gorm:"index"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	Total     decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null"`
}

// TableName specifies the table name
func (SaleItem) TableName() string {
	return "sale_items"
}

// SaleFilter narrows sale listings. Zero values mean no constraint.
type SaleFilter struct {
	From    time.Time
	To      time.Time
	Channel Channel
	Limit   int
}

const (
	DefaultSaleListLimit = 50
	MaxSaleListLimit     = 500
)

// EffectiveLimit is the page size a listing returns: the default when
// unset, capped at MaxSaleListLimit.
func (f SaleFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultSaleListLimit
	case f.Limit > MaxSaleListLimit:
		return MaxSaleListLimit
	}
	return f.Limit
}

// SaleRepository defines the contract for ledger sale data access
type SaleRepository interface {
	Create(ctx context.Context, sale *Sale) error
	FindByID(ctx context.Context, id uint) (*Sale, error)
	FindBySourceOrderID(ctx context.Context, orderID uint) (*Sale, error)
	// FindBetween returns sales with items in [from, to), oldest first.
	FindBetween(ctx context.Context, from, to time.Time) ([]Sale, error)
	List(ctx context.Context, filter SaleFilter) ([]Sale, error)
}
