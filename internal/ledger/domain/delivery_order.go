package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of a delivery order
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusPreparing      OrderStatus = "PREPARING"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

var orderStatusNext = map[OrderStatus]OrderStatus{
	OrderStatusPending:        OrderStatusPreparing,
	OrderStatusPreparing:      OrderStatusOutForDelivery,
	OrderStatusOutForDelivery: OrderStatusDelivered,
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusOutForDelivery,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo allows one step forward, or cancellation of a non-terminal order
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return orderStatusNext[s] == next
}

// DeliveryOrder is a self-service online order
type DeliveryOrder struct {
	ID          uint                `json:"id" gorm:"primaryKey"`
	CustomerID  uint                `json:"customer_id" gorm:"not null;index"`
	TotalAmount decimal.Decimal     `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	DeliveryFee decimal.Decimal     `json:"delivery_fee" gorm:"type:numeric(12,2);not null;default:0"`
	Address     string              `json:"address" gorm:"not null"`
	Phone       string              `json:"phone" gorm:"not null"`
	FullName    string              `json:"full_name,omitempty"`
	Status      OrderStatus         `json:"status" gorm:"type:varchar(24);not null;default:'PENDING';index"`
	Items       []DeliveryOrderItem `json:"items" gorm:"foreignKey:OrderID"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// TableName specifies the table name
func (DeliveryOrder) TableName() string {
	return "delivery_orders"
}

// DeliveryOrderItem captures the unit price at order time
type DeliveryOrderItem struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	OrderID      uint            `json:"order_id" gorm:"not null;index"`
	ProductID    uint            `json:"product_id" gorm:"not null"`
	Quantity     int             `json:"quantity" gorm:"not null"`
	PriceAtOrder decimal.Decimal `json:"price_at_order" gorm:"type:numeric(12,2);not null"`
}

// TableName specifies the table name
func (DeliveryOrderItem) TableName() string {
	return "delivery_order_items"
}

// DeliveryOrderRepository defines the contract for order data access
type DeliveryOrderRepository interface {
	Create(ctx context.Context, order *DeliveryOrder) error
	FindByID(ctx context.Context, id uint) (*DeliveryOrder, error)
	FindByStatus(ctx context.Context, status OrderStatus) ([]DeliveryOrder, error)
	UpdateStatus(ctx context.Context, id uint, status OrderStatus, at time.Time) error
}
