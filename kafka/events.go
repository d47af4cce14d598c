package kafka

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleRecordedEvent is emitted after a sale commits, for either channel
type SaleRecordedEvent struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	SaleID        uint            `json:"sale_id"`
	Channel       string          `json:"channel"`
	CustomerID    *uint           `json:"customer_id,omitempty"`
	CashierID     *uint           `json:"cashier_id,omitempty"`
	SourceOrderID *uint           `json:"source_order_id,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	ItemCount     int             `json:"item_count"`
	Timestamp     time.Time       `json:"timestamp"`
}

// OrderEvent is emitted when a delivery order is created or changes status
type OrderEvent struct {
	EventID        string          `json:"event_id"`
	EventType      string          `json:"event_type"`
	OrderID        uint            `json:"order_id"`
	CustomerID     uint            `json:"customer_id"`
	SaleID         uint            `json:"sale_id,omitempty"`
	Status         string          `json:"status"`
	PreviousStatus string          `json:"previous_status,omitempty"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Timestamp      time.Time       `json:"timestamp"`
}

// StockReceivedEvent is consumed from procurement when goods arrive
type StockReceivedEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	ProductID uint      `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Reference string    `json:"reference,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Event types
const (
	EventTypeSaleRecorded       = "sale.recorded"
	EventTypeOrderCreated       = "order.created"
	EventTypeOrderStatusChanged = "order.status_changed"
	EventTypeStockReceived      = "stock.received"
)

// Kafka topics
const (
	TopicSales         = "ledger-sales"
	TopicOrders        = "ledger-orders"
	TopicStockReceived = "stock-received"
)
