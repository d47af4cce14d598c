package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleView is the flattened read model of a sale
type SaleView struct {
	ID                      uint            `json:"id"`
	CustomerID              *uint           `json:"customer_id,omitempty"`
	CustomerName            string          `json:"customer_name,omitempty"`
	CustomerPhone           string          `json:"customer_phone,omitempty"`
	CashierID               *uint           `json:"cashier_id,omitempty"`
	CashierName             string          `json:"cashier_name,omitempty"`
	Subtotal                decimal.Decimal `json:"subtotal"`
	Discount                decimal.Decimal `json:"discount"`
	DeliveryFee             decimal.Decimal `json:"delivery_fee"`
	Total                   decimal.Decimal `json:"total"`
	PaymentMethod           string          `json:"payment_method"`
	Channel                 Channel         `json:"channel"`
	SourceOrderID           *uint           `json:"source_order_id,omitempty"`
	ExternalCustomerName    string          `json:"external_customer_name,omitempty"`
	ExternalCustomerPhone   string          `json:"external_customer_phone,omitempty"`
	ExternalCustomerAddress string          `json:"external_customer_address,omitempty"`
	CreatedAt               time.Time       `json:"created_at"`
	Items                   []SaleItemView  `json:"items"`
}

// SaleItemView is one line with its product name resolved
type SaleItemView struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	BundleID    *uint           `json:"bundle_id,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// NewSaleView flattens a sale. Missing products keep an empty name.
func NewSaleView(sale *Sale, products map[uint]*Product, customer *Customer, cashier *Staff) *SaleView {
	view := &SaleView{
		ID:                      sale.ID,
		CustomerID:              sale.CustomerID,
		CashierID:               sale.CashierID,
		Subtotal:                sale.Subtotal,
		Discount:                sale.Discount,
		DeliveryFee:             sale.DeliveryFee,
		Total:                   sale.Total,
		PaymentMethod:           sale.PaymentMethod,
		Channel:                 sale.Channel,
		SourceOrderID:           sale.SourceOrderID,
		ExternalCustomerName:    sale.ExternalCustomerName,
		ExternalCustomerPhone:   sale.ExternalCustomerPhone,
		ExternalCustomerAddress: sale.ExternalCustomerAddress,
		CreatedAt:               sale.CreatedAt,
		Items:                   make([]SaleItemView, 0, len(sale.Items)),
	}
	if customer != nil {
		view.CustomerName = customer.Name
		if customer.Phone != nil {
			view.CustomerPhone = *customer.Phone
		}
	}
	if cashier != nil {
		view.CashierName = cashier.DisplayName()
	}

	for _, item := range sale.Items {
		line := SaleItemView{
			ProductID: item.ProductID,
			BundleID:  item.BundleID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total,
		}
		if p, ok := products[item.ProductID]; ok && p != nil {
			line.ProductName = p.Name
		}
		view.Items = append(view.Items, line)
	}
	return view
}
