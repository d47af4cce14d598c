package http

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tair/retail-ledger/internal/ledger/domain"
	"github.com/tair/retail-ledger/internal/ledger/usecase/command"
)

type lineRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity"`
}

type createSaleRequest struct {
	CustomerID    *uint           `json:"customer_id" validate:"omitempty,gt=0"`
	Items         []lineRequest   `json:"items" validate:"dive"`
	BundleIDs     []uint          `json:"bundle_ids" validate:"dive,gt=0"`
	Discount      decimal.Decimal `json:"discount"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,max=32"`
}

func (req createSaleRequest) toCommand(cashierID *uint) command.CreateSaleCommand {
	cmd := command.CreateSaleCommand{
		CashierID:     cashierID,
		CustomerID:    req.CustomerID,
		BundleIDs:     req.BundleIDs,
		Discount:      req.Discount,
		PaymentMethod: req.PaymentMethod,
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, command.SaleLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return cmd
}

type createOrderRequest struct {
	CustomerID  uint            `json:"customer_id" validate:"required"`
	Items       []lineRequest   `json:"items" validate:"dive"`
	Address     string          `json:"address" validate:"required,max=500"`
	Phone       string          `json:"phone" validate:"required,max=32"`
	FullName    string          `json:"full_name" validate:"max=120"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
}

func (req createOrderRequest) toCommand() command.CreateOrderCommand {
	cmd := command.CreateOrderCommand{
		CustomerID:  req.CustomerID,
		Address:     req.Address,
		Phone:       req.Phone,
		FullName:    req.FullName,
		DeliveryFee: req.DeliveryFee,
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, command.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return cmd
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type adjustStockRequest struct {
	Delta  int    `json:"delta" validate:"required"`
	Type   string `json:"type" validate:"omitempty,oneof=RESTOCK ADJUSTMENT WASTE"`
	Reason string `json:"reason" validate:"max=255"`
}

func (req adjustStockRequest) toCommand(productID uint) command.AdjustStockCommand {
	return command.AdjustStockCommand{
		ProductID: productID,
		Delta:     req.Delta,
		Type:      domain.StockChangeType(req.Type),
		Reason:    req.Reason,
	}
}

// validationDetails maps each failing field to the rule it broke
func validationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]string, len(verrs))
	for _, ve := range verrs {
		details[ve.Namespace()] = ve.Tag()
	}
	return details
}
