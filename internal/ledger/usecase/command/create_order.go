package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tair/retail-ledger/internal/ledger/domain"
	"github.com/tair/retail-ledger/internal/ledger/inventory"
	"github.com/tair/retail-ledger/internal/ledger/loyalty"
	"github.com/tair/retail-ledger/internal/ledger/metrics"
	"github.com/tair/retail-ledger/kafka"
	"github.com/tair/retail-ledger/pkg/logger"
)

// PhoneRegion is the default region used to parse local phone numbers
type PhoneRegion string

// OrderLine is one product requested in a delivery order
type OrderLine struct {
	ProductID uint
	Quantity  int
}

// CreateOrderCommand represents a customer self-service checkout
type CreateOrderCommand struct {
	CustomerID  uint
	Items       []OrderLine
	Address     string
	Phone       string
	FullName    string
	DeliveryFee decimal.Decimal
}

// CreateOrderHandler handles the create order command
type CreateOrderHandler struct {
	uow       domain.UnitOfWork
	clock     domain.Clock
	publisher EventPublisher
	metrics   *metrics.Ledger
	region    PhoneRegion
}

// NewCreateOrderHandler creates a new create order handler
func NewCreateOrderHandler(uow domain.UnitOfWork, clock domain.Clock, publisher EventPublisher, m *metrics.Ledger, region PhoneRegion) *CreateOrderHandler {
	return &CreateOrderHandler{uow: uow, clock: clock, publisher: publisher, metrics: m, region: region}
}

func (cmd CreateOrderCommand) validate() error {
	if len(cmd.Items) == 0 {
		return domain.ErrEmptyTransaction
	}
	for _, line := range cmd.Items {
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: product %d quantity %d", domain.ErrInvalidQuantity, line.ProductID, line.Quantity)
		}
	}
	if strings.TrimSpace(cmd.Address) == "" {
		return fmt.Errorf("%w: delivery address is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(cmd.Phone) == "" {
		return fmt.Errorf("%w: contact phone is required", domain.ErrInvalidInput)
	}
	if cmd.DeliveryFee.IsNegative() {
		return fmt.Errorf("%w: delivery fee %s", domain.ErrInvalidInput, cmd.DeliveryFee)
	}
	return nil
}

// NormalizePhone formats phone as E.164 when it parses for region.
// Unparseable input is returned trimmed.
func NormalizePhone(phone string, region PhoneRegion) string {
	phone = strings.TrimSpace(phone)
	num, err := libphonenumber.Parse(phone, strings.ToUpper(string(region)))
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return phone
	}
	return libphonenumber.Format(num, libphonenumber.E164)
}

// Handle places the order and its mirrored ONLINE sale in one unit of work
func (h *CreateOrderHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*domain.DeliveryOrder, error) {
	ctx, span := tracer.Start(ctx, "command.CreateOrder")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("customer.id", int64(cmd.CustomerID)),
		attribute.Int("order.item_count", len(cmd.Items)),
	)

	order, sale, err := h.handle(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.metrics.ObserveRejection("create_order", err)
		logger.Warn(ctx).Err(err).Uint("customer_id", cmd.CustomerID).Msg("Order rejected")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("order.id", int64(order.ID)),
		attribute.Int64("sale.id", int64(sale.ID)),
	)
	h.metrics.ObserveSale(sale.Channel, sale.Total)
	h.metrics.ObserveOrderTransition(order.Status)
	for _, item := range order.Items {
		h.metrics.ObserveStockMovement(domain.StockChangeOnlineOrder, item.Quantity)
	}

	publishOrder(ctx, h.publisher, kafka.OrderEvent{
		EventType:   kafka.EventTypeOrderCreated,
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		SaleID:      sale.ID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount,
		Timestamp:   order.CreatedAt,
	})
	orderID := order.ID
	publishSale(ctx, h.publisher, kafka.SaleRecordedEvent{
		SaleID:        sale.ID,
		Channel:       string(sale.Channel),
		CustomerID:    sale.CustomerID,
		SourceOrderID: &orderID,
		Subtotal:      sale.Subtotal,
		Discount:      sale.Discount,
		Total:         sale.Total,
		PaymentMethod: sale.PaymentMethod,
		ItemCount:     len(sale.Items),
		Timestamp:     sale.CreatedAt,
	})

	logger.Info(ctx).
		Uint("order_id", order.ID).
		Uint("sale_id", sale.ID).
		Str("total", order.TotalAmount.String()).
		Msg("Delivery order placed")
	return order, nil
}

func (h *CreateOrderHandler) handle(ctx context.Context, cmd CreateOrderCommand) (*domain.DeliveryOrder, *domain.Sale, error) {
	if err := cmd.validate(); err != nil {
		return nil, nil, err
	}
	phone := NormalizePhone(cmd.Phone, h.region)
	address := strings.TrimSpace(cmd.Address)
	fullName := strings.TrimSpace(cmd.FullName)

	var (
		order *domain.DeliveryOrder
		sale  *domain.Sale
	)
	err := h.uow.Do(ctx, func(repos domain.Repositories) error {
		now := h.clock.Now()
		store := inventory.NewStore(repos, h.clock)

		customer, err := repos.Customers().FindByIDForUpdate(ctx, cmd.CustomerID)
		if err != nil {
			return err
		}

		orderItems := make([]domain.DeliveryOrderItem, 0, len(cmd.Items))
		saleItems := make([]domain.SaleItem, 0, len(cmd.Items))
		linesTotal := decimal.Zero
		leadingCategory := ""

		for _, line := range cmd.Items {
			product, err := store.GetProduct(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if _, err := store.Deduct(ctx, product.ID, line.Quantity, domain.StockChangeOnlineOrder, "Order checkout (online)"); err != nil {
				return err
			}

			price := product.EffectivePrice()
			lineTotal := price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			orderItems = append(orderItems, domain.DeliveryOrderItem{
				ProductID:    product.ID,
				Quantity:     line.Quantity,
				PriceAtOrder: price,
			})
			saleItems = append(saleItems, domain.SaleItem{
				ProductID: product.ID,
				Quantity:  line.Quantity,
				UnitPrice: price,
				Total:     lineTotal,
			})
			linesTotal = linesTotal.Add(lineTotal)
			if leadingCategory == "" {
				leadingCategory = product.Category
			}
		}

		total := linesTotal.Add(cmd.DeliveryFee)
		order = &domain.DeliveryOrder{
			CustomerID:  customer.ID,
			TotalAmount: total,
			DeliveryFee: cmd.DeliveryFee,
			Address:     address,
			Phone:       phone,
			FullName:    fullName,
			Status:      domain.OrderStatusPending,
			Items:       orderItems,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repos.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("failed to persist delivery order: %w", err)
		}

		externalName := fullName
		if externalName == "" {
			externalName = customer.Name
		}
		customerID := customer.ID
		orderID := order.ID
		sale = &domain.Sale{
			CustomerID:              &customerID,
			Subtotal:                total,
			Discount:                decimal.Zero,
			DeliveryFee:             cmd.DeliveryFee,
			Total:                   total,
			PaymentMethod:           domain.DefaultPaymentMethod,
			Channel:                 domain.ChannelOnline,
			SourceOrderID:           &orderID,
			ExternalCustomerName:    externalName,
			ExternalCustomerPhone:   phone,
			ExternalCustomerAddress: address,
			CreatedAt:               now,
			Items:                   saleItems,
		}
		if err := repos.Sales().Create(ctx, sale); err != nil {
			return fmt.Errorf("failed to persist online sale: %w", err)
		}

		loyalty.Accrue(customer, total, leadingCategory, now)
		if err := repos.Customers().Update(ctx, customer); err != nil {
			return fmt.Errorf("failed to update customer loyalty: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, sale, nil
}
