package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tair/retail-ledger/internal/ledger/domain"
	"github.com/tair/retail-ledger/internal/ledger/inventory"
	"github.com/tair/retail-ledger/internal/ledger/loyalty"
	"github.com/tair/retail-ledger/internal/ledger/metrics"
	"github.com/tair/retail-ledger/kafka"
	"github.com/tair/retail-ledger/pkg/logger"
)

// SaleLine is one product and quantity requested at checkout
type SaleLine struct {
	ProductID uint
	Quantity  int
}

// CreateSaleCommand represents a POS checkout. CashierID is the
// authenticated actor resolved by the caller; nil is allowed.
type CreateSaleCommand struct {
	CashierID     *uint
	CustomerID    *uint
	Items         []SaleLine
	BundleIDs     []uint
	Discount      decimal.Decimal
	PaymentMethod string
}

// CreateSaleHandler handles the create sale command
type CreateSaleHandler struct {
	uow       domain.UnitOfWork
	clock     domain.Clock
	publisher EventPublisher
	metrics   *metrics.Ledger
}

// NewCreateSaleHandler creates a new create sale handler
func NewCreateSaleHandler(uow domain.UnitOfWork, clock domain.Clock, publisher EventPublisher, m *metrics.Ledger) *CreateSaleHandler {
	return &CreateSaleHandler{uow: uow, clock: clock, publisher: publisher, metrics: m}
}

func (cmd CreateSaleCommand) validate() error {
	if len(cmd.Items) == 0 && len(cmd.BundleIDs) == 0 {
		return domain.ErrEmptyTransaction
	}
	for _, line := range cmd.Items {
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: product %d quantity %d", domain.ErrInvalidQuantity, line.ProductID, line.Quantity)
		}
	}
	if cmd.Discount.IsNegative() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidDiscount, cmd.Discount)
	}
	return nil
}

// Handle records the sale atomically: every deduction, audit entry, the
// sale itself and the loyalty update commit together or not at all.
func (h *CreateSaleHandler) Handle(ctx context.Context, cmd CreateSaleCommand) (*domain.SaleView, error) {
	ctx, span := tracer.Start(ctx, "command.CreateSale")
	defer span.End()
	span.SetAttributes(
		attribute.Int("sale.item_count", len(cmd.Items)),
		attribute.Int("sale.bundle_count", len(cmd.BundleIDs)),
	)

	view, err := h.handle(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.metrics.ObserveRejection("create_sale", err)
		logger.Warn(ctx).Err(err).Msg("Sale rejected")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("sale.id", int64(view.ID)),
		attribute.String("sale.total", view.Total.String()),
	)
	h.metrics.ObserveSale(view.Channel, view.Total)
	for _, item := range view.Items {
		changeType := domain.StockChangeSale
		if item.BundleID != nil {
			changeType = domain.StockChangeSaleBundle
		}
		h.metrics.ObserveStockMovement(changeType, item.Quantity)
	}

	publishSale(ctx, h.publisher, kafka.SaleRecordedEvent{
		SaleID:        view.ID,
		Channel:       string(view.Channel),
		CustomerID:    view.CustomerID,
		CashierID:     view.CashierID,
		Subtotal:      view.Subtotal,
		Discount:      view.Discount,
		Total:         view.Total,
		PaymentMethod: view.PaymentMethod,
		ItemCount:     len(view.Items),
		Timestamp:     view.CreatedAt,
	})

	logger.Info(ctx).
		Uint("sale_id", view.ID).
		Str("total", view.Total.String()).
		Int("items", len(view.Items)).
		Msg("Sale recorded")
	return view, nil
}

func (h *CreateSaleHandler) handle(ctx context.Context, cmd CreateSaleCommand) (*domain.SaleView, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	paymentMethod := strings.ToUpper(strings.TrimSpace(cmd.PaymentMethod))
	if paymentMethod == "" {
		paymentMethod = domain.DefaultPaymentMethod
	}

	var view *domain.SaleView
	err := h.uow.Do(ctx, func(repos domain.Repositories) error {
		now := h.clock.Now()
		store := inventory.NewStore(repos, h.clock)

		var customer *domain.Customer
		if cmd.CustomerID != nil {
			c, err := repos.Customers().FindByIDForUpdate(ctx, *cmd.CustomerID)
			if err != nil {
				return err
			}
			customer = c
		}

		var cashier *domain.Staff
		if cmd.CashierID != nil {
			s, err := repos.Staff().FindByID(ctx, *cmd.CashierID)
			if err != nil {
				return err
			}
			cashier = s
		}

		products := make(map[uint]*domain.Product)
		items := make([]domain.SaleItem, 0, len(cmd.Items))
		subtotal := decimal.Zero
		leadingCategory := ""

		for _, line := range cmd.Items {
			product, err := store.GetProduct(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if _, err := store.Deduct(ctx, product.ID, line.Quantity, domain.StockChangeSale, "POS sale"); err != nil {
				return err
			}

			unitPrice := product.SellingPrice
			lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			items = append(items, domain.SaleItem{
				ProductID: product.ID,
				Quantity:  line.Quantity,
				UnitPrice: unitPrice,
				Total:     lineTotal,
			})
			subtotal = subtotal.Add(lineTotal)
			products[product.ID] = product
			if leadingCategory == "" {
				leadingCategory = product.Category
			}
		}

		for _, bundleID := range cmd.BundleIDs {
			bundle, err := repos.Bundles().FindByID(ctx, bundleID)
			if err != nil {
				return err
			}
			if !bundle.IsActive() {
				return fmt.Errorf("%w: %s", domain.ErrInactiveBundle, bundle.Name)
			}

			reason := "Bundle: " + bundle.Name
			for _, bi := range bundle.Items {
				product, err := store.Deduct(ctx, bi.ProductID, bi.Quantity, domain.StockChangeSaleBundle, reason)
				if err != nil {
					return err
				}
				id := bundle.ID
				items = append(items, domain.SaleItem{
					ProductID: product.ID,
					BundleID:  &id,
					Quantity:  bi.Quantity,
					UnitPrice: decimal.Zero,
					Total:     decimal.Zero,
				})
				products[product.ID] = product
				if leadingCategory == "" {
					leadingCategory = product.Category
				}
			}
			subtotal = subtotal.Add(bundle.Price)
		}

		if cmd.Discount.GreaterThan(subtotal) {
			return fmt.Errorf("%w: discount %s exceeds subtotal %s", domain.ErrInvalidDiscount, cmd.Discount, subtotal)
		}

		sale := &domain.Sale{
			CustomerID:    cmd.CustomerID,
			CashierID:     cmd.CashierID,
			Subtotal:      subtotal,
			Discount:      cmd.Discount,
			Total:         subtotal.Sub(cmd.Discount),
			PaymentMethod: paymentMethod,
			Channel:       domain.ChannelPOS,
			CreatedAt:     now,
			Items:         items,
		}
		if err := repos.Sales().Create(ctx, sale); err != nil {
			return fmt.Errorf("failed to persist sale: %w", err)
		}

		if customer != nil {
			loyalty.Accrue(customer, sale.Total, leadingCategory, now)
			if err := repos.Customers().Update(ctx, customer); err != nil {
				return fmt.Errorf("failed to update customer loyalty: %w", err)
			}
		}

		view = domain.NewSaleView(sale, products, customer, cashier)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}
