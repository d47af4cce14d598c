package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tair/retail-ledger/internal/ledger/audit"
	"github.com/tair/retail-ledger/internal/ledger/domain"
	"github.com/tair/retail-ledger/internal/ledger/inventory"
	"github.com/tair/retail-ledger/internal/ledger/metrics"
	"github.com/tair/retail-ledger/kafka"
	"github.com/tair/retail-ledger/pkg/logger"
)

// AdjustStockCommand represents a restock, waste write-off or manual correction.
// An empty Type is inferred from the sign of Delta. A command carrying an
// EventID is applied at most once per event.
type AdjustStockCommand struct {
	ProductID uint
	Delta     int
	Type      domain.StockChangeType
	Reason    string
	EventID   string
}

var errEventApplied = errors.New("stock event already applied")

// AdjustStockHandler handles the adjust stock command
type AdjustStockHandler struct {
	uow     domain.UnitOfWork
	clock   domain.Clock
	metrics *metrics.Ledger
}

// NewAdjustStockHandler creates a new adjust stock handler
func NewAdjustStockHandler(uow domain.UnitOfWork, clock domain.Clock, m *metrics.Ledger) *AdjustStockHandler {
	return &AdjustStockHandler{uow: uow, clock: clock, metrics: m}
}

// Handle applies the adjustment and its audit entry atomically
func (h *AdjustStockHandler) Handle(ctx context.Context, cmd AdjustStockCommand) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "command.AdjustStock")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("product.id", int64(cmd.ProductID)),
		attribute.Int("stock.delta", cmd.Delta),
	)

	product, changeType, err := h.handle(ctx, cmd)
	if errors.Is(err, errEventApplied) {
		span.SetAttributes(attribute.Bool("event.duplicate", true))
		logger.Info(ctx).
			Str("event_id", cmd.EventID).
			Uint("product_id", cmd.ProductID).
			Msg("Stock event already applied, skipping")
		return h.uow.Reader().Products().FindByID(ctx, cmd.ProductID)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.metrics.ObserveRejection("adjust_stock", err)
		logger.Warn(ctx).Err(err).Uint("product_id", cmd.ProductID).Int("delta", cmd.Delta).Msg("Stock adjustment rejected")
		return nil, err
	}

	h.metrics.ObserveStockMovement(changeType, cmd.Delta)
	logger.Info(ctx).
		Uint("product_id", product.ID).
		Int("delta", cmd.Delta).
		Str("type", string(changeType)).
		Int("stock", product.CurrentStock).
		Msg("Stock adjusted")
	return product, nil
}

func (h *AdjustStockHandler) handle(ctx context.Context, cmd AdjustStockCommand) (*domain.Product, domain.StockChangeType, error) {
	if cmd.Delta == 0 {
		return nil, "", domain.ErrInvalidQuantity
	}

	changeType := domain.StockChangeType(strings.ToUpper(strings.TrimSpace(string(cmd.Type))))
	switch {
	case changeType == "":
		changeType = domain.StockChangeAdjustment
		if cmd.Delta > 0 {
			changeType = domain.StockChangeRestock
		}
	case !changeType.Valid():
		return nil, "", fmt.Errorf("%w: unknown stock change type %q", domain.ErrInvalidInput, cmd.Type)
	case changeType.IsSale():
		return nil, "", fmt.Errorf("%w: sales are recorded through checkout, not adjustments", domain.ErrInvalidInput)
	case changeType == domain.StockChangeRestock && cmd.Delta < 0:
		return nil, "", fmt.Errorf("%w: restock must add stock", domain.ErrInvalidQuantity)
	case changeType == domain.StockChangeWaste && cmd.Delta > 0:
		return nil, "", fmt.Errorf("%w: waste must remove stock", domain.ErrInvalidQuantity)
	}

	var product *domain.Product
	err := h.uow.Do(ctx, func(repos domain.Repositories) error {
		if cmd.EventID != "" {
			applied, err := audit.NewTrail(repos, h.clock).Applied(ctx, cmd.EventID)
			if err != nil {
				return err
			}
			if applied {
				return errEventApplied
			}
		}

		p, err := inventory.NewStore(repos, h.clock).Adjust(ctx, cmd.ProductID, cmd.Delta, changeType,
			strings.TrimSpace(cmd.Reason), audit.FromEvent(cmd.EventID))
		if err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return product, changeType, nil
}

// HandleStockReceived restocks from a procurement event. A redelivered
// event with a known id leaves stock untouched.
func (h *AdjustStockHandler) HandleStockReceived(ctx context.Context, event kafka.StockReceivedEvent) error {
	reason := "Stock received"
	if event.Reference != "" {
		reason = reason + ": " + event.Reference
	}
	_, err := h.Handle(ctx, AdjustStockCommand{
		ProductID: event.ProductID,
		Delta:     event.Quantity,
		Type:      domain.StockChangeRestock,
		Reason:    reason,
		EventID:   event.EventID,
	})
	return err
}
