package command

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tair/retail-ledger/internal/ledger/domain"
	"github.com/tair/retail-ledger/internal/ledger/metrics"
	"github.com/tair/retail-ledger/kafka"
	"github.com/tair/retail-ledger/pkg/logger"
)

// UpdateOrderStatusCommand represents a fulfilment step for an order
type UpdateOrderStatusCommand struct {
	OrderID uint
	Status  domain.OrderStatus
}

// UpdateOrderStatusHandler handles the update order status command
type UpdateOrderStatusHandler struct {
	uow       domain.UnitOfWork
	clock     domain.Clock
	publisher EventPublisher
	metrics   *metrics.Ledger
}

// NewUpdateOrderStatusHandler creates a new update order status handler
func NewUpdateOrderStatusHandler(uow domain.UnitOfWork, clock domain.Clock, publisher EventPublisher, m *metrics.Ledger) *UpdateOrderStatusHandler {
	return &UpdateOrderStatusHandler{uow: uow, clock: clock, publisher: publisher, metrics: m}
}

// Handle moves the order to the requested status. Inventory is untouched,
// including on cancellation.
func (h *UpdateOrderStatusHandler) Handle(ctx context.Context, cmd UpdateOrderStatusCommand) (*domain.DeliveryOrder, error) {
	ctx, span := tracer.Start(ctx, "command.UpdateOrderStatus")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("order.id", int64(cmd.OrderID)),
		attribute.String("order.status", string(cmd.Status)),
	)

	next := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(string(cmd.Status))))
	if !next.Valid() {
		err := fmt.Errorf("%w: unknown order status %q", domain.ErrInvalidInput, cmd.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.metrics.ObserveRejection("update_order_status", err)
		return nil, err
	}

	var (
		order    *domain.DeliveryOrder
		previous domain.OrderStatus
	)
	err := h.uow.Do(ctx, func(repos domain.Repositories) error {
		current, err := repos.Orders().FindByID(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s to %s", domain.ErrInvalidStatusTransition, current.Status, next)
		}

		previous = current.Status
		now := h.clock.Now()
		if err := repos.Orders().UpdateStatus(ctx, current.ID, next, now); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		current.Status = next
		current.UpdatedAt = now
		order = current
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.metrics.ObserveRejection("update_order_status", err)
		logger.Warn(ctx).Err(err).Uint("order_id", cmd.OrderID).Msg("Order status change rejected")
		return nil, err
	}

	h.metrics.ObserveOrderTransition(order.Status)
	publishOrder(ctx, h.publisher, kafka.OrderEvent{
		EventType:      kafka.EventTypeOrderStatusChanged,
		OrderID:        order.ID,
		CustomerID:     order.CustomerID,
		Status:         string(order.Status),
		PreviousStatus: string(previous),
		TotalAmount:    order.TotalAmount,
		Timestamp:      order.UpdatedAt,
	})

	logger.Info(ctx).
		Uint("order_id", order.ID).
		Str("from", string(previous)).
		Str("to", string(order.Status)).
		Msg("Order status updated")
	return order, nil
}
