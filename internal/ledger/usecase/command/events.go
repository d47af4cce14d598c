package command

import (
	"context"

	"go.opentelemetry.io/otel"

	"github.com/tair/retail-ledger/kafka"
	"github.com/tair/retail-ledger/pkg/logger"
)

var tracer = otel.Tracer("ledger-command")

// EventPublisher announces committed ledger changes. Publishing happens
// after commit; a failure is logged and never undoes the write.
type EventPublisher interface {
	PublishSaleRecorded(ctx context.Context, event kafka.SaleRecordedEvent) error
	PublishOrderEvent(ctx context.Context, event kafka.OrderEvent) error
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) PublishSaleRecorded(context.Context, kafka.SaleRecordedEvent) error { return nil }
func (NoopPublisher) PublishOrderEvent(context.Context, kafka.OrderEvent) error { return nil }

func publishSale(ctx context.Context, p EventPublisher, event kafka.SaleRecordedEvent) {
	if p == nil {
		return
	}
	if err := p.PublishSaleRecorded(ctx, event); err != nil {
		logger.Warn(ctx).Err(err).Uint("sale_id", event.SaleID).Msg("Failed to publish sale event")
	}
}

func publishOrder(ctx context.Context, p EventPublisher, event kafka.OrderEvent) {
	if p == nil {
		return
	}
	if err := p.PublishOrderEvent(ctx, event); err != nil {
		logger.Warn(ctx).Err(err).Uint("order_id", event.OrderID).Str("event_type", event.EventType).Msg("Failed to publish order event")
	}
}
