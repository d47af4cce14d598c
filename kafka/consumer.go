package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/retail-ledger/pkg/logger"
)

// ErrNoHandler is returned when no handler is registered for an event type
var ErrNoHandler = errors.New("kafka: no handler registered")

// Consumer wraps Kafka consumer
type Consumer struct {
	consumer      sarama.ConsumerGroup
	groupID       string
	topics        []string
	handlers      map[string]EventHandler
	handlersMutex sync.RWMutex
	wg            sync.WaitGroup
}

// EventHandler handles the raw JSON payload of one event
type EventHandler func(ctx context.Context, payload []byte) error

// StockReceivedHandler handles a decoded stock.received event
type StockReceivedHandler func(ctx context.Context, event StockReceivedEvent) error

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, groupID string, topics []string) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Logger.Info().
		Strs("brokers", brokers).
		Str("group_id", groupID).
		Strs("topics", topics).
		Msg("Kafka consumer initialized")

	c := newConsumer(topics)
	c.consumer = group
	c.groupID = groupID
	return c, nil
}

func newConsumer(topics []string) *Consumer {
	return &Consumer{
		topics:   topics,
		handlers: make(map[string]EventHandler),
	}
}

// RegisterHandler registers an event handler for a specific event type
func (c *Consumer) RegisterHandler(eventType string, handler EventHandler) {
	c.handlersMutex.Lock()
	defer c.handlersMutex.Unlock()
	c.handlers[eventType] = handler
	logger.Logger.Info().
		Str("event_type", eventType).
		Msg("Event handler registered")
}

// RegisterStockReceivedHandler registers a typed stock.received handler
func (c *Consumer) RegisterStockReceivedHandler(handler StockReceivedHandler) {
	c.RegisterHandler(EventTypeStockReceived, func(ctx context.Context, payload []byte) error {
		var event StockReceivedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", EventTypeStockReceived, err)
		}
		if event.EventID == "" {
			event.EventID = EventIDFromContext(ctx)
		}
		return handler(ctx, event)
	})
}

// Start runs the consume loop in the background until ctx is cancelled.
// Sarama returns from Consume on every rebalance, so the loop re-joins.
func (c *Consumer) Start(ctx context.Context) error {
	if c.consumer == nil {
		return errors.New("kafka: consumer group not initialized")
	}

	handler := &consumerGroupHandler{consumer: c}
	c.wg.Add(2)

	go func() {
		defer c.wg.Done()
		for ctx.Err() == nil {
			err := c.consumer.Consume(ctx, c.topics, handler)
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				break
			}
			if err != nil {
				logger.Logger.Error().Err(err).Str("group_id", c.groupID).Msg("Consume loop error")
			}
		}
		logger.Logger.Info().Str("group_id", c.groupID).Msg("Consume loop stopped")
	}()

	go func() {
		defer c.wg.Done()
		for err := range c.consumer.Errors() {
			logger.Logger.Error().Err(err).Str("group_id", c.groupID).Msg("Consumer group error")
		}
	}()

	logger.Logger.Info().
		Strs("topics", c.topics).
		Str("group_id", c.groupID).
		Msg("Kafka consumer started")
	return nil
}

// Close leaves the group and waits for the background loops
func (c *Consumer) Close() error {
	if c.consumer == nil {
		return nil
	}
	err := c.consumer.Close()
	c.wg.Wait()
	return err
}

// Dispatch routes one payload to the handler registered for eventType
func (c *Consumer) Dispatch(ctx context.Context, eventType string, payload []byte) error {
	c.handlersMutex.RLock()
	handler, exists := c.handlers[eventType]
	c.handlersMutex.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrNoHandler, eventType)
	}
	return handler(ctx, payload)
}

type eventIDKey struct{}

// EventIDFromContext returns the event_id header of the message being handled
func EventIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(eventIDKey{}).(string)
	return id
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		h.handleMessage(session.Context(), message)
		session.MarkMessage(message, "")
	}
	return nil
}

func (h *consumerGroupHandler) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) {
	carrier := propagation.MapCarrier{}
	eventType, eventID := "", ""
	for _, header := range message.Headers {
		switch key := string(header.Key); key {
		case "traceparent", "tracestate":
			carrier[key] = string(header.Value)
		case "event_type":
			eventType = string(header.Value)
		case "event_id":
			eventID = string(header.Value)
		}
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)
	if eventID != "" {
		ctx = context.WithValue(ctx, eventIDKey{}, eventID)
	}

	tracer := otel.Tracer("kafka-consumer")
	ctx, span := tracer.Start(ctx, "kafka.consume."+eventType,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.source", message.Topic),
			attribute.String("messaging.source_kind", "topic"),
			attribute.Int("messaging.kafka.partition", int(message.Partition)),
			attribute.Int64("messaging.kafka.offset", message.Offset),
			attribute.String("event.type", eventType),
			attribute.String("event.id", eventID),
		),
	)
	defer span.End()

	if eventType == "" {
		span.SetStatus(codes.Error, "Message without event_type header")
		logger.Warn(ctx).Str("topic", message.Topic).Msg("Message without event_type header")
		return
	}

	if err := h.consumer.Dispatch(ctx, eventType, message.Value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to handle event")
		logger.Error(ctx).
			Err(err).
			Str("event_type", eventType).
			Str("event_id", eventID).
			Msg("Failed to handle event")
		return
	}

	span.SetStatus(codes.Ok, "Event handled successfully")
	logger.Info(ctx).
		Str("event_type", eventType).
		Str("event_id", eventID).
		Msg("Event handled successfully")
}
