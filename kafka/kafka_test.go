package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headerValue(msg *sarama.ProducerMessage, key string) string {
	for _, h := range msg.Headers {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestPublisher_PublishSaleRecorded(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	defer producer.Close()

	var sent *sarama.ProducerMessage
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		sent = msg
		return nil
	})

	publisher := NewPublisherWithProducer(producer, []string{"localhost:9092"})
	err := publisher.PublishSaleRecorded(context.Background(), SaleRecordedEvent{
		SaleID:  42,
		Channel: "POS",
		Total:   decimal.RequireFromString("30.50"),
	})
	require.NoError(t, err)
	require.NotNil(t, sent)

	assert.Equal(t, TopicSales, sent.Topic)
	key, err := sent.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "sale_42", string(key))
	assert.Equal(t, EventTypeSaleRecorded, headerValue(sent, "event_type"))
	assert.NotEmpty(t, headerValue(sent, "event_id"))

	raw, err := sent.Value.Encode()
	require.NoError(t, err)
	var decoded SaleRecordedEvent
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, uint(42), decoded.SaleID)
	assert.Equal(t, EventTypeSaleRecorded, decoded.EventType)
	assert.Equal(t, headerValue(sent, "event_id"), decoded.EventID)
	assert.True(t, decoded.Total.Equal(decimal.RequireFromString("30.5")))
	assert.False(t, decoded.Timestamp.IsZero())
}

func TestPublisher_PublishOrderEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	defer producer.Close()

	var sent *sarama.ProducerMessage
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		sent = msg
		return nil
	})

	publisher := NewPublisherWithProducer(producer, nil)
	require.NoError(t, publisher.PublishOrderEvent(context.Background(), OrderEvent{
		EventID: "evt-1",
		OrderID: 7,
		Status:  "PENDING",
	}))

	assert.Equal(t, TopicOrders, sent.Topic)
	key, err := sent.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "order_7", string(key))
	assert.Equal(t, EventTypeOrderCreated, headerValue(sent, "event_type"))
	assert.Equal(t, "evt-1", headerValue(sent, "event_id"))
}

func TestPublisher_SendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	defer producer.Close()
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	publisher := NewPublisherWithProducer(producer, nil)
	err := publisher.PublishOrderEvent(context.Background(), OrderEvent{OrderID: 1, EventType: EventTypeOrderStatusChanged})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

func TestConsumer_Dispatch(t *testing.T) {
	c := newConsumer([]string{TopicStockReceived})

	var received []StockReceivedEvent
	c.RegisterStockReceivedHandler(func(_ context.Context, event StockReceivedEvent) error {
		received = append(received, event)
		return nil
	})

	payload := []byte(`{"event_type":"stock.received","product_id":3,"quantity":24,"reference":"PO-1042"}`)
	require.NoError(t, c.Dispatch(context.Background(), EventTypeStockReceived, payload))
	require.Len(t, received, 1)
	assert.Equal(t, uint(3), received[0].ProductID)
	assert.Equal(t, 24, received[0].Quantity)
	assert.Equal(t, "PO-1042", received[0].Reference)

	err := c.Dispatch(context.Background(), EventTypeStockReceived, []byte("{"))
	assert.Error(t, err)
	assert.Len(t, received, 1)

	err = c.Dispatch(context.Background(), "price.changed", payload)
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestConsumer_HandleMessage(t *testing.T) {
	c := newConsumer([]string{TopicStockReceived})
	handlerErr := errors.New("stock handler failed")

	calls := 0
	c.RegisterStockReceivedHandler(func(context.Context, StockReceivedEvent) error {
		calls++
		return handlerErr
	})
	h := &consumerGroupHandler{consumer: c}

	h.handleMessage(context.Background(), &sarama.ConsumerMessage{
		Topic: TopicStockReceived,
		Value: []byte(`{"product_id":1,"quantity":2}`),
	})
	assert.Zero(t, calls)

	h.handleMessage(context.Background(), &sarama.ConsumerMessage{
		Topic: TopicStockReceived,
		Headers: []*sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(EventTypeStockReceived)},
			{Key: []byte("event_id"), Value: []byte("evt-9")},
		},
		Value: []byte(`{"product_id":1,"quantity":2}`),
	})
	assert.Equal(t, 1, calls)
}

func TestConsumer_EventIDFromHeader(t *testing.T) {
	c := newConsumer([]string{TopicStockReceived})

	var received []StockReceivedEvent
	c.RegisterStockReceivedHandler(func(_ context.Context, event StockReceivedEvent) error {
		received = append(received, event)
		return nil
	})
	h := &consumerGroupHandler{consumer: c}

	send := func(value string) {
		h.handleMessage(context.Background(), &sarama.ConsumerMessage{
			Topic: TopicStockReceived,
			Headers: []*sarama.RecordHeader{
				{Key: []byte("event_type"), Value: []byte(EventTypeStockReceived)},
				{Key: []byte("event_id"), Value: []byte("evt-header")},
			},
			Value: []byte(value),
		})
	}
	send(`{"product_id":1,"quantity":2}`)
	send(`{"event_id":"evt-body","product_id":1,"quantity":2}`)

	require.Len(t, received, 2)
	assert.Equal(t, "evt-header", received[0].EventID)
	assert.Equal(t, "evt-body", received[1].EventID)
	assert.Empty(t, EventIDFromContext(context.Background()))
}
