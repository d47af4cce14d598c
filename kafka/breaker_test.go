package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	err   error
	calls int
}

func (s *fakeSink) PublishSaleRecorded(context.Context, SaleRecordedEvent) error {
	s.calls++
	return s.err
}

func (s *fakeSink) PublishOrderEvent(context.Context, OrderEvent) error {
	s.calls++
	return s.err
}

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	now := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("kafka", 2, 30*time.Second)
	cb.now = func() time.Time { return now }

	boom := errors.New("broker down")
	fail := func() error { return boom }
	ok := func() error { return nil }

	assert.ErrorIs(t, cb.Call(fail), boom)
	assert.NoError(t, cb.Call(ok))
	assert.ErrorIs(t, cb.Call(fail), boom)
	assert.Equal(t, StateClosed, cb.State(), "a success resets the failure count")

	assert.ErrorIs(t, cb.Call(fail), boom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(30 * time.Second)
	assert.ErrorIs(t, cb.Call(fail), boom)
	assert.Equal(t, StateOpen, cb.State(), "a half-open failure reopens")

	now = now.Add(31 * time.Second)
	for i := 0; i < 2; i++ {
		require.NoError(t, cb.Call(ok))
		assert.Equal(t, StateHalfOpen, cb.State())
	}
	require.NoError(t, cb.Call(ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestGuardedPublisher(t *testing.T) {
	sink := &fakeSink{err: errors.New("kafka: client has run out of available brokers")}
	cb := NewCircuitBreaker("kafka", 1, time.Hour)
	p := NewGuardedPublisher(sink, cb)
	ctx := context.Background()

	assert.Error(t, p.PublishSaleRecorded(ctx, SaleRecordedEvent{SaleID: 1}))
	assert.ErrorIs(t, p.PublishOrderEvent(ctx, OrderEvent{OrderID: 2}), ErrCircuitOpen)
	assert.ErrorIs(t, p.PublishSaleRecorded(ctx, SaleRecordedEvent{SaleID: 3}), ErrCircuitOpen)
	assert.Equal(t, 1, sink.calls)
}
