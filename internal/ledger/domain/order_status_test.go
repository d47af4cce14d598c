package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	all := []OrderStatus{
		OrderStatusPending,
		OrderStatusPreparing,
		OrderStatusOutForDelivery,
		OrderStatusDelivered,
		OrderStatusCancelled,
	}
	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusPending:        {OrderStatusPreparing, OrderStatusCancelled},
		OrderStatusPreparing:      {OrderStatusOutForDelivery, OrderStatusCancelled},
		OrderStatusOutForDelivery: {OrderStatusDelivered, OrderStatusCancelled},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestOrderStatusValid(t *testing.T) {
	assert.True(t, OrderStatusOutForDelivery.Valid())
	assert.False(t, OrderStatus("SHIPPED").Valid())
	assert.False(t, OrderStatus("").Valid())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
}
